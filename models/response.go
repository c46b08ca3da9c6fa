package models

// ResearchSearchResponse carries the blended result list. Stale is set
// when a newer search was issued on the same session while this one was
// in flight; stale responses carry no results and must not replace the
// displayed list. Warnings surface degraded adapters (the flow itself
// still succeeds).
type ResearchSearchResponse struct {
	Query    string         `json:"query"`
	Results  []SearchResult `json:"results"`
	Stale    bool           `json:"stale,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// AnnotateResponse returns the note created from a search result.
type AnnotateResponse struct {
	Note    Note   `json:"note"`
	Message string `json:"message"`
}

// NotesResponse is the full mapping for one research domain.
type NotesResponse struct {
	Count   int         `json:"count"`
	Mapping NoteMapping `json:"mapping"`
}

// CollectionResponse is a filtered dashboard view over the note store.
type CollectionResponse struct {
	Count      int      `json:"count"`
	Notes      []Note   `json:"notes"`
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
}

// WizardSessionResponse is the snapshot a client renders a wizard from.
type WizardSessionResponse struct {
	ID          string   `json:"id"`
	Domain      string   `json:"domain"`
	Step        string   `json:"step"`
	NoteCount   int      `json:"note_count"`
	CanReview   bool     `json:"can_review"`
	CanComplete bool     `json:"can_complete"`
	QuickTags   []string `json:"quick_tags"`
	SavedIDs    []string `json:"saved_ids"`
	History     []string `json:"history"`
}

// SemanticQueryResponse lists chunks from the semantic note index.
type SemanticQueryResponse struct {
	Hits []SemanticHit `json:"hits"`
}

// ContextFieldsResponse echoes the stored shared context fields.
type ContextFieldsResponse struct {
	ChurchName   string `json:"church_name"`
	UserLocation string `json:"user_location"`
}
