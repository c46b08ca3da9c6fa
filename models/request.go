package models

// ResearchSearchRequest is the body for POST /api/v1/research/:domain/search.
// Location is always required; EntityName is additionally required for the
// church domain (the congregation being researched).
type ResearchSearchRequest struct {
	Query      string `json:"query"`
	Category   string `json:"category"`
	Location   string `json:"location"`
	EntityName string `json:"entity_name,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// AnnotateRequest converts a search result into a note. Notes text and
// tags are optional on the direct research flow; the wizard's annotation
// modal requires non-empty notes.
type AnnotateRequest struct {
	Category     string       `json:"category"`
	Result       SearchResult `json:"result"`
	Notes        string       `json:"notes,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	FetchContent bool         `json:"fetch_content,omitempty"`
}

// AddNoteRequest creates a manually entered note.
type AddNoteRequest struct {
	Category string        `json:"category"`
	Content  string        `json:"content"`
	Metadata *NoteMetadata `json:"metadata,omitempty"`
}

// UpdateNoteRequest edits a note's content in place.
type UpdateNoteRequest struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

// WizardStepRequest moves a wizard session to a named step.
type WizardStepRequest struct {
	Step string `json:"step"`
}

// ContextFieldsRequest sets the shared context fields used to compose
// search queries.
type ContextFieldsRequest struct {
	ChurchName   string `json:"church_name"`
	UserLocation string `json:"user_location"`
}

// SemanticQueryRequest searches the semantic note index.
type SemanticQueryRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}
