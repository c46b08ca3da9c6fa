package models

// Result types for the blended search list. The AI insight always
// renders first, followed by ranked web results.
const (
	ResultTypeAI  = "ai"
	ResultTypeWeb = "web"
)

// SearchResult is an ephemeral item returned by the search or AI insight
// adapters. It is never persisted; annotating it copies its fields into a
// Note.
type SearchResult struct {
	ID            string `json:"id"`
	Title         string `json:"title,omitempty"`
	Snippet       string `json:"snippet"`
	Type          string `json:"type"` // "web" or "ai"
	Link          string `json:"link,omitempty"`
	DisplayedLink string `json:"displayed_link,omitempty"`
	Position      int    `json:"position,omitempty"`
}

// SemanticHit is a chunk returned by the semantic note index, pointing
// back at the note it was derived from.
type SemanticHit struct {
	NoteID   string `json:"note_id"`
	Category string `json:"category"`
	Text     string `json:"text"`
}
