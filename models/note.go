package models

import "time"

// NoteMetadata carries optional provenance for a note that was created
// by annotating a search result rather than typed by hand.
type NoteMetadata struct {
	Tags        []string `json:"tags,omitempty"`
	Source      string   `json:"source,omitempty"` // "web" or "ai"
	SourceTitle string   `json:"sourceTitle,omitempty"`
	SourceLink  string   `json:"sourceLink,omitempty"`
}

// Note is a persisted research fragment. A note belongs to exactly one
// category; its id, category and timestamp never change after creation,
// only the content is editable.
type Note struct {
	ID        string        `json:"id"`
	Category  string        `json:"category"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Metadata  *NoteMetadata `json:"metadata,omitempty"`
}

// HasTag reports whether the note carries the given tag.
func (n Note) HasTag(tag string) bool {
	if n.Metadata == nil {
		return false
	}
	for _, t := range n.Metadata.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NoteMapping is the category -> notes shape the store persists.
// Insertion order within a category is chronological.
type NoteMapping map[string][]Note
