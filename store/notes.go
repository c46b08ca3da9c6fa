// Package store holds the durable client state of the research flows:
// the category-keyed note mapping, the annotated-result badge index, and
// the recent search history. Everything persists through the storage
// port; persistence failures are logged and swallowed, so the in-memory
// state stays authoritative for the life of the process.
package store

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parishlabs/discern/models"
	"github.com/parishlabs/discern/storage"
)

// NoteStore is the category -> []Note mapping for one research domain.
// Every mutation re-serializes the whole mapping to its storage key, so
// the persisted form is consistent the moment a call returns. That is
// O(total notes) per mutation, acceptable at the tens-of-notes scale
// these flows produce.
type NoteStore struct {
	key     string
	storage storage.Storage

	mu    sync.Mutex
	notes models.NoteMapping
}

// NewNoteStore loads the persisted mapping for key. A missing key or
// malformed JSON yields an empty mapping; load never fails.
func NewNoteStore(key string, st storage.Storage) *NoteStore {
	s := &NoteStore{
		key:     key,
		storage: st,
		notes:   make(models.NoteMapping),
	}
	s.Reload()
	return s
}

// Key returns the storage key this store persists under.
func (s *NoteStore) Key() string {
	return s.key
}

// Reload replaces the in-memory mapping with the persisted one. Parse
// failures leave an empty mapping rather than propagating.
func (s *NoteStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.storage.Load(s.key)
	if !ok {
		s.notes = make(models.NoteMapping)
		return
	}
	var mapping models.NoteMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		log.Printf("STORE WARN: discarding malformed mapping for %s: %v", s.key, err)
		s.notes = make(models.NoteMapping)
		return
	}
	if mapping == nil {
		mapping = make(models.NoteMapping)
	}
	s.notes = mapping
}

// AddNote appends a note to the category, creating the category on first
// use, and returns the created note.
func (s *NoteStore) AddNote(category, content string, metadata *models.NoteMetadata) models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := models.Note{
		ID:        uuid.New().String(),
		Category:  category,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
	s.notes[category] = append(s.notes[category], note)
	s.persistLocked()
	return note
}

// UpdateNote replaces the content of the matching note in place,
// preserving id, category and timestamp. A miss is a no-op.
func (s *NoteStore) UpdateNote(category, id, newContent string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.notes[category]
	for i := range list {
		if list[i].ID == id {
			list[i].Content = newContent
			s.persistLocked()
			return true
		}
	}
	return false
}

// DeleteNote removes the matching note. A miss is a no-op.
func (s *NoteStore) DeleteNote(category, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.notes[category]
	for i := range list {
		if list[i].ID == id {
			s.notes[category] = append(list[:i:i], list[i+1:]...)
			s.persistLocked()
			return true
		}
	}
	return false
}

// Mapping returns a deep copy of the full mapping.
func (s *NoteStore) Mapping() models.NoteMapping {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(models.NoteMapping, len(s.notes))
	for category, list := range s.notes {
		cp := make([]models.Note, len(list))
		copy(cp, list)
		out[category] = cp
	}
	return out
}

// NotesFor returns a copy of one category's notes in insertion order.
func (s *NoteStore) NotesFor(category string) []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.notes[category]
	cp := make([]models.Note, len(list))
	copy(cp, list)
	return cp
}

// AllNotes flattens the mapping into a single slice, category order
// unspecified, note order within a category preserved.
func (s *NoteStore) AllNotes() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Note
	for _, list := range s.notes {
		out = append(out, list...)
	}
	return out
}

// TotalCount sums note counts across all categories.
func (s *NoteStore) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, list := range s.notes {
		total += len(list)
	}
	return total
}

// persistLocked re-serializes the full mapping. Storage failures are
// logged and swallowed: the in-memory mapping stays authoritative.
func (s *NoteStore) persistLocked() {
	data, err := json.Marshal(s.notes)
	if err != nil {
		log.Printf("STORE WARN: could not marshal mapping for %s: %v", s.key, err)
		return
	}
	if err := s.storage.Save(s.key, data); err != nil {
		log.Printf("STORE WARN: could not persist %s: %v", s.key, err)
	}
}
