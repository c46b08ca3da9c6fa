package store

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/parishlabs/discern/storage"
)

// SavedResultIndex remembers which search result ids have already been
// annotated, so clients can render a "Saved" badge. It is a display-only
// index: the same result can always be annotated again, producing
// another note. The persisted id list is the single source of truth;
// note content is never re-derived against it.
type SavedResultIndex struct {
	key     string
	storage storage.Storage

	mu  sync.Mutex
	ids []string
	set map[string]bool
}

// NewSavedResultIndex loads the persisted id list, failing soft to empty.
func NewSavedResultIndex(key string, st storage.Storage) *SavedResultIndex {
	idx := &SavedResultIndex{
		key:     key,
		storage: st,
		set:     make(map[string]bool),
	}
	data, ok := st.Load(key)
	if ok {
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			log.Printf("STORE WARN: discarding malformed saved-result list for %s: %v", key, err)
		} else {
			for _, id := range ids {
				if !idx.set[id] {
					idx.set[id] = true
					idx.ids = append(idx.ids, id)
				}
			}
		}
	}
	return idx
}

// Add records a result id. Repeats are ignored.
func (s *SavedResultIndex) Add(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set[id] {
		return
	}
	s.set[id] = true
	s.ids = append(s.ids, id)
	s.persistLocked()
}

// Has reports whether the result id has been annotated before.
func (s *SavedResultIndex) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set[id]
}

// List returns the ids in insertion order.
func (s *SavedResultIndex) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *SavedResultIndex) persistLocked() {
	data, err := json.Marshal(s.ids)
	if err != nil {
		log.Printf("STORE WARN: could not marshal saved-result list for %s: %v", s.key, err)
		return
	}
	if err := s.storage.Save(s.key, data); err != nil {
		log.Printf("STORE WARN: could not persist %s: %v", s.key, err)
	}
}
