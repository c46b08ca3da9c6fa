package store

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/parishlabs/discern/storage"
)

// historyLimit caps the recent-search list.
const historyLimit = 5

// SearchHistory is a most-recent-first list of past search queries,
// capped at five entries. Re-running a query moves it to the front.
type SearchHistory struct {
	key     string
	storage storage.Storage

	mu      sync.Mutex
	entries []string
}

// NewSearchHistory loads the persisted history, failing soft to empty
// and re-applying the cap in case the stored list is oversized.
func NewSearchHistory(key string, st storage.Storage) *SearchHistory {
	h := &SearchHistory{key: key, storage: st}
	data, ok := st.Load(key)
	if ok {
		var entries []string
		if err := json.Unmarshal(data, &entries); err != nil {
			log.Printf("STORE WARN: discarding malformed search history for %s: %v", key, err)
		} else {
			if len(entries) > historyLimit {
				entries = entries[:historyLimit]
			}
			h.entries = entries
		}
	}
	return h
}

// Record puts the query at the front, dropping any earlier occurrence
// and anything past the cap. Blank queries are ignored.
func (h *SearchHistory) Record(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := make([]string, 0, historyLimit)
	entries = append(entries, query)
	for _, e := range h.entries {
		if e == query {
			continue
		}
		entries = append(entries, e)
		if len(entries) == historyLimit {
			break
		}
	}
	h.entries = entries
	h.persistLocked()
}

// Recent returns the history, most recent first.
func (h *SearchHistory) Recent() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *SearchHistory) persistLocked() {
	data, err := json.Marshal(h.entries)
	if err != nil {
		log.Printf("STORE WARN: could not marshal search history for %s: %v", h.key, err)
		return
	}
	if err := h.storage.Save(h.key, data); err != nil {
		log.Printf("STORE WARN: could not persist %s: %v", h.key, err)
	}
}
