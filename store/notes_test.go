package store

import (
	"reflect"
	"testing"

	"github.com/parishlabs/discern/models"
	"github.com/parishlabs/discern/storage"
)

func TestNoteStore_PersistenceRoundTrip(t *testing.T) {
	ms := storage.NewMemoryStorage()

	first := NewNoteStore("church_research_notes", ms)
	first.AddNote("Demographics", "Austin grew 15% over the decade", &models.NoteMetadata{
		Tags:   []string{"Demographics"},
		Source: "web",
	})
	first.AddNote("Demographics", "Median age is falling", nil)
	first.AddNote("History", "Founded in 1954", nil)

	second := NewNoteStore("church_research_notes", ms)
	if !reflect.DeepEqual(first.Mapping(), second.Mapping()) {
		t.Errorf("reloaded mapping differs:\nfirst:  %#v\nsecond: %#v", first.Mapping(), second.Mapping())
	}
}

func TestNoteStore_AddThenCount(t *testing.T) {
	s := NewNoteStore("community_research_notes", storage.NewMemoryStorage())
	s.AddNote("Schools", "seed note", nil)
	before := s.TotalCount()
	beforeLen := len(s.NotesFor("Schools"))

	const n = 4
	for i := 0; i < n; i++ {
		s.AddNote("Schools", "note", nil)
	}

	if got := s.TotalCount(); got != before+n {
		t.Errorf("total count: got %d, want %d", got, before+n)
	}
	if got := len(s.NotesFor("Schools")); got != beforeLen+n {
		t.Errorf("category length: got %d, want %d", got, beforeLen+n)
	}
}

func TestNoteStore_EditPreservesIdentity(t *testing.T) {
	s := NewNoteStore("church_research_notes", storage.NewMemoryStorage())
	created := s.AddNote("Demographics", "original text", nil)

	if !s.UpdateNote("Demographics", created.ID, "revised text") {
		t.Fatal("update reported a miss")
	}

	notes := s.NotesFor("Demographics")
	if len(notes) != 1 {
		t.Fatalf("expected one note, got %d", len(notes))
	}
	got := notes[0]
	if got.Content != "revised text" {
		t.Errorf("content: got %q, want %q", got.Content, "revised text")
	}
	if got.ID != created.ID || got.Category != created.Category || !got.Timestamp.Equal(created.Timestamp) {
		t.Errorf("identity changed: got %+v, want id/category/timestamp of %+v", got, created)
	}
}

func TestNoteStore_UpdateMissIsNoOp(t *testing.T) {
	ms := storage.NewMemoryStorage()
	s := NewNoteStore("church_research_notes", ms)
	s.AddNote("Demographics", "text", nil)
	before := s.Mapping()

	if s.UpdateNote("Demographics", "no-such-id", "x") {
		t.Error("expected miss for unknown id")
	}
	if s.UpdateNote("NoSuchCategory", "id", "x") {
		t.Error("expected miss for unknown category")
	}
	if !reflect.DeepEqual(before, s.Mapping()) {
		t.Error("mapping changed on a missed update")
	}
}

func TestNoteStore_DeleteIsExact(t *testing.T) {
	s := NewNoteStore("church_research_notes", storage.NewMemoryStorage())
	keep1 := s.AddNote("Demographics", "keep me", nil)
	victim := s.AddNote("Demographics", "delete me", nil)
	keep2 := s.AddNote("Demographics", "keep me too", nil)
	other := s.AddNote("History", "unrelated", nil)

	if !s.DeleteNote("Demographics", victim.ID) {
		t.Fatal("delete reported a miss")
	}

	demo := s.NotesFor("Demographics")
	if len(demo) != 2 || demo[0].ID != keep1.ID || demo[1].ID != keep2.ID {
		t.Errorf("unexpected survivors: %+v", demo)
	}
	hist := s.NotesFor("History")
	if len(hist) != 1 || hist[0].ID != other.ID {
		t.Errorf("other category touched: %+v", hist)
	}
	if s.TotalCount() != 3 {
		t.Errorf("total count: got %d, want 3", s.TotalCount())
	}
}

func TestNoteStore_LoadFailsSoftOnMalformedJSON(t *testing.T) {
	ms := storage.NewMemoryStorage()
	if err := ms.Save("church_research_notes", []byte("{not json")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	s := NewNoteStore("church_research_notes", ms)
	if s.TotalCount() != 0 {
		t.Errorf("expected empty store, got %d notes", s.TotalCount())
	}
	// The store still works after the bad load.
	s.AddNote("Demographics", "fresh start", nil)
	if s.TotalCount() != 1 {
		t.Errorf("store unusable after bad load: %d", s.TotalCount())
	}
}

func TestNoteStore_MemoryAuthoritativeWhenPersistFails(t *testing.T) {
	ms := storage.NewMemoryStorage()
	ms.FailSaves = true

	s := NewNoteStore("church_research_notes", ms)
	note := s.AddNote("Demographics", "survives in memory", nil)

	if s.TotalCount() != 1 {
		t.Errorf("in-memory state lost on persist failure: %d", s.TotalCount())
	}
	if got := s.NotesFor("Demographics"); len(got) != 1 || got[0].ID != note.ID {
		t.Errorf("unexpected notes: %+v", got)
	}
}

func TestNoteStore_MappingIsACopy(t *testing.T) {
	s := NewNoteStore("church_research_notes", storage.NewMemoryStorage())
	s.AddNote("Demographics", "original", nil)

	m := s.Mapping()
	m["Demographics"][0].Content = "tampered"
	m["Injected"] = []models.Note{{ID: "x"}}

	if got := s.NotesFor("Demographics")[0].Content; got != "original" {
		t.Errorf("store mutated through Mapping copy: %q", got)
	}
	if s.TotalCount() != 1 {
		t.Errorf("store grew through Mapping copy: %d", s.TotalCount())
	}
}

func TestSavedResultIndex_BadgeTracking(t *testing.T) {
	ms := storage.NewMemoryStorage()
	idx := NewSavedResultIndex("research_saved_results", ms)

	idx.Add("r1")
	idx.Add("r2")
	idx.Add("r1") // repeat is ignored

	if !idx.Has("r1") || !idx.Has("r2") || idx.Has("r3") {
		t.Errorf("membership wrong: %v", idx.List())
	}
	if got := idx.List(); !reflect.DeepEqual(got, []string{"r1", "r2"}) {
		t.Errorf("got %v, want [r1 r2]", got)
	}

	// Survives reload through the same storage.
	again := NewSavedResultIndex("research_saved_results", ms)
	if !again.Has("r2") {
		t.Error("saved ids lost across reload")
	}
}

func TestSearchHistory_MostRecentFirstCappedAtFive(t *testing.T) {
	ms := storage.NewMemoryStorage()
	h := NewSearchHistory("research_search_history", ms)

	for _, q := range []string{"one", "two", "three", "four", "five", "six"} {
		h.Record(q)
	}
	want := []string{"six", "five", "four", "three", "two"}
	if got := h.Recent(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// Re-running an old query moves it to the front without growing.
	h.Record("three")
	want = []string{"three", "six", "five", "four", "two"}
	if got := h.Recent(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	h.Record("   ")
	if got := h.Recent(); !reflect.DeepEqual(got, want) {
		t.Errorf("blank query recorded: %v", got)
	}

	again := NewSearchHistory("research_search_history", ms)
	if got := again.Recent(); !reflect.DeepEqual(got, want) {
		t.Errorf("history lost across reload: %v", got)
	}
}
