package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/parishlabs/discern/models"
	"github.com/parishlabs/discern/store"
	"github.com/parishlabs/discern/storage"
)

// Research domains and their storage keys.
const (
	DomainChurch    = "church"
	DomainCommunity = "community"

	churchNotesKey    = "church_research_notes"
	communityNotesKey = "community_research_notes"
	savedResultsKey   = "research_saved_results"
	searchHistoryKey  = "research_search_history"
)

// Insight generation bounds.
const (
	insightTemperature = 0.7
	insightMaxTokens   = 1024
)

// fetchedContentLimit caps how much extracted article text an
// annotation can absorb.
const fetchedContentLimit = 4000

// ErrNotFound reports a note/session lookup miss.
var ErrNotFound = errors.New("not found")

// ValidationError blocks an action on missing or malformed input. It is
// recovered locally: controllers surface the message and leave state
// unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NoteIndexer maintains the derived semantic index alongside note
// mutations. Implementations are best-effort; index failures never fail
// a note operation.
type NoteIndexer interface {
	IndexNote(ctx context.Context, domain string, note models.Note) error
	RemoveNote(ctx context.Context, noteID string) error
}

// ArticleFetcher pulls readable text from a result's page for richer
// annotations.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, link string) (title, text string, err error)
}

// DomainStores owns one note store per research domain.
type DomainStores struct {
	stores map[string]*store.NoteStore
}

// NewDomainStores builds the church and community stores over the
// shared storage port.
func NewDomainStores(st storage.Storage) *DomainStores {
	return &DomainStores{stores: map[string]*store.NoteStore{
		DomainChurch:    store.NewNoteStore(churchNotesKey, st),
		DomainCommunity: store.NewNoteStore(communityNotesKey, st),
	}}
}

// For returns the store for a domain, or a ValidationError for unknown
// domains.
func (d *DomainStores) For(domain string) (*store.NoteStore, error) {
	s, ok := d.stores[domain]
	if !ok {
		return nil, &ValidationError{Field: "domain", Message: fmt.Sprintf("unknown research domain %q", domain)}
	}
	return s, nil
}

// NewSavedResults builds the annotated-result badge index on its
// shared storage key.
func NewSavedResults(st storage.Storage) *store.SavedResultIndex {
	return store.NewSavedResultIndex(savedResultsKey, st)
}

// NewHistory builds the recent-search history on its shared storage key.
func NewHistory(st storage.Storage) *store.SearchHistory {
	return store.NewSearchHistory(searchHistoryKey, st)
}

// All returns every domain store, keyed by domain.
func (d *DomainStores) All() map[string]*store.NoteStore {
	out := make(map[string]*store.NoteStore, len(d.stores))
	for domain, s := range d.stores {
		out[domain] = s
	}
	return out
}

// ResearchService drives the search-and-annotate flow: it validates
// context fields, composes queries, blends the AI insight with ranked
// web results, and converts results into notes.
type ResearchService interface {
	Search(ctx context.Context, domain string, req models.ResearchSearchRequest) (*models.ResearchSearchResponse, error)
	Annotate(ctx context.Context, domain string, req models.AnnotateRequest) (*models.AnnotateResponse, error)
	AddNote(ctx context.Context, domain string, req models.AddNoteRequest) (*models.Note, error)
	UpdateNote(ctx context.Context, domain, category, id, content string) error
	DeleteNote(ctx context.Context, domain, category, id string) error
	Notes(domain string) (*models.NotesResponse, error)
	StoreFor(domain string) (*store.NoteStore, error)
	SavedResults() *store.SavedResultIndex
}

type researchServiceImpl struct {
	search  SearchService
	insight InsightService
	stores  *DomainStores
	saved   *store.SavedResultIndex
	fetcher ArticleFetcher
	indexer NoteIndexer
	extract *SectionExtractor

	// Per-session monotonic search sequence. A response whose sequence
	// is no longer current is discarded instead of overwriting newer
	// results.
	mu   sync.Mutex
	seqs map[string]uint64
}

// NewResearchService wires the flow. fetcher and indexer may be nil,
// disabling page fetch and semantic indexing respectively.
func NewResearchService(search SearchService, insight InsightService, stores *DomainStores, saved *store.SavedResultIndex, fetcher ArticleFetcher, indexer NoteIndexer) ResearchService {
	return &researchServiceImpl{
		search:  search,
		insight: insight,
		stores:  stores,
		saved:   saved,
		fetcher: fetcher,
		indexer: indexer,
		extract: NewSectionExtractor(),
		seqs:    make(map[string]uint64),
	}
}

func (r *researchServiceImpl) StoreFor(domain string) (*store.NoteStore, error) {
	return r.stores.For(domain)
}

func (r *researchServiceImpl) SavedResults() *store.SavedResultIndex {
	return r.saved
}

// beginSearch issues the next sequence number for a session.
func (r *researchServiceImpl) beginSearch(sessionID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs[sessionID]++
	return r.seqs[sessionID]
}

// isCurrent reports whether seq is still the newest search on the session.
func (r *researchServiceImpl) isCurrent(sessionID string, seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seqs[sessionID] == seq
}

// validateSearch enforces the context-field gate: location always, and
// the entity name for the church domain. No adapter is invoked when
// validation fails.
func validateSearch(domain string, req models.ResearchSearchRequest) error {
	if strings.TrimSpace(req.Location) == "" {
		return &ValidationError{Field: "location", Message: "location is required before searching"}
	}
	if domain == DomainChurch && strings.TrimSpace(req.EntityName) == "" {
		return &ValidationError{Field: "entity_name", Message: "church name is required before searching"}
	}
	return nil
}

// composeQuery builds the deterministic search query: free text first,
// then the substituted category prompt, then the location.
func composeQuery(req models.ResearchSearchRequest) string {
	template, _ := promptByType(req.Category)
	prompt := substitutePlaceholders(template, map[string]string{
		"entity":   strings.TrimSpace(req.EntityName),
		"location": strings.TrimSpace(req.Location),
		"category": strings.TrimSpace(req.Category),
	})

	parts := make([]string, 0, 3)
	if text := strings.TrimSpace(req.Query); text != "" {
		parts = append(parts, text)
	}
	parts = append(parts, prompt, strings.TrimSpace(req.Location))
	return strings.Join(parts, " ")
}

func (r *researchServiceImpl) Search(ctx context.Context, domain string, req models.ResearchSearchRequest) (*models.ResearchSearchResponse, error) {
	if _, err := r.stores.For(domain); err != nil {
		return nil, err
	}
	if err := validateSearch(domain, req); err != nil {
		return nil, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = domain
	}
	seq := r.beginSearch(sessionID)

	query := composeQuery(req)
	log.Printf("SERVICE: Searching %s domain (seq %d): %q", domain, seq, query)

	var warnings []string

	insightText := r.generateInsight(ctx, req, query)
	if insightText == insightFallback {
		warnings = append(warnings, "AI insight unavailable; showing web results only")
	}

	var webResults []models.SearchResult
	if results, err := r.search.Search(ctx, query); err != nil {
		log.Printf("SERVICE WARN: web search failed: %v", err)
		warnings = append(warnings, "Web search failed; try again")
	} else {
		webResults = results
	}

	// A newer search on this session wins; this response is discarded.
	if !r.isCurrent(sessionID, seq) {
		log.Printf("SERVICE: Discarding stale search response (seq %d) for session %s", seq, sessionID)
		return &models.ResearchSearchResponse{Query: query, Stale: true}, nil
	}

	results := make([]models.SearchResult, 0, len(webResults)+1)
	results = append(results, models.SearchResult{
		ID:      "ai-insight",
		Title:   "AI Insight",
		Snippet: insightText,
		Type:    models.ResultTypeAI,
	})
	results = append(results, webResults...)

	return &models.ResearchSearchResponse{
		Query:    query,
		Results:  results,
		Warnings: warnings,
	}, nil
}

// generateInsight runs the AI insight adapter, degrading to the local
// fallback sentence on any failure.
func (r *researchServiceImpl) generateInsight(ctx context.Context, req models.ResearchSearchRequest, query string) string {
	if r.insight == nil {
		return insightFallback
	}

	template, found := promptByType(req.Category)
	if !found {
		log.Printf("SERVICE: No prompt template for category %q, using default", req.Category)
	}
	system := insightSystemPrompt + "\n\n" + substitutePlaceholders(template, map[string]string{
		"entity":   strings.TrimSpace(req.EntityName),
		"location": strings.TrimSpace(req.Location),
		"category": strings.TrimSpace(req.Category),
	})

	var user strings.Builder
	fmt.Fprintf(&user, "Research query: %s\n", query)
	fmt.Fprintf(&user, "Category: %s\n", req.Category)
	fmt.Fprintf(&user, "Location: %s\n", req.Location)
	if entity := strings.TrimSpace(req.EntityName); entity != "" {
		fmt.Fprintf(&user, "Congregation: %s\n", entity)
	}

	text, err := r.insight.GenerateResponse(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user.String()},
	}, insightTemperature, insightMaxTokens)
	if err != nil {
		log.Printf("SERVICE WARN: insight generation failed: %v", err)
		return insightFallback
	}
	// Models occasionally answer in HTML; render it as markdown.
	return r.extract.Normalize(text)
}

// annotationContent derives note content from a result: AI insights are
// prefixed, web results lead with their title.
func annotationContent(result models.SearchResult) string {
	if result.Type == models.ResultTypeAI {
		return "AI Insight:\n" + result.Snippet
	}
	if result.Title == "" {
		return result.Snippet
	}
	return result.Title + "\n" + result.Snippet
}

func (r *researchServiceImpl) Annotate(ctx context.Context, domain string, req models.AnnotateRequest) (*models.AnnotateResponse, error) {
	noteStore, err := r.stores.For(domain)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Category) == "" {
		return nil, &ValidationError{Field: "category", Message: "category is required"}
	}
	if strings.TrimSpace(req.Result.Snippet) == "" {
		return nil, &ValidationError{Field: "result", Message: "result snippet is empty"}
	}

	content := annotationContent(req.Result)
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		content += "\n\n" + notes
	}
	if req.FetchContent && req.Result.Link != "" && r.fetcher != nil {
		if _, text, err := r.fetcher.FetchArticle(ctx, req.Result.Link); err != nil {
			log.Printf("SERVICE WARN: could not fetch %s: %v", req.Result.Link, err)
		} else {
			if len(text) > fetchedContentLimit {
				// Cut on a rune boundary so the tail stays valid UTF-8.
				cut := fetchedContentLimit
				for cut > 0 && !utf8.RuneStart(text[cut]) {
					cut--
				}
				text = text[:cut]
			}
			content += "\n\n" + text
		}
	}

	metadata := &models.NoteMetadata{
		Tags:        req.Tags,
		Source:      req.Result.Type,
		SourceTitle: req.Result.Title,
		SourceLink:  req.Result.Link,
	}

	// Repeat annotations of the same result are allowed and simply add
	// more notes; no dedup happens at this layer.
	note := noteStore.AddNote(req.Category, content, metadata)
	r.saved.Add(req.Result.ID)
	r.indexAdded(ctx, domain, note)

	return &models.AnnotateResponse{Note: note, Message: "Result added to notes"}, nil
}

func (r *researchServiceImpl) AddNote(ctx context.Context, domain string, req models.AddNoteRequest) (*models.Note, error) {
	noteStore, err := r.stores.For(domain)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Category) == "" {
		return nil, &ValidationError{Field: "category", Message: "category is required"}
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, &ValidationError{Field: "content", Message: "content is required"}
	}
	note := noteStore.AddNote(req.Category, req.Content, req.Metadata)
	r.indexAdded(ctx, domain, note)
	return &note, nil
}

func (r *researchServiceImpl) UpdateNote(ctx context.Context, domain, category, id, content string) error {
	noteStore, err := r.stores.For(domain)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Field: "content", Message: "content is required"}
	}
	if !noteStore.UpdateNote(category, id, content) {
		return fmt.Errorf("note %s in category %q: %w", id, category, ErrNotFound)
	}
	if r.indexer != nil {
		// Re-index the edited content under the same note id.
		if err := r.indexer.RemoveNote(ctx, id); err != nil {
			log.Printf("SERVICE WARN: could not de-index note %s: %v", id, err)
		}
		for _, note := range noteStore.NotesFor(category) {
			if note.ID == id {
				r.indexAdded(ctx, domain, note)
				break
			}
		}
	}
	return nil
}

func (r *researchServiceImpl) DeleteNote(ctx context.Context, domain, category, id string) error {
	noteStore, err := r.stores.For(domain)
	if err != nil {
		return err
	}
	if !noteStore.DeleteNote(category, id) {
		return fmt.Errorf("note %s in category %q: %w", id, category, ErrNotFound)
	}
	if r.indexer != nil {
		if err := r.indexer.RemoveNote(ctx, id); err != nil {
			log.Printf("SERVICE WARN: could not de-index note %s: %v", id, err)
		}
	}
	return nil
}

func (r *researchServiceImpl) Notes(domain string) (*models.NotesResponse, error) {
	noteStore, err := r.stores.For(domain)
	if err != nil {
		return nil, err
	}
	return &models.NotesResponse{
		Count:   noteStore.TotalCount(),
		Mapping: noteStore.Mapping(),
	}, nil
}

// indexAdded pushes a note into the semantic index, best-effort.
func (r *researchServiceImpl) indexAdded(ctx context.Context, domain string, note models.Note) {
	if r.indexer == nil {
		return
	}
	if err := r.indexer.IndexNote(ctx, domain, note); err != nil {
		log.Printf("SERVICE WARN: could not index note %s: %v", note.ID, err)
	}
}
