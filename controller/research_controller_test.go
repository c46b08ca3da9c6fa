package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/parishlabs/discern/models"
	"github.com/parishlabs/discern/services"
	"github.com/parishlabs/discern/storage"
)

type fixedSearch struct {
	results []models.SearchResult
}

func (f *fixedSearch) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	return f.results, nil
}

type fixedInsight struct {
	text string
}

func (f *fixedInsight) GenerateResponse(ctx context.Context, messages []services.Message, temperature float32, maxTokens int32) (string, error) {
	return f.text, nil
}

// newTestRouter wires the full route table over in-memory storage and
// stub adapters, mirroring main.go.
func newTestRouter(t *testing.T) (*gin.Engine, *storage.MemoryStorage) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ms := storage.NewMemoryStorage()
	stores := services.NewDomainStores(ms)
	research := services.NewResearchService(
		&fixedSearch{results: []models.SearchResult{{
			ID:      "r1",
			Title:   "Census Data",
			Snippet: "Austin grew 15%...",
			Type:    models.ResultTypeWeb,
			Link:    "https://census.example.gov/austin",
		}}},
		&fixedInsight{text: "Austin's population is rising."},
		stores,
		services.NewSavedResults(ms),
		nil, nil,
	)
	wizard := services.NewWizardService(research, services.NewHistory(ms))
	collection := services.NewCollectionService(stores)

	researchController := NewResearchController(research, ms)
	wizardController := NewWizardController(wizard)
	collectionController := NewCollectionController(collection, nil)

	router := gin.New()
	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/context", researchController.GetContext)
		apiV1.PUT("/context", researchController.SetContext)
		apiV1.POST("/research/:domain/search", researchController.Search)
		apiV1.POST("/research/:domain/annotate", researchController.Annotate)
		apiV1.GET("/notes/:domain", researchController.GetNotes)
		apiV1.POST("/notes/:domain", researchController.AddNote)
		apiV1.PUT("/notes/:domain/:id", researchController.UpdateNote)
		apiV1.DELETE("/notes/:domain/:id", researchController.DeleteNote)
		apiV1.POST("/wizard/:domain/sessions", wizardController.CreateSession)
		apiV1.GET("/wizard/:domain/sessions/:id", wizardController.GetSession)
		apiV1.POST("/wizard/:domain/sessions/:id/step", wizardController.SetStep)
		apiV1.POST("/wizard/:domain/sessions/:id/search", wizardController.Search)
		apiV1.POST("/wizard/:domain/sessions/:id/annotate", wizardController.Annotate)
		apiV1.POST("/wizard/:domain/sessions/:id/complete", wizardController.Complete)
		apiV1.GET("/collection/:domain", collectionController.View)
		apiV1.GET("/collection/:domain/export", collectionController.Export)
		apiV1.POST("/collection/:domain/semantic", collectionController.Semantic)
	}
	return router, ms
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSearchEndpoint_ValidationReturns400(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/research/community/search", models.ResearchSearchRequest{
		Query:    "population growth",
		Category: "Demographics",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400 (%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "location") {
		t.Errorf("error message should name the missing field: %s", w.Body.String())
	}
}

func TestSearchEndpoint_BlendedResults(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/research/community/search", models.ResearchSearchRequest{
		Query:    "population growth",
		Category: "Demographics",
		Location: "Austin, TX",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", w.Code, w.Body.String())
	}

	var resp models.ResearchSearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].Type != models.ResultTypeAI || resp.Results[0].Snippet != "Austin's population is rising." {
		t.Errorf("AI insight not first: %+v", resp.Results[0])
	}
	if resp.Results[1].ID != "r1" {
		t.Errorf("web result missing: %+v", resp.Results[1])
	}
}

func TestAnnotateAndNotesEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/research/community/annotate", models.AnnotateRequest{
		Category: "Demographics",
		Result: models.SearchResult{
			ID:      "r1",
			Title:   "Census Data",
			Snippet: "Austin grew 15%...",
			Type:    models.ResultTypeWeb,
		},
		Notes: "Useful census baseline",
		Tags:  []string{"Demographics"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/notes/community", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var notes models.NotesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &notes); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if notes.Count != 1 || len(notes.Mapping["Demographics"]) != 1 {
		t.Errorf("unexpected notes: %+v", notes)
	}
	if !strings.Contains(notes.Mapping["Demographics"][0].Content, "Austin grew 15%...") {
		t.Errorf("note content wrong: %q", notes.Mapping["Demographics"][0].Content)
	}
}

func TestNoteUpdateAndDeleteEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/notes/church", models.AddNoteRequest{
		Category: "History",
		Content:  "Founded in 1954",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d (%s)", w.Code, w.Body.String())
	}
	var note models.Note
	if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
		t.Fatalf("bad response body: %v", err)
	}

	w = doJSON(t, router, http.MethodPut, "/api/v1/notes/church/"+note.ID, models.UpdateNoteRequest{
		Category: "History",
		Content:  "Founded in 1954, rebuilt in 1982",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status: got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, "/api/v1/notes/church/no-such-id?category=History", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete miss status: got %d, want 404", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/v1/notes/church/"+note.ID+"?category=History", nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete status: got %d (%s)", w.Code, w.Body.String())
	}
}

func TestUnknownDomainReturns400(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/notes/diocese", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestContextEndpoints_RoundTrip(t *testing.T) {
	router, ms := newTestRouter(t)

	w := doJSON(t, router, http.MethodPut, "/api/v1/context", models.ContextFieldsRequest{
		ChurchName:   "First Church",
		UserLocation: "Austin, TX",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", w.Code, w.Body.String())
	}

	// Stored as plain strings under the shared keys.
	if data, ok := ms.Load("church_name"); !ok || string(data) != "First Church" {
		t.Errorf("church_name stored as %q", data)
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/context", nil)
	var resp models.ContextFieldsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.ChurchName != "First Church" || resp.UserLocation != "Austin, TX" {
		t.Errorf("round trip lost fields: %+v", resp)
	}
}

func TestWizardEndpoints_FullFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/wizard/community/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status: got %d (%s)", w.Code, w.Body.String())
	}
	var session models.WizardSessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	base := "/api/v1/wizard/community/sessions/" + session.ID

	// Completion is blocked before any note exists.
	w = doJSON(t, router, http.MethodPost, base+"/complete", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("early complete status: got %d", w.Code)
	}

	// Annotation without notes text is rejected.
	w = doJSON(t, router, http.MethodPost, base+"/annotate", models.AnnotateRequest{
		Category: "Demographics",
		Result:   models.SearchResult{ID: "r1", Snippet: "Austin grew 15%...", Type: models.ResultTypeWeb},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty-notes annotate status: got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, base+"/annotate", models.AnnotateRequest{
		Category: "Demographics",
		Result:   models.SearchResult{ID: "r1", Snippet: "Austin grew 15%...", Type: models.ResultTypeWeb},
		Notes:    "Useful census baseline",
		Tags:     []string{"Demographics"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("annotate status: got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, base+"/step", models.WizardStepRequest{Step: "review"})
	if w.Code != http.StatusOK {
		t.Fatalf("step status: got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, base+"/complete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete status: got %d (%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "assessment") {
		t.Errorf("completion should hand off to assessment: %s", w.Body.String())
	}
}

func TestCollectionEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/notes/community", models.AddNoteRequest{
		Category: "Demographics",
		Content:  "Census baseline",
		Metadata: &models.NoteMetadata{Tags: []string{"Key Insight"}},
	})
	doJSON(t, router, http.MethodPost, "/api/v1/notes/community", models.AddNoteRequest{
		Category: "History",
		Content:  "Founded in 1954",
	})

	w := doJSON(t, router, http.MethodGet, "/api/v1/collection/community?q=census&category=Demographics&tag=Key+Insight", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("view status: got %d (%s)", w.Code, w.Body.String())
	}
	var view models.CollectionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if view.Count != 1 || view.Notes[0].Content != "Census baseline" {
		t.Errorf("unexpected view: %+v", view)
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/collection/community/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status: got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("export content type: %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "community-research-summary.txt") {
		t.Errorf("export disposition: %q", cd)
	}
	if !strings.Contains(w.Body.String(), "== Demographics ==") {
		t.Errorf("export body missing groups:\n%s", w.Body.String())
	}

	// Semantic search is disabled in this wiring.
	w = doJSON(t, router, http.MethodPost, "/api/v1/collection/community/semantic", models.SemanticQueryRequest{Query: "census"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("semantic status: got %d, want 503", w.Code)
	}
}
