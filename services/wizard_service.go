package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parishlabs/discern/models"
	"github.com/parishlabs/discern/store"
)

// Wizard steps. The wizard sequences research into exactly two steps;
// the step selector may jump freely, but completion is gated on
// accumulated notes.
const (
	StepSearch = "search"
	StepReview = "review"
)

// quickTags is the fixed vocabulary offered by the annotation modal.
// Free-form tags are also accepted.
var quickTags = []string{"Key Insight", "Demographics", "Opportunity", "Challenge", "Resource"}

// assessmentRoute is where a completed wizard hands control.
const assessmentRoute = "assessment"

// WizardSession is one run of the two-step research wizard.
type WizardSession struct {
	ID        string
	Domain    string
	Step      string
	CreatedAt time.Time
}

// WizardService owns wizard sessions and the affordances derived from
// them: step transitions, the review/completion gates, the saved-result
// badge index, and the recent search history.
type WizardService struct {
	research ResearchService
	history  *store.SearchHistory

	mu       sync.Mutex
	sessions map[string]*WizardSession
}

// NewWizardService creates the wizard layer over the research flow.
func NewWizardService(research ResearchService, history *store.SearchHistory) *WizardService {
	return &WizardService{
		research: research,
		history:  history,
		sessions: make(map[string]*WizardSession),
	}
}

// CreateSession starts a new wizard at the search step.
func (w *WizardService) CreateSession(domain string) (*models.WizardSessionResponse, error) {
	if _, err := w.research.StoreFor(domain); err != nil {
		return nil, err
	}
	session := &WizardSession{
		ID:        uuid.New().String(),
		Domain:    domain,
		Step:      StepSearch,
		CreatedAt: time.Now().UTC(),
	}
	w.mu.Lock()
	w.sessions[session.ID] = session
	w.mu.Unlock()

	log.Printf("WIZARD: Created session %s for %s research", session.ID, domain)
	return w.snapshot(session)
}

// Session returns the current snapshot for a session id.
func (w *WizardService) Session(id string) (*models.WizardSessionResponse, error) {
	session, err := w.lookup(id)
	if err != nil {
		return nil, err
	}
	return w.snapshot(session)
}

// SetStep moves the wizard to a named step. Both directions are always
// allowed; the gating lives in the affordance flags, not the transition.
func (w *WizardService) SetStep(id, step string) (*models.WizardSessionResponse, error) {
	if step != StepSearch && step != StepReview {
		return nil, &ValidationError{Field: "step", Message: fmt.Sprintf("unknown step %q", step)}
	}
	session, err := w.lookup(id)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	session.Step = step
	w.mu.Unlock()
	return w.snapshot(session)
}

// Search runs a wizard search: it records the query in the history and
// threads the session id through for the staleness guard.
func (w *WizardService) Search(ctx context.Context, id string, req models.ResearchSearchRequest) (*models.ResearchSearchResponse, error) {
	session, err := w.lookup(id)
	if err != nil {
		return nil, err
	}
	req.SessionID = session.ID
	resp, err := w.research.Search(ctx, session.Domain, req)
	if err != nil {
		return nil, err
	}
	if !resp.Stale {
		w.history.Record(strings.TrimSpace(req.Query))
	}
	return resp, nil
}

// Annotate is the wizard's annotation modal: unlike the direct research
// flow, it requires non-empty notes text before saving. "Save & Close"
// and "Save & Continue Searching" both land here; the difference is
// purely which client surface regains focus.
func (w *WizardService) Annotate(ctx context.Context, id string, req models.AnnotateRequest) (*models.AnnotateResponse, error) {
	session, err := w.lookup(id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Notes) == "" {
		return nil, &ValidationError{Field: "notes", Message: "notes text is required"}
	}
	return w.research.Annotate(ctx, session.Domain, req)
}

// Complete finishes the wizard. Precondition: the session is on the
// review step and at least one note exists. On success the caller is
// handed the next route in the discernment flow.
func (w *WizardService) Complete(id string) (string, error) {
	session, err := w.lookup(id)
	if err != nil {
		return "", err
	}
	noteStore, err := w.research.StoreFor(session.Domain)
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	step := session.Step
	w.mu.Unlock()

	if step != StepReview {
		return "", &ValidationError{Field: "step", Message: "review the collected items before continuing"}
	}
	if noteStore.TotalCount() == 0 {
		return "", &ValidationError{Field: "notes", Message: "add at least one research note before continuing"}
	}
	log.Printf("WIZARD: Session %s complete, continuing to %s", session.ID, assessmentRoute)
	return assessmentRoute, nil
}

// QuickTags returns the fixed annotation tag vocabulary.
func (w *WizardService) QuickTags() []string {
	out := make([]string, len(quickTags))
	copy(out, quickTags)
	return out
}

func (w *WizardService) lookup(id string) (*WizardSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	session, ok := w.sessions[id]
	if !ok {
		return nil, fmt.Errorf("wizard session %s: %w", id, ErrNotFound)
	}
	return session, nil
}

// snapshot derives the affordance flags the client renders from. The
// review affordance appears once any note exists; completion requires
// being on the review step as well.
func (w *WizardService) snapshot(session *WizardSession) (*models.WizardSessionResponse, error) {
	noteStore, err := w.research.StoreFor(session.Domain)
	if err != nil {
		return nil, err
	}
	count := noteStore.TotalCount()

	w.mu.Lock()
	step := session.Step
	w.mu.Unlock()

	return &models.WizardSessionResponse{
		ID:          session.ID,
		Domain:      session.Domain,
		Step:        step,
		NoteCount:   count,
		CanReview:   count > 0,
		CanComplete: step == StepReview && count > 0,
		QuickTags:   w.QuickTags(),
		SavedIDs:    w.research.SavedResults().List(),
		History:     w.history.Recent(),
	}, nil
}
