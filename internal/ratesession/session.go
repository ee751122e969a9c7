// Package ratesession drives the operator workflow over a single user's rate
// history: load, edit, create, reload. It is the stateful caller the rate
// service expects — it owns the loading flag, keeps at most one write in
// flight, reconciles optimistic edits by record key, and discards results of
// loads that navigation has superseded.
package ratesession

import (
	"context"
	"errors"
	"sync"

	"user-rates/internal/notify"
	"user-rates/internal/rate"
	"user-rates/internal/shared/apperror"
)

type State int

const (
	StateIdle State = iota
	StateHistoryLoading
	StateHistoryLoaded
	StateEditSubmitting
	StateCreateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHistoryLoading:
		return "history_loading"
	case StateHistoryLoaded:
		return "history_loaded"
	case StateEditSubmitting:
		return "edit_submitting"
	case StateCreateSubmitting:
		return "create_submitting"
	default:
		return "unknown"
	}
}

var (
	ErrNoOpenSession     = errors.New("no user history is open")
	ErrBusy              = errors.New("another operation is still in flight")
	ErrAlreadyOpen       = errors.New("a user history is already open")
	ErrSessionSuperseded = errors.New("session was closed while loading")
)

// Store is the slice of the rate service the session drives.
type Store interface {
	ListByUser(ctx context.Context, userID string) ([]rate.RateResponse, error)
	Create(ctx context.Context, req rate.CreateRateRequest) (rate.RateResponse, error)
	Update(ctx context.Context, req rate.UpdateRateRequest) (rate.RateResponse, error)
	ProposeNew(ctx context.Context, userID string) (rate.NewRateProposal, error)
}

// Session is an explicit state object: one open history view for one user at
// a time, with the edit and create workflows mutually exclusive. Methods may
// be called from UI callback goroutines; the session serializes its own state.
type Session struct {
	store    Store
	notifier notify.Notifier

	mu      sync.Mutex
	state   State
	userID  string
	records []rate.RateResponse
	gen     int // bumped on Close; in-flight loads compare against it
}

func New(store Store, notifier notify.Notifier) *Session {
	return &Session{
		store:    store,
		notifier: notifier,
		state:    StateIdle,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Records returns the displayed history, newest effective date first.
func (s *Session) Records() []rate.RateResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]rate.RateResponse, len(s.records))
	copy(out, s.records)
	return out
}

// Open loads the rate history for a user. The previous view must be closed
// first; opening is the only transition out of Idle.
func (s *Session) Open(ctx context.Context, userID string) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.state = StateHistoryLoading
	s.userID = userID
	s.records = nil
	gen := s.gen
	s.mu.Unlock()

	return s.load(ctx, gen)
}

// Reload re-fetches the authoritative history for the open user.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.mu.Unlock()
		return ErrNoOpenSession
	case StateEditSubmitting, StateCreateSubmitting:
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = StateHistoryLoading
	gen := s.gen
	s.mu.Unlock()

	return s.load(ctx, gen)
}

// load always leaves the loading state behind, success or failure, and
// silently drops its result when the session was closed underneath it.
func (s *Session) load(ctx context.Context, gen int) error {
	s.mu.Lock()
	userID := s.userID
	s.mu.Unlock()

	records, err := s.store.ListByUser(ctx, userID)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSessionSuperseded
	}

	if err != nil {
		// Stale rows next to an error notice would mislead; clear them.
		s.records = nil
		s.state = StateHistoryLoaded
		s.mu.Unlock()

		s.notifier.Notify(ctx, notify.Message{
			Severity: notify.SeverityError,
			Summary:  "Load failed",
			Detail:   "Could not load rate history for this user.",
		})
		return err
	}

	s.records = records
	s.state = StateHistoryLoaded
	s.mu.Unlock()
	return nil
}

// ProposeNew pre-fills the creation form for the open user.
func (s *Session) ProposeNew(ctx context.Context) (rate.NewRateProposal, error) {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return rate.NewRateProposal{}, ErrNoOpenSession
	}
	userID := s.userID
	s.mu.Unlock()

	return s.store.ProposeNew(ctx, userID)
}

// SubmitCreate sends a new effective-dated record and, on success, re-fetches
// the history rather than splicing the record in locally: the reload is what
// guarantees correct ordering and surfaces store-side duplicate rejection.
func (s *Session) SubmitCreate(ctx context.Context, effectiveFrom, hourlyRate string) error {
	userID, gen, err := s.beginWrite(StateCreateSubmitting)
	if err != nil {
		return err
	}

	_, err = s.store.Create(ctx, rate.CreateRateRequest{
		UserID:        userID,
		EffectiveFrom: effectiveFrom,
		HourlyRate:    hourlyRate,
	})
	if err != nil {
		// Keep current records and stay open so the operator can correct
		// the form and retry.
		if !s.endWrite(gen, StateHistoryLoaded) {
			return ErrSessionSuperseded
		}
		s.notifyCreateFailure(ctx, err)
		return err
	}

	if !s.endWrite(gen, StateHistoryLoading) {
		return ErrSessionSuperseded
	}

	s.notifier.Notify(ctx, notify.Message{
		Severity: notify.SeveritySuccess,
		Summary:  "Created",
		Detail:   "New hourly rate added.",
	})

	return s.load(ctx, gen)
}

// SubmitEdit updates the hourly rate of the record keyed by the open user and
// effectiveFrom. On success only the matching record is touched in place —
// effective_from is immutable, so its sort position cannot change. On any
// failure the history is re-fetched so no speculative edit survives.
func (s *Session) SubmitEdit(ctx context.Context, effectiveFrom, hourlyRate string) error {
	userID, gen, err := s.beginWrite(StateEditSubmitting)
	if err != nil {
		return err
	}

	resp, err := s.store.Update(ctx, rate.UpdateRateRequest{
		UserID:        userID,
		EffectiveFrom: effectiveFrom,
		HourlyRate:    hourlyRate,
	})
	if err != nil {
		if !s.endWrite(gen, StateHistoryLoading) {
			return ErrSessionSuperseded
		}
		s.notifyEditFailure(ctx, err)
		if loadErr := s.load(ctx, gen); loadErr != nil && !errors.Is(loadErr, ErrSessionSuperseded) {
			return loadErr
		}
		return err
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSessionSuperseded
	}
	for i := range s.records {
		if s.records[i].UserID == resp.UserID && s.records[i].EffectiveFrom == resp.EffectiveFrom {
			s.records[i].HourlyRate = resp.HourlyRate
			break
		}
	}
	s.state = StateHistoryLoaded
	s.mu.Unlock()

	s.notifier.Notify(ctx, notify.Message{
		Severity: notify.SeveritySuccess,
		Summary:  "Saved",
		Detail:   "Hourly rate updated.",
	})
	return nil
}

// Close abandons the view. A load still in flight will find the generation
// bumped and drop its result.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = StateIdle
	s.userID = ""
	s.records = nil
}

// beginWrite also hands out the current generation so the write can detect a
// Close that happened while it was in flight.
func (s *Session) beginWrite(next State) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		return "", 0, ErrNoOpenSession
	case StateHistoryLoading, StateEditSubmitting, StateCreateSubmitting:
		return "", 0, ErrBusy
	}

	s.state = next
	return s.userID, s.gen, nil
}

// endWrite transitions out of the submitting state unless the session was
// closed underneath the write; a closed session must stay Idle.
func (s *Session) endWrite(gen int, next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return false
	}
	s.state = next
	return true
}

func (s *Session) notifyCreateFailure(ctx context.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperror.CodeInvalidInput, apperror.CodeNotFound:
			s.notifier.Notify(ctx, notify.Message{
				Severity: notify.SeverityWarn,
				Summary:  "Missing/Invalid",
				Detail:   appErr.Message,
			})
			return
		case apperror.CodeDuplicateDate:
			s.notifier.Notify(ctx, notify.Message{
				Severity: notify.SeverityError,
				Summary:  "Create failed",
				Detail:   appErr.Message,
			})
			return
		}
	}

	s.notifier.Notify(ctx, notify.Message{
		Severity: notify.SeverityError,
		Summary:  "Create failed",
		Detail:   "Could not add hourly rate.",
	})
}

func (s *Session) notifyEditFailure(ctx context.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Code == apperror.CodeInvalidInput {
		s.notifier.Notify(ctx, notify.Message{
			Severity: notify.SeverityWarn,
			Summary:  "Invalid",
			Detail:   "Hourly rate must be a number.",
		})
		return
	}

	s.notifier.Notify(ctx, notify.Message{
		Severity: notify.SeverityError,
		Summary:  "Update failed",
		Detail:   "Could not update hourly rate.",
	})
}
