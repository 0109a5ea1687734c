package labeling

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ctenopool/labeler/internal/models"
)

const (
	ModeSingle = "single"
	ModePair   = "pair"
)

// API is the subset of the labeling backend a session talks to
type API interface {
	ImageSet(ctx context.Context) (*models.ImageSet, error)
	ImagePair(ctx context.Context) (*models.ImagePair, error)
	SubmitSingleLabel(ctx context.Context, label models.SingleLabel) (*models.SubmitResult, error)
	SubmitPairLabel(ctx context.Context, label models.PairLabel) (*models.SubmitResult, error)
}

// Recorder receives every finalized submission
type Recorder interface {
	Record(ctx context.Context, rec models.LabelRecord) error
}

// Option configures a session
type Option func(*session)

func WithRecorder(r Recorder) Option {
	return func(s *session) { s.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *session) { s.logger = l }
}

// session holds the state shared by both labeling modes. mu guards every
// field; network calls run with mu released and busy set.
type session struct {
	mu       sync.Mutex
	id       string
	mode     string
	api      API
	recorder Recorder
	logger   *slog.Logger
	machine  *Machine
	gate     FetchGate
	busy     bool
	closed   bool
	touched  time.Time
}

func newSession(id, mode string, api API, opts []Option) session {
	s := session{
		id:      id,
		mode:    mode,
		api:     api,
		logger:  slog.Default(),
		machine: NewMachine(),
		touched: time.Now(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.logger = s.logger.With("session_id", id, "mode", mode)
	return s
}

func (s *session) ID() string { return s.id }

func (s *session) Mode() string { return s.mode }

// Close marks the owning view as torn down. Responses arriving afterwards are dropped.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// LastActive reports when the session was last used.
func (s *session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Finish declines the optional extension.
func (s *session) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.touched = time.Now()
	if err := s.machine.Decline(); err != nil {
		return err
	}
	s.logger.Info("Labeling session finished", "completed", s.machine.Counters().Completed)
	return nil
}

// acquireLocked marks a request outstanding. Callers hold mu.
func (s *session) acquireLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	s.gate.Begin()
	s.touched = time.Now()
	return nil
}

func (s *session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.gate.End()
}

func (s *session) record(ctx context.Context, rec models.LabelRecord) {
	if s.recorder == nil {
		return
	}
	rec.SessionID = s.id
	rec.Mode = s.mode
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.logger.Warn("Unable to journal submission", "err", err)
	}
}
