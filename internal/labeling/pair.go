package labeling

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ctenopool/labeler/internal/models"
)

// PairSession is one visit to the two-image pair labeling view
type PairSession struct {
	session
	images    []models.ImageRef
	options   []string
	selected  string
	submitted bool
}

func NewPairSession(id string, api API, opts ...Option) *PairSession {
	return &PairSession{session: newSession(id, ModePair, api, opts)}
}

// Start runs the initial fetch. Only the first call for a session fetches.
func (s *PairSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || s.machine.Phase() != PhaseRunning || !s.gate.TryStart() {
		s.mu.Unlock()
		return nil
	}
	if err := s.acquireLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	defer s.release()
	return s.fetch(ctx)
}

func (s *PairSession) fetch(ctx context.Context) error {
	pair, err := s.api.ImagePair(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.machine.Phase() != PhaseRunning {
		return nil
	}
	if err != nil {
		s.logger.Error("two-image-pair fetch failed", "err", err)
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	s.images = slices.Clone(pair.Images)
	s.options = slices.Clone(pair.Options)
	s.selected = ""
	s.submitted = false
	return nil
}

func (s *PairSession) Select(option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.machine.Phase() != PhaseRunning {
		return ErrWrongPhase
	}
	if !slices.Contains(s.options, option) {
		return ErrUnknownChoice
	}
	s.selected = option
	s.touched = time.Now()
	return nil
}

// Submit posts the label for the current pair. An empty choice submits the
// current selection.
func (s *PairSession) Submit(ctx context.Context, user *models.Identity, choice string) error {
	s.mu.Lock()
	if user == nil {
		s.mu.Unlock()
		return ErrUnauthenticated
	}
	if !s.pairReadyLocked() {
		s.mu.Unlock()
		return ErrItemNotReady
	}
	if choice == "" {
		choice = s.selected
	}
	if choice == "" {
		s.mu.Unlock()
		return ErrNoChoice
	}
	if !slices.Contains(s.options, choice) {
		s.mu.Unlock()
		return ErrUnknownChoice
	}
	if s.machine.Phase() != PhaseRunning {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if err := s.acquireLocked(); err != nil {
		s.mu.Unlock()
		return err
	}

	s.selected = choice
	s.submitted = true
	label := models.PairLabel{
		Username:   user.Label(),
		Choice:     choice,
		ImagePaths: []string{s.images[0].BlobPath, s.images[1].BlobPath},
	}
	s.mu.Unlock()

	defer s.release()

	res, err := s.api.SubmitPairLabel(ctx, label)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if err != nil {
		s.submitted = false
		s.mu.Unlock()
		s.logger.Error("submit-pair-label failed", "err", err)
		return fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	next := s.machine.Finalize(res.Correct)
	s.selected = ""
	s.submitted = false
	counters := s.machine.Counters()
	phase := s.machine.Phase()
	s.mu.Unlock()

	s.logger.Info("Pair label submitted",
		"choice", choice,
		"completed", counters.Completed,
		"target", counters.Target,
		"phase", phase)

	s.record(ctx, models.LabelRecord{
		Username:  label.Username,
		BlobPaths: label.ImagePaths,
		Choice:    choice,
		Correct:   res.Correct,
	})

	if next {
		_ = s.fetch(ctx)
	}
	return nil
}

func (s *PairSession) pairReadyLocked() bool {
	if len(s.images) != 2 {
		return false
	}
	for _, img := range s.images {
		if img.BlobPath == "" {
			return false
		}
	}
	return true
}

// Extend accepts ten more pairs and fetches a new pair.
func (s *PairSession) Extend(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if err := s.machine.Extend(); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.acquireLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	defer s.release()
	return s.fetch(ctx)
}

func (s *PairSession) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Phase()
}

// PairView is a point-in-time copy of a PairSession for rendering
type PairView struct {
	ID        string            `json:"id"`
	Phase     Phase             `json:"phase"`
	Counters  Counters          `json:"counters"`
	Percent   int               `json:"percent"`
	Loading   bool              `json:"loading"`
	Images    []models.ImageRef `json:"images"`
	Options   []string          `json:"options"`
	Selected  string            `json:"selected,omitempty"`
	Submitted bool              `json:"submitted"`
}

func (s *PairSession) Snapshot() PairView {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters := s.machine.Counters()
	return PairView{
		ID:        s.id,
		Phase:     s.machine.Phase(),
		Counters:  counters,
		Percent:   counters.ProgressPercent(),
		Loading:   s.gate.Loading(),
		Images:    slices.Clone(s.images),
		Options:   slices.Clone(s.options),
		Selected:  s.selected,
		Submitted: s.submitted,
	}
}
