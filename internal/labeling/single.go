package labeling

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ctenopool/labeler/internal/models"
)

// DefaultClassLabels are the classes offered in single-image mode.
var DefaultClassLabels = []string{"202502-1", "202502-2", "202502-3", "202502-4"}

// Card is the unit of work currently presented in single-image mode
type Card struct {
	ID        int    `json:"id"`
	Choice    string `json:"choice"`
	Submitted bool   `json:"submitted"`
	Confirmed bool   `json:"confirmed"`
}

// SingleSession is one visit to the single-image labeling view
type SingleSession struct {
	session
	classes       []string
	mainImage     *models.ImageRef
	choices       map[string]models.ImageRef
	choicesLocked bool
	card          Card
	lastCard      *Card
}

func NewSingleSession(id string, api API, classes []string, opts ...Option) *SingleSession {
	if len(classes) == 0 {
		classes = DefaultClassLabels
	}
	return &SingleSession{
		session: newSession(id, ModeSingle, api, opts),
		classes: slices.Clone(classes),
		choices: map[string]models.ImageRef{},
		card:    Card{ID: 1},
	}
}

// Start runs the initial fetch. Only the first call for a session fetches.
func (s *SingleSession) Start(ctx context.Context) error {
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

// fetch replaces the main image and, unless locked, the class thumbnails.
// Callers own the busy flag.
func (s *SingleSession) fetch(ctx context.Context) error {
	set, err := s.api.ImageSet(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.machine.Phase() != PhaseRunning {
		return nil
	}
	if err != nil {
		s.logger.Error("image-set fetch failed", "err", err)
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	s.mainImage = set.MainImage
	if !s.choicesLocked && len(set.Choices) > 0 {
		s.choices = make(map[string]models.ImageRef, len(set.Choices))
		for label, img := range set.Choices {
			s.choices[label] = img
		}
		s.choicesLocked = true
	}
	return nil
}

// Select records the user's pick on the active card without submitting it.
func (s *SingleSession) Select(choice string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.machine.Phase() != PhaseRunning {
		return ErrWrongPhase
	}
	if !slices.Contains(s.classes, choice) {
		return ErrUnknownChoice
	}
	s.card.Choice = choice
	s.touched = time.Now()
	return nil
}

// Submit posts the label for the current main image. An empty choice
// submits whatever the active card has selected.
func (s *SingleSession) Submit(ctx context.Context, user *models.Identity, choice string) error {
	s.mu.Lock()
	if user == nil {
		s.mu.Unlock()
		return ErrUnauthenticated
	}
	if s.mainImage == nil || s.mainImage.BlobPath == "" {
		s.mu.Unlock()
		s.logger.Error("No main image blobPath to submit")
		return ErrItemNotReady
	}
	if choice == "" {
		choice = s.card.Choice
	}
	if choice == "" {
		s.mu.Unlock()
		return ErrNoChoice
	}
	if !slices.Contains(s.classes, choice) {
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

	s.card.Choice = choice
	s.card.Submitted = true
	cardID := s.card.ID
	label := models.SingleLabel{
		Username:      user.Label(),
		MainImageBlob: s.mainImage.BlobPath,
		Choice:        choice,
	}
	s.mu.Unlock()

	defer s.release()

	res, err := s.api.SubmitSingleLabel(ctx, label)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if err != nil {
		// keep the choice so the user can resubmit, but it is no longer submitted
		s.card.Submitted = false
		s.mu.Unlock()
		s.logger.Error("submit-label failed", "err", err, "blob", label.MainImageBlob)
		return fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	s.card.Confirmed = true
	done := s.card
	s.lastCard = &done
	next := s.machine.Finalize(res.Correct)
	s.card = Card{ID: cardID + 1}
	counters := s.machine.Counters()
	phase := s.machine.Phase()
	s.mu.Unlock()

	s.logger.Info("Label submitted",
		"choice", choice,
		"completed", counters.Completed,
		"target", counters.Target,
		"phase", phase)

	s.record(ctx, models.LabelRecord{
		Username:  label.Username,
		BlobPaths: []string{label.MainImageBlob},
		Choice:    choice,
		Correct:   res.Correct,
	})

	if next {
		// stale content stays on screen if this fails; the submission itself is final
		_ = s.fetch(ctx)
	}
	return nil
}

// RefreshChoices unlocks the class thumbnails and fetches a fresh set,
// which locks them again.
func (s *SingleSession) RefreshChoices(ctx context.Context) error {
	s.mu.Lock()
	if s.machine.Phase() != PhaseRunning {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if err := s.acquireLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.choicesLocked = false
	s.mu.Unlock()

	defer s.release()
	return s.fetch(ctx)
}

// Extend accepts ten more items and fetches a new main image. The class
// thumbnails stay locked.
func (s *SingleSession) Extend(ctx context.Context) error {
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

func (s *SingleSession) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Phase()
}

// ChoiceView pairs a class label with its locked thumbnail, if any
type ChoiceView struct {
	Label string           `json:"label"`
	Image *models.ImageRef `json:"image,omitempty"`
}

// SingleView is a point-in-time copy of a SingleSession for rendering
type SingleView struct {
	ID            string           `json:"id"`
	Phase         Phase            `json:"phase"`
	Counters      Counters         `json:"counters"`
	Percent       int              `json:"percent"`
	Loading       bool             `json:"loading"`
	MainImage     *models.ImageRef `json:"mainImage,omitempty"`
	Choices       []ChoiceView     `json:"choices"`
	ChoicesLocked bool             `json:"choicesLocked"`
	Card          Card             `json:"card"`
	LastCard      *Card            `json:"lastCard,omitempty"`
}

func (s *SingleSession) Snapshot() SingleView {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters := s.machine.Counters()
	view := SingleView{
		ID:            s.id,
		Phase:         s.machine.Phase(),
		Counters:      counters,
		Percent:       counters.ProgressPercent(),
		Loading:       s.gate.Loading(),
		ChoicesLocked: s.choicesLocked,
		Card:          s.card,
		Choices:       make([]ChoiceView, 0, len(s.classes)),
	}
	if s.mainImage != nil {
		img := *s.mainImage
		view.MainImage = &img
	}
	if s.lastCard != nil {
		last := *s.lastCard
		view.LastCard = &last
	}
	for _, label := range s.classes {
		cv := ChoiceView{Label: label}
		if img, ok := s.choices[label]; ok {
			cv.Image = &img
		}
		view.Choices = append(view.Choices, cv)
	}
	return view
}
