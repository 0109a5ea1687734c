package labeling

import (
	"context"
	"errors"
	"testing"
)

func newStartedSingle(t *testing.T, api *fakeAPI, opts ...Option) *SingleSession {
	t.Helper()
	s := NewSingleSession("s1", api, nil, opts...)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return s
}

func TestSingleStartFetchesOnce(t *testing.T) {
	api := &fakeAPI{}
	s := newStartedSingle(t, api)

	for i := 0; i < 3; i++ {
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
	}

	if sets, _, _ := api.calls(); sets != 1 {
		t.Errorf("Expected 1 image-set fetch, got %d", sets)
	}
	view := s.Snapshot()
	if view.MainImage == nil || view.MainImage.BlobPath == "" {
		t.Fatal("Expected main image after start")
	}
	if !view.ChoicesLocked {
		t.Error("Expected choices to be locked after first fetch")
	}
	if view.Loading {
		t.Error("Expected loading to be cleared")
	}
	if len(view.Choices) != 4 {
		t.Errorf("Expected 4 choices, got %d", len(view.Choices))
	}
}

func TestSingleTwentyCorrectSubmissions(t *testing.T) {
	api := &fakeAPI{correct: boolPtr(true)}
	rec := &memRecorder{}
	s := newStartedSingle(t, api, WithRecorder(rec))

	prevCompleted := 0
	for i := 0; i < InitialTarget; i++ {
		if err := s.Submit(context.Background(), testUser, "202502-2"); err != nil {
			t.Fatalf("Submit %d failed: %v", i+1, err)
		}
		view := s.Snapshot()
		if view.Counters.Completed != prevCompleted+1 {
			t.Fatalf("Expected completed to grow by 1, got %d -> %d", prevCompleted, view.Counters.Completed)
		}
		prevCompleted = view.Counters.Completed
	}

	view := s.Snapshot()
	if view.Counters.Completed != 20 || view.Counters.Correct != 20 || view.Counters.Wrong != 0 {
		t.Errorf("Expected 20/20/0, got %+v", view.Counters)
	}
	if view.Phase != PhaseOfferMore {
		t.Errorf("Expected offer-more, got %s", view.Phase)
	}
	if view.Card.ID != 21 {
		t.Errorf("Expected card id 21, got %d", view.Card.ID)
	}
	// initial fetch plus one per submission except the last
	if sets, _, _ := api.calls(); sets != 20 {
		t.Errorf("Expected 20 image-set fetches, got %d", sets)
	}
	if len(rec.records) != 20 {
		t.Errorf("Expected 20 journaled submissions, got %d", len(rec.records))
	}
	if got := api.singleLabels[0].Username; got != "Ana" {
		t.Errorf("Expected username Ana, got %q", got)
	}
}

func TestSingleChoicesStayLocked(t *testing.T) {
	api := &fakeAPI{}
	s := newStartedSingle(t, api)
	first := s.Snapshot()
	before := first.Choices

	for i := 0; i < 3; i++ {
		if err := s.Submit(context.Background(), testUser, "202502-1"); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	after := s.Snapshot()
	for i := range before {
		if *before[i].Image != *after.Choices[i].Image {
			t.Errorf("Expected locked choice %s to be unchanged, got %+v", before[i].Label, after.Choices[i].Image)
		}
	}
	if first.MainImage.BlobPath == after.MainImage.BlobPath {
		t.Error("Expected main image to change")
	}

	if err := s.RefreshChoices(context.Background()); err != nil {
		t.Fatalf("RefreshChoices failed: %v", err)
	}
	refreshed := s.Snapshot()
	if *refreshed.Choices[0].Image == *before[0].Image {
		t.Error("Expected refresh to replace choices")
	}
	if !refreshed.ChoicesLocked {
		t.Error("Expected refresh to relock choices")
	}
}

func TestSingleSubmitRequiresIdentity(t *testing.T) {
	api := &fakeAPI{}
	s := newStartedSingle(t, api)
	before := s.Snapshot()

	err := s.Submit(context.Background(), nil, "202502-1")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Expected ErrUnauthenticated, got %v", err)
	}
	if _, _, submits := api.calls(); submits != 0 {
		t.Errorf("Expected no submit request, got %d", submits)
	}
	after := s.Snapshot()
	if after.Card != before.Card || after.Counters != before.Counters {
		t.Errorf("Expected no state change, got %+v", after)
	}
}

func TestSingleSubmitRequiresMainImage(t *testing.T) {
	api := &fakeAPI{noMain: true}
	s := newStartedSingle(t, api)

	err := s.Submit(context.Background(), testUser, "202502-1")
	if !errors.Is(err, ErrItemNotReady) {
		t.Fatalf("Expected ErrItemNotReady, got %v", err)
	}
	if _, _, submits := api.calls(); submits != 0 {
		t.Errorf("Expected no submit request, got %d", submits)
	}
	if s.Snapshot().Card.Submitted {
		t.Error("Expected card to stay unsubmitted")
	}
}

func TestSingleSubmitValidatesChoice(t *testing.T) {
	s := newStartedSingle(t, &fakeAPI{})

	if err := s.Submit(context.Background(), testUser, ""); !errors.Is(err, ErrNoChoice) {
		t.Errorf("Expected ErrNoChoice, got %v", err)
	}
	if err := s.Submit(context.Background(), testUser, "202503-9"); !errors.Is(err, ErrUnknownChoice) {
		t.Errorf("Expected ErrUnknownChoice, got %v", err)
	}

	if err := s.Select("202502-3"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if err := s.Submit(context.Background(), testUser, ""); err != nil {
		t.Fatalf("Submit of selected choice failed: %v", err)
	}
	if last := s.Snapshot().LastCard; last == nil || last.Choice != "202502-3" || !last.Confirmed {
		t.Errorf("Expected confirmed last card with 202502-3, got %+v", last)
	}
}

func TestSingleSubmitFailureKeepsState(t *testing.T) {
	api := &fakeAPI{correct: boolPtr(false)}
	s := newStartedSingle(t, api)
	if err := s.Submit(context.Background(), testUser, "202502-1"); err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot()

	api.submitErr = errNetwork
	err := s.Submit(context.Background(), testUser, "202502-4")
	if !errors.Is(err, ErrSubmitFailed) || !errors.Is(err, errNetwork) {
		t.Fatalf("Expected ErrSubmitFailed wrapping the cause, got %v", err)
	}

	after := s.Snapshot()
	if after.Counters != before.Counters {
		t.Errorf("Expected counters unchanged, got %+v want %+v", after.Counters, before.Counters)
	}
	if after.Phase != PhaseRunning {
		t.Errorf("Expected phase running, got %s", after.Phase)
	}
	if after.Card.Submitted {
		t.Error("Expected submitted mark to be rolled back")
	}
	if after.Card.Choice != "202502-4" {
		t.Errorf("Expected choice kept for resubmission, got %q", after.Card.Choice)
	}
	if after.Loading {
		t.Error("Expected loading to be cleared after failure")
	}

	api.submitErr = nil
	if err := s.Submit(context.Background(), testUser, ""); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if got := s.Snapshot().Counters; got.Completed != 2 || got.Wrong != 2 {
		t.Errorf("Expected completed=2 wrong=2 after retry, got %+v", got)
	}
}

func TestSingleFetchFailureKeepsContent(t *testing.T) {
	api := &fakeAPI{}
	s := newStartedSingle(t, api)
	before := s.Snapshot()

	api.fetchErr = errNetwork
	if err := s.Submit(context.Background(), testUser, "202502-1"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	after := s.Snapshot()
	if *after.MainImage != *before.MainImage {
		t.Error("Expected previous main image to stay displayed")
	}
	if after.Counters.Completed != 1 {
		t.Errorf("Expected completed=1, got %d", after.Counters.Completed)
	}

	err := s.RefreshChoices(context.Background())
	if !errors.Is(err, ErrFetchFailed) {
		t.Errorf("Expected ErrFetchFailed, got %v", err)
	}
	if len(s.Snapshot().Choices) != 4 || s.Snapshot().Choices[0].Image == nil {
		t.Error("Expected previous choices to stay displayed")
	}
}

func TestSingleExtendKeepsChoices(t *testing.T) {
	api := &fakeAPI{}
	s := newStartedSingle(t, api)
	locked := s.Snapshot().Choices

	if err := s.Extend(context.Background()); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("Expected ErrWrongPhase while running, got %v", err)
	}

	for i := 0; i < InitialTarget; i++ {
		if err := s.Submit(context.Background(), testUser, "202502-1"); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Submit(context.Background(), testUser, "202502-1"); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("Expected ErrWrongPhase at offer-more, got %v", err)
	}
	fetchesBefore, _, _ := api.calls()

	if err := s.Extend(context.Background()); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	view := s.Snapshot()
	if view.Phase != PhaseRunning || view.Counters.Target != ExtendedTarget {
		t.Fatalf("Expected running/30, got %s/%d", view.Phase, view.Counters.Target)
	}
	if sets, _, _ := api.calls(); sets != fetchesBefore+1 {
		t.Errorf("Expected one refetch on extend, got %d", sets-fetchesBefore)
	}
	for i := range locked {
		if *view.Choices[i].Image != *locked[i].Image {
			t.Errorf("Expected choice %s to stay locked", locked[i].Label)
		}
	}

	for i := InitialTarget; i < ExtendedTarget; i++ {
		if err := s.Submit(context.Background(), testUser, "202502-1"); err != nil {
			t.Fatal(err)
		}
	}
	if s.Phase() != PhaseDone {
		t.Errorf("Expected done after 30, got %s", s.Phase())
	}
}

func TestSingleClosedIgnoresLateResponse(t *testing.T) {
	api := &fakeAPI{}
	s := newStartedSingle(t, api)
	_ = s.Close()

	err := s.Submit(context.Background(), testUser, "202502-1")
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Expected ErrSessionClosed, got %v", err)
	}
	if _, _, submits := api.calls(); submits != 0 {
		t.Errorf("Expected no submit after close, got %d", submits)
	}
}

func TestSingleBusyRejectsSecondSubmit(t *testing.T) {
	s := newStartedSingle(t, &fakeAPI{})
	s.mu.Lock()
	s.busy = true
	s.mu.Unlock()

	if err := s.Submit(context.Background(), testUser, "202502-1"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	if s.Snapshot().Card.Submitted {
		t.Error("Expected no optimistic mark while busy")
	}
}
