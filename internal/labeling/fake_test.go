package labeling

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ctenopool/labeler/internal/models"
)

var errNetwork = errors.New("connection refused")

// fakeAPI serves numbered items and records every call
type fakeAPI struct {
	mu sync.Mutex

	imageSetCalls int
	pairCalls     int
	singleLabels  []models.SingleLabel
	pairLabels    []models.PairLabel

	fetchErr   error
	submitErr  error
	correct    *bool
	noMain     bool
	pairImages int
}

func (f *fakeAPI) ImageSet(ctx context.Context) (*models.ImageSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageSetCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	set := &models.ImageSet{Choices: map[string]models.ImageRef{}}
	if !f.noMain {
		set.MainImage = &models.ImageRef{
			DisplayURL: fmt.Sprintf("https://img/main-%d", f.imageSetCalls),
			BlobPath:   fmt.Sprintf("202502-1-tif/main-%d.png", f.imageSetCalls),
		}
	}
	for _, label := range DefaultClassLabels {
		set.Choices[label] = models.ImageRef{
			DisplayURL: fmt.Sprintf("https://img/%s-%d", label, f.imageSetCalls),
			BlobPath:   fmt.Sprintf("%s-tif/sample-%d.png", label, f.imageSetCalls),
		}
	}
	return set, nil
}

func (f *fakeAPI) ImagePair(ctx context.Context) (*models.ImagePair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	n := 2
	if f.pairImages != 0 {
		n = f.pairImages
	}
	pair := &models.ImagePair{Options: []string{"Same class", "Different class"}}
	for i := 0; i < n; i++ {
		pair.Images = append(pair.Images, models.ImageRef{
			DisplayURL: fmt.Sprintf("https://img/pair-%d-%d", f.pairCalls, i),
			BlobPath:   fmt.Sprintf("202502-2-tif/pair-%d-%d.png", f.pairCalls, i),
		})
	}
	return pair, nil
}

func (f *fakeAPI) SubmitSingleLabel(ctx context.Context, label models.SingleLabel) (*models.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singleLabels = append(f.singleLabels, label)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &models.SubmitResult{Status: "success", Correct: f.correct}, nil
}

func (f *fakeAPI) SubmitPairLabel(ctx context.Context, label models.PairLabel) (*models.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairLabels = append(f.pairLabels, label)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &models.SubmitResult{Status: "success", Correct: f.correct}, nil
}

func (f *fakeAPI) calls() (imageSets, pairs, submits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imageSetCalls, f.pairCalls, len(f.singleLabels) + len(f.pairLabels)
}

type memRecorder struct {
	mu      sync.Mutex
	records []models.LabelRecord
}

func (m *memRecorder) Record(ctx context.Context, rec models.LabelRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func boolPtr(b bool) *bool { return &b }

var testUser = &models.Identity{DisplayName: "Ana", Email: "ana@example.com"}
