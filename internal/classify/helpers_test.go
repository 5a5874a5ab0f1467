package classify

import (
	"context"
	"errors"
	"sync"

	"feedbackapi/internal/domain"
	"feedbackapi/internal/integrations/llm"
)

type stubGenerator struct {
	text string
	err  error

	mu       sync.Mutex
	requests []llm.Request
}

func (g *stubGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.text, g.err
}

type recordingStore struct {
	err    error
	writes map[int64][]domain.ClassificationResult
}

func newRecordingStore() *recordingStore {
	return &recordingStore{writes: map[int64][]domain.ClassificationResult{}}
}

func (s *recordingStore) UpdateAnalysis(_ context.Context, id int64, r domain.ClassificationResult) error {
	if s.err != nil {
		return s.err
	}
	s.writes[id] = append(s.writes[id], r)
	return nil
}

func (s *recordingStore) totalWrites() int {
	n := 0
	for _, w := range s.writes {
		n += len(w)
	}
	return n
}

var errGatewayDown = errors.New("gateway unavailable")
