package capture

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps exchanges in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	runs   map[string][]Exchange
	closed bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]Exchange)}
}

func (s *MemoryStore) Append(ctx context.Context, x Exchange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.runs[x.RunID] = append(s.runs[x.RunID], cloneExchange(x))
	return nil
}

func (s *MemoryStore) List(ctx context.Context, runID string) ([]Exchange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	out := make([]Exchange, 0, len(s.runs[runID]))
	for _, x := range s.runs[runID] {
		out = append(out, cloneExchange(x))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.runs = nil
	return nil
}

func cloneExchange(x Exchange) Exchange {
	x.Call = append([]byte(nil), x.Call...)
	if x.Reply != nil {
		x.Reply = append([]byte(nil), x.Reply...)
	}
	return x
}
