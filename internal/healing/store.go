package healing

import (
	"context"
	"sync"
)

// Store persists learned alternates and the heal log
type Store interface {
	// Candidates returns the alternates for key, best first
	Candidates(ctx context.Context, key Key) ([]Candidate, error)

	// Save merges cs into the alternates for key. A candidate with a
	// locator already stored replaces the stored score and time.
	Save(ctx context.Context, key Key, cs []Candidate) error

	// RecordHeal appends to the heal log
	RecordHeal(ctx context.Context, ev Event) error

	// Events returns the most recent heals, newest first
	Events(ctx context.Context, limit int) ([]Event, error)
}

// MemoryStore keeps history for the life of the process
type MemoryStore struct {
	mu         sync.RWMutex
	candidates map[string][]Candidate
	events     []Event
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{candidates: make(map[string][]Candidate)}
}

func (s *MemoryStore) Candidates(ctx context.Context, key Key) ([]Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.candidates[key.String()]
	out := make([]Candidate, len(stored))
	copy(out, stored)
	SortCandidates(out)
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, key Key, cs []Candidate) error {
	if len(cs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.candidates[key.String()] = merge(s.candidates[key.String()], cs)
	return nil
}

func (s *MemoryStore) RecordHeal(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryStore) Events(ctx context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, 0, n)
	for i := len(s.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

// merge upserts cs into stored by locator
func merge(stored, cs []Candidate) []Candidate {
	out := make([]Candidate, len(stored), len(stored)+len(cs))
	copy(out, stored)

next:
	for _, c := range cs {
		for i := range out {
			if out[i].Locator == c.Locator {
				out[i] = c
				continue next
			}
		}
		out = append(out, c)
	}
	return out
}
