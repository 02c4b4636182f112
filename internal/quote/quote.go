// Package quote defines the saved-quote schema and the pluggable store it
// lives in. A quote is an immutable snapshot of one pricing computation;
// re-running the engine on its embedded inputs must reproduce its total.
package quote

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codage11/pricer3d/internal/geometry"
	"github.com/codage11/pricer3d/internal/pricing"
)

// ErrNotFound is returned when a quote id is not in the store.
var ErrNotFound = errors.New("quote not found")

// Results is the analysis+pricing payload a quote snapshots. It matches
// the analyze response shape byte for byte so a client can save what it
// received.
type Results struct {
	Filename      string                  `json:"filename"`
	FileSizeBytes int64                   `json:"file_size_bytes"`
	Analysis      geometry.AnalysisResult `json:"analysis"`
	Pricing       pricing.Breakdown       `json:"pricing"`
}

// Quote is one saved pricing snapshot. Never mutated after creation.
type Quote struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Filename  string    `json:"filename"`
	Results   Results   `json:"results"`
}

// New builds a quote with a fresh id and the current time.
func New(results Results) Quote {
	return Quote{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Filename:  results.Filename,
		Results:   results,
	}
}

// Store is the persistence boundary for quote history. Implementations
// must keep List ordered newest first and make Delete a no-op for ids
// that are already gone.
type Store interface {
	Save(ctx context.Context, q Quote) (string, error)
	List(ctx context.Context) ([]Quote, error)
	Find(ctx context.Context, id string) (Quote, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps quotes in process memory. It mirrors the behavior of
// the browser local-storage collaborator: no durability beyond the
// process lifetime.
type MemoryStore struct {
	mu     sync.RWMutex
	quotes []Quote
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save appends the quote, assigning an id if the caller left it empty.
func (s *MemoryStore) Save(_ context.Context, q Quote) (string, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes = append(s.quotes, q)
	return q.ID, nil
}

// List returns all quotes, newest first.
func (s *MemoryStore) List(_ context.Context) ([]Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Quote, len(s.quotes))
	copy(out, s.quotes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Find returns the quote with the given id or ErrNotFound.
func (s *MemoryStore) Find(_ context.Context, id string) (Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quotes {
		if q.ID == id {
			return q, nil
		}
	}
	return Quote{}, ErrNotFound
}

// Delete removes the quote if present; deleting an unknown id is a no-op.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.quotes {
		if q.ID == id {
			s.quotes = append(s.quotes[:i], s.quotes[i+1:]...)
			return nil
		}
	}
	return nil
}
