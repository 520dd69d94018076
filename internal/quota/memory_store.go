// AngelaMos | 2026
// memory_store.go

package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tonymphomilanzi/microbid/internal/core"
)

type memoryStore struct {
	mu       sync.Mutex
	counters map[string]*Counter
}

// NewMemoryStore keeps counters in process. It backs tests and single-node
// development runs.
func NewMemoryStore() Store {
	return &memoryStore{counters: make(map[string]*Counter)}
}

func (s *memoryStore) EnsureCounter(
	_ context.Context,
	userID, monthKey string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := counterKey(userID, monthKey)
	if _, ok := s.counters[key]; !ok {
		now := time.Now().UTC()
		s.counters[key] = &Counter{
			UserID:    userID,
			MonthKey:  monthKey,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return nil
}

func (s *memoryStore) IncrementIfBelow(
	_ context.Context,
	userID, monthKey string,
	resource Resource,
	limit int64,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[counterKey(userID, monthKey)]
	if !ok {
		return false, nil
	}

	var field *int64
	switch resource {
	case ResourceListings:
		field = &counter.ListingsCreated
	case ResourceConversations:
		field = &counter.ConversationsOpened
	default:
		return false, fmt.Errorf("increment counter: unknown resource %q: %w", resource, core.ErrInvalidInput)
	}

	if *field >= limit {
		return false, nil
	}
	*field++
	counter.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *memoryStore) Get(
	_ context.Context,
	userID, monthKey string,
) (*Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[counterKey(userID, monthKey)]
	if !ok {
		return &Counter{UserID: userID, MonthKey: monthKey}, nil
	}
	snapshot := *counter
	return &snapshot, nil
}
