package conversation

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is a process-local store for development and single-instance setups.
type MemoryStore struct {
	cache *cache.Cache
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 10*time.Minute),
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (State, error) {
	v, ok := s.cache.Get(userID)
	if !ok {
		return Initial(), nil
	}
	st := v.(State)
	st.Context.SelectedProducts = append([]CartLine(nil), st.Context.SelectedProducts...)
	return st, nil
}

func (s *MemoryStore) Set(ctx context.Context, userID string, state StateName, c Context) error {
	c.SelectedProducts = append([]CartLine(nil), c.SelectedProducts...)
	s.cache.Set(userID, State{Current: state, Context: c, LastInteraction: s.now()}, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) MergeContext(ctx context.Context, userID string, patch Context) (Context, error) {
	return mergeContext(ctx, s, userID, patch)
}

func (s *MemoryStore) Clear(ctx context.Context, userID string) error {
	return s.Set(ctx, userID, StateInitial, Context{})
}

func (s *MemoryStore) ExpireInactive(ctx context.Context, timeout time.Duration) (int64, error) {
	cutoff := s.now().Add(-timeout)
	var expired int64
	for userID, item := range s.cache.Items() {
		if st, ok := item.Object.(State); ok && st.LastInteraction.Before(cutoff) {
			s.cache.Delete(userID)
			expired++
		}
	}
	return expired, nil
}

func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
