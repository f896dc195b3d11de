package conversation

import (
	"context"
	"time"
)

// Store persists conversation state per user. Writes are last-write-wins.
type Store interface {
	// Get returns Initial() for users without a stored state.
	Get(ctx context.Context, userID string) (State, error)

	// Set upserts the state and stamps LastInteraction.
	Set(ctx context.Context, userID string, state StateName, c Context) error

	// MergeContext shallow-merges patch into the stored context, keeping the current state.
	MergeContext(ctx context.Context, userID string, patch Context) (Context, error)

	// Clear is Set(userID, StateInitial, Context{}).
	Clear(ctx context.Context, userID string) error

	// ExpireInactive clears every state idle longer than timeout and reports how many.
	ExpireInactive(ctx context.Context, timeout time.Duration) (int64, error)

	Close() error
}

// mergeContext is the read-modify-write shared by every driver.
func mergeContext(ctx context.Context, s Store, userID string, patch Context) (Context, error) {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return Context{}, err
	}
	merged, err := st.Context.Merge(patch)
	if err != nil {
		return Context{}, err
	}
	if err := s.Set(ctx, userID, st.Current, merged); err != nil {
		return Context{}, err
	}
	return merged, nil
}
