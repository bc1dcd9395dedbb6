package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetentionStore deletes conversations not updated since the cutoff.
type RetentionStore interface {
	PruneConversations(ctx context.Context, cutoff time.Time) (int, error)
}

// RetentionSweeper removes conversations idle longer than maxAge.
type RetentionSweeper struct {
	store  RetentionStore
	maxAge time.Duration
}

func NewRetentionSweeper(store RetentionStore, maxAge time.Duration) *RetentionSweeper {
	return &RetentionSweeper{
		store:  store,
		maxAge: maxAge,
	}
}

// Sweep prunes idle conversations. A zero or negative maxAge disables
// retention entirely.
func (s *RetentionSweeper) Sweep(ctx context.Context) error {
	if s.maxAge <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-s.maxAge)
	pruned, err := s.store.PruneConversations(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune conversations: %w", err)
	}

	if pruned > 0 {
		log.Printf("pruned %d conversations idle since %s", pruned, cutoff.UTC().Format(time.RFC3339))
	}
	return nil
}
