package notification

import (
	"context"
	"fmt"
	"time"
)

// SweepExpired bulk-deletes notifications past their expiry horizon.
// Re-running against an empty eligible set is a no-op.
func (s *Service) SweepExpired(ctx context.Context) error {
	deleted, err := s.repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}

	if deleted > 0 {
		s.log.Info().Int64("deleted", deleted).Msg("expired notifications removed")
	}
	return nil
}
