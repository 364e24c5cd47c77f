package eco

import (
	"context"
	"fmt"
)

// Restore replaces every current record with the records of a snapshot.
// Restored records get new ids; their content, timestamps included, is
// otherwise unchanged. dc is required for encrypted snapshots.
// Returns the number of records restored.
func (s *Service) Restore(ctx context.Context, id string, dc DecryptionContext) (int, error) {
	if !s.guard.TryLock() {
		return 0, ErrOperationInProgress
	}
	defer s.guard.Unlock()

	s.logger.Info("restore started", "snapshot", id)

	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	snap, err := s.GetSnapshot(ctx, id, dc)
	if err != nil {
		return 0, err
	}

	plan, err := replacePlan(s.Records(), snap.Records, s.idgen)
	if err != nil {
		return 0, fmt.Errorf("planning restore: %w", err)
	}
	if err := s.apply(ctx, plan); err != nil {
		return 0, err
	}

	s.logger.Info("restore complete", "snapshot", id, "restored", plan.New, "deleted", plan.Deleted)
	return plan.New, nil
}
