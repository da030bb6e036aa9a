package pipeline

import (
	"context"

	"go.uber.org/zap"

	"storewatch/internal/domain"
	"storewatch/internal/repo"
)

const DefaultFailureThreshold = 5

// FailureTracker counts consecutive connectivity failures per store and
// deactivates a store once the threshold is reached. Deactivation is a
// one-way latch here; reactivation is a manual operation elsewhere.
type FailureTracker struct {
	Logger    *zap.Logger
	Stores    repo.StoreRepo
	Threshold int
}

func NewFailureTracker(log *zap.Logger, stores repo.StoreRepo, threshold int) *FailureTracker {
	if threshold < 1 {
		threshold = DefaultFailureThreshold
	}
	return &FailureTracker{Logger: log, Stores: stores, Threshold: threshold}
}

// RecordConnectivityFailure bumps the counter and latches the store
// inactive at the threshold. The passed store is updated in place so the
// caller sees the new count.
func (t *FailureTracker) RecordConnectivityFailure(ctx context.Context, store *domain.Store) {
	n := store.FailedAttempts + 1
	if err := t.Stores.SetFailedAttempts(ctx, store.ID, n); err != nil {
		t.Logger.Warn("failure_count_update_error",
			zap.String("store_id", string(store.ID)), zap.Error(err))
		return
	}
	store.FailedAttempts = n

	t.Logger.Info("connectivity_failure",
		zap.String("store_id", string(store.ID)),
		zap.String("url", store.URL),
		zap.Int("failed_attempts", n),
	)

	if n >= t.Threshold {
		if err := t.Stores.Deactivate(ctx, store.ID); err != nil {
			t.Logger.Warn("deactivate_error",
				zap.String("store_id", string(store.ID)), zap.Error(err))
			return
		}
		store.Status = domain.StoreInactive
		t.Logger.Warn("store_deactivated",
			zap.String("store_id", string(store.ID)),
			zap.String("url", store.URL),
			zap.Int("failed_attempts", n),
		)
	}
}

// Reset clears the counter after any successful capture; the counter
// measures consecutive failures, not lifetime failures.
func (t *FailureTracker) Reset(ctx context.Context, store *domain.Store) {
	if store.FailedAttempts == 0 {
		return
	}
	if err := t.Stores.SetFailedAttempts(ctx, store.ID, 0); err != nil {
		t.Logger.Warn("failure_count_reset_error",
			zap.String("store_id", string(store.ID)), zap.Error(err))
		return
	}
	store.FailedAttempts = 0
}
