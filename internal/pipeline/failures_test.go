package pipeline

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"storewatch/internal/domain"
	"storewatch/internal/repo/memory"
)

func TestFailureTracker_Monotonicity(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	repo.Seed(&domain.Store{ID: "s1", URL: "https://shop.example"})
	tr := NewFailureTracker(zap.NewNop(), repo, 5)

	for i := 1; i <= 6; i++ {
		s, _ := repo.Get(ctx, "s1")
		tr.RecordConnectivityFailure(ctx, s)

		got, _ := repo.Get(ctx, "s1")
		if got.FailedAttempts != i {
			t.Fatalf("after %d failures, counter = %d", i, got.FailedAttempts)
		}
		wantStatus := domain.StoreActive
		if i >= 5 {
			wantStatus = domain.StoreInactive
		}
		if got.Status != wantStatus {
			t.Fatalf("after %d failures, status = %s, want %s", i, got.Status, wantStatus)
		}
	}
}

func TestFailureTracker_ResetClearsCounter(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	repo.Seed(&domain.Store{ID: "s1", URL: "https://shop.example", FailedAttempts: 4})
	tr := NewFailureTracker(zap.NewNop(), repo, 5)

	s, _ := repo.Get(ctx, "s1")
	tr.Reset(ctx, s)

	got, _ := repo.Get(ctx, "s1")
	if got.FailedAttempts != 0 {
		t.Fatalf("counter should be 0 after reset, got %d", got.FailedAttempts)
	}
	if got.Status != domain.StoreActive {
		t.Fatalf("reset must not touch status: %+v", got)
	}

	// An intervening success means the next failure starts from 1 again.
	s, _ = repo.Get(ctx, "s1")
	tr.RecordConnectivityFailure(ctx, s)
	got, _ = repo.Get(ctx, "s1")
	if got.FailedAttempts != 1 || got.Status != domain.StoreActive {
		t.Fatalf("counter must measure consecutive failures only: %+v", got)
	}
}

func TestNewFailureTracker_DefaultThreshold(t *testing.T) {
	tr := NewFailureTracker(zap.NewNop(), memory.New(), 0)
	if tr.Threshold != DefaultFailureThreshold {
		t.Fatalf("threshold = %d, want %d", tr.Threshold, DefaultFailureThreshold)
	}
}
