package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"storewatch/internal/domain"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	m := New()
	m.Seed(&domain.Store{ID: "s1", URL: "https://shop.example", Status: domain.StoreActive})
	m.Seed(&domain.Store{ID: "s2", URL: "https://other.example", Status: domain.StoreInactive})

	active, err := m.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].ID != "s1" {
		t.Fatalf("expected only s1 active, got %+v", active)
	}

	if err := m.UpdateBaseline(ctx, "s1", "https://cdn/captures/s1/x.png"); err != nil {
		t.Fatalf("UpdateBaseline: %v", err)
	}
	if err := m.SetFailedAttempts(ctx, "s1", 3); err != nil {
		t.Fatalf("SetFailedAttempts: %v", err)
	}
	now := time.Now().UTC()
	if err := m.UpdateLastChecked(ctx, "s1", now); err != nil {
		t.Fatalf("UpdateLastChecked: %v", err)
	}

	s, err := m.Get(ctx, "s1")
	if err != nil || s == nil {
		t.Fatalf("Get: %v %v", s, err)
	}
	if s.BaselineRef != "https://cdn/captures/s1/x.png" || s.FailedAttempts != 3 {
		t.Fatalf("mutations not applied: %+v", s)
	}
	if s.LastChecked == nil || !s.LastChecked.Equal(now) {
		t.Fatalf("last checked not applied: %+v", s.LastChecked)
	}

	if err := m.Deactivate(ctx, "s1"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	active, _ = m.ListActive(ctx)
	if len(active) != 0 {
		t.Fatalf("expected no active stores, got %+v", active)
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := New()
	m.Seed(&domain.Store{ID: "s1", URL: "https://shop.example"})

	a, _ := m.Get(ctx, "s1")
	a.FailedAttempts = 99

	b, _ := m.Get(ctx, "s1")
	if b.FailedAttempts != 0 {
		t.Fatalf("Get must return a copy, repository state was mutated")
	}
}

func TestPings_Previous(t *testing.T) {
	ctx := context.Background()
	m := New()
	pings := m.Pings()

	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	up, down := true, false
	for i, state := range []bool{up, down, down} {
		_ = pings.Append(ctx, &domain.PingLog{
			StoreID:   "s1",
			Up:        state,
			CheckedAt: t0.Add(time.Duration(i) * time.Minute),
		})
	}
	_ = pings.Append(ctx, &domain.PingLog{StoreID: "s2", Up: false, CheckedAt: t0.Add(90 * time.Second)})

	prev, err := pings.Previous(ctx, "s1", t0.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Previous: %v", err)
	}
	if prev == nil || prev.Up || !prev.CheckedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("wrong previous ping: %+v", prev)
	}

	prev, _ = pings.Previous(ctx, "s1", t0)
	if prev != nil {
		t.Fatalf("expected no ping before the first one, got %+v", prev)
	}
}

func TestRunsAndAlerts_RecentOrder(t *testing.T) {
	ctx := context.Background()
	m := New()

	for i := 0; i < 3; i++ {
		_ = m.Runs().Append(ctx, &domain.Run{StoreID: "s1", Status: domain.RunSuccess})
	}
	runs, err := m.Runs().Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	pct := 7.3
	want := domain.Alert{
		StoreID:     "s1",
		Category:    domain.AlertVisual,
		BeforeRef:   "b",
		AfterRef:    "a",
		DiffPercent: &pct,
		Severity:    domain.SeverityLow,
	}
	_ = m.Alerts().Append(ctx, &want)

	got, err := m.Alerts().LastForStore(ctx, "s1", domain.AlertVisual)
	if err != nil || got == nil {
		t.Fatalf("LastForStore: %v %v", got, err)
	}
	if diff := cmp.Diff(want.BeforeRef, got.BeforeRef); diff != "" {
		t.Fatalf("alert mismatch (-want +got):\n%s", diff)
	}
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Fatalf("append should assign id and created_at: %+v", got)
	}

	if a, _ := m.Alerts().LastForStore(ctx, "s1", domain.AlertAvailability); a != nil {
		t.Fatalf("category filter broken: %+v", a)
	}
}
