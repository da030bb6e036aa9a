package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"storewatch/internal/domain"
	"storewatch/internal/repo/memory"
)

func seeded(ids ...domain.StoreID) *memory.Store {
	m := memory.New()
	for _, id := range ids {
		m.Seed(&domain.Store{ID: id, URL: "https://" + string(id) + ".example"})
	}
	return m
}

func TestDriver_RunDoesImmediatePass(t *testing.T) {
	var mu sync.Mutex
	var processed []domain.StoreID

	d := NewDriver("visual", zap.NewNop(), seeded("s1"), time.Hour, 0,
		func(ctx context.Context, s domain.Store) {
			mu.Lock()
			processed = append(processed, s.ID)
			mu.Unlock()
		}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(processed)
		mu.Unlock()
		if n == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("immediate pass never ran (processed=%d)", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDriver_TickSkipsWhenBusy(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	count := 0

	d := NewDriver("visual", zap.NewNop(), seeded("s1"), time.Hour, 0,
		func(ctx context.Context, s domain.Store) {
			mu.Lock()
			count++
			mu.Unlock()
			close(started)
			<-block
		}, nil)

	go d.Tick(context.Background())
	<-started

	// Second tick while the first is in flight: must return immediately
	// without processing anything.
	done := make(chan struct{})
	go func() {
		d.Tick(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("busy tick did not return immediately")
	}

	mu.Lock()
	if count != 1 {
		t.Fatalf("skipped tick must process nothing, count=%d", count)
	}
	mu.Unlock()
	close(block)
}

func TestDriver_FlagClearsAfterCycle(t *testing.T) {
	var mu sync.Mutex
	count := 0
	d := NewDriver("ping", zap.NewNop(), seeded("s1"), time.Hour, 0,
		func(ctx context.Context, s domain.Store) {
			mu.Lock()
			count++
			mu.Unlock()
		}, nil)

	d.Tick(context.Background())
	d.Tick(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Fatalf("sequential ticks must both run, count=%d", count)
	}
}

func TestDriver_FlagClearsEvenIfProcessPanicsAreAbsentButListFails(t *testing.T) {
	// A list error ends the cycle early; the flag must still clear.
	d := NewDriver("visual", zap.NewNop(), failingStores{}, time.Hour, 0,
		func(ctx context.Context, s domain.Store) { t.Fatal("must not process") }, nil)

	d.Tick(context.Background())
	d.Tick(context.Background()) // would be skipped if the flag leaked
}

type failingStores struct{}

func (failingStores) ListActive(ctx context.Context) ([]domain.Store, error) {
	return nil, context.DeadlineExceeded
}
func (failingStores) Get(ctx context.Context, id domain.StoreID) (*domain.Store, error) {
	return nil, nil
}
func (failingStores) UpdateBaseline(ctx context.Context, id domain.StoreID, ref string) error {
	return nil
}
func (failingStores) UpdateLastChecked(ctx context.Context, id domain.StoreID, at time.Time) error {
	return nil
}
func (failingStores) SetFailedAttempts(ctx context.Context, id domain.StoreID, n int) error {
	return nil
}
func (failingStores) Deactivate(ctx context.Context, id domain.StoreID) error { return nil }

func TestDriver_SequentialWithPacing(t *testing.T) {
	var mu sync.Mutex
	var order []domain.StoreID
	var stamps []time.Time

	d := NewDriver("visual", zap.NewNop(), seeded("s1", "s2", "s3"), time.Hour, 30*time.Millisecond,
		func(ctx context.Context, s domain.Store) {
			mu.Lock()
			order = append(order, s.ID)
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}, nil)

	d.Tick(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("all stores must be processed, got %v", order)
	}
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < 25*time.Millisecond {
			t.Fatalf("inter-store pacing missing: gap %v", gap)
		}
	}
}

func TestDriver_CancelStopsMidCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	count := 0

	d := NewDriver("visual", zap.NewNop(), seeded("s1", "s2", "s3"), time.Hour, time.Hour,
		func(c context.Context, s domain.Store) {
			mu.Lock()
			count++
			mu.Unlock()
			cancel() // cancel during the first store
		}, nil)

	done := make(chan struct{})
	go func() {
		d.Tick(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancelled cycle should end without waiting out the delay")
	}

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("cancellation must stop the iteration, count=%d", count)
	}
}

func TestDriver_ZeroIntervalDisabled(t *testing.T) {
	d := NewDriver("visual", zap.NewNop(), seeded("s1"), 0, 0,
		func(ctx context.Context, s domain.Store) { t.Fatal("disabled driver must not run") }, nil)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled driver should return immediately")
	}
}
