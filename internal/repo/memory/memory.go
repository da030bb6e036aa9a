package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"storewatch/internal/domain"
	"storewatch/internal/repo"
)

var _ repo.StoreRepo = (*Store)(nil)

// Store keeps everything in process memory. It backs tests and the
// no-database mode of cmd/monitor. Runs/Pings/Alerts return views that
// satisfy the corresponding ports over the same state.
type Store struct {
	mu     sync.RWMutex
	stores map[domain.StoreID]*domain.Store
	runs   []*domain.Run
	pings  []*domain.PingLog
	alerts []*domain.Alert
}

func New() *Store {
	return &Store{
		stores: make(map[domain.StoreID]*domain.Store),
	}
}

func (m *Store) Runs() repo.RunRepo     { return runsView{m} }
func (m *Store) Pings() repo.PingRepo   { return pingsView{m} }
func (m *Store) Alerts() repo.AlertRepo { return alertsView{m} }

// Seed registers a store. Store provisioning is external to the monitor;
// this exists for tests and local runs.
func (m *Store) Seed(s *domain.Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = domain.StoreID(uuid.NewString())
	}
	if s.Status == "" {
		s.Status = domain.StoreActive
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	m.stores[s.ID] = s
}

// ---- StoreRepo ----

func (m *Store) ListActive(ctx context.Context) ([]domain.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Store, 0, len(m.stores))
	for _, s := range m.stores {
		if s.Status == domain.StoreActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *Store) Get(ctx context.Context, id domain.StoreID) (*domain.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stores[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *Store) UpdateBaseline(ctx context.Context, id domain.StoreID, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[id]; ok {
		s.BaselineRef = ref
	}
	return nil
}

func (m *Store) UpdateLastChecked(ctx context.Context, id domain.StoreID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[id]; ok {
		t := at
		s.LastChecked = &t
	}
	return nil
}

func (m *Store) SetFailedAttempts(ctx context.Context, id domain.StoreID, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[id]; ok {
		s.FailedAttempts = n
	}
	return nil
}

func (m *Store) Deactivate(ctx context.Context, id domain.StoreID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[id]; ok {
		s.Status = domain.StoreInactive
	}
	return nil
}

// ---- RunRepo ----

type runsView struct{ m *Store }

func (v runsView) Append(ctx context.Context, r *domain.Run) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	cp := *r
	v.m.runs = append(v.m.runs, &cp)
	return nil
}

func (v runsView) Recent(ctx context.Context, limit int) ([]domain.Run, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	out := make([]domain.Run, 0, limit)
	for i := len(v.m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *v.m.runs[i])
	}
	return out, nil
}

// ---- PingRepo ----

type pingsView struct{ m *Store }

func (v pingsView) Append(ctx context.Context, p *domain.PingLog) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	cp := *p
	v.m.pings = append(v.m.pings, &cp)
	return nil
}

func (v pingsView) Previous(ctx context.Context, id domain.StoreID, before time.Time) (*domain.PingLog, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	var best *domain.PingLog
	for _, p := range v.m.pings {
		if p.StoreID != id || !p.CheckedAt.Before(before) {
			continue
		}
		if best == nil || p.CheckedAt.After(best.CheckedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

// ---- AlertRepo ----

type alertsView struct{ m *Store }

func (v alertsView) Append(ctx context.Context, a *domain.Alert) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	cp := *a
	v.m.alerts = append(v.m.alerts, &cp)
	return nil
}

func (v alertsView) Recent(ctx context.Context, limit int) ([]domain.Alert, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	out := make([]domain.Alert, 0, limit)
	for i := len(v.m.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *v.m.alerts[i])
	}
	return out, nil
}

func (v alertsView) LastForStore(ctx context.Context, id domain.StoreID, cat domain.AlertCategory) (*domain.Alert, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	for i := len(v.m.alerts) - 1; i >= 0; i-- {
		if v.m.alerts[i].StoreID == id && v.m.alerts[i].Category == cat {
			cp := *v.m.alerts[i]
			return &cp, nil
		}
	}
	return nil, nil
}
