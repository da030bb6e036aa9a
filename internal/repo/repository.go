package repo

import (
	"context"
	"time"

	"storewatch/internal/domain"
)

// Ports (interfaces) — swap in any DB adapter later.

type StoreRepo interface {
	// ListActive returns only stores eligible for checking.
	ListActive(ctx context.Context) ([]domain.Store, error)
	Get(ctx context.Context, id domain.StoreID) (*domain.Store, error)
	UpdateBaseline(ctx context.Context, id domain.StoreID, ref string) error
	UpdateLastChecked(ctx context.Context, id domain.StoreID, at time.Time) error
	SetFailedAttempts(ctx context.Context, id domain.StoreID, n int) error
	Deactivate(ctx context.Context, id domain.StoreID) error
}

type RunRepo interface {
	Append(ctx context.Context, r *domain.Run) error
	Recent(ctx context.Context, limit int) ([]domain.Run, error)
}

type PingRepo interface {
	Append(ctx context.Context, p *domain.PingLog) error
	// Previous returns the latest ping for the store strictly before the
	// given time, or nil when there is none.
	Previous(ctx context.Context, id domain.StoreID, before time.Time) (*domain.PingLog, error)
}

type AlertRepo interface {
	Append(ctx context.Context, a *domain.Alert) error
	Recent(ctx context.Context, limit int) ([]domain.Alert, error)
	// LastForStore returns the newest alert of a category for the store,
	// or nil when there is none. Used for re-alert cooldowns.
	LastForStore(ctx context.Context, id domain.StoreID, cat domain.AlertCategory) (*domain.Alert, error)
}
