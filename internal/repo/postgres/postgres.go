package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storewatch/internal/domain"
	"storewatch/internal/repo"
)

var _ repo.StoreRepo = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Runs() repo.RunRepo     { return runs{s} }
func (s *Store) Pings() repo.PingRepo   { return pings{s} }
func (s *Store) Alerts() repo.AlertRepo { return alerts{s} }

const schemaSQL = `
CREATE TABLE IF NOT EXISTS stores (
  id              TEXT PRIMARY KEY,
  url             TEXT NOT NULL UNIQUE,
  status          TEXT NOT NULL DEFAULT 'active',
  baseline_ref    TEXT NULL,
  failed_attempts INTEGER NOT NULL DEFAULT 0,
  last_checked    TIMESTAMPTZ NULL,
  owner_contact   TEXT NULL,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
  id              TEXT PRIMARY KEY,
  store_id        TEXT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
  started_at      TIMESTAMPTZ NOT NULL,
  finished_at     TIMESTAMPTZ NOT NULL,
  status          TEXT NOT NULL,
  error_message   TEXT NULL,
  screenshot_ref  TEXT NULL,
  diff_percentage DOUBLE PRECISION NULL
);

CREATE TABLE IF NOT EXISTS alerts (
  id              TEXT PRIMARY KEY,
  store_id        TEXT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
  category        TEXT NOT NULL,
  before_ref      TEXT NULL,
  after_ref       TEXT NULL,
  diff_ref        TEXT NULL,
  diff_percentage DOUBLE PRECISION NULL,
  severity        TEXT NOT NULL,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ping_logs (
  id               BIGSERIAL PRIMARY KEY,
  store_id         TEXT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
  status_code      INTEGER NULL,
  response_time_ms DOUBLE PRECISION NOT NULL,
  is_up            BOOLEAN NOT NULL,
  error_message    TEXT NULL,
  checked_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ping_logs_store_checked ON ping_logs (store_id, checked_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_store_started ON runs (store_id, started_at DESC);
`

// EnsureSchema creates the tables when they are missing. Safe to run on
// every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ---- StoreRepo ----

func (s *Store) ListActive(ctx context.Context) ([]domain.Store, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, status, baseline_ref, failed_attempts, last_checked, owner_contact, created_at
		   FROM stores
		  WHERE status = 'active'
		  ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list active stores: %w", err)
	}
	defer rows.Close()

	var out []domain.Store
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id domain.StoreID) (*domain.Store, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, url, status, baseline_ref, failed_attempts, last_checked, owner_contact, created_at
		   FROM stores WHERE id = $1`, string(id))
	st, err := scanStore(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return st, err
}

func scanStore(row pgx.Row) (*domain.Store, error) {
	var (
		st          domain.Store
		id          string
		baseline    *string
		lastChecked *time.Time
		owner       *string
	)
	if err := row.Scan(&id, &st.URL, &st.Status, &baseline, &st.FailedAttempts, &lastChecked, &owner, &st.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan store: %w", err)
	}
	st.ID = domain.StoreID(id)
	if baseline != nil {
		st.BaselineRef = *baseline
	}
	st.LastChecked = lastChecked
	if owner != nil {
		st.OwnerContact = *owner
	}
	return &st, nil
}

func (s *Store) UpdateBaseline(ctx context.Context, id domain.StoreID, ref string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE stores SET baseline_ref = $2 WHERE id = $1`, string(id), ref)
	if err != nil {
		return fmt.Errorf("update baseline: %w", err)
	}
	return nil
}

func (s *Store) UpdateLastChecked(ctx context.Context, id domain.StoreID, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE stores SET last_checked = $2 WHERE id = $1`, string(id), at)
	if err != nil {
		return fmt.Errorf("update last_checked: %w", err)
	}
	return nil
}

func (s *Store) SetFailedAttempts(ctx context.Context, id domain.StoreID, n int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE stores SET failed_attempts = $2 WHERE id = $1`, string(id), n)
	if err != nil {
		return fmt.Errorf("set failed_attempts: %w", err)
	}
	return nil
}

func (s *Store) Deactivate(ctx context.Context, id domain.StoreID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE stores SET status = 'inactive' WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("deactivate store: %w", err)
	}
	return nil
}

// ---- RunRepo ----

type runs struct{ s *Store }

func (r runs) Append(ctx context.Context, run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	var errMsg, shot *string
	if run.ErrorMessage != "" {
		errMsg = &run.ErrorMessage
	}
	if run.ScreenshotRef != "" {
		shot = &run.ScreenshotRef
	}
	_, err := r.s.pool.Exec(ctx,
		`INSERT INTO runs
		   (id, store_id, started_at, finished_at, status, error_message, screenshot_ref, diff_percentage)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, string(run.StoreID), run.StartedAt, run.FinishedAt,
		string(run.Status), errMsg, shot, run.DiffPercent,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r runs) Recent(ctx context.Context, limit int) ([]domain.Run, error) {
	rows, err := r.s.pool.Query(ctx,
		`SELECT id, store_id, started_at, finished_at, status, error_message, screenshot_ref, diff_percentage
		   FROM runs
		  ORDER BY started_at DESC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var out []domain.Run
	for rows.Next() {
		var (
			run          domain.Run
			storeID      string
			errMsg, shot *string
		)
		if err := rows.Scan(&run.ID, &storeID, &run.StartedAt, &run.FinishedAt,
			&run.Status, &errMsg, &shot, &run.DiffPercent); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StoreID = domain.StoreID(storeID)
		if errMsg != nil {
			run.ErrorMessage = *errMsg
		}
		if shot != nil {
			run.ScreenshotRef = *shot
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// ---- PingRepo ----

type pings struct{ s *Store }

func (p pings) Append(ctx context.Context, pl *domain.PingLog) error {
	var errMsg *string
	if pl.ErrorMessage != "" {
		errMsg = &pl.ErrorMessage
	}
	_, err := p.s.pool.Exec(ctx,
		`INSERT INTO ping_logs
		   (store_id, status_code, response_time_ms, is_up, error_message, checked_at)
		 VALUES
		   ($1, $2, $3, $4, $5, $6)`,
		string(pl.StoreID), pl.StatusCode, pl.ResponseTimeMS, pl.Up, errMsg, pl.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ping: %w", err)
	}
	return nil
}

func (p pings) Previous(ctx context.Context, id domain.StoreID, before time.Time) (*domain.PingLog, error) {
	row := p.s.pool.QueryRow(ctx,
		`SELECT store_id, status_code, response_time_ms, is_up, error_message, checked_at
		   FROM ping_logs
		  WHERE store_id = $1 AND checked_at < $2
		  ORDER BY checked_at DESC
		  LIMIT 1`, string(id), before)

	var (
		pl      domain.PingLog
		storeID string
		errMsg  *string
	)
	err := row.Scan(&storeID, &pl.StatusCode, &pl.ResponseTimeMS, &pl.Up, &errMsg, &pl.CheckedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan ping: %w", err)
	}
	pl.StoreID = domain.StoreID(storeID)
	if errMsg != nil {
		pl.ErrorMessage = *errMsg
	}
	return &pl, nil
}

// ---- AlertRepo ----

type alerts struct{ s *Store }

func (a alerts) Append(ctx context.Context, al *domain.Alert) error {
	if al.ID == "" {
		al.ID = uuid.NewString()
	}
	if al.CreatedAt.IsZero() {
		al.CreatedAt = time.Now().UTC()
	}
	var before, after, diff *string
	if al.BeforeRef != "" {
		before = &al.BeforeRef
	}
	if al.AfterRef != "" {
		after = &al.AfterRef
	}
	if al.DiffRef != "" {
		diff = &al.DiffRef
	}
	_, err := a.s.pool.Exec(ctx,
		`INSERT INTO alerts
		   (id, store_id, category, before_ref, after_ref, diff_ref, diff_percentage, severity, created_at)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		al.ID, string(al.StoreID), string(al.Category), before, after, diff,
		al.DiffPercent, string(al.Severity), al.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (a alerts) Recent(ctx context.Context, limit int) ([]domain.Alert, error) {
	rows, err := a.s.pool.Query(ctx,
		`SELECT id, store_id, category, before_ref, after_ref, diff_ref, diff_percentage, severity, created_at
		   FROM alerts
		  ORDER BY created_at DESC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		al, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *al)
	}
	return out, rows.Err()
}

func (a alerts) LastForStore(ctx context.Context, id domain.StoreID, cat domain.AlertCategory) (*domain.Alert, error) {
	row := a.s.pool.QueryRow(ctx,
		`SELECT id, store_id, category, before_ref, after_ref, diff_ref, diff_percentage, severity, created_at
		   FROM alerts
		  WHERE store_id = $1 AND category = $2
		  ORDER BY created_at DESC
		  LIMIT 1`, string(id), string(cat))
	al, err := scanAlert(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return al, err
}

func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var (
		al                  domain.Alert
		storeID             string
		before, after, diff *string
	)
	err := row.Scan(&al.ID, &storeID, &al.Category, &before, &after, &diff,
		&al.DiffPercent, &al.Severity, &al.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	al.StoreID = domain.StoreID(storeID)
	if before != nil {
		al.BeforeRef = *before
	}
	if after != nil {
		al.AfterRef = *after
	}
	if diff != nil {
		al.DiffRef = *diff
	}
	return &al, nil
}
