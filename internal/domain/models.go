package domain

import "time"

type StoreID string

type StoreStatus string

const (
	StoreActive   StoreStatus = "active"
	StoreInactive StoreStatus = "inactive"
)

// Store is a monitored storefront. Rows are created externally; this
// system only mutates baseline_ref, failed_attempts, status and
// last_checked.
type Store struct {
	ID             StoreID     `json:"id"`
	URL            string      `json:"url"`
	Status         StoreStatus `json:"status"`
	BaselineRef    string      `json:"baseline_ref,omitempty"`
	FailedAttempts int         `json:"failed_attempts"`
	LastChecked    *time.Time  `json:"last_checked"`
	OwnerContact   string      `json:"owner_contact,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// Run is one execution record of the visual pipeline. Append-only.
type Run struct {
	ID            string    `json:"id"`
	StoreID       StoreID   `json:"store_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Status        RunStatus `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	ScreenshotRef string    `json:"screenshot_ref,omitempty"`
	DiffPercent   *float64  `json:"diff_percentage"` // nil when no comparison happened
}

// PingLog is one execution record of the availability probe. Append-only.
type PingLog struct {
	StoreID        StoreID   `json:"store_id"`
	StatusCode     *int      `json:"status_code"` // nil on transport error
	ResponseTimeMS float64   `json:"response_time_ms"`
	Up             bool      `json:"is_up"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

type AlertCategory string

const (
	AlertVisual       AlertCategory = "visual"
	AlertAvailability AlertCategory = "availability"
)

type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityHigh Severity = "high"
)

// Alert is immutable once created; acknowledgement and resolution live
// in the dashboard, not here.
type Alert struct {
	ID          string        `json:"id"`
	StoreID     StoreID       `json:"store_id"`
	Category    AlertCategory `json:"category"`
	BeforeRef   string        `json:"before_ref,omitempty"`
	AfterRef    string        `json:"after_ref,omitempty"`
	DiffRef     string        `json:"diff_ref,omitempty"`
	DiffPercent *float64      `json:"diff_percentage"`
	Severity    Severity      `json:"severity"`
	CreatedAt   time.Time     `json:"created_at"`
}
