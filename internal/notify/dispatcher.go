package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storewatch/internal/domain"
)

// Dispatcher turns alerts into messages. It resolves the recipient from
// store ownership, and it never raises into the caller: an unresolvable
// recipient is a silent no-op, a channel failure is logged and swallowed.
type Dispatcher struct {
	Logger   *zap.Logger
	Notifier Notifier
}

func NewDispatcher(log *zap.Logger, n Notifier) *Dispatcher {
	return &Dispatcher{Logger: log, Notifier: n}
}

func (d *Dispatcher) DispatchAlert(ctx context.Context, store domain.Store, alert domain.Alert) {
	if d == nil || d.Notifier == nil {
		return
	}
	recipient := store.OwnerContact
	if recipient == "" {
		d.Logger.Debug("alert_no_recipient", zap.String("store_id", string(store.ID)))
		return
	}

	msg := Message{
		Category: alert.Category,
		Severity: alert.Severity,
		StoreURL: store.URL,
		Fields: []Field{
			{Label: "Owner", Value: recipient},
			{Label: "Detected", Value: alert.CreatedAt.Format(time.RFC3339)},
		},
	}

	switch alert.Category {
	case domain.AlertVisual:
		pct := 0.0
		if alert.DiffPercent != nil {
			pct = *alert.DiffPercent
		}
		msg.Title = fmt.Sprintf("Visual change on %s (%.2f%%, %s)", store.URL, pct, alert.Severity)
		msg.Summary = "The page layout drifted past the alert threshold against the stored baseline."
		msg.Fields = append(msg.Fields,
			Field{Label: "Before", Value: alert.BeforeRef},
			Field{Label: "After", Value: alert.AfterRef},
			Field{Label: "Diff", Value: orNA(alert.DiffRef)},
		)
	case domain.AlertAvailability:
		msg.Title = fmt.Sprintf("Store DOWN: %s", store.URL)
		msg.Summary = "Two consecutive failed probes; the store is unreachable."
	default:
		msg.Title = fmt.Sprintf("Alert for %s", store.URL)
	}

	if err := d.Notifier.Send(ctx, msg); err != nil {
		d.Logger.Warn("alert_dispatch_failed",
			zap.String("store_id", string(store.ID)),
			zap.String("category", string(alert.Category)),
			zap.Error(err),
		)
	}
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
