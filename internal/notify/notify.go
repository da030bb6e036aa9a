package notify

import (
	"context"

	"go.uber.org/multierr"

	"storewatch/internal/domain"
)

// Message is one alert prepared for delivery. The dispatcher fills in
// the facts; each channel decides its own rendering.
type Message struct {
	Title    string
	Summary  string
	Category domain.AlertCategory
	Severity domain.Severity
	StoreURL string
	Fields   []Field
}

// Field is a labelled detail: owner, artifact links, detection time.
type Field struct {
	Label string
	Value string
}

type Notifier interface {
	Send(ctx context.Context, m Message) error
}

// Multi fans a message out to every configured channel and aggregates
// the failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = multierr.Append(errs, n.Send(ctx, msg))
	}
	return errs
}
