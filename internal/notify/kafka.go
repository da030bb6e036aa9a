package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafka publishes alert messages as JSON events so the dashboard can
// consume a feed instead of polling the database. Events are keyed by
// store URL, which keeps per-store ordering within a partition.
type Kafka struct {
	writer *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

type alertEvent struct {
	Title    string            `json:"title"`
	Summary  string            `json:"summary,omitempty"`
	Category string            `json:"category"`
	Severity string            `json:"severity"`
	StoreURL string            `json:"store_url"`
	Details  map[string]string `json:"details,omitempty"`
	At       time.Time         `json:"at"`
}

func (k *Kafka) Send(ctx context.Context, m Message) error {
	if k == nil {
		return nil
	}
	ev := alertEvent{
		Title:    m.Title,
		Summary:  m.Summary,
		Category: string(m.Category),
		Severity: string(m.Severity),
		StoreURL: m.StoreURL,
		At:       time.Now().UTC(),
	}
	if len(m.Fields) > 0 {
		ev.Details = make(map[string]string, len(m.Fields))
		for _, f := range m.Fields {
			ev.Details[f.Label] = f.Value
		}
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.StoreURL),
		Value: payload,
	})
}

func (k *Kafka) Close() error {
	if k == nil {
		return nil
	}
	return k.writer.Close()
}
