package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"storewatch/internal/domain"
)

// Slack posts alerts to an incoming webhook. An alert is rendered as a
// single attachment: severity drives the sidebar color and the details
// land in structured fields instead of one text blob, so diff links
// stay clickable next to their labels.
type Slack struct {
	Webhook string
	Client  *http.Client
}

func NewSlack(webhook string) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{
		Webhook: webhook,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type slackPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func severityColor(s domain.Severity) string {
	switch s {
	case domain.SeverityHigh:
		return "danger"
	case domain.SeverityLow:
		return "warning"
	default:
		return "#439fe0"
	}
}

func (s *Slack) Send(ctx context.Context, m Message) error {
	if s == nil || s.Webhook == "" {
		return errors.New("slack disabled")
	}

	att := slackAttachment{
		Color: severityColor(m.Severity),
		Text:  m.Summary,
	}
	for _, f := range m.Fields {
		att.Fields = append(att.Fields, slackField{
			Title: f.Label,
			Value: f.Value,
			Short: len(f.Value) <= 40,
		})
	}

	body, err := json.Marshal(slackPayload{
		Text:        m.Title,
		Attachments: []slackAttachment{att},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return errors.New("slack non-2xx")
	}
	return nil
}
