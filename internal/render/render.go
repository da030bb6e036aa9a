// Package render talks to the remote browser-automation backend that
// produces full-page screenshots. The wire protocol stays behind the
// Renderer interface so the core never assumes a particular automation
// stack.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Request describes one capture. Zero values fall back to the service's
// own defaults.
type Request struct {
	URL            string
	ViewportWidth  int
	ViewportHeight int
	Timeout        time.Duration
	UserAgent      string
	BlockTypes     []string // resource types the browser should not load
	HideSelectors  []string // elements blanked out before the shot (consent banners etc.)
}

type Renderer interface {
	Capture(ctx context.Context, req Request) ([]byte, error)
}

// Client captures through a browserless-style HTTP screenshot endpoint.
type Client struct {
	Endpoint string
	Token    string
	HTTP     *http.Client
}

func NewClient(endpoint, token string) *Client {
	return &Client{
		Endpoint: strings.TrimSuffix(endpoint, "/"),
		Token:    token,
		// The outer per-capture deadline comes from ctx; this is a hard
		// upper bound in case a caller forgets one.
		HTTP: &http.Client{Timeout: 2 * time.Minute},
	}
}

type captureBody struct {
	URL         string            `json:"url"`
	Options     captureOptions    `json:"options"`
	Viewport    *viewport         `json:"viewport,omitempty"`
	UserAgent   string            `json:"userAgent,omitempty"`
	RejectTypes []string          `json:"rejectResourceTypes,omitempty"`
	StyleTags   []styleTag        `json:"addStyleTag,omitempty"`
	GotoOptions map[string]any    `json:"gotoOptions,omitempty"`
}

type captureOptions struct {
	FullPage bool   `json:"fullPage"`
	Type     string `json:"type"`
}

type viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type styleTag struct {
	Content string `json:"content"`
}

func (c *Client) Capture(ctx context.Context, req Request) ([]byte, error) {
	body := captureBody{
		URL:         req.URL,
		Options:     captureOptions{FullPage: true, Type: "png"},
		UserAgent:   req.UserAgent,
		RejectTypes: req.BlockTypes,
	}
	if req.ViewportWidth > 0 && req.ViewportHeight > 0 {
		body.Viewport = &viewport{Width: req.ViewportWidth, Height: req.ViewportHeight}
	}
	if len(req.HideSelectors) > 0 {
		css := strings.Join(req.HideSelectors, ", ") + " { display: none !important; }"
		body.StyleTags = []styleTag{{Content: css}}
	}
	if req.Timeout > 0 {
		body.GotoOptions = map[string]any{
			"timeout":   req.Timeout.Milliseconds(),
			"waitUntil": "networkidle2",
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal capture request: %w", err)
	}

	u := c.Endpoint + "/screenshot"
	if c.Token != "" {
		u += "?token=" + c.Token
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build capture request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &CaptureError{Status: resp.StatusCode, Message: string(msg)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read capture response: %w", err)
	}
	if len(data) == 0 {
		return nil, &CaptureError{Status: resp.StatusCode, Message: "empty screenshot response"}
	}
	return data, nil
}

// CaptureError is a non-2xx answer from the render service. Its message
// usually carries the browser-side navigation error, which is what the
// failure classifier pattern-matches on.
type CaptureError struct {
	Status  int
	Message string
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("render service %d: %s", e.Status, e.Message)
}
