// Package prober runs the fast availability cycle, independent of the
// visual pipeline.
package prober

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"storewatch/internal/domain"
	"storewatch/internal/observability"
	"storewatch/internal/repo"
)

const DefaultTimeout = 10 * time.Second

type dispatcher interface {
	DispatchAlert(ctx context.Context, store domain.Store, alert domain.Alert)
}

type Prober struct {
	Logger   *zap.Logger
	Pings    repo.PingRepo
	Alerts   repo.AlertRepo
	Dispatch dispatcher
	Metrics  *observability.Metrics
	Client   *http.Client

	// Cooldown bounds re-alert volume during long outages; zero keeps
	// the reference behavior of re-alerting on every down observation
	// after the first consecutive pair.
	Cooldown time.Duration
}

func New(log *zap.Logger, pings repo.PingRepo, alerts repo.AlertRepo, dispatch dispatcher,
	metrics *observability.Metrics, timeout time.Duration, cooldown time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		Logger:   log,
		Pings:    pings,
		Alerts:   alerts,
		Dispatch: dispatch,
		Metrics:  metrics,
		Client:   &http.Client{Timeout: timeout},
		Cooldown: cooldown,
	}
}

// Probe issues one availability check, persists the ping row and decides
// whether a down-alert is due. Up means a 2xx answer; any other status
// or a transport error is down.
func (p *Prober) Probe(ctx context.Context, store domain.Store) domain.PingLog {
	start := time.Now()
	ping := domain.PingLog{
		StoreID:   store.ID,
		CheckedAt: start.UTC(),
	}

	resp, err := p.do(ctx, store.URL)
	ping.ResponseTimeMS = time.Since(start).Seconds() * 1000
	if err != nil {
		ping.ErrorMessage = err.Error()
	} else {
		code := resp.StatusCode
		ping.StatusCode = &code
		ping.Up = code >= 200 && code < 300
		resp.Body.Close()
	}

	if err := p.Pings.Append(ctx, &ping); err != nil {
		p.Logger.Warn("ping_insert_error",
			zap.String("store_id", string(store.ID)), zap.Error(err))
	}
	p.Metrics.PingObserved(ping.Up)

	if !ping.Up {
		p.maybeAlertDown(ctx, store, ping)
	}
	return ping
}

// do sends a HEAD first and falls back to GET when the origin rejects
// HEAD outright.
func (p *Prober) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusMethodNotAllowed {
		return resp, nil
	}
	resp.Body.Close()

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return p.Client.Do(req)
}

// maybeAlertDown applies the two-consecutive-downs rule: a single blip
// never alerts, the second down in a row does. With no cooldown set,
// every following down observation re-alerts.
func (p *Prober) maybeAlertDown(ctx context.Context, store domain.Store, current domain.PingLog) {
	prev, err := p.Pings.Previous(ctx, store.ID, current.CheckedAt)
	if err != nil {
		p.Logger.Warn("ping_history_error",
			zap.String("store_id", string(store.ID)), zap.Error(err))
		return
	}
	if prev == nil || prev.Up {
		return
	}

	if p.Cooldown > 0 {
		last, err := p.Alerts.LastForStore(ctx, store.ID, domain.AlertAvailability)
		if err == nil && last != nil && time.Since(last.CreatedAt) < p.Cooldown {
			return
		}
	}

	alert := domain.Alert{
		StoreID:   store.ID,
		Category:  domain.AlertAvailability,
		Severity:  domain.SeverityHigh,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.Alerts.Append(ctx, &alert); err != nil {
		p.Logger.Warn("alert_insert_error",
			zap.String("store_id", string(store.ID)), zap.Error(err))
		return
	}
	p.Metrics.AlertCreated(string(domain.AlertAvailability))
	p.Logger.Warn("store_down",
		zap.String("store_id", string(store.ID)),
		zap.String("url", store.URL),
		zap.String("error", current.ErrorMessage),
	)
	if p.Dispatch != nil {
		p.Dispatch.DispatchAlert(ctx, store, alert)
	}
}
