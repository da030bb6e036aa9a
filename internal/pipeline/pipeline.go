// Package pipeline runs the per-store visual check: capture, baseline
// comparison, alert-or-update, run record. One invocation per (store,
// cycle); all decisions are made here, the diff engine only measures.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"storewatch/internal/artifact"
	"storewatch/internal/domain"
	"storewatch/internal/observability"
	"storewatch/internal/render"
	"storewatch/internal/repo"
)

// Differ measures how much two rasters differ. Implemented by
// imagediff.Engine; faked in tests.
type Differ interface {
	Compare(ctx context.Context, baseline, current []byte, overlayKey string) (domain.DiffResult, error)
}

type Pipeline struct {
	Logger    *zap.Logger
	Stores    repo.StoreRepo
	Runs      repo.RunRepo
	Alerts    repo.AlertRepo
	Renderer  render.Renderer
	Artifacts artifact.Store
	Differ    Differ
	Failures  *FailureTracker
	Dispatch  notifyDispatcher
	Metrics   *observability.Metrics

	CaptureTimeout time.Duration
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string

	// AdvanceBaselineOnAlert keeps the regression as the comparison
	// point when false (the default); see DESIGN.md for the history of
	// this policy.
	AdvanceBaselineOnAlert bool
}

// notifyDispatcher is the slice of notify.Dispatcher the pipeline needs;
// kept as a local interface so tests can observe dispatches.
type notifyDispatcher = interface {
	DispatchAlert(ctx context.Context, store domain.Store, alert domain.Alert)
}

// Capture request defaults for storefront pages: block heavyweight
// resources and blank out consent overlays before the shot.
var (
	defaultBlockTypes    = []string{"font", "media"}
	defaultHideSelectors = []string{
		"#onetrust-consent-sdk", ".cookie-banner", ".cookie-consent",
		"[id*='cookie']", "[class*='consent']",
	}
)

// CheckStore runs one full pipeline invocation. Failures are contained:
// whatever happens, the outcome lands in the run history and the cycle
// moves on to the next store.
func (p *Pipeline) CheckStore(ctx context.Context, store domain.Store) {
	started := time.Now().UTC()
	log := p.Logger.With(
		zap.String("store_id", string(store.ID)),
		zap.String("url", store.URL),
	)

	// 1. Capture.
	cctx, cancel := context.WithTimeout(ctx, p.captureTimeout())
	current, err := p.Renderer.Capture(cctx, render.Request{
		URL:            store.URL,
		ViewportWidth:  p.ViewportWidth,
		ViewportHeight: p.ViewportHeight,
		Timeout:        p.captureTimeout(),
		UserAgent:      p.UserAgent,
		BlockTypes:     defaultBlockTypes,
		HideSelectors:  defaultHideSelectors,
	})
	cancel()
	if err != nil {
		class := render.Classify(err)
		if class.Connectivity() {
			p.Failures.RecordConnectivityFailure(ctx, &store)
		} else {
			log.Warn("capture_error", zap.String("class", string(class)), zap.Error(err))
		}
		p.finishRun(ctx, &store, started, domain.RunError, err.Error(), "", nil, false)
		return
	}

	// 2. Persist artifact; a successful capture proves reachability.
	key := artifact.Key(store.ID, started)
	currentRef, err := p.Artifacts.Put(ctx, key, current)
	if err != nil {
		log.Warn("artifact_put_error", zap.Error(err))
		p.finishRun(ctx, &store, started, domain.RunError, "store screenshot: "+err.Error(), "", nil, true)
		return
	}
	p.Failures.Reset(ctx, &store)

	// 3. Baseline decision.
	if store.BaselineRef == "" {
		p.adoptBaseline(ctx, &store, currentRef, "first_baseline")
		p.finishRun(ctx, &store, started, domain.RunSuccess, "", currentRef, nil, true)
		return
	}

	baseline, err := p.Artifacts.Get(ctx, store.BaselineRef)
	if err != nil {
		if !errors.Is(err, artifact.ErrNotFound) {
			log.Warn("baseline_read_error", zap.Error(err))
		}
		// Cannot compare against data that no longer exists; silently
		// start over from the new capture.
		p.adoptBaseline(ctx, &store, currentRef, "baseline_unreadable")
		p.finishRun(ctx, &store, started, domain.RunSuccess, "", currentRef, nil, true)
		return
	}

	// 4. Diff disposition.
	overlayKey := strings.TrimSuffix(key, ".png") + ".diff.png"
	res, err := p.Differ.Compare(ctx, baseline, current, overlayKey)
	if err != nil {
		log.Warn("compare_error", zap.Error(err))
		p.finishRun(ctx, &store, started, domain.RunError, "compare: "+err.Error(), currentRef, nil, true)
		return
	}

	switch {
	case res.DimensionChanged:
		p.adoptBaseline(ctx, &store, currentRef, "dimension_changed")

	case res.Significant:
		p.raiseVisualAlert(ctx, store, currentRef, res)
		if p.AdvanceBaselineOnAlert {
			p.adoptBaseline(ctx, &store, currentRef, "alert_advance")
		}

	default:
		// Sub-threshold drift becomes the new normal. Adopting
		// unconditionally would conflict with the re-run guarantee that
		// an unchanged page leaves the baseline ref untouched, so a
		// pixel-identical capture is left alone.
		if res.Percent > 0 {
			p.adoptBaseline(ctx, &store, currentRef, "drift_below_threshold")
		}
	}

	// No pixel comparison happened on the dimension path, so no
	// percentage is recorded for it.
	var diffPct *float64
	if !res.DimensionChanged {
		pct := res.Percent
		diffPct = &pct
	}
	p.finishRun(ctx, &store, started, domain.RunSuccess, "", currentRef, diffPct, true)
}

func (p *Pipeline) adoptBaseline(ctx context.Context, store *domain.Store, ref, reason string) {
	if err := p.Stores.UpdateBaseline(ctx, store.ID, ref); err != nil {
		p.Logger.Warn("baseline_update_error",
			zap.String("store_id", string(store.ID)), zap.Error(err))
		return
	}
	store.BaselineRef = ref
	p.Logger.Info("baseline_updated",
		zap.String("store_id", string(store.ID)),
		zap.String("reason", reason),
	)
}

func (p *Pipeline) raiseVisualAlert(ctx context.Context, store domain.Store, afterRef string, res domain.DiffResult) {
	pct := res.Percent
	alert := domain.Alert{
		StoreID:     store.ID,
		Category:    domain.AlertVisual,
		BeforeRef:   store.BaselineRef,
		AfterRef:    afterRef,
		DiffRef:     res.OverlayRef,
		DiffPercent: &pct,
		Severity:    domain.SeverityFor(pct),
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.Alerts.Append(ctx, &alert); err != nil {
		p.Logger.Warn("alert_insert_error",
			zap.String("store_id", string(store.ID)), zap.Error(err))
		return
	}
	p.Metrics.AlertCreated(string(domain.AlertVisual))
	p.Logger.Info("visual_alert",
		zap.String("store_id", string(store.ID)),
		zap.Float64("diff_percentage", pct),
		zap.String("severity", string(alert.Severity)),
	)
	if p.Dispatch != nil {
		p.Dispatch.DispatchAlert(ctx, store, alert)
	}
}

// finishRun is the common tail: last-checked bump (except on the
// capture-failure path, where nothing was observed) and the run record.
func (p *Pipeline) finishRun(ctx context.Context, store *domain.Store, started time.Time,
	status domain.RunStatus, errMsg, screenshotRef string, diffPct *float64, touchLastChecked bool) {

	now := time.Now().UTC()
	if touchLastChecked {
		if err := p.Stores.UpdateLastChecked(ctx, store.ID, now); err != nil {
			p.Logger.Warn("last_checked_update_error",
				zap.String("store_id", string(store.ID)), zap.Error(err))
		}
	}

	run := domain.Run{
		StoreID:       store.ID,
		StartedAt:     started,
		FinishedAt:    now,
		Status:        status,
		ErrorMessage:  errMsg,
		ScreenshotRef: screenshotRef,
		DiffPercent:   diffPct,
	}
	if err := p.Runs.Append(ctx, &run); err != nil {
		p.Logger.Warn("run_insert_error",
			zap.String("store_id", string(store.ID)), zap.Error(err))
	}
	p.Metrics.RunFinished(string(status))
}

func (p *Pipeline) captureTimeout() time.Duration {
	if p.CaptureTimeout > 0 {
		return p.CaptureTimeout
	}
	return 45 * time.Second
}
