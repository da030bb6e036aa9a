// Package imagediff decides whether two captures differ enough to alert.
// The pixel comparison itself is delegated to the pixelmatch library;
// this package owns decoding, the dimension policy, the significance
// cutoff and the optional operator overlay.
package imagediff

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/orisano/pixelmatch"
	"go.uber.org/zap"

	"storewatch/internal/artifact"
	"storewatch/internal/domain"
)

const (
	DefaultThresholdPercent = 5.0
	// DefaultMatchThreshold is the perceptual per-pixel tolerance,
	// lenient enough to ignore anti-aliasing jitter.
	DefaultMatchThreshold = 0.1
)

type Engine struct {
	// ThresholdPercent is the significance cutoff: a diff is significant
	// when its percentage is strictly above this.
	ThresholdPercent float64
	// MatchThreshold is passed to the pixel comparator.
	MatchThreshold float64
	// Artifacts receives the highlighted overlay when set. Optional;
	// overlay failures degrade, they never block.
	Artifacts artifact.Store
	Logger    *zap.Logger
}

func NewEngine(thresholdPercent, matchThreshold float64, artifacts artifact.Store, log *zap.Logger) *Engine {
	if thresholdPercent <= 0 {
		thresholdPercent = DefaultThresholdPercent
	}
	if matchThreshold <= 0 {
		matchThreshold = DefaultMatchThreshold
	}
	return &Engine{
		ThresholdPercent: thresholdPercent,
		MatchThreshold:   matchThreshold,
		Artifacts:        artifacts,
		Logger:           log,
	}
}

// Compare runs the baseline-vs-current decision.
//
// Fails closed: an absent or undecodable input yields significant=true,
// percent=100 — a broken baseline must surface as an alert, never
// silently suppress one. A failure inside the comparator itself is
// returned as an error; the caller records it as a generic run failure.
func (e *Engine) Compare(ctx context.Context, baseline, current []byte, overlayKey string) (domain.DiffResult, error) {
	base, okBase := decode(baseline)
	cur, okCur := decode(current)
	if !okBase || !okCur {
		return domain.DiffResult{Significant: true, Percent: 100}, nil
	}

	bb, cb := base.Bounds(), cur.Bounds()
	if bb.Dx() != cb.Dx() || bb.Dy() != cb.Dy() {
		// Render-service size drift (dynamic page height and the like)
		// is not a product signal; the caller resets the baseline.
		return domain.DiffResult{DimensionChanged: true}, nil
	}

	opts := []pixelmatch.MatchOption{
		pixelmatch.Threshold(e.MatchThreshold),
	}
	var overlay image.Image
	wantOverlay := e.Artifacts != nil && overlayKey != ""
	if wantOverlay {
		opts = append(opts, pixelmatch.WriteTo(&overlay))
	}

	count, err := pixelmatch.MatchPixel(base, cur, opts...)
	if err != nil {
		return domain.DiffResult{}, fmt.Errorf("pixel compare: %w", err)
	}

	total := bb.Dx() * bb.Dy()
	pct := domain.Round2(float64(count) / float64(total) * 100)
	res := domain.DiffResult{
		Significant: pct > e.ThresholdPercent,
		Percent:     pct,
	}

	if wantOverlay && count > 0 && overlay != nil {
		res.OverlayRef = e.putOverlay(ctx, overlayKey, overlay)
	}
	return res, nil
}

func (e *Engine) putOverlay(ctx context.Context, key string, img image.Image) string {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		e.Logger.Warn("overlay_encode_failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	ref, err := e.Artifacts.Put(ctx, key, buf.Bytes())
	if err != nil {
		e.Logger.Warn("overlay_put_failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return ref
}

func decode(data []byte) (image.Image, bool) {
	if len(data) == 0 {
		return nil, false
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	return img, true
}
