package imagediff

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"go.uber.org/zap"

	"storewatch/internal/artifact"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func halfPNG(t *testing.T, w, h int, left, right color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, left)
			} else {
				img.Set(x, y, right)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func newEngine(store artifact.Store) *Engine {
	return NewEngine(5.0, 0.1, store, zap.NewNop())
}

func TestCompare_Identical(t *testing.T) {
	img := solidPNG(t, 20, 20, color.White)
	res, err := newEngine(nil).Compare(context.Background(), img, img, "")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.Significant || res.Percent != 0 || res.DimensionChanged {
		t.Fatalf("identical images should be a clean pass: %+v", res)
	}
}

func TestCompare_FullyDifferent(t *testing.T) {
	white := solidPNG(t, 20, 20, color.White)
	black := solidPNG(t, 20, 20, color.Black)
	res, err := newEngine(nil).Compare(context.Background(), white, black, "")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !res.Significant {
		t.Fatalf("fully different images must be significant: %+v", res)
	}
	if res.Percent != 100 {
		t.Fatalf("expected 100%%, got %v", res.Percent)
	}
}

func TestCompare_PartialDiff(t *testing.T) {
	white := solidPNG(t, 40, 40, color.White)
	half := halfPNG(t, 40, 40, color.White, color.Black)
	res, err := newEngine(nil).Compare(context.Background(), white, half, "")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !res.Significant {
		t.Fatalf("half-changed page must be significant: %+v", res)
	}
	// Anti-alias handling may shave boundary pixels; the bulk must count.
	if res.Percent < 40 || res.Percent > 50 {
		t.Fatalf("expected roughly half the pixels, got %v", res.Percent)
	}
}

func TestCompare_DimensionChange(t *testing.T) {
	a := solidPNG(t, 20, 20, color.White)
	b := solidPNG(t, 20, 30, color.Black) // content also differs; dimensions win
	res, err := newEngine(nil).Compare(context.Background(), a, b, "")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !res.DimensionChanged {
		t.Fatalf("expected dimension change: %+v", res)
	}
	if res.Significant {
		t.Fatalf("dimension drift must never be significant on its own: %+v", res)
	}
}

func TestCompare_FailsClosedOnBadInput(t *testing.T) {
	good := solidPNG(t, 10, 10, color.White)
	for _, c := range [][2][]byte{
		{nil, good},
		{good, nil},
		{[]byte("not a png"), good},
		{good, []byte("truncated")},
	} {
		res, err := newEngine(nil).Compare(context.Background(), c[0], c[1], "")
		if err != nil {
			t.Fatalf("fail-closed path must not error: %v", err)
		}
		if !res.Significant || res.Percent != 100 {
			t.Fatalf("undecodable input must read as maximal change: %+v", res)
		}
	}
}

func TestCompare_OverlayArtifact(t *testing.T) {
	store := artifact.NewMemory()
	white := solidPNG(t, 20, 20, color.White)
	black := solidPNG(t, 20, 20, color.Black)

	res, err := newEngine(store).Compare(context.Background(), white, black, "captures/s1/diff.png")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.OverlayRef == "" {
		t.Fatal("expected overlay reference")
	}
	if !strings.HasSuffix(res.OverlayRef, "captures/s1/diff.png") {
		t.Fatalf("overlay ref should use the given key: %q", res.OverlayRef)
	}
	data, err := store.Get(context.Background(), res.OverlayRef)
	if err != nil || len(data) == 0 {
		t.Fatalf("overlay blob missing: %v", err)
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("overlay is not a decodable image: %v", err)
	}
}

func TestCompare_NoOverlayOnCleanPass(t *testing.T) {
	store := artifact.NewMemory()
	img := solidPNG(t, 20, 20, color.White)
	res, err := newEngine(store).Compare(context.Background(), img, img, "captures/s1/diff.png")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.OverlayRef != "" {
		t.Fatalf("identical images should not produce an overlay: %+v", res)
	}
}

// failingArtifacts always rejects writes, to prove overlay failure
// degrades instead of blocking.
type failingArtifacts struct{}

func (failingArtifacts) Put(ctx context.Context, key string, data []byte) (string, error) {
	return "", context.DeadlineExceeded
}
func (failingArtifacts) Get(ctx context.Context, ref string) ([]byte, error) {
	return nil, artifact.ErrNotFound
}

func TestCompare_OverlayFailureDegrades(t *testing.T) {
	white := solidPNG(t, 20, 20, color.White)
	black := solidPNG(t, 20, 20, color.Black)

	res, err := newEngine(failingArtifacts{}).Compare(context.Background(), white, black, "captures/s1/diff.png")
	if err != nil {
		t.Fatalf("overlay failure must not fail the comparison: %v", err)
	}
	if !res.Significant || res.OverlayRef != "" {
		t.Fatalf("expected significant result without overlay: %+v", res)
	}
}
