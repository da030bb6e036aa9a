// Package artifact adapts a content-addressed blob store for captured
// screenshots. Keys are namespaced by store id and timestamp so two
// cycles can never collide.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"storewatch/internal/domain"
)

var ErrNotFound = errors.New("artifact not found")

// Store puts and gets binary blobs. Put returns a public URL for the
// stored blob; Get accepts either a bare key or a public URL previously
// returned by Put.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// Key builds the canonical capture key for a store at a point in time.
// Nanosecond precision keeps keys collision-free even under manual
// re-runs inside one second.
func Key(id domain.StoreID, at time.Time) string {
	ts := at.UTC().Format("20060102T150405.") + fmt.Sprintf("%09d", at.Nanosecond())
	return fmt.Sprintf("captures/%s/%s.png", id, ts)
}

// keyFromRef strips a public base URL (or any scheme://host prefix) off a
// reference, leaving the object key. Bare keys pass through unchanged.
func keyFromRef(ref, publicBase string) string {
	if publicBase != "" && strings.HasPrefix(ref, publicBase) {
		return strings.TrimPrefix(strings.TrimPrefix(ref, publicBase), "/")
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return strings.TrimPrefix(u.Path, "/")
	}
	return ref
}
