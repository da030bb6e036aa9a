package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimit caps requests per client IP with a fixed one-minute window.
// The ops API is read-only and low-traffic; a windowed counter is enough
// and keeps no long-lived per-client state beyond the current window.
func RateLimit(reqPerMin int) func(http.Handler) http.Handler {
	if reqPerMin <= 0 {
		// disabled
		return func(next http.Handler) http.Handler { return next }
	}

	var (
		mu      sync.Mutex
		counts  = make(map[string]int)
		resetAt = time.Now().Add(time.Minute)
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			if now := time.Now(); now.After(resetAt) {
				counts = make(map[string]int)
				resetAt = now.Add(time.Minute)
			}
			key := clientIP(r)
			counts[key]++
			over := counts[key] > reqPerMin
			mu.Unlock()

			if over {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// honor X-Forwarded-For if behind a proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
