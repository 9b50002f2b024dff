package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

// MetricsCollector counts requests, errors and per-route traffic.
type MetricsCollector struct {
	started  time.Time
	requests atomic.Int64
	errors   atomic.Int64
	inFlight atomic.Int64

	mu     sync.Mutex
	routes map[string]int64
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		started: time.Now(),
		routes:  make(map[string]int64),
	}
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Uptime   time.Duration
	Requests int64
	Errors   int64
	InFlight int64
	Routes   map[string]int64
}

// Middleware counts requests and errors (4xx and 5xx). Routes are keyed by
// the matched chi pattern so path ids do not explode the map.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requests.Add(1)
		mc.inFlight.Add(1)
		defer mc.inFlight.Add(-1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			mc.errors.Add(1)
		}

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				pattern = p
			}
		}
		mc.mu.Lock()
		mc.routes[r.Method+" "+pattern]++
		mc.mu.Unlock()
	})
}

func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	mc.mu.Lock()
	routes := make(map[string]int64, len(mc.routes))
	for k, v := range mc.routes {
		routes[k] = v
	}
	mc.mu.Unlock()

	return MetricsSnapshot{
		Uptime:   time.Since(mc.started),
		Requests: mc.requests.Load(),
		Errors:   mc.errors.Load(),
		InFlight: mc.inFlight.Load(),
		Routes:   routes,
	}
}
