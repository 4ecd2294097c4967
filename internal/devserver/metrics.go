package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// requestMetrics counts and times requests.
//
// Each server registers its own collectors on its own registry rather than
// on prometheus.DefaultRegisterer. Tests start many servers in one process,
// and registering the same metric names twice on the global registry would
// panic.
type requestMetrics struct {
	// requests counts handled requests by method and status code.
	requests *prometheus.CounterVec

	// duration observes handling time by method. The status code is left
	// out to keep the number of series small.
	duration *prometheus.HistogramVec
}

// newLiveReloadGauge reports how many pages currently listen for reloads.
// The value is read from the hub on every scrape, so it can never drift
// from the real connection count.
func newLiveReloadGauge(hub *Hub) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "catalog",
		Subsystem: "devserver",
		Name:      "livereload_clients",
		Help:      "Pages connected to the live reload socket.",
	}, func() float64 {
		return float64(hub.Clients())
	})
}

// newRequestMetrics creates the request collectors and registers them on
// reg. Registration failures are programming errors (duplicate names), so
// MustRegister is used.
func newRequestMetrics(reg prometheus.Registerer) *requestMetrics {
	m := &requestMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog",
			Subsystem: "devserver",
			Name:      "requests_total",
			Help:      "Requests handled by the Catalog dev server.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "catalog",
			Subsystem: "devserver",
			Name:      "request_duration_seconds",
			Help:      "Time spent handling dev server requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// middleware records every request that passes through the router,
// including the internal /__catalog/ routes and proxied requests.
func (m *requestMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// chi's wrapper remembers the status code written by the handler
		// and still exposes http.Hijacker, which the live reload websocket
		// upgrade depends on.
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// A handler that writes a body without calling WriteHeader
		// implicitly answers 200.
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
