package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/diagreplay/internal/metrics"
	"github.com/starford/diagreplay/internal/replay"
	"github.com/starford/diagreplay/internal/sse"
)

// Options configures NewRouter.
type Options struct {
	AuthEnabled bool
	Token       string

	// RateLimit is the number of requests allowed per RateWindow and
	// client IP. Zero disables limiting.
	RateLimit  int
	RateWindow time.Duration

	// Broker, if non-nil, receives every lookup and is mounted at
	// GET /-/events inside the auth group.
	Broker *sse.Broker
	// Metrics, if non-nil, counts lookups and is exposed at GET /-/metrics.
	Metrics *metrics.Metrics
}

// NewRouter creates a chi router with the admin endpoints under /-/ and the
// replay catch-all for everything else.
func NewRouter(svc *replay.Service, opts Options) chi.Router {
	h := NewHandler(svc, opts.Broker, opts.Metrics)

	r := chi.NewRouter()
	if opts.RateLimit > 0 {
		r.Use(IPRateLimiter(opts.RateLimit, opts.RateWindow))
	}

	// Health and metrics stay unauthenticated.
	r.Get("/-/health/live", healthOK)
	r.Get("/-/health/ready", healthOK)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/-/metrics", opts.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(opts.AuthEnabled, opts.Token))

		r.Get("/", h.Summary)
		r.Get("/-/routes", h.Routes)
		if opts.Broker != nil {
			r.Get("/-/events", opts.Broker.ServeHTTP)
		}
		r.Get("/*", h.Replay)
	})

	return r
}

func healthOK(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
