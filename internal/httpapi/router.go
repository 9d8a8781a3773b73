// Package httpapi serves the operational HTTP surface: liveness based on
// gateway health, Prometheus metrics, a state dump and a small JSON API over
// the admin service.
package httpapi

import (
	"net/http"
	"time"

	"github.com/aatumaykin/pollbot/internal/admin"
	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds router dependencies. Admin and Health are required.
type Config struct {
	Admin  *admin.Service
	Health *poll.Health
	// Gatherer backs /metrics. Nil means prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Logger   *logger.Logger
}

type handler struct {
	admin  *admin.Service
	health *poll.Health
	logger *logger.Logger
}

// NewRouter builds the HTTP routes.
func NewRouter(cfg Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	h := &handler{admin: cfg.Admin, health: cfg.Health, logger: log.Component("http")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/debug/state", h.state)

	r.Route("/api", func(r chi.Router) {
		r.Route("/chats/{chatID}/schedules", func(r chi.Router) {
			r.Get("/", h.listSchedules)
			r.Post("/", h.addSchedule)
			r.Delete("/", h.deleteAll)
			r.Delete("/{position}", h.deleteSchedule)
			r.Post("/{position}/poll", h.startPoll)
			r.Delete("/{position}/poll", h.closePoll)
		})
		r.Post("/polls/{pollID}/close", h.closePollByID)
	})

	return r
}

// requestLogger logs every request at debug level.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.DebugCtx(r.Context(), "http request",
				logger.Field{Key: "method", Value: r.Method},
				logger.Field{Key: "path", Value: r.URL.Path},
				logger.Field{Key: "status", Value: ww.Status()},
				logger.Field{Key: "request_id", Value: middleware.GetReqID(r.Context())},
				logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
		})
	}
}
