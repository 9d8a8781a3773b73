// Package app provides the main application structure for pollbot.
// It wires the schedule store, the cron scheduler, the poll manager, the
// Telegram connector and the HTTP server, and manages their lifecycle.
package app

import (
	"context"
	"sync"

	"github.com/aatumaykin/pollbot/internal/admin"
	"github.com/aatumaykin/pollbot/internal/channels/telegram"
	"github.com/aatumaykin/pollbot/internal/config"
	"github.com/aatumaykin/pollbot/internal/cron"
	"github.com/aatumaykin/pollbot/internal/httpapi"
	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/metrics"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/aatumaykin/pollbot/internal/schedule"
	"github.com/aatumaykin/pollbot/internal/wizard"
	"github.com/prometheus/client_golang/prometheus"
)

// App represents the main application structure.
// It holds references to all major components and manages their lifecycle.
type App struct {
	// Configuration and core services
	config *config.Config
	logger *logger.Logger

	// Observability
	registry *prometheus.Registry
	metrics  *metrics.PrometheusMetrics
	health   *poll.Health

	// Domain services
	store     *schedule.Store
	scheduler *cron.Scheduler
	polls     *poll.Manager
	admin     *admin.Service
	wizard    *wizard.Wizard

	// Transport
	bot      telegram.BotInterface
	telegram *telegram.Connector
	http     *httpapi.Server

	// Context management
	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup

	// Thread-safety
	mu      sync.Mutex
	started bool
}

// Option customizes an App.
type Option func(*App)

// WithBot replaces the Telegram client built from the configured token.
func WithBot(bot telegram.BotInterface) Option {
	return func(a *App) {
		a.bot = bot
	}
}

// New creates a new App instance with the provided configuration and logger.
// Components are created in Initialize.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *App {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{
		config: cfg,
		logger: log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until the context is cancelled.
// It performs the following steps:
//  1. Initializes and starts all components via Initialize()
//  2. Waits for the context to be cancelled
//  3. Performs graceful shutdown via Shutdown()
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		_ = a.Shutdown()
		return err
	}

	a.logger.Info("Application is running")

	<-ctx.Done()

	return a.Shutdown()
}

// Admin returns the admin service once the app is initialized.
func (a *App) Admin() *admin.Service {
	return a.admin
}

// HTTPServer returns the HTTP server, or nil when it is disabled.
func (a *App) HTTPServer() *httpapi.Server {
	return a.http
}
