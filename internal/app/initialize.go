package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/pollbot/internal/admin"
	"github.com/aatumaykin/pollbot/internal/channels/telegram"
	"github.com/aatumaykin/pollbot/internal/cron"
	"github.com/aatumaykin/pollbot/internal/httpapi"
	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/messages"
	"github.com/aatumaykin/pollbot/internal/metrics"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/aatumaykin/pollbot/internal/schedule"
	"github.com/aatumaykin/pollbot/internal/wizard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// wizardSweepInterval is how often abandoned wizard dialogs are dropped.
const wizardSweepInterval = time.Minute

// Initialize creates and starts all components in order: the schedule file
// is loaded and the jobs rebuilt, then the scheduler, the Telegram transport
// and the HTTP server are started.
func (a *App) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// 1. Create application context
	a.ctx, a.cancel = context.WithCancel(ctx)

	// 2. Metrics and health
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.InitPrometheusMetrics(a.config.Metrics.Namespace, a.registry)
	a.health = poll.NewHealth(a.config.Health.FailureThreshold)
	a.metrics.RegisterHealth(a.config.Metrics.Namespace, a.health)

	// 3. Messaging gateway
	gateway, err := a.buildGateway()
	if err != nil {
		return err
	}

	// 4. Poll manager
	a.polls = poll.NewManager(poll.Config{
		Gateway:  gateway,
		Renderer: messages.Renderer{},
		Logger:   a.logger,
		Observer: a.metrics,
		Health:   a.health,
	})

	// 5. Scheduler
	location, err := a.config.Scheduler.Location()
	if err != nil {
		return fmt.Errorf("failed to load scheduler timezone: %w", err)
	}
	a.scheduler = cron.NewScheduler(a.logger.Component("cron"), cron.Options{
		Location:     location,
		TickInterval: a.config.Scheduler.TickInterval(),
		Trigger:      admin.NewTrigger(a.polls, a.logger),
		Observer:     a.metrics,
	})

	// 6. Schedule store and admin service
	a.store = schedule.NewStore(schedule.NewFile(a.config.Storage.SchedulesPath, a.logger), a.logger)
	a.admin = admin.New(admin.Config{
		Store:     a.store,
		Scheduler: a.scheduler,
		Polls:     a.polls,
		Logger:    a.logger,
		Gauges:    a.metrics,
	})
	if err := a.admin.Init(a.ctx); err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}

	// 7. Start scheduler
	if err := a.scheduler.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start cron scheduler: %w", err)
	}

	// 8. Telegram transport
	a.wizard = wizard.New(a.admin, wizard.Options{
		TTL:    time.Duration(a.config.Telegram.WizardTTLMinutes) * time.Minute,
		Logger: a.logger,
	})
	if a.bot != nil {
		a.telegram = telegram.New(a.config.Telegram, a.logger, a.bot, telegram.Handlers{
			Admin:  a.admin,
			Polls:  a.polls,
			Wizard: a.wizard,
		}, a.metrics)
		if err := a.telegram.Start(a.ctx); err != nil {
			return fmt.Errorf("failed to start telegram connector: %w", err)
		}
		a.bg.Add(1)
		go a.sweepWizards()
	} else {
		a.logger.Warn("Telegram connector is disabled, polls are only logged")
	}

	// 9. HTTP server
	if a.config.HTTP.Enabled {
		router := httpapi.NewRouter(httpapi.Config{
			Admin:    a.admin,
			Health:   a.health,
			Gatherer: a.registry,
			Logger:   a.logger,
		})
		a.http = httpapi.NewServer(a.config.HTTP.Listen, router, a.logger)
		if err := a.http.Start(); err != nil {
			return fmt.Errorf("failed to start http server: %w", err)
		}
	}

	// 10. Mark as started
	a.started = true

	a.logger.Info("application initialized",
		logger.Field{Key: "schedules", Value: a.store.Count()},
		logger.Field{Key: "jobs", Value: len(a.scheduler.Jobs())},
		logger.Field{Key: "timezone", Value: location.String()})
	return nil
}

// buildGateway returns the Telegram gateway when the connector is enabled
// and a logging dry-run gateway otherwise.
func (a *App) buildGateway() (poll.Gateway, error) {
	if !a.config.Telegram.Enabled {
		a.bot = nil
		return newDryRunGateway(a.logger), nil
	}

	if a.bot == nil {
		bot, err := telegram.NewBot(a.config.Telegram.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram bot: %w", err)
		}
		a.bot = bot
	}

	return telegram.NewGateway(a.bot, telegram.GatewayConfig{
		Timeout:   a.config.Telegram.SendTimeout(),
		Attempts:  a.config.Telegram.SendAttempts,
		QuietMode: a.config.Telegram.QuietMode,
		Logger:    a.logger,
		Metrics:   a.metrics,
	}), nil
}

// sweepWizards drops abandoned wizard dialogs until the app stops.
func (a *App) sweepWizards() {
	defer a.bg.Done()

	ticker := time.NewTicker(wizardSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			if n := a.wizard.Expire(); n > 0 {
				a.logger.Debug("expired wizard dialogs dropped",
					logger.Field{Key: "count", Value: n})
			}
		}
	}
}
