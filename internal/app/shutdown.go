package app

import (
	"context"
	"errors"
	"time"

	"github.com/aatumaykin/pollbot/internal/logger"
)

// shutdownTimeout bounds waiting for HTTP requests in flight.
const shutdownTimeout = 10 * time.Second

// Shutdown performs graceful shutdown of all components.
// It stops the application in the following order:
//  1. Stops the HTTP server, so no new admin requests arrive
//  2. Stops the Telegram connector and waits for updates in progress
//  3. Cancels the application context
//  4. Stops the cron scheduler and waits for running jobs
//
// Open polls are not closed. Shutdown is safe to call after a partial
// Initialize and more than once.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return nil
	}

	var errs []error

	if a.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.http.Stop(ctx); err != nil {
			a.logger.Error("Failed to stop http server", err)
			errs = append(errs, err)
		}
		cancel()
		a.http = nil
	}

	if a.telegram != nil {
		if err := a.telegram.Stop(); err != nil {
			a.logger.Error("Failed to stop telegram connector", err)
			errs = append(errs, err)
		}
		a.telegram = nil
	}

	a.cancel()
	a.cancel = nil
	a.bg.Wait()

	if a.scheduler != nil && a.scheduler.IsStarted() {
		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Failed to stop cron scheduler", err)
			errs = append(errs, err)
		}
	}

	if a.polls != nil {
		if active := a.polls.Active(); len(active) > 0 {
			a.logger.Warn("open polls are dropped on shutdown",
				logger.Field{Key: "count", Value: len(active)})
		}
	}

	a.started = false
	a.logger.Info("Application shutdown complete")

	return errors.Join(errs...)
}
