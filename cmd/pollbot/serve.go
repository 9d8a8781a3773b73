package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aatumaykin/pollbot/internal/app"
	"github.com/aatumaykin/pollbot/internal/config"
	"github.com/aatumaykin/pollbot/internal/constants"
	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/messages"
	"github.com/spf13/cobra"
)

var (
	serveConfigPath string
	serveLogLevel   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the poll bot (main command)",
	Long: `Start pollbot with the specified configuration.
This loads the schedule file, registers the weekly jobs, connects to
Telegram and serves health and metrics over HTTP until SIGINT or SIGTERM.`,
	Run: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) {
	// Load .env file if exists
	if err := config.LoadEnvOptional(constants.DefaultEnvPath); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load %s: %v\n", constants.DefaultEnvPath, err)
		os.Exit(1)
	}

	// Determine config path
	configPath := serveConfigPath
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprint(os.Stderr, messages.FormatConfigLoadError(err))
		os.Exit(1)
	}

	// Override log level if flag is set
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	// Validate configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Fprint(os.Stderr, messages.FormatValidationErrors(errs))
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, constants.MsgCLIFailedLogger, err)
		os.Exit(1)
	}
	defer log.Close()
	logger.SetDefault(log)

	// Log startup information
	log.Info(constants.MsgCLIStartupBanner,
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "schedules", Value: cfg.Storage.SchedulesPath},
		logger.Field{Key: "timezone", Value: cfg.Scheduler.Timezone},
		logger.Field{Key: "telegram", Value: cfg.Telegram.Enabled},
		logger.Field{Key: "token", Value: config.MaskTelegramToken(cfg.Telegram.Token)},
		logger.Field{Key: "http", Value: cfg.HTTP.Listen})

	// Create context cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, log).Run(ctx); err != nil {
		log.Error("pollbot stopped with error", err)
		stop()
		os.Exit(1)
	}

	log.Info("👋 pollbot stopped gracefully")
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
}
