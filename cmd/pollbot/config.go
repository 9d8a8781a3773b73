package main

import (
	"fmt"

	"github.com/aatumaykin/pollbot/internal/config"
	"github.com/aatumaykin/pollbot/internal/constants"
	"github.com/aatumaykin/pollbot/internal/messages"
	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate and inspect pollbot configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file and check for errors.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath := constants.DefaultConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	if err := config.LoadEnvOptional(constants.DefaultEnvPath); err != nil {
		return fmt.Errorf("failed to load %s: %w", constants.DefaultEnvPath, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), messages.FormatConfigLoadError(err))
		return err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Fprint(cmd.ErrOrStderr(), messages.FormatValidationErrors(errs))
		return fmt.Errorf("%d configuration errors", len(errs))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, constants.MsgConfigValid)
	fmt.Fprintf(out, "  schedules:  %s\n", cfg.Storage.SchedulesPath)
	fmt.Fprintf(out, "  timezone:   %s\n", cfg.Scheduler.Timezone)
	fmt.Fprintf(out, "  telegram:   %t (token %s)\n", cfg.Telegram.Enabled, config.MaskTelegramToken(cfg.Telegram.Token))
	fmt.Fprintf(out, "  http:       %t (%s)\n", cfg.HTTP.Enabled, cfg.HTTP.Listen)
	return nil
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
