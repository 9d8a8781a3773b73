package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pollbot",
	Short: "Pollbot - weekly attendance polls for Telegram groups",
	Long: `Pollbot opens a "who is coming" poll in a Telegram group on a weekly
schedule, collects the votes and publishes a summary when the poll closes.`,
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
}
