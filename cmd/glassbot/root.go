package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "glassbot",
	Short: "glassbot is a keyboard-driven chat bot for the Telegram Bot API",
	Long: `glassbot receives updates over a webhook or long polling, resolves the
handler that answers each one and replies with a new message or an in-place
edit of an inline menu. Periodic jobs run next to the dispatcher.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config.yaml", "path to config file (json or yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(setWebhookCmd)
	rootCmd.AddCommand(deleteWebhookCmd)
	rootCmd.AddCommand(versionCmd)
}
