package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"glassbot/internal/app"
	"glassbot/internal/config"
	"glassbot/internal/transport/telegram/adapter"
	logx "glassbot/pkg/logx"
)

var dropPending bool

var setWebhookCmd = &cobra.Command{
	Use:   "set-webhook [url]",
	Short: "Register the webhook URL with the platform",
	Long:  "Register telegram.webhook.public_url (or the given URL) with setWebhook, passing the configured secret",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, client, err := loadClient()
		if err != nil {
			return err
		}
		url := strings.TrimSpace(cfg.Telegram.Webhook.PublicURL)
		if len(args) == 1 {
			url = strings.TrimSpace(args[0])
		}
		if url == "" {
			return errors.New("no webhook url: pass one or set telegram.webhook.public_url")
		}
		opts := app.WebhookOptions(cfg)
		opts.DropPendingUpdates = dropPending

		ctx, cancel := context.WithTimeout(cmdContext(cmd), 30*time.Second)
		defer cancel()
		if err := client.SetWebhook(ctx, url, opts); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "webhook set: %s\n", url)
		return nil
	},
}

var deleteWebhookCmd = &cobra.Command{
	Use:   "delete-webhook",
	Short: "Remove the webhook so long polling can be used",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, client, err := loadClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmdContext(cmd), 30*time.Second)
		defer cancel()
		if err := client.DeleteWebhook(ctx, dropPending); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "webhook deleted")
		return nil
	},
}

func init() {
	setWebhookCmd.Flags().BoolVar(&dropPending, "drop-pending", false, "drop updates queued on the platform")
	deleteWebhookCmd.Flags().BoolVar(&dropPending, "drop-pending", false, "drop updates queued on the platform")
}

// loadClient builds a Bot API client from the config without starting anything.
func loadClient() (*config.Config, *adapter.Client, error) {
	cfg, err := config.NewManager(configFile).Load()
	if err != nil {
		return nil, nil, err
	}
	dur, err := cfg.Durations()
	if err != nil {
		return nil, nil, err
	}
	client, err := adapter.NewClient(adapter.Config{
		Token:       cfg.Telegram.Token,
		APIBase:     cfg.Telegram.APIBase,
		HTTPTimeout: dur.HTTPTimeout,
	}, logx.NewConsole(cfg.Logging.Level))
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
