package app

import (
	"strings"

	"glassbot/internal/config"
	"glassbot/internal/storage"
	"glassbot/internal/transport/telegram/adapter"
	"glassbot/internal/webhook"
)

// storageConfig maps the optional storage section. ok is false when storage
// is disabled.
func storageConfig(cfg *config.Config, dur config.Durations) (sc storage.Config, ok bool) {
	if cfg.Storage == nil {
		return storage.Config{}, false
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false
	}
	return storage.Config{
		Driver:      driver,
		Path:        strings.TrimSpace(cfg.Storage.Path),
		BusyTimeout: dur.BusyTimeout,
	}, true
}

func telegramConfig(cfg *config.Config, dur config.Durations) adapter.Config {
	return adapter.Config{
		Token:       cfg.Telegram.Token,
		APIBase:     cfg.Telegram.APIBase,
		HTTPTimeout: dur.HTTPTimeout,
		RatePerSec:  cfg.Telegram.RatePerSec,
		Burst:       cfg.Telegram.Burst,
		PollTimeout: dur.PollTimeout,
	}
}

func webhookConfig(cfg *config.Config) webhook.Config {
	wh := cfg.Telegram.Webhook
	return webhook.Config{
		Listen:       wh.Listen,
		Path:         wh.Path,
		Secret:       wh.Secret,
		MaxBodyBytes: wh.MaxBodyBytes,
	}
}

// WebhookOptions is what set-webhook registers for this config.
func WebhookOptions(cfg *config.Config) adapter.WebhookOptions {
	return adapter.WebhookOptions{
		SecretToken:    cfg.Telegram.Webhook.Secret,
		AllowedUpdates: adapter.AllowedUpdates,
	}
}
