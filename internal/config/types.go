package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// TokenEnv overrides telegram.token when set.
const TokenEnv = "GLASSBOT_TOKEN"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Planner   PlannerConfig   `json:"planner"`
	Resources ResourcesConfig `json:"resources"`
	Dispatch  DispatchConfig  `json:"dispatch"`
	Pprof     PprofConfig     `json:"pprof"`

	// Storage is optional; when omitted updates are not deduplicated and no
	// delivery trail is kept.
	//
	// Example:
	//
	//	"storage": { "driver": "sqlite", "path": "./glassbot.db" }
	Storage *StorageConfig `json:"storage,omitempty"`
}

// TelegramConfig holds Bot API access. All durations are Go duration strings.
//
// Defaults (when fields are omitted/zero):
//   - api_base: https://api.telegram.org
//   - http_timeout: "10s"
//   - rate_per_sec: 0 (no outbound throttling)
//   - poll_timeout: "30s"
type TelegramConfig struct {
	Token       string        `json:"token"`
	APIBase     string        `json:"api_base,omitempty"`
	HTTPTimeout string        `json:"http_timeout,omitempty"`
	RatePerSec  float64       `json:"rate_per_sec,omitempty"`
	Burst       int           `json:"burst,omitempty"`
	PollTimeout string        `json:"poll_timeout,omitempty"`
	Webhook     WebhookConfig `json:"webhook"`
}

// WebhookConfig is used by "serve". PublicURL is what set-webhook registers;
// Listen and Path are where the local server accepts deliveries.
type WebhookConfig struct {
	Listen       string `json:"listen,omitempty"` // default: "127.0.0.1:8080"
	Path         string `json:"path,omitempty"`   // default: "/telegram"
	PublicURL    string `json:"public_url,omitempty"`
	Secret       string `json:"secret,omitempty"` // do not log
	MaxBodyBytes int64  `json:"max_body_bytes,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// PlannerConfig controls the periodic job ticker. Tick is clamped to >= 1s.
type PlannerConfig struct {
	Tick string `json:"tick,omitempty"`
}

// ResourcesConfig points at the localized text table (JSON or YAML).
type ResourcesConfig struct {
	Path            string `json:"path"`
	Watch           bool   `json:"watch,omitempty"`
	DefaultLanguage string `json:"default_language,omitempty"`
}

type DispatchConfig struct {
	QueueSize int `json:"queue_size,omitempty"`
	// DedupTTL is how long an update id is remembered (needs storage).
	DedupTTL string `json:"dedup_ttl,omitempty"`
}

// PprofConfig controls the optional profiling server. A non-loopback addr
// needs a token unless allow_insecure is set.
type PprofConfig struct {
	Enabled       bool   `json:"enabled,omitempty"`
	Addr          string `json:"addr,omitempty"`   // default: "127.0.0.1:6060"
	Prefix        string `json:"prefix,omitempty"` // default: "/debug/pprof/"
	Token         string `json:"token,omitempty"`  // do not log
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// Durations are the parsed duration fields of a validated config.
type Durations struct {
	HTTPTimeout time.Duration
	PollTimeout time.Duration
	PlannerTick time.Duration
	DedupTTL    time.Duration
	BusyTimeout time.Duration
}

// Durations parses every duration field, applying defaults.
func (c *Config) Durations() (Durations, error) {
	var (
		d   Durations
		err error
	)
	if d.HTTPTimeout, err = ParseDurationOrDefault("telegram.http_timeout", c.Telegram.HTTPTimeout, 10*time.Second); err != nil {
		return d, err
	}
	if d.PollTimeout, err = ParseDurationOrDefault("telegram.poll_timeout", c.Telegram.PollTimeout, 30*time.Second); err != nil {
		return d, err
	}
	if d.PlannerTick, err = ParseDurationOrDefault("planner.tick", c.Planner.Tick, time.Second); err != nil {
		return d, err
	}
	if d.PlannerTick < time.Second {
		d.PlannerTick = time.Second
	}
	if d.DedupTTL, err = ParseDurationOrDefault("dispatch.dedup_ttl", c.Dispatch.DedupTTL, 24*time.Hour); err != nil {
		return d, err
	}
	if c.Storage != nil {
		if d.BusyTimeout, err = ParseDurationOrDefault("storage.busy_timeout", c.Storage.BusyTimeout, 5*time.Second); err != nil {
			return d, err
		}
	}
	return d, nil
}

// Validate fills defaults in place and checks required fields.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, fmt.Errorf("telegram.token is required (or set %s)", TokenEnv))
	}
	if c.Telegram.RatePerSec < 0 {
		errs = append(errs, errors.New("telegram.rate_per_sec must be >= 0"))
	}
	if strings.TrimSpace(c.Resources.Path) == "" {
		errs = append(errs, errors.New("resources.path is required"))
	}
	if c.Pprof.Enabled && c.Pprof.Token == "" && !c.Pprof.AllowInsecure && !loopback(c.Pprof.Addr) {
		errs = append(errs, errors.New("pprof.addr is not loopback: set pprof.token or pprof.allow_insecure"))
	}
	if c.Dispatch.QueueSize < 0 {
		errs = append(errs, errors.New("dispatch.queue_size must be >= 0"))
	}
	if c.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
		case "", "none", "memory", "file", "sqlite":
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
		}
	}
	if u := strings.TrimSpace(c.Telegram.Webhook.PublicURL); u != "" && !strings.HasPrefix(u, "https://") {
		errs = append(errs, errors.New("telegram.webhook.public_url must be https"))
	}
	if _, err := c.Durations(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}

	if c.Telegram.Webhook.Listen == "" {
		c.Telegram.Webhook.Listen = "127.0.0.1:8080"
	}
	if c.Telegram.Webhook.Path == "" {
		c.Telegram.Webhook.Path = "/telegram"
	}
	if c.Resources.DefaultLanguage == "" {
		c.Resources.DefaultLanguage = "en"
	}
	if c.Pprof.Addr == "" {
		c.Pprof.Addr = "127.0.0.1:6060"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return nil
}

// loopback reports whether addr binds only to the local host. An empty addr
// takes the loopback default.
func loopback(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return true
	}
	h, _, err := net.SplitHostPort(addr)
	if err != nil || h == "" {
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
