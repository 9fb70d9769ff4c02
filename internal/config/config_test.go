package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalJSON = `{
	"telegram": {"token": "123:abc"},
	"logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}},
	"resources": {"path": "texts.yaml"}
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv(TokenEnv, "")
	p := writeFile(t, t.TempDir(), "config.json", minimalJSON)

	cfg, err := NewManager(p).Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, "127.0.0.1:8080", cfg.Telegram.Webhook.Listen)
	assert.Equal(t, "/telegram", cfg.Telegram.Webhook.Path)
	assert.Equal(t, "en", cfg.Resources.DefaultLanguage)
	assert.Nil(t, cfg.Storage)

	d, err := cfg.Durations()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, d.HTTPTimeout)
	assert.Equal(t, 30*time.Second, d.PollTimeout)
	assert.Equal(t, time.Second, d.PlannerTick)
	assert.Equal(t, 24*time.Hour, d.DedupTTL)
}

func TestLoadYAML(t *testing.T) {
	t.Setenv(TokenEnv, "")
	p := writeFile(t, t.TempDir(), "config.yaml", `
telegram:
  token: "1:x"
  rate_per_sec: 20
  webhook:
    public_url: https://bot.example.com/telegram
planner:
  tick: 200ms
resources:
  path: texts.json
  watch: true
storage:
  driver: sqlite
  path: ./glassbot.db
`)
	cfg, err := NewManager(p).Load()
	require.NoError(t, err)
	assert.Equal(t, 20.0, cfg.Telegram.RatePerSec)
	assert.True(t, cfg.Resources.Watch)
	require.NotNil(t, cfg.Storage)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)

	d, err := cfg.Durations()
	require.NoError(t, err)
	assert.Equal(t, time.Second, d.PlannerTick, "tick is clamped to one second")
	assert.Equal(t, 5*time.Second, d.BusyTimeout)
}

func TestStrictDecoding(t *testing.T) {
	t.Setenv(TokenEnv, "")
	dir := t.TempDir()

	_, err := NewManager(writeFile(t, dir, "unknown.json", `{"telegram": {"token": "x"}, "resources": {"path": "t"}, "plugins": {}}`)).Load()
	require.ErrorIs(t, err, ErrInvalid)

	_, err = NewManager(writeFile(t, dir, "trailing.json", minimalJSON+`{}`)).Load()
	require.ErrorIs(t, err, ErrInvalid)

	_, err = NewManager(writeFile(t, dir, "unknown.yaml", "telegram:\n  token: x\n  owner: 1\nresources:\n  path: t\n")).Load()
	require.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	cases := map[string]Config{
		"missing token":     {Resources: ResourcesConfig{Path: "t"}},
		"missing resources": {Telegram: TelegramConfig{Token: "x"}},
		"bad duration":      {Telegram: TelegramConfig{Token: "x", HTTPTimeout: "soon"}, Resources: ResourcesConfig{Path: "t"}},
		"negative duration": {Telegram: TelegramConfig{Token: "x"}, Planner: PlannerConfig{Tick: "-1s"}, Resources: ResourcesConfig{Path: "t"}},
		"unknown driver":    {Telegram: TelegramConfig{Token: "x"}, Resources: ResourcesConfig{Path: "t"}, Storage: &StorageConfig{Driver: "redis"}},
		"plain http hook":   {Telegram: TelegramConfig{Token: "x", Webhook: WebhookConfig{PublicURL: "http://x"}}, Resources: ResourcesConfig{Path: "t"}},
		"open pprof":        {Telegram: TelegramConfig{Token: "x"}, Resources: ResourcesConfig{Path: "t"}, Pprof: PprofConfig{Enabled: true, Addr: "0.0.0.0:6060"}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestPprofBind(t *testing.T) {
	base := func(p PprofConfig) Config {
		return Config{Telegram: TelegramConfig{Token: "x"}, Resources: ResourcesConfig{Path: "t"}, Pprof: p}
	}
	for _, p := range []PprofConfig{
		{Enabled: true},
		{Enabled: true, Addr: "localhost:6060"},
		{Enabled: true, Addr: "[::1]:6060"},
		{Enabled: true, Addr: ":6060", Token: "t"},
		{Enabled: true, Addr: ":6060", AllowInsecure: true},
		{Addr: ":6060"},
	} {
		cfg := base(p)
		assert.NoError(t, cfg.Validate(), "%+v", p)
	}
	cfg := base(PprofConfig{})
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:6060", cfg.Pprof.Addr)
}

func TestTokenFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", `{"telegram": {}, "resources": {"path": "t"}}`)
	writeFile(t, dir, ".env", "GLASSBOT_TOKEN=from-dotenv\n")

	t.Setenv(TokenEnv, "")
	cfg, err := NewManager(p).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Telegram.Token)

	t.Setenv(TokenEnv, "from-env")
	cfg, err = NewManager(p).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)

	t.Setenv(TokenEnv, "")
	m := NewManager(p)
	m.SetEnvFile("")
	_, err = m.Load()
	require.ErrorIs(t, err, ErrInvalid)
}

func TestSummarizeChangeHidesSecrets(t *testing.T) {
	a := &Config{Telegram: TelegramConfig{Token: "old"}, Planner: PlannerConfig{Tick: "1s"}}
	b := &Config{Telegram: TelegramConfig{Token: "new"}, Planner: PlannerConfig{Tick: "5s"}, Storage: &StorageConfig{Driver: "file"}}

	changed, attrs := SummarizeChange(a, b)
	assert.Equal(t, []string{"telegram", "planner", "storage"}, changed)
	assert.NotEmpty(t, attrs)

	changed, _ = SummarizeChange(a, a)
	assert.Empty(t, changed)
}

func TestWatchPublishesValidEdits(t *testing.T) {
	t.Setenv(TokenEnv, "")
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", minimalJSON)
	m := NewManager(p)
	_, err := m.Load()
	require.NoError(t, err)

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// an invalid edit is not published
	require.NoError(t, os.WriteFile(p, []byte(`{"telegram": {}}`), 0o600))
	select {
	case <-ch:
		t.Fatal("invalid config published")
	case <-time.After(600 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(p, []byte(`{"telegram": {"token": "2:b"}, "resources": {"path": "t"}}`), 0o600))
	select {
	case cfg := <-ch:
		assert.Equal(t, "2:b", cfg.Telegram.Token)
		assert.Same(t, cfg, m.Get())
	case <-time.After(3 * time.Second):
		t.Fatal("config not published")
	}
}
