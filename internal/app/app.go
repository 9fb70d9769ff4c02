// Package app assembles a running bot from a config file: logging, text
// resources, storage, the dispatcher, the planner and one update intake.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"glassbot/internal/bot"
	"glassbot/internal/config"
	"glassbot/internal/metrics"
	"glassbot/internal/observability/pprof"
	rtsup "glassbot/internal/runtime/supervisor"
	"glassbot/internal/storage"
	"glassbot/internal/textres"
	"glassbot/internal/transport/telegram/adapter"
	"glassbot/internal/users"
	"glassbot/internal/webhook"
	logx "glassbot/pkg/logx"
	"glassbot/pkg/planner"
)

// Intake selects how updates reach the dispatcher.
type Intake string

const (
	IntakeWebhook Intake = "webhook"
	IntakePoll    Intake = "poll"
)

type App struct {
	cfgm *config.Manager
	cfg  *config.Config
	dur  config.Durations

	log     logx.Logger
	sup     *rtsup.Supervisor
	texts   *textres.Store
	users   *users.Memory
	store   storage.Store
	metrics *metrics.Metrics

	client  *adapter.Client
	bot     *bot.Bot
	queue   *bot.Queue
	planner *planner.Planner

	hook   *webhook.Server
	poller *adapter.Poller
}

// New loads cfgPath and builds every component. Nothing runs until Start;
// handlers and jobs are registered on Bot and Planner in between.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	dur, err := cfg.Durations()
	if err != nil {
		return nil, err
	}

	log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled:    cfg.Logging.File.Enabled,
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAgeDays: cfg.Logging.File.MaxAgeDays,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{cfgm: cfgm, cfg: cfg, dur: dur, log: log.With(logx.String("comp", "app")), metrics: metrics.New()}
	if err := a.build(log); err != nil {
		a.closeQuietly()
		return nil, err
	}
	return a, nil
}

func (a *App) build(log logx.Logger) error {
	cfg := a.cfg

	texts, err := textres.Open(cfg.Resources.Path, log.With(logx.String("comp", "textres")))
	if err != nil {
		return fmt.Errorf("text resources: %w", err)
	}
	a.texts = texts
	a.users = users.NewMemory(users.Language(cfg.Resources.DefaultLanguage))

	if sc, ok := storageConfig(cfg, a.dur); ok {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		a.store = st
		a.log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	tg := telegramConfig(cfg, a.dur)
	a.client, err = adapter.NewClient(tg, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return err
	}

	opts := []bot.Option{
		bot.WithLogger(log.With(logx.String("comp", "bot"))),
		bot.WithRecorder(a.metrics),
	}
	if a.store != nil {
		opts = append(opts, bot.WithStore(a.store, a.dur.DedupTTL))
	}
	a.bot, err = bot.New(a.client, a.texts, a.users, opts...)
	if err != nil {
		return err
	}
	a.queue = bot.NewQueue(a.bot, cfg.Dispatch.QueueSize)

	a.planner = planner.New(a.dur.PlannerTick,
		planner.WithLogger(log.With(logx.String("comp", "planner"))),
		planner.WithObserver(a.metrics),
	)
	return nil
}

func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Logger() logx.Logger { return a.log }
func (a *App) Bot() *bot.Bot { return a.bot }
func (a *App) Users() *users.Memory { return a.users }
func (a *App) Texts() *textres.Store { return a.texts }
func (a *App) Planner() *planner.Planner { return a.planner }
func (a *App) Client() *adapter.Client { return a.client }
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// WebhookAddr is the bound webhook address, empty until it listens.
func (a *App) WebhookAddr() string {
	if a.hook == nil {
		return ""
	}
	return a.hook.Addr()
}

// Done is closed when the app supervisor stops (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error seen by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start runs the dispatcher, the planner, the resource and config watchers
// and the chosen intake. It returns once everything is launched.
func (a *App) Start(ctx context.Context, in Intake) error {
	if a.sup != nil {
		return errors.New("app already started")
	}
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	if err := a.metrics.Supervised(
		func() int64 { return a.sup.Counters().Active },
		func() uint64 { return a.sup.Counters().Started },
	); err != nil {
		a.log.Warn("supervisor metrics not registered", logx.Err(err))
	}

	switch in {
	case IntakeWebhook:
		a.hook = webhook.New(webhookConfig(a.cfg), a.queue.Enqueue,
			webhook.WithLogger(a.log.With(logx.String("comp", "webhook"))),
			webhook.WithMetrics(a.metrics.Handler()),
			webhook.WithHealth(a.health),
		)
	case IntakePoll:
		p, err := adapter.NewPoller(telegramConfig(a.cfg, a.dur), a.log.With(logx.String("comp", "telegram")))
		if err != nil {
			return err
		}
		a.poller = p
	default:
		return fmt.Errorf("unknown intake %q", in)
	}

	a.sup.Go("dispatch", a.queue.Run)

	if a.hook != nil {
		a.sup.Go("webhook", a.hook.Serve)
	}
	if a.poller != nil {
		a.sup.Go("poller", func(c context.Context) error {
			return a.poller.Run(c, func(raw []byte) {
				if err := a.queue.Put(c, raw); err != nil {
					a.log.Debug("update not queued", logx.Err(err))
				}
			})
		})
	}

	a.planner.Start(a.sup.Context())

	if a.cfg.Pprof.Enabled {
		pp := pprof.New(pprof.Config{
			Addr:   a.cfg.Pprof.Addr,
			Prefix: a.cfg.Pprof.Prefix,
			Token:  a.cfg.Pprof.Token,
		}, a.log.With(logx.String("comp", "pprof")))
		// optional: restarted forever, never fails the app
		a.sup.GoRestart("pprof", pp.Serve, rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second))
	}

	if a.cfg.Resources.Watch {
		a.sup.Go("textres.watch", a.texts.Watch)
	}
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.watchConfig()

	a.log.Info("app started", logx.String("intake", string(in)), logx.Int("jobs", len(a.planner.Jobs())))
	return nil
}

// health backs /healthz: unhealthy once the supervisor has failed.
func (a *App) health() error {
	if a.sup == nil {
		return errors.New("not started")
	}
	return a.sup.Err()
}

// watchConfig logs edits of the config file. Sections other than resources
// need a restart; text resources have their own watcher.
func (a *App) watchConfig() {
	sub := a.cfgm.Subscribe(4)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfg
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				sections, attrs := config.SummarizeChange(last, next)
				last = next
				if len(sections) == 0 {
					a.log.Debug("config reload received, but no effective changes detected")
					continue
				}
				fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
				a.log.Warn("config changed; restart required for changes to take effect", fields...)
			}
		}
	})
}

// Stop shuts components down in dependency order, each step bounded by its
// own timeout. Steps that overrun are left to finish in the background.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		a.closeQuietly()
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sup.Cancel()

	a.step(ctx, "planner", 2*time.Second, func(c context.Context) error {
		select {
		case <-a.planner.Stop().Done():
			return nil
		case <-c.Done():
			return c.Err()
		}
	})
	a.step(ctx, "supervisor", 3*time.Second, a.sup.Wait)
	a.step(ctx, "storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped", logx.Int64("handled", int64(a.queue.Handled())))
	return a.log.Close()
}

func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < max {
			max = rem
		}
	}
	if max <= 0 {
		a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
	}
}

func (a *App) closeQuietly() {
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.log.Close()
}
