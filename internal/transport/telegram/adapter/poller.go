package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	rtsup "glassbot/internal/runtime/supervisor"
	logx "glassbot/pkg/logx"
)

// AllowedUpdates are the update types the dispatcher understands.
var AllowedUpdates = []string{"message", "edited_message", "callback_query"}

// Poller pulls updates with getUpdates and hands each one on as raw JSON, so
// long polling and the webhook feed the same parser.
type Poller struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
	lp  *tele.LongPoller
}

func NewPoller(cfg Config, log logx.Logger) (*Poller, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	lp := &tele.LongPoller{Timeout: timeout, AllowedUpdates: AllowedUpdates}
	settings := tele.Settings{
		Token:   cfg.Token,
		Poller:  lp,
		Offline: true,
		Client:  &http.Client{Timeout: timeout + 10*time.Second},
	}
	if cfg.APIBase != "" {
		settings.URL = strings.TrimRight(cfg.APIBase, "/")
	}
	b, err := tele.NewBot(settings)
	if err != nil {
		return nil, err
	}
	return &Poller{cfg: cfg, log: log, bot: b, lp: lp}, nil
}

// Run polls until ctx is done. Telebot's poll loop can exit on its own in
// some failure modes, so it runs under a restart loop.
func (p *Poller) Run(ctx context.Context, sink func(raw []byte)) error {
	sup := rtsup.New(ctx, rtsup.WithLogger(p.log.With(logx.String("comp", "telegram.poller"))))
	sup.GoRestart("telebot.poll", func(c context.Context) error {
		return p.pollOnce(c, sink)
	},
		rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
		rtsup.WithStopOnCleanExit(false),
	)
	<-ctx.Done()
	// getUpdates may still be waiting on the long-poll; don't block shutdown on it
	wctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Stop(wctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (p *Poller) pollOnce(ctx context.Context, sink func(raw []byte)) error {
	updates := make(chan tele.Update, 64)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.lp.Poll(p.bot, updates, stop)
	}()
	p.log.Info("polling started")
	defer p.log.Info("polling stopped")

	ctxDone := ctx.Done()
	for {
		select {
		case <-ctxDone:
			close(stop)
			ctxDone = nil
		case <-done:
			return nil
		case u := <-updates:
			raw, err := json.Marshal(u)
			if err != nil {
				p.log.Warn("encode polled update failed", logx.Int("update_id", u.ID), logx.Err(err))
				continue
			}
			sink(raw)
		}
	}
}
