// Package bot resolves which registered handler answers an update and
// delivers the answer as a new message or an in-place edit.
package bot

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"glassbot/internal/storage"
	"glassbot/internal/transport"
	"glassbot/internal/users"
	logx "glassbot/pkg/logx"
	"glassbot/pkg/tgui"
)

// WrongCommandKey is the text resource sent when no handler answers.
const WrongCommandKey = "wrongCommand"

// TextSource is a localized text lookup.
type TextSource interface {
	Get(key, lang string) (string, error)
}

// Recorder receives dispatch metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	Update(kind string)
	Duplicate()
	Dispatched(source, mode string, took time.Duration)
	Failed(stage string)
}

type nopRecorder struct{}

func (nopRecorder) Update(string)                            {}
func (nopRecorder) Duplicate()                               {}
func (nopRecorder) Dispatched(string, string, time.Duration) {}
func (nopRecorder) Failed(string)                            {}

type Option func(*Bot)

func WithLogger(log logx.Logger) Option { return func(b *Bot) { b.log = log } }

func WithRecorder(r Recorder) Option { return func(b *Bot) { b.rec = r } }

// WithStore enables update dedup for ttl and a delivery audit trail.
func WithStore(st storage.Store, ttl time.Duration) Option {
	return func(b *Bot) {
		b.store = st
		b.dedupTTL = ttl
	}
}

// Bot owns the handler tables. Registration is safe at any time; dispatch
// reads the tables under a read lock.
type Bot struct {
	sender transport.Sender
	texts  TextSource
	users  users.Directory
	log    logx.Logger
	rec    Recorder

	store    storage.Store
	dedupTTL time.Duration

	mu        sync.RWMutex
	commands  map[string]Handler
	messages  map[string]Handler
	states    map[users.State]Handler
	callbacks map[string]Handler
	fallback  Handler // optional default slot, tried after the message table

	mainKb    tgui.Markup
	langKb    map[users.Language]tgui.Markup
	langOrder []users.Language
}

func New(sender transport.Sender, texts TextSource, dir users.Directory, opts ...Option) (*Bot, error) {
	if sender == nil || texts == nil || dir == nil {
		return nil, fmt.Errorf("%w: sender, texts and users are required", ErrInvalidArgument)
	}
	b := &Bot{
		sender:    sender,
		texts:     texts,
		users:     dir,
		commands:  map[string]Handler{},
		messages:  map[string]Handler{},
		states:    map[users.State]Handler{},
		callbacks: map[string]Handler{},
		langKb:    map[users.Language]tgui.Markup{},
	}
	for _, o := range opts {
		o(b)
	}
	if b.log.IsZero() {
		b.log = logx.Nop()
	}
	if b.rec == nil {
		b.rec = nopRecorder{}
	}
	if b.dedupTTL <= 0 {
		b.dedupTTL = 24 * time.Hour
	}
	return b, nil
}

// Users returns the directory updates are resolved against.
func (b *Bot) Users() users.Directory { return b.users }

// ---- registration ----

func normalizeCommand(cmd string) (string, error) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" || cmd == "/" {
		return "", fmt.Errorf("%w: empty command", ErrInvalidArgument)
	}
	if !strings.HasPrefix(cmd, "/") {
		cmd = "/" + cmd
	}
	return cmd, nil
}

func put[K comparable](mu *sync.RWMutex, table map[K]Handler, key K, h Handler, replace bool) error {
	if h == nil {
		return fmt.Errorf("%w: nil handler for %v", ErrInvalidArgument, key)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, ok := table[key]; ok && !replace {
		return fmt.Errorf("%w: %v", ErrExistingItem, key)
	}
	table[key] = h
	return nil
}

// AddCommand registers h for the exact text "/cmd". The slash is added when missing.
func (b *Bot) AddCommand(cmd string, h Handler) error {
	key, err := normalizeCommand(cmd)
	if err != nil {
		return err
	}
	return put(&b.mu, b.commands, key, h, false)
}

func (b *Bot) ReplaceCommand(cmd string, h Handler) error {
	key, err := normalizeCommand(cmd)
	if err != nil {
		return err
	}
	return put(&b.mu, b.commands, key, h, true)
}

// AddMessage registers h for an exact message text, e.g. a reply keyboard label.
func (b *Bot) AddMessage(text string, h Handler) error {
	if text == "" {
		return fmt.Errorf("%w: empty message key; use SetDefault for a catch-all", ErrInvalidArgument)
	}
	return put(&b.mu, b.messages, text, h, false)
}

func (b *Bot) ReplaceMessage(text string, h Handler) error {
	if text == "" {
		return fmt.Errorf("%w: empty message key; use SetDefault for a catch-all", ErrInvalidArgument)
	}
	return put(&b.mu, b.messages, text, h, true)
}

// AddState registers h for users in state s. StateNone is never consulted
// and is rejected.
func (b *Bot) AddState(s users.State, h Handler) error {
	if s == users.StateNone {
		return fmt.Errorf("%w: handler for the default state", ErrInvalidArgument)
	}
	return put(&b.mu, b.states, s, h, false)
}

func (b *Bot) ReplaceState(s users.State, h Handler) error {
	if s == users.StateNone {
		return fmt.Errorf("%w: handler for the default state", ErrInvalidArgument)
	}
	return put(&b.mu, b.states, s, h, true)
}

// AddCallback registers h for callback queries whose action is action.
func (b *Bot) AddCallback(action string, h Handler) error {
	if action == "" {
		return fmt.Errorf("%w: empty callback action", ErrInvalidArgument)
	}
	return put(&b.mu, b.callbacks, action, h, false)
}

func (b *Bot) ReplaceCallback(action string, h Handler) error {
	if action == "" {
		return fmt.Errorf("%w: empty callback action", ErrInvalidArgument)
	}
	return put(&b.mu, b.callbacks, action, h, true)
}

// SetDefault sets the handler tried for messages no table matched, before
// the wrongCommand fallback. A nil h clears it.
func (b *Bot) SetDefault(h Handler) {
	b.mu.Lock()
	b.fallback = h
	b.mu.Unlock()
}

// ---- main keyboard ----

// SetMainKeyboard sets the keyboard attached to sent messages that carry none.
// It takes precedence over per-language keyboards.
func (b *Bot) SetMainKeyboard(m tgui.Markup) {
	b.mu.Lock()
	b.mainKb = nilMarkup(m)
	b.mu.Unlock()
}

// AddMainKeyboard registers the main keyboard for one language. The first
// language added is the fallback for languages without their own.
func (b *Bot) AddMainKeyboard(lang users.Language, m tgui.Markup) error {
	if strings.TrimSpace(string(lang)) == "" {
		return fmt.Errorf("%w: empty language for main keyboard", ErrInvalidLanguage)
	}
	if nilMarkup(m) == nil {
		return fmt.Errorf("%w: nil main keyboard", ErrInvalidArgument)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.langKb[lang]; ok {
		return fmt.Errorf("%w: main keyboard for %q", ErrExistingItem, lang)
	}
	b.langKb[lang] = m
	b.langOrder = append(b.langOrder, lang)
	return nil
}

// MainKeyboard returns the main keyboard for lang, falling back to the first
// registered language. It is nil when none is configured.
func (b *Bot) MainKeyboard(lang users.Language) tgui.Markup {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.mainKb != nil {
		return b.mainKb
	}
	if len(b.langOrder) == 0 {
		return nil
	}
	if kb, ok := b.langKb[lang]; ok {
		return kb
	}
	return b.langKb[b.langOrder[0]]
}

// nilMarkup turns typed nil keyboards into a plain nil.
func nilMarkup(m tgui.Markup) tgui.Markup {
	switch k := m.(type) {
	case *tgui.InlineKeyboard:
		if k == nil {
			return nil
		}
	case *tgui.ReplyKeyboard:
		if k == nil {
			return nil
		}
	}
	return m
}
