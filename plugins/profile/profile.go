// Package profile is the onboarding flow: a per-language main keyboard, an
// inline age picker that edits itself and a language switch.
package profile

import (
	"context"
	"fmt"
	"sync"

	"glassbot/internal/bot"
	"glassbot/internal/plugin"
	"glassbot/internal/transport"
	"glassbot/internal/users"
	"glassbot/pkg/tgui"
)

const (
	ActionSetAge  = "setAge"
	ActionSetLang = "setLang"

	// StateAwaitingAge is entered from the age button; a typed number is
	// accepted as well as a tap on the picker.
	StateAwaitingAge users.State = 200

	MinAge = 10
	MaxAge = 69
)

// Labels are the reply-keyboard captions per language. They double as
// message-table keys, so each caption must be unique across languages.
var Labels = map[users.Language]struct{ Age, Language string }{
	users.LangEn: {Age: "🎂 Age", Language: "🌐 Language"},
	users.LangFa: {Age: "🎂 سن", Language: "🌐 زبان"},
}

type Plugin struct {
	users *users.Memory

	mu   sync.Mutex
	ages map[int64]int
}

func New() *Plugin { return &Plugin{ages: map[int64]int{}} }

func (p *Plugin) Name() string { return "profile" }

// Age returns the stored age of a chat.
func (p *Plugin) Age(chatID int64) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.ages[chatID]
	return a, ok
}

func (p *Plugin) Register(d plugin.Deps) error {
	p.users = d.Users
	b := d.Bot

	for _, lang := range []users.Language{users.LangEn, users.LangFa} {
		l := Labels[lang]
		kb := tgui.NewReplyKeyboard([]any{l.Age, l.Language})
		if err := b.AddMainKeyboard(lang, kb); err != nil {
			return err
		}
		if err := b.AddMessage(l.Age, bot.HandlerFunc(p.askAge)); err != nil {
			return err
		}
		if err := b.AddMessage(l.Language, bot.HandlerFunc(p.askLanguage)); err != nil {
			return err
		}
	}
	if err := b.AddCommand("start", bot.HandlerFunc(p.start)); err != nil {
		return err
	}
	if err := b.AddCommand("age", bot.HandlerFunc(p.askAge)); err != nil {
		return err
	}
	if err := b.AddState(StateAwaitingAge, bot.HandlerFunc(p.typedAge)); err != nil {
		return err
	}
	if err := b.AddCallback(ActionSetAge, bot.HandlerFunc(p.pickedAge)); err != nil {
		return err
	}
	return b.AddCallback(ActionSetLang, bot.HandlerFunc(p.pickedLanguage))
}

// start sends the welcome text; the main keyboard is attached on delivery.
func (p *Plugin) start(_ context.Context, req *bot.Request) (bot.Response, error) {
	txt, err := req.Text("welcome")
	if err != nil {
		return bot.NoResponse, err
	}
	return bot.Respond(req.Reply(txt), nil), nil
}

func (p *Plugin) askAge(_ context.Context, req *bot.Request) (bot.Response, error) {
	txt, err := req.Text("askAge")
	if err != nil {
		return bot.NoResponse, err
	}
	p.users.SetState(req.User.ChatID, StateAwaitingAge)
	return bot.Respond(req.Reply(txt), AgePicker()), nil
}

// AgePicker lists MinAge..MaxAge in rows of five.
func AgePicker() *tgui.InlineKeyboard {
	items := make([]tgui.Pattern, 0, MaxAge-MinAge+1)
	for a := MinAge; a <= MaxAge; a++ {
		items = append(items, tgui.Pattern{Title: fmt.Sprint(a), Value: a})
	}
	return tgui.Arrange(items, ActionSetAge)
}

// pickedAge replaces the picker with the confirmation, dropping its buttons.
func (p *Plugin) pickedAge(_ context.Context, req *bot.Request) (bot.Response, error) {
	age, ok := req.Callback.ValueInt()
	if !ok || age < MinAge || age > MaxAge {
		return bot.NoResponse, nil
	}
	return p.saveAge(req, int(age), req.Replace)
}

// typedAge accepts a number typed while the picker is open. Anything else
// falls through to the message table.
func (p *Plugin) typedAge(_ context.Context, req *bot.Request) (bot.Response, error) {
	var age int
	if _, err := fmt.Sscan(req.Message.Text, &age); err != nil || age < MinAge || age > MaxAge {
		return bot.NoResponse, nil
	}
	return p.saveAge(req, age, req.Reply)
}

func (p *Plugin) saveAge(req *bot.Request, age int, build func(string) *transport.Message) (bot.Response, error) {
	p.mu.Lock()
	p.ages[req.User.ChatID] = age
	p.mu.Unlock()
	p.users.SetState(req.User.ChatID, users.StateNone)

	format, err := req.Text("ageSaved")
	if err != nil {
		return bot.NoResponse, err
	}
	return bot.Respond(build(fmt.Sprintf(format, age)), nil), nil
}

func (p *Plugin) askLanguage(_ context.Context, req *bot.Request) (bot.Response, error) {
	txt, err := req.Text("askLanguage")
	if err != nil {
		return bot.NoResponse, err
	}
	kb := tgui.NewInlineKeyboard([]any{
		tgui.CallbackButton("English", tgui.ActionData(ActionSetLang, string(users.LangEn))),
		tgui.CallbackButton("فارسی", tgui.ActionData(ActionSetLang, string(users.LangFa))),
	})
	return bot.Respond(req.Reply(txt), kb), nil
}

// pickedLanguage switches language and sends a new message so the main
// keyboard of the new language is attached.
func (p *Plugin) pickedLanguage(_ context.Context, req *bot.Request) (bot.Response, error) {
	lang := users.Language(req.Callback.ValueString())
	if _, ok := Labels[lang]; !ok {
		return bot.NoResponse, nil
	}
	p.users.SetLanguage(req.User.ChatID, lang)
	req.User.Language = lang

	txt, err := req.Text("languageSaved")
	if err != nil {
		return bot.NoResponse, err
	}
	return bot.Respond(req.Reply(txt), nil), nil
}
