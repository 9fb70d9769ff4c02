// Package echo repeats the next message back with buttons that rewrite it.
package echo

import (
	"context"
	"strings"

	"glassbot/internal/bot"
	"glassbot/internal/plugin"
	"glassbot/internal/users"
	"glassbot/pkg/tgui"
)

// StateAwaitingText is set by /echo until the next message arrives.
const StateAwaitingText users.State = 100

const (
	actionUpper = "echo.upper"
	actionLower = "echo.lower"
)

type Plugin struct {
	users *users.Memory
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "echo" }

func (p *Plugin) Register(d plugin.Deps) error {
	p.users = d.Users
	if err := d.Bot.AddCommand("echo", bot.HandlerFunc(p.start)); err != nil {
		return err
	}
	if err := d.Bot.AddState(StateAwaitingText, bot.HandlerFunc(p.echo)); err != nil {
		return err
	}
	if err := d.Bot.AddCallback(actionUpper, p.transform(strings.ToUpper)); err != nil {
		return err
	}
	return d.Bot.AddCallback(actionLower, p.transform(strings.ToLower))
}

func (p *Plugin) start(_ context.Context, req *bot.Request) (bot.Response, error) {
	p.users.SetState(req.User.ChatID, StateAwaitingText)
	txt, err := req.Text("echoPrompt")
	if err != nil {
		return bot.NoResponse, err
	}
	return bot.Respond(req.Reply(txt), nil), nil
}

func (p *Plugin) echo(_ context.Context, req *bot.Request) (bot.Response, error) {
	text := strings.TrimSpace(req.Message.Text)
	if text == "" {
		// nothing to echo; let the other tables answer
		return bot.NoResponse, nil
	}
	p.users.SetState(req.User.ChatID, users.StateNone)
	return bot.Respond(req.Reply(text), keyboard()), nil
}

// transform edits the pressed message in place, keeping the buttons.
func (p *Plugin) transform(fn func(string) string) bot.Handler {
	return bot.HandlerFunc(func(_ context.Context, req *bot.Request) (bot.Response, error) {
		out := fn(req.Message.Text)
		if out == req.Message.Text {
			// the platform rejects edits that change nothing
			return bot.Respond(req.Reply(out), nil), nil
		}
		return bot.Respond(req.Replace(out), keyboard()), nil
	})
}

func keyboard() *tgui.InlineKeyboard {
	return tgui.NewInlineKeyboard([]any{
		tgui.CallbackButton("⬆️ Upper", tgui.ActionData(actionUpper, nil)),
		tgui.CallbackButton("⬇️ Lower", tgui.ActionData(actionLower, nil)),
	})
}
