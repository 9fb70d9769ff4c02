package bot

import (
	"context"

	"glassbot/internal/transport"
	"glassbot/internal/users"
	logx "glassbot/pkg/logx"
	"glassbot/pkg/tgui"
)

// Response is what a handler answers with. A nil Message means "no answer",
// so resolution moves on. Keyboard may be nil.
type Response struct {
	Message  *transport.Message
	Keyboard tgui.Markup
}

func (r Response) Empty() bool { return r.Message == nil }

// NoResponse lets resolution continue with the next table.
var NoResponse = Response{}

// Handler processes one update.
type Handler interface {
	Handle(ctx context.Context, req *Request) (Response, error)
}

type HandlerFunc func(ctx context.Context, req *Request) (Response, error)

func (f HandlerFunc) Handle(ctx context.Context, req *Request) (Response, error) { return f(ctx, req) }

// Request is the per-update view handed to handlers.
type Request struct {
	ID       string
	Update   transport.Update
	Message  *transport.Message
	Callback *transport.CallbackQuery
	User     *users.User
	Log      logx.Logger

	bot *Bot
}

// Text looks up a text resource in the user's language.
func (r *Request) Text(key string) (string, error) {
	return r.bot.texts.Get(key, string(r.User.Language))
}

// Reply builds a new message to the requesting chat.
func (r *Request) Reply(text string) *transport.Message {
	return transport.NewTextMessage(r.Message.ChatID, text, transport.MessageOptions{Target: r.User})
}

// Replace builds a message that replaces the one the update refers to. It is
// edited in place when delivered with an inline keyboard or none.
func (r *Request) Replace(text string) *transport.Message {
	return transport.NewTextMessage(r.Message.ChatID, text, transport.MessageOptions{
		MessageID:     r.Message.ID,
		IsReplacement: true,
		Target:        r.User,
	})
}

// Respond is shorthand for a Response with an optional keyboard.
func Respond(m *transport.Message, kb tgui.Markup) Response {
	return Response{Message: m, Keyboard: kb}
}
