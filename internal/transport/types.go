package transport

import (
	"context"
	"errors"

	"glassbot/pkg/tgui"
)

var (
	// ErrMalformedCallback is returned when callback data is not a JSON object
	// with a non-empty "a" field. The update must not be dispatched further.
	ErrMalformedCallback = errors.New("transport: malformed callback data")

	// ErrTransport matches every failed outbound platform call.
	ErrTransport = errors.New("transport: platform call failed")
)

type UpdateKind string

const (
	UpdateMessage     UpdateKind = "message"
	UpdateCallback    UpdateKind = "callback"
	// UpdateUnsupported carries none of message, edited_message or
	// callback_query (chat member changes, channel posts, ...).
	UpdateUnsupported UpdateKind = "unsupported"
)

// Update is one classified inbound event. Exactly one of Message or
// Callback is set, matching Kind; neither is set for UpdateUnsupported.
type Update struct {
	Kind     UpdateKind
	UpdateID int64
	Edited   bool
	Message  *Message
	Callback *CallbackQuery
}

// Msg returns the message part of the update, for either kind.
func (u Update) Msg() *Message {
	if u.Callback != nil {
		return &u.Callback.Message
	}
	return u.Message
}

// Peer is the platform identity of a sender as carried by the update.
type Peer struct {
	ID           int64
	Username     string
	FirstName    string
	LanguageCode string
}

// Response is the raw result of an outbound call.
type Response struct {
	Status int
	Body   []byte
}

// Sender delivers bot replies. Send posts a new message; Edit rewrites an
// existing one in place, which the platform only allows with inline markup.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, markup tgui.Markup) (Response, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, markup *tgui.InlineKeyboard) (Response, error)
}
