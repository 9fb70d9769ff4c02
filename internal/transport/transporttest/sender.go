// Package transporttest provides a recording transport.Sender for tests.
package transporttest

import (
	"context"
	"sync"

	"glassbot/internal/transport"
	"glassbot/pkg/tgui"
)

// Call is one recorded outbound call. Method is "send" or "edit".
type Call struct {
	Method    string
	ChatID    int64
	MessageID int
	Text      string
	Markup    tgui.Markup
}

// Sender records every call and answers 200, or Err when set.
type Sender struct {
	mu    sync.Mutex
	calls []Call

	Err error
}

func (s *Sender) Send(_ context.Context, chatID int64, text string, markup tgui.Markup) (transport.Response, error) {
	return s.record(Call{Method: "send", ChatID: chatID, Text: text, Markup: markup})
}

func (s *Sender) Edit(_ context.Context, chatID int64, messageID int, text string, markup *tgui.InlineKeyboard) (transport.Response, error) {
	c := Call{Method: "edit", ChatID: chatID, MessageID: messageID, Text: text}
	if markup != nil {
		c.Markup = markup
	}
	return s.record(c)
}

func (s *Sender) record(c Call) (transport.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
	if s.Err != nil {
		return transport.Response{Status: 400}, s.Err
	}
	return transport.Response{Status: 200}, nil
}

func (s *Sender) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Last returns the most recent call, or a zero Call.
func (s *Sender) Last() Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return Call{}
	}
	return s.calls[len(s.calls)-1]
}

func (s *Sender) Reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

var _ transport.Sender = (*Sender)(nil)
