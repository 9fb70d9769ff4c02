package transport

import "glassbot/internal/users"

// Message is an inbound or outbound text message. IsReplacement marks a reply
// that should replace the message it answers instead of adding a new one.
type Message struct {
	ID            int
	Text          string
	ChatID        int64
	From          Peer
	By            *users.User
	Target        *users.User
	ForwardOrigin *ForwardOrigin

	isReplacement bool
}

type MessageOptions struct {
	MessageID     int
	IsReplacement bool
	ForwardOrigin *ForwardOrigin
	Target        *users.User
}

// NewTextMessage builds an outbound message for chatID.
func NewTextMessage(chatID int64, text string, opts MessageOptions) *Message {
	return &Message{
		ID:            opts.MessageID,
		Text:          text,
		ChatID:        chatID,
		Target:        opts.Target,
		ForwardOrigin: opts.ForwardOrigin,
		isReplacement: opts.IsReplacement,
	}
}

func (m *Message) IsReplacement() bool { return m != nil && m.isReplacement }

func (m *Message) MarkReplacement() { m.isReplacement = true }

func (m *Message) MarkNotReplacement() { m.isReplacement = false }

// ReplyTo returns an outbound message to the same chat carrying the source
// message id, so it can be used as an edit target when marked replacement.
func (m *Message) ReplyTo(text string) *Message {
	return &Message{
		ID:     m.ID,
		Text:   text,
		ChatID: m.ChatID,
		Target: m.By,
	}
}
