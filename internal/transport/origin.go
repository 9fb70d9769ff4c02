package transport

import "fmt"

type OriginType string

const (
	OriginUser    OriginType = "user"
	OriginChannel OriginType = "channel"
	OriginGroup   OriginType = "group"
	OriginNone    OriginType = "none"
)

// ForwardOrigin describes where a forwarded message came from. Fields the
// platform omitted stay zero.
type ForwardOrigin struct {
	Type      OriginType
	ID        int64
	MessageID int
	Title     string
	Username  string
}

func (o ForwardOrigin) String() string {
	return fmt.Sprintf("Type: %s\nTitle:%s\nId:%d\nUsername:%s", o.Type, o.Title, o.ID, o.Username)
}

type wireChat struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

type wireUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

type wireOrigin struct {
	Type           string    `json:"type"`
	MessageID      int       `json:"message_id"`
	Chat           *wireChat `json:"chat"`
	SenderChat     *wireChat `json:"sender_chat"`
	SenderUser     *wireUser `json:"sender_user"`
	SenderUserName string    `json:"sender_user_name"`
}

func parseOrigin(w *wireOrigin) *ForwardOrigin {
	if w == nil {
		return nil
	}
	o := &ForwardOrigin{}
	switch w.Type {
	case "user":
		o.Type = OriginUser
		if u := w.SenderUser; u != nil {
			o.ID = u.ID
			o.Title = u.FirstName
			o.Username = u.Username
		}
	case "hidden_user":
		o.Type = OriginUser
		o.Title = w.SenderUserName
	case "channel":
		o.Type = OriginChannel
		o.MessageID = w.MessageID
		if c := w.Chat; c != nil {
			o.ID = c.ID
			o.Title = c.Title
			o.Username = c.Username
		}
	case "chat", "group":
		o.Type = OriginGroup
		if c := w.SenderChat; c != nil {
			o.ID = c.ID
			o.Title = c.Title
			o.Username = c.Username
		}
	default:
		o.Type = OriginNone
	}
	return o
}
