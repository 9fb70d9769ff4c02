package transport

import (
	"encoding/json"
	"fmt"
)

type wireMessage struct {
	MessageID     int         `json:"message_id"`
	Text          string      `json:"text"`
	Chat          *wireChat   `json:"chat"`
	From          *wireUser   `json:"from"`
	ForwardOrigin *wireOrigin `json:"forward_origin"`
}

type wireCallback struct {
	ID      string       `json:"id"`
	From    *wireUser    `json:"from"`
	Message *wireMessage `json:"message"`
	Data    string       `json:"data"`
}

type wireUpdate struct {
	UpdateID      int64         `json:"update_id"`
	Message       *wireMessage  `json:"message"`
	EditedMessage *wireMessage  `json:"edited_message"`
	CallbackQuery *wireCallback `json:"callback_query"`
}

// ParseUpdate classifies a raw Bot API update. Missing message fields resolve
// to zero values; an update with no message section is UpdateUnsupported.
// A callback query with unusable data fails with ErrMalformedCallback.
func ParseUpdate(raw []byte) (Update, error) {
	var w wireUpdate
	if err := json.Unmarshal(raw, &w); err != nil {
		return Update{}, fmt.Errorf("transport: decode update: %w", err)
	}

	if cb := w.CallbackQuery; cb != nil {
		action, value, err := ParseCallbackData(cb.Data)
		if err != nil {
			return Update{}, err
		}
		q := &CallbackQuery{
			Message: messageFrom(cb.Message),
			ID:      cb.ID,
			Data:    cb.Data,
			Action:  action,
			Value:   value,
		}
		// the sender of a callback is the presser, not the bot that wrote the message
		q.From = peerFrom(cb.From)
		return Update{Kind: UpdateCallback, UpdateID: w.UpdateID, Callback: q}, nil
	}

	edited := false
	src := w.Message
	if src == nil && w.EditedMessage != nil {
		src = w.EditedMessage
		edited = true
	}
	if src == nil {
		return Update{Kind: UpdateUnsupported, UpdateID: w.UpdateID}, nil
	}
	m := messageFrom(src)
	return Update{Kind: UpdateMessage, UpdateID: w.UpdateID, Edited: edited, Message: &m}, nil
}

func messageFrom(w *wireMessage) Message {
	if w == nil {
		return Message{}
	}
	m := Message{
		ID:            w.MessageID,
		Text:          w.Text,
		From:          peerFrom(w.From),
		ForwardOrigin: parseOrigin(w.ForwardOrigin),
	}
	if w.Chat != nil {
		m.ChatID = w.Chat.ID
	}
	return m
}

func peerFrom(u *wireUser) Peer {
	if u == nil {
		return Peer{}
	}
	return Peer{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LanguageCode: u.LanguageCode}
}
