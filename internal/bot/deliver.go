package bot

import (
	"context"
	"fmt"

	"glassbot/internal/transport"
	"glassbot/pkg/tgui"
)

// Mode is how a response reached the chat.
type Mode string

const (
	ModeSend Mode = "send"
	ModeEdit Mode = "edit"
)

// DeliveryMode decides between a new message and an in-place edit. Only a
// replacement with an inline keyboard (or none) is edited; the platform
// cannot edit reply keyboards.
func DeliveryMode(resp Response) Mode {
	kb := nilMarkup(resp.Keyboard)
	if !resp.Message.IsReplacement() || (kb != nil && !tgui.IsInline(kb)) {
		return ModeSend
	}
	return ModeEdit
}

func (b *Bot) deliver(ctx context.Context, req *Request, resp Response) (Mode, int, error) {
	msg := resp.Message
	chatID := msg.ChatID
	if chatID == 0 && msg.Target != nil {
		chatID = msg.Target.ChatID
	}
	if chatID == 0 {
		chatID = req.User.ChatID
	}

	mode := DeliveryMode(resp)
	kb := nilMarkup(resp.Keyboard)
	var (
		out transport.Response
		err error
	)
	switch mode {
	case ModeSend:
		if kb == nil {
			kb = b.MainKeyboard(req.User.Language)
		}
		out, err = b.sender.Send(ctx, chatID, msg.Text, kb)
	case ModeEdit:
		if msg.ID == 0 {
			return mode, 0, fmt.Errorf("%w: replacement message has no message id", ErrInvalidArgument)
		}
		inline, _ := kb.(*tgui.InlineKeyboard)
		out, err = b.sender.Edit(ctx, chatID, msg.ID, msg.Text, inline)
	}
	return mode, out.Status, err
}
