package tgui

import (
	"encoding/json"
	"fmt"
)

// Markup is a keyboard attached to an outbound message.
// Implemented only by *ReplyKeyboard and *InlineKeyboard.
type Markup interface {
	// Render returns the Bot API reply_markup object.
	Render() (any, error)
	// Len is the number of rows.
	Len() int
	isMarkup()
}

// ReplyKeyboard replaces the client's on-screen keyboard with fixed labels.
// Cells are label strings or Buttons (rendered by their text, except contact
// and location requests which keep their flag).
type ReplyKeyboard struct {
	rows    [][]any
	oneTime bool
	resize  bool
}

// NewReplyKeyboard creates a reply keyboard. Resizing is on by default.
func NewReplyKeyboard(rows ...[]any) *ReplyKeyboard {
	k := &ReplyKeyboard{resize: true}
	for _, r := range rows {
		k.Row(r...)
	}
	return k
}

// Row appends a row.
func (k *ReplyKeyboard) Row(cells ...any) *ReplyKeyboard {
	k.rows = append(k.rows, append([]any(nil), cells...))
	return k
}

// OneTime hides the keyboard after one use.
func (k *ReplyKeyboard) OneTime() *ReplyKeyboard {
	k.oneTime = true
	return k
}

// NoResize keeps the client's default keyboard height.
func (k *ReplyKeyboard) NoResize() *ReplyKeyboard {
	k.resize = false
	return k
}

func (k *ReplyKeyboard) IsOneTime() bool { return k.oneTime }
func (k *ReplyKeyboard) IsResized() bool { return k.resize }
func (k *ReplyKeyboard) Len() int        { return len(k.rows) }
func (k *ReplyKeyboard) isMarkup()       {}

type replyWire struct {
	Keyboard [][]any `json:"keyboard"`
	OneTime  bool    `json:"one_time_keyboard"`
	Resize   bool    `json:"resize_keyboard"`
}

func (k *ReplyKeyboard) Render() (any, error) {
	rows := make([][]any, 0, len(k.rows))
	for i, row := range k.rows {
		out := make([]any, 0, len(row))
		for j, cell := range row {
			c, err := replyCell(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", i, j, err)
			}
			out = append(out, c)
		}
		rows = append(rows, out)
	}
	return replyWire{Keyboard: rows, OneTime: k.oneTime, Resize: k.resize}, nil
}

func replyCell(cell any) (any, error) {
	if s, ok := cell.(string); ok {
		return s, nil
	}
	b, err := Normalize(cell)
	if err != nil {
		return nil, err
	}
	switch b.Kind() {
	case KindRequestContact, KindRequestLocation:
		return b.Render()
	default:
		return b.Text(), nil
	}
}

// InlineKeyboard is shown under a message; its buttons send callback data or open URLs.
// Cells may be anything Normalize accepts.
type InlineKeyboard struct {
	rows [][]any
}

func NewInlineKeyboard(rows ...[]any) *InlineKeyboard {
	k := &InlineKeyboard{}
	for _, r := range rows {
		k.Row(r...)
	}
	return k
}

// Row appends a row.
func (k *InlineKeyboard) Row(cells ...any) *InlineKeyboard {
	k.rows = append(k.rows, append([]any(nil), cells...))
	return k
}

func (k *InlineKeyboard) Len() int  { return len(k.rows) }
func (k *InlineKeyboard) isMarkup() {}

// Buttons returns the normalized grid.
func (k *InlineKeyboard) Buttons() ([][]Button, error) {
	out := make([][]Button, 0, len(k.rows))
	for i, row := range k.rows {
		r := make([]Button, 0, len(row))
		for j, cell := range row {
			b, err := Normalize(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", i, j, err)
			}
			r = append(r, b)
		}
		out = append(out, r)
	}
	return out, nil
}

type inlineWire struct {
	InlineKeyboard [][]WireButton `json:"inline_keyboard"`
}

func (k *InlineKeyboard) Render() (any, error) {
	if len(k.rows) == 0 {
		return nil, ErrEmptyKeyboard
	}
	grid, err := k.Buttons()
	if err != nil {
		return nil, err
	}
	rows := make([][]WireButton, 0, len(grid))
	for _, row := range grid {
		out := make([]WireButton, 0, len(row))
		for _, b := range row {
			w, err := b.Render()
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
		rows = append(rows, out)
	}
	return inlineWire{InlineKeyboard: rows}, nil
}

// IsInline reports whether m is an inline keyboard. A nil markup is not.
func IsInline(m Markup) bool {
	switch m.(type) {
	case *InlineKeyboard:
		return true
	default:
		return false
	}
}

// Marshal renders m and encodes it as the JSON string expected in reply_markup.
func Marshal(m Markup) (string, error) {
	obj, err := m.Render()
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Attach sets payload["reply_markup"] to the encoded keyboard. m is not modified.
func Attach(m Markup, payload map[string]any) error {
	if m == nil {
		return nil
	}
	s, err := Marshal(m)
	if err != nil {
		return err
	}
	payload["reply_markup"] = s
	return nil
}
