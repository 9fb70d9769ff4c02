package tgui

import (
	"encoding/json"
	"fmt"
)

// ButtonKind is the payload kind of a Button. A Button has exactly one.
type ButtonKind int

const (
	KindCallback ButtonKind = iota + 1
	KindURL
	KindRequestContact
	KindRequestLocation
	KindSingleValue
)

func (k ButtonKind) String() string {
	switch k {
	case KindCallback:
		return "callback"
	case KindURL:
		return "url"
	case KindRequestContact:
		return "request_contact"
	case KindRequestLocation:
		return "request_location"
	case KindSingleValue:
		return "single_value"
	default:
		return fmt.Sprintf("ButtonKind(%d)", int(k))
	}
}

// Keys accepted by NewButton.
const (
	DataCallback = "callbackData"
	DataURL      = "url"
	DataContact  = "getContact"
	DataLocation = "getLocation"
)

// ButtonData is the keyed form of a button payload. It must hold exactly one
// of DataCallback, DataURL, DataContact or DataLocation.
type ButtonData map[string]any

// Button is a keyboard button. The zero value is invalid; use the constructors.
type Button struct {
	text string
	kind ButtonKind

	callback any // string or JSON-object-like structured data
	url      string
	value    any // string, bool or a number
}

// CallbackButton sends data back to the bot when pressed. data is JSON-encoded on the wire.
func CallbackButton(text string, data any) Button {
	return Button{text: text, kind: KindCallback, callback: data}
}

// URLButton opens url.
func URLButton(text, url string) Button {
	return Button{text: text, kind: KindURL, url: url}
}

// ContactButton asks the user to share their phone number.
func ContactButton(text string) Button {
	return Button{text: text, kind: KindRequestContact}
}

// LocationButton asks the user to share their location.
func LocationButton(text string) Button {
	return Button{text: text, kind: KindRequestLocation}
}

// ValueButton carries a primitive value as its callback data, unencoded.
func ValueButton(text string, v any) (Button, error) {
	if !isPrimitive(v) {
		return Button{}, invalid("single value must be a string, number or bool, got %T", v)
	}
	return Button{text: text, kind: KindSingleValue, value: v}, nil
}

// NewButton builds a button from keyed data. Exactly one recognized key must be present.
func NewButton(text string, data ButtonData) (Button, error) {
	if len(data) != 1 {
		return Button{}, invalid("button must have exactly one of callback, url, contact or location (got %d keys)", len(data))
	}
	for k, v := range data {
		switch k {
		case DataCallback:
			if v == nil {
				return Button{}, invalid("callback data is nil")
			}
			return CallbackButton(text, v), nil
		case DataURL:
			u, ok := v.(string)
			if !ok || u == "" {
				return Button{}, invalid("url must be a non-empty string")
			}
			return URLButton(text, u), nil
		case DataContact:
			return ContactButton(text), nil
		case DataLocation:
			return LocationButton(text), nil
		default:
			return Button{}, invalid("unknown button key %q", k)
		}
	}
	return Button{}, invalid("empty button data")
}

func (b Button) Text() string     { return b.text }
func (b Button) Kind() ButtonKind { return b.kind }

// CallbackData returns the structured data of a callback button.
func (b Button) CallbackData() (any, bool) { return b.callback, b.kind == KindCallback }

// URL returns the target of a url button.
func (b Button) URL() (string, bool) { return b.url, b.kind == KindURL }

// Value returns the primitive of a single-value button.
func (b Button) Value() (any, bool) { return b.value, b.kind == KindSingleValue }

// WithText returns a copy with a different label.
func (b Button) WithText(text string) Button {
	b.text = text
	return b
}

// WireButton is the Bot API InlineKeyboardButton subset produced by Render.
type WireButton struct {
	Text            string `json:"text"`
	CallbackData    any    `json:"callback_data,omitempty"`
	URL             string `json:"url,omitempty"`
	RequestContact  bool   `json:"request_contact,omitempty"`
	RequestLocation bool   `json:"request_location,omitempty"`
}

// Render converts the button to its wire shape.
func (b Button) Render() (WireButton, error) {
	w := WireButton{Text: b.text}
	switch b.kind {
	case KindCallback:
		enc, err := json.Marshal(b.callback)
		if err != nil {
			return WireButton{}, &ButtonError{Cause: fmt.Errorf("encode callback data: %w", err)}
		}
		if len(enc) > MaxCallbackDataLen {
			return WireButton{}, &ButtonError{Cause: fmt.Errorf("%w: %d bytes", ErrCallbackDataTooLong, len(enc))}
		}
		w.CallbackData = string(enc)
	case KindURL:
		w.URL = b.url
	case KindRequestContact:
		w.RequestContact = true
	case KindRequestLocation:
		w.RequestLocation = true
	case KindSingleValue:
		// the primitive goes on the wire as is; the platform sees its string form
		if n := len(fmt.Sprint(b.value)); n > MaxCallbackDataLen {
			return WireButton{}, &ButtonError{Cause: fmt.Errorf("%w: %d bytes", ErrCallbackDataTooLong, n)}
		}
		w.CallbackData = b.value
	default:
		return WireButton{}, invalid("button %q has no payload", b.text)
	}
	return w, nil
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
