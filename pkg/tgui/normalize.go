package tgui

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Normalize resolves any supported button representation to a Button:
//   - Button / *Button are returned unchanged
//   - map[string]any in wire (callback_data, request_contact, ...) or keyed
//     (callbackData, getContact, ...) form
//   - string, number or bool, which become a single-value button labelled with the value
//
// Failures match ErrInvalidButtonData.
func Normalize(in any) (Button, error) {
	switch v := in.(type) {
	case Button:
		return v, nil
	case *Button:
		if v == nil {
			return Button{}, invalid("nil button")
		}
		return *v, nil
	case map[string]any:
		return fromMap(v)
	case WireButton:
		return fromWire(v)
	case nil:
		return Button{}, invalid("nil button")
	}
	if isPrimitive(in) {
		s := fmt.Sprint(in)
		return ValueButton(s, s)
	}
	return Button{}, invalid("unsupported button type %T", in)
}

// MustNormalize is Normalize for static keyboards; it panics on error.
func MustNormalize(in any) Button {
	b, err := Normalize(in)
	if err != nil {
		panic(err)
	}
	return b
}

func fromMap(m map[string]any) (Button, error) {
	text, ok := m["text"].(string)
	if !ok {
		return Button{}, invalid("button text must be a string, got %T", m["text"])
	}

	kinds := 0
	var b Button
	if raw, ok := firstPresent(m, "callback_data", DataCallback); ok {
		kinds++
		if wire, isWire := m["callback_data"]; isWire && wire != nil {
			b = decodeWireCallback(text, raw)
		} else {
			b = CallbackButton(text, raw)
		}
	}
	if raw, ok := firstPresent(m, "url", DataURL); ok {
		kinds++
		u, _ := raw.(string)
		if strings.TrimSpace(u) == "" {
			return Button{}, invalid("url must be a non-empty string")
		}
		b = URLButton(text, u)
	}
	if isTrue(m, "request_contact", DataContact) {
		kinds++
		b = ContactButton(text)
	}
	if isTrue(m, "request_location", DataLocation) {
		kinds++
		b = LocationButton(text)
	}
	if kinds != 1 {
		return Button{}, invalid("button %q must have exactly one of callback, url, contact or location (got %d)", text, kinds)
	}
	return b, nil
}

func fromWire(w WireButton) (Button, error) {
	m := map[string]any{"text": w.Text}
	if w.CallbackData != nil {
		m["callback_data"] = w.CallbackData
	}
	if w.URL != "" {
		m["url"] = w.URL
	}
	if w.RequestContact {
		m["request_contact"] = true
	}
	if w.RequestLocation {
		m["request_location"] = true
	}
	return fromMap(m)
}

// decodeWireCallback reverses Render for callback_data read back from the wire:
// a JSON object or JSON string is a callback button, anything else a single value.
func decodeWireCallback(text string, raw any) Button {
	s, ok := raw.(string)
	if !ok {
		if isPrimitive(raw) {
			return Button{text: text, kind: KindSingleValue, value: raw}
		}
		return CallbackButton(text, raw)
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err == nil {
		switch decoded.(type) {
		case map[string]any, string:
			return CallbackButton(text, decoded)
		}
	}
	return Button{text: text, kind: KindSingleValue, value: s}
}

func firstPresent(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func isTrue(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k].(bool); ok && v {
			return true
		}
	}
	return false
}
