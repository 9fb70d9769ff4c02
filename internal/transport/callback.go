package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"glassbot/pkg/tgui"
)

// CallbackQuery is a press on an inline button. Data is the raw wire payload;
// Action and Value are its decoded {a, v} pair. Value keeps the JSON type:
// string, bool, nil, int64 for integral numbers and float64 otherwise.
type CallbackQuery struct {
	Message
	ID     string
	Data   string
	Action string
	Value  any
}

// ParseCallbackData decodes a callback payload of the form {"a": ..., "v": ...}.
func ParseCallbackData(data string) (action string, value any, err error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedCallback, data)
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", nil, fmt.Errorf("%w: trailing data in %q", ErrMalformedCallback, data)
	}
	a, ok := m[tgui.KeyAction].(string)
	if !ok || a == "" {
		return "", nil, fmt.Errorf("%w: missing action in %q", ErrMalformedCallback, data)
	}
	v := m[tgui.KeyValue]
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			v = i
		} else if f, err := n.Float64(); err == nil {
			v = f
		}
	}
	return a, v, nil
}

// ValueString returns Value formatted for display or map lookups.
func (c *CallbackQuery) ValueString() string {
	if c.Value == nil {
		return ""
	}
	return fmt.Sprint(c.Value)
}

// ValueInt returns Value as an int when it is an integral number.
func (c *CallbackQuery) ValueInt() (int64, bool) {
	switch v := c.Value.(type) {
	case int64:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}
