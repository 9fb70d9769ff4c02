package tgui

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrangeRowsOfFive(t *testing.T) {
	items := make([]Pattern, 13)
	for i := range items {
		items[i] = Pattern{Title: fmt.Sprintf("title#%d", i), Value: i}
	}

	kb := Arrange(items, "testAction")
	grid, err := kb.Buttons()
	require.NoError(t, err)
	require.Len(t, grid, 3)
	assert.Len(t, grid[0], 5)
	assert.Len(t, grid[1], 5)
	assert.Len(t, grid[2], 3)

	n := 0
	for _, row := range grid {
		for _, b := range row {
			require.Equal(t, KindCallback, b.Kind())
			assert.Equal(t, fmt.Sprintf("title#%d", n), b.Text())
			data, _ := b.CallbackData()
			assert.Equal(t, map[string]any{"a": "testAction", "v": n}, data)
			n++
		}
	}
}

func TestArrangeWire(t *testing.T) {
	kb := Arrange([]Pattern{{Title: "17", Value: 17}}, "setAge")
	s, err := Marshal(kb)
	require.NoError(t, err)
	assert.JSONEq(t, `{"inline_keyboard":[[{"text":"17","callback_data":"{\"a\":\"setAge\",\"v\":17}"}]]}`, s)
}

func TestArrangeEmptyAndCustomWidth(t *testing.T) {
	assert.Equal(t, 0, Arrange(nil, "x").Len())

	items := []Pattern{{"a", 1}, {"b", 2}, {"c", 3}}
	assert.Equal(t, 2, ArrangeN(items, "x", 2).Len())
	assert.Equal(t, 1, ArrangeN(items, "x", 0).Len())
}

func TestNewButtonExactlyOneKind(t *testing.T) {
	cases := []struct {
		name string
		data ButtonData
		kind ButtonKind
		ok   bool
	}{
		{"callback", ButtonData{DataCallback: map[string]any{"a": "x"}}, KindCallback, true},
		{"url", ButtonData{DataURL: "https://example.com"}, KindURL, true},
		{"contact", ButtonData{DataContact: true}, KindRequestContact, true},
		{"location", ButtonData{DataLocation: true}, KindRequestLocation, true},
		{"none", ButtonData{}, 0, false},
		{"two", ButtonData{DataURL: "https://example.com", DataContact: true}, 0, false},
		{"unknown", ButtonData{"foo": 1}, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := NewButton("t", tc.data)
			if !tc.ok {
				require.ErrorIs(t, err, ErrInvalidButtonData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.kind, b.Kind())
		})
	}
}

func TestNormalize(t *testing.T) {
	orig := URLButton("site", "https://example.com")
	b, err := Normalize(orig)
	require.NoError(t, err)
	assert.Equal(t, orig, b)

	b, err = Normalize(map[string]any{"text": "go", "callback_data": `{"a":"go","v":1}`})
	require.NoError(t, err)
	assert.Equal(t, KindCallback, b.Kind())
	data, _ := b.CallbackData()
	assert.Equal(t, map[string]any{"a": "go", "v": float64(1)}, data)

	b, err = Normalize(map[string]any{"text": "phone", "request_contact": true})
	require.NoError(t, err)
	assert.Equal(t, KindRequestContact, b.Kind())

	b, err = Normalize(map[string]any{"text": "here", "getLocation": true})
	require.NoError(t, err)
	assert.Equal(t, KindRequestLocation, b.Kind())

	b, err = Normalize(42)
	require.NoError(t, err)
	assert.Equal(t, KindSingleValue, b.Kind())
	assert.Equal(t, "42", b.Text())
	v, _ := b.Value()
	assert.Equal(t, "42", v)
}

func TestNormalizeRejects(t *testing.T) {
	for _, in := range []any{
		nil,
		[]string{"x"},
		map[string]any{"text": "x"},
		map[string]any{"text": 5, "url": "https://example.com"},
		map[string]any{"text": "x", "url": "https://example.com", "callbackData": "y"},
	} {
		_, err := Normalize(in)
		require.Error(t, err, "%#v", in)
		assert.True(t, errors.Is(err, ErrInvalidButtonData))
		var be *ButtonError
		assert.True(t, errors.As(err, &be))
	}
}

func TestInlineRoundTrip(t *testing.T) {
	single, err := ValueButton("abc", "abc")
	require.NoError(t, err)
	kb := NewInlineKeyboard(
		[]any{CallbackButton("cb", map[string]any{"a": "x", "v": "y"}), CallbackButton("str", "plain")},
		[]any{URLButton("u", "https://example.com"), single},
		[]any{"7"},
	)
	first, err := Marshal(kb)
	require.NoError(t, err)

	var wire struct {
		InlineKeyboard [][]map[string]any `json:"inline_keyboard"`
	}
	require.NoError(t, json.Unmarshal([]byte(first), &wire))

	again := NewInlineKeyboard()
	for _, row := range wire.InlineKeyboard {
		cells := make([]any, 0, len(row))
		for _, c := range row {
			cells = append(cells, c)
		}
		again.Row(cells...)
	}
	second, err := Marshal(again)
	require.NoError(t, err)
	assert.JSONEq(t, first, second)
}

func TestInlineEmptyKeyboard(t *testing.T) {
	_, err := NewInlineKeyboard().Render()
	require.ErrorIs(t, err, ErrEmptyKeyboard)
}

func TestReplyKeyboardRender(t *testing.T) {
	kb := NewReplyKeyboard([]any{"one", "two"}).Row(ContactButton("share")).OneTime()
	s, err := Marshal(kb)
	require.NoError(t, err)
	assert.JSONEq(t, `{"keyboard":[["one","two"],[{"text":"share","request_contact":true}]],"one_time_keyboard":true,"resize_keyboard":true}`, s)

	s, err = Marshal(NewReplyKeyboard().NoResize())
	require.NoError(t, err)
	assert.JSONEq(t, `{"keyboard":[],"one_time_keyboard":false,"resize_keyboard":false}`, s)
}

func TestAttachDoesNotMutateKeyboard(t *testing.T) {
	kb := NewInlineKeyboard([]any{CallbackButton("x", "y")})
	payload := map[string]any{"chat_id": int64(1), "text": "hi"}
	require.NoError(t, Attach(kb, payload))
	assert.Equal(t, `{"inline_keyboard":[[{"text":"x","callback_data":"\"y\""}]]}`, payload["reply_markup"])
	assert.Equal(t, 1, kb.Len())

	require.NoError(t, Attach(nil, payload))
	assert.True(t, IsInline(kb))
	assert.False(t, IsInline(NewReplyKeyboard()))
	assert.False(t, IsInline(nil))
}

func TestCallbackDataLimit(t *testing.T) {
	long := CallbackButton("x", ActionData("a", strings.Repeat("z", MaxCallbackDataLen)))
	_, err := long.Render()
	require.ErrorIs(t, err, ErrInvalidButtonData)
	require.ErrorIs(t, err, ErrCallbackDataTooLong)

	_, err = Marshal(NewInlineKeyboard([]any{long}))
	require.ErrorIs(t, err, ErrCallbackDataTooLong)
}

func TestSingleValueDataLimit(t *testing.T) {
	long, err := Normalize(strings.Repeat("x", MaxCallbackDataLen+1))
	require.NoError(t, err)
	_, err = Marshal(NewInlineKeyboard([]any{long}))
	require.ErrorIs(t, err, ErrInvalidButtonData)
	require.ErrorIs(t, err, ErrCallbackDataTooLong)

	fits, err := Normalize(strings.Repeat("x", MaxCallbackDataLen))
	require.NoError(t, err)
	_, err = fits.Render()
	require.NoError(t, err)
}

func TestTruncRunes(t *testing.T) {
	assert.Equal(t, "héllo", TruncRunes("héllo", 5))
	assert.Equal(t, "hé…", TruncRunes("héllo", 2))
	assert.Equal(t, "", TruncRunes("héllo", 0))
}
