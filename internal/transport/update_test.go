package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	up, err := ParseUpdate([]byte(`{
		"update_id": 7,
		"message": {"message_id": 12, "text": "/start", "chat": {"id": 99}, "from": {"id": 5, "username": "amy", "language_code": "en"}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, UpdateMessage, up.Kind)
	assert.EqualValues(t, 7, up.UpdateID)
	require.NotNil(t, up.Message)
	assert.Equal(t, 12, up.Message.ID)
	assert.Equal(t, "/start", up.Message.Text)
	assert.EqualValues(t, 99, up.Message.ChatID)
	assert.EqualValues(t, 5, up.Message.From.ID)
	assert.Nil(t, up.Message.ForwardOrigin)
	assert.False(t, up.Message.IsReplacement())
	assert.Same(t, up.Message, up.Msg())
}

func TestParseTolerantMessage(t *testing.T) {
	up, err := ParseUpdate([]byte(`{"edited_message": {"message_id": 3}}`))
	require.NoError(t, err)
	assert.True(t, up.Edited)
	assert.Equal(t, 3, up.Message.ID)
	assert.Empty(t, up.Message.Text)
	assert.Zero(t, up.Message.ChatID)

	up, err = ParseUpdate([]byte(`{"message": {}}`))
	require.NoError(t, err)
	assert.Equal(t, UpdateMessage, up.Kind)
	assert.Zero(t, up.Message.ID)

	for _, raw := range []string{`{}`, `{"update_id": 3, "my_chat_member": {"chat": {"id": 42}}}`, `{"update_id": 4, "channel_post": {"text": "hi"}}`} {
		up, err = ParseUpdate([]byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, UpdateUnsupported, up.Kind, raw)
		assert.Nil(t, up.Msg(), raw)
	}

	_, err = ParseUpdate([]byte(`not json`))
	require.Error(t, err)
}

func TestParseCallback(t *testing.T) {
	up, err := ParseUpdate([]byte(`{
		"callback_query": {
			"id": "cb1",
			"from": {"id": 5},
			"data": "{\"a\":\"setAge\",\"v\":17}",
			"message": {"message_id": 40, "chat": {"id": 99}, "from": {"id": 1000}}
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, UpdateCallback, up.Kind)
	cb := up.Callback
	require.NotNil(t, cb)
	assert.Equal(t, "setAge", cb.Action)
	assert.EqualValues(t, 17, cb.Value)
	n, ok := cb.ValueInt()
	assert.True(t, ok)
	assert.EqualValues(t, 17, n)
	assert.Equal(t, "17", cb.ValueString())
	assert.Equal(t, 40, cb.Message.ID)
	assert.Equal(t, "cb1", cb.ID)
	assert.EqualValues(t, 99, up.Msg().ChatID)
	assert.EqualValues(t, 5, cb.From.ID)
}

func TestParseMalformedCallback(t *testing.T) {
	for _, data := range []string{`{\"v\":1}`, `plain`, `[1,2]`, `{\"a\":\"\"}`, `{\"a\":5}`, `{\"a\":\"setAge\",\"v\":17} garbage`, `{\"a\":\"x\"}{}`} {
		_, err := ParseUpdate([]byte(`{"callback_query": {"id": "x", "data": "` + data + `"}}`))
		assert.ErrorIs(t, err, ErrMalformedCallback, data)
	}
}

func TestForwardOrigin(t *testing.T) {
	cases := []struct {
		raw  string
		want ForwardOrigin
	}{
		{`{"type":"user","sender_user":{"id":1,"first_name":"Amy","username":"amy"}}`,
			ForwardOrigin{Type: OriginUser, ID: 1, Title: "Amy", Username: "amy"}},
		{`{"type":"hidden_user","sender_user_name":"Ghost"}`,
			ForwardOrigin{Type: OriginUser, Title: "Ghost"}},
		{`{"type":"channel","message_id":8,"chat":{"id":-100,"title":"News","username":"news"}}`,
			ForwardOrigin{Type: OriginChannel, ID: -100, MessageID: 8, Title: "News", Username: "news"}},
		{`{"type":"channel"}`,
			ForwardOrigin{Type: OriginChannel}},
		{`{"type":"chat","sender_chat":{"id":-5,"title":"Group"}}`,
			ForwardOrigin{Type: OriginGroup, ID: -5, Title: "Group"}},
		{`{"type":"martian"}`,
			ForwardOrigin{Type: OriginNone}},
	}
	for _, c := range cases {
		up, err := ParseUpdate([]byte(`{"message":{"message_id":1,"forward_origin":` + c.raw + `}}`))
		require.NoError(t, err, c.raw)
		require.NotNil(t, up.Message.ForwardOrigin, c.raw)
		assert.Equal(t, c.want, *up.Message.ForwardOrigin, c.raw)
	}
}

func TestMessageReplacementFlags(t *testing.T) {
	m := NewTextMessage(10, "hi", MessageOptions{MessageID: 4, IsReplacement: true})
	assert.True(t, m.IsReplacement())
	m.MarkNotReplacement()
	assert.False(t, m.IsReplacement())
	m.MarkReplacement()
	assert.True(t, m.IsReplacement())

	r := m.ReplyTo("again")
	assert.Equal(t, 4, r.ID)
	assert.EqualValues(t, 10, r.ChatID)
	assert.False(t, r.IsReplacement())

	var nilMsg *Message
	assert.False(t, nilMsg.IsReplacement())
}
