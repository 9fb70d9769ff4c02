package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "glassbot/internal/transport"
	logx "glassbot/pkg/logx"
	"glassbot/pkg/tgui"
)

type recorded struct {
	Path string
	Body map[string]any
}

func newAPI(t *testing.T, status int, reply string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(b, &body)
		mu.Lock()
		reqs = append(reqs, recorded{Path: r.URL.Path, Body: body})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newClient(t *testing.T, base string) *Client {
	t.Helper()
	c, err := NewClient(Config{Token: "T0K", APIBase: base}, logx.Nop())
	require.NoError(t, err)
	return c
}

func TestSendAttachesMarkup(t *testing.T) {
	srv, reqs := newAPI(t, http.StatusOK, `{"ok":true,"result":{}}`)
	c := newClient(t, srv.URL)

	kb := tgui.NewInlineKeyboard([]any{tgui.CallbackButton("Yes", tgui.ActionData("confirm", 1))})
	resp, err := c.Send(context.Background(), 42, "hello", kb)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	require.Len(t, *reqs, 1)
	r := (*reqs)[0]
	assert.Equal(t, "/botT0K/sendMessage", r.Path)
	assert.EqualValues(t, 42, r.Body["chat_id"])
	assert.Equal(t, "hello", r.Body["text"])
	assert.JSONEq(t, `{"inline_keyboard":[[{"text":"Yes","callback_data":"{\"a\":\"confirm\",\"v\":1}"}]]}`, r.Body["reply_markup"].(string))
	_, hasMsgID := r.Body["message_id"]
	assert.False(t, hasMsgID)
}

func TestSendWithoutMarkup(t *testing.T) {
	srv, reqs := newAPI(t, http.StatusOK, `{"ok":true}`)
	c := newClient(t, srv.URL)

	_, err := c.Send(context.Background(), 1, "plain", nil)
	require.NoError(t, err)
	_, has := (*reqs)[0].Body["reply_markup"]
	assert.False(t, has)
}

func TestEditCarriesMessageID(t *testing.T) {
	srv, reqs := newAPI(t, http.StatusOK, `{"ok":true}`)
	c := newClient(t, srv.URL)

	kb := tgui.NewInlineKeyboard([]any{tgui.URLButton("site", "https://example.org")})
	_, err := c.Edit(context.Background(), 9, 77, "changed", kb)
	require.NoError(t, err)
	r := (*reqs)[0]
	assert.Equal(t, "/botT0K/editMessageText", r.Path)
	assert.EqualValues(t, 77, r.Body["message_id"])
	assert.Contains(t, r.Body["reply_markup"], "https://example.org")
}

func TestNon200IsAPIError(t *testing.T) {
	srv, _ := newAPI(t, http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`)
	c := newClient(t, srv.URL)

	_, err := c.Edit(context.Background(), 9, 77, "same", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, kit.ErrTransport)

	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.EqualValues(t, 9, ae.ChatID)
	assert.Equal(t, 77, ae.MessageID)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Contains(t, string(ae.Body), "not modified")
	assert.Equal(t, "Bad Request: message is not modified", ae.Description)
	assert.NotContains(t, ae.URL, "T0K")
	assert.NotContains(t, err.Error(), "T0K")
}

func TestNetworkErrorIsAPIError(t *testing.T) {
	srv, _ := newAPI(t, http.StatusOK, `{}`)
	c := newClient(t, srv.URL)
	srv.Close()

	_, err := c.Send(context.Background(), 5, "x", nil)
	require.ErrorIs(t, err, kit.ErrTransport)
	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.EqualValues(t, 5, ae.ChatID)
	assert.Error(t, ae.Cause)
}

func TestWebhookCalls(t *testing.T) {
	srv, reqs := newAPI(t, http.StatusOK, `{"ok":true,"result":true}`)
	c := newClient(t, srv.URL)

	require.NoError(t, c.SetWebhook(context.Background(), "https://bot.example/hook", WebhookOptions{
		SecretToken:    "s3",
		AllowedUpdates: AllowedUpdates,
	}))
	require.NoError(t, c.DeleteWebhook(context.Background(), true))

	require.Len(t, *reqs, 2)
	assert.Equal(t, "/botT0K/setWebhook", (*reqs)[0].Path)
	assert.Equal(t, "s3", (*reqs)[0].Body["secret_token"])
	assert.Equal(t, "/botT0K/deleteWebhook", (*reqs)[1].Path)
	assert.Equal(t, true, (*reqs)[1].Body["drop_pending_updates"])
}

func TestRateLimiterHonoursContext(t *testing.T) {
	srv, _ := newAPI(t, http.StatusOK, `{"ok":true}`)
	c, err := NewClient(Config{Token: "T", APIBase: srv.URL, RatePerSec: 0.001, Burst: 1}, logx.Nop())
	require.NoError(t, err)

	_, err = c.Send(context.Background(), 1, "first", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Send(ctx, 1, "second", nil)
	require.ErrorIs(t, err, kit.ErrTransport)
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(Config{}, logx.Nop())
	require.Error(t, err)
	_, err = NewPoller(Config{}, logx.Nop())
	require.Error(t, err)
}

func TestPollerForwardsRawUpdates(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			_, _ = io.WriteString(w, `{"ok":true,"result":[{"update_id":5,"message":{"message_id":1,"text":"/start","chat":{"id":9,"type":"private"}}}]}`)
			return
		}
		time.Sleep(20 * time.Millisecond)
		_, _ = io.WriteString(w, `{"ok":true,"result":[]}`)
	}))
	defer srv.Close()

	p, err := NewPoller(Config{Token: "T", APIBase: srv.URL, PollTimeout: time.Second}, logx.Nop())
	require.NoError(t, err)

	got := make(chan []byte, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(raw []byte) {
			select {
			case got <- raw:
			default:
			}
		})
	}()

	select {
	case raw := <-got:
		up, err := kit.ParseUpdate(raw)
		require.NoError(t, err)
		assert.EqualValues(t, 5, up.UpdateID)
		assert.Equal(t, "/start", up.Message.Text)
		assert.EqualValues(t, 9, up.Message.ChatID)
	case <-time.After(5 * time.Second):
		t.Fatal("no update forwarded")
	}
	cancel()
	require.NoError(t, <-done)
}
