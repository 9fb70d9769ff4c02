package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	kit "glassbot/internal/transport"
	logx "glassbot/pkg/logx"
	"glassbot/pkg/tgui"
)

const DefaultAPIBase = "https://api.telegram.org"

type Config struct {
	Token       string
	APIBase     string
	HTTPTimeout time.Duration
	// RatePerSec throttles outbound calls; <= 0 disables throttling.
	RatePerSec  float64
	Burst       int
	PollTimeout time.Duration
}

// APIError is a failed Bot API call. It matches kit.ErrTransport.
// URL never contains the token.
type APIError struct {
	URL         string
	Method      string
	ChatID      int64
	MessageID   int
	Status      int
	Body        []byte
	Description string
	Cause       error
}

func (e *APIError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "telegram %s failed: chat=%d", e.Method, e.ChatID)
	if e.MessageID != 0 {
		fmt.Fprintf(&sb, " message=%d", e.MessageID)
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
		return sb.String()
	}
	fmt.Fprintf(&sb, " http=%d", e.Status)
	if e.Description != "" {
		fmt.Fprintf(&sb, ": %s", e.Description)
	} else if len(e.Body) > 0 {
		fmt.Fprintf(&sb, ": %s", tgui.TruncRunes(string(e.Body), 200))
	}
	return sb.String()
}

func (e *APIError) Unwrap() error { return e.Cause }

func (e *APIError) Is(target error) bool { return target == kit.ErrTransport }

// Client talks to the Bot API over plain HTTP JSON. One call per request;
// failures are returned as *APIError and never retried.
type Client struct {
	cfg  Config
	log  logx.Logger
	http *http.Client
	lim  *rate.Limiter
}

func NewClient(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Client{cfg: cfg, log: log, http: &http.Client{Timeout: cfg.HTTPTimeout}}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return c, nil
}

func (c *Client) endpoint(method string) string {
	return c.cfg.APIBase + "/bot" + strings.TrimSpace(c.cfg.Token) + "/" + method
}

func (c *Client) redacted(method string) string {
	return c.cfg.APIBase + "/bot<token>/" + method
}

// PostJSON calls a Bot API method with payload as the JSON body. Any
// non-200 status is an *APIError carrying the raw body.
func (c *Client) PostJSON(ctx context.Context, method string, payload any) (kit.Response, error) {
	fail := func(err error) (kit.Response, error) {
		return kit.Response{}, &APIError{URL: c.redacted(method), Method: method, Cause: err}
	}
	if c.lim != nil {
		if err := c.lim.Wait(ctx); err != nil {
			return fail(err)
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fail(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(b))
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(err)
	}
	out := kit.Response{Status: resp.StatusCode, Body: body}
	c.log.Debug("api call", logx.String("method", method), logx.Int("status", resp.StatusCode), logx.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		var env struct {
			Description string `json:"description"`
		}
		_ = json.Unmarshal(body, &env)
		return out, &APIError{
			URL:         c.redacted(method),
			Method:      method,
			Status:      resp.StatusCode,
			Body:        body,
			Description: env.Description,
		}
	}
	return out, nil
}

// Send posts a new text message. A nil markup sends no keyboard.
func (c *Client) Send(ctx context.Context, chatID int64, text string, markup tgui.Markup) (kit.Response, error) {
	payload := map[string]any{"chat_id": chatID, "text": text}
	if err := tgui.Attach(markup, payload); err != nil {
		return kit.Response{}, err
	}
	resp, err := c.PostJSON(ctx, "sendMessage", payload)
	return resp, withTarget(err, chatID, 0)
}

// Edit rewrites the text and inline markup of an existing message.
func (c *Client) Edit(ctx context.Context, chatID int64, messageID int, text string, markup *tgui.InlineKeyboard) (kit.Response, error) {
	payload := map[string]any{"chat_id": chatID, "message_id": messageID, "text": text}
	if markup != nil {
		if err := tgui.Attach(markup, payload); err != nil {
			return kit.Response{}, err
		}
	}
	resp, err := c.PostJSON(ctx, "editMessageText", payload)
	return resp, withTarget(err, chatID, messageID)
}

type WebhookOptions struct {
	SecretToken        string
	DropPendingUpdates bool
	AllowedUpdates     []string
}

func (c *Client) SetWebhook(ctx context.Context, url string, opt WebhookOptions) error {
	payload := map[string]any{"url": url}
	if opt.SecretToken != "" {
		payload["secret_token"] = opt.SecretToken
	}
	if opt.DropPendingUpdates {
		payload["drop_pending_updates"] = true
	}
	if len(opt.AllowedUpdates) > 0 {
		payload["allowed_updates"] = opt.AllowedUpdates
	}
	if _, err := c.PostJSON(ctx, "setWebhook", payload); err != nil {
		return err
	}
	c.log.Info("webhook set", logx.String("url", url))
	return nil
}

func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	if _, err := c.PostJSON(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": dropPending}); err != nil {
		return err
	}
	c.log.Info("webhook deleted")
	return nil
}

func withTarget(err error, chatID int64, messageID int) error {
	var ae *APIError
	if errors.As(err, &ae) {
		ae.ChatID = chatID
		ae.MessageID = messageID
	}
	return err
}

var _ kit.Sender = (*Client)(nil)
