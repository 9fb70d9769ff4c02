package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"glassbot/internal/storage"
	"glassbot/internal/transport"
	"glassbot/internal/users"
	logx "glassbot/pkg/logx"
)

// Source names which table produced the answer.
type Source string

const (
	SourceCallback Source = "callback"
	SourceCommand  Source = "command"
	SourceState    Source = "state"
	SourceMessage  Source = "message"
	SourceDefault  Source = "default"
	SourceFallback Source = "fallback"
)

// Handle parses a raw update and dispatches it. Malformed callbacks are
// returned without any outbound call.
func (b *Bot) Handle(ctx context.Context, raw []byte) error {
	up, err := transport.ParseUpdate(raw)
	if err != nil {
		b.rec.Failed("parse")
		return err
	}
	return b.HandleUpdate(ctx, up)
}

// HandleUpdate resolves the answering handler and delivers its response with
// exactly one outbound call. Handle is not meant to run concurrently for
// updates of the same user; the dispatch queue serializes updates.
func (b *Bot) HandleUpdate(ctx context.Context, up transport.Update) error {
	if up.Kind == transport.UpdateUnsupported {
		b.rec.Update(string(up.Kind))
		b.log.Debug("unsupported update skipped", logx.Int64("update_id", up.UpdateID))
		return nil
	}
	start := time.Now()
	req := &Request{
		ID:       uuid.NewString(),
		Update:   up,
		Message:  up.Msg(),
		Callback: up.Callback,
		bot:      b,
	}
	if req.Message == nil {
		return fmt.Errorf("%w: update without message", ErrInvalidArgument)
	}
	req.Log = b.log.With(
		logx.String("request_id", req.ID),
		logx.Int64("update_id", up.UpdateID),
		logx.String("kind", string(up.Kind)),
		logx.Int64("chat_id", req.Message.ChatID),
	)
	b.rec.Update(string(up.Kind))

	if b.store != nil {
		seen, err := storage.SeenUpdate(ctx, b.store, up.UpdateID, b.dedupTTL)
		if err != nil {
			req.Log.Warn("update dedup failed", logx.Err(err))
		} else if seen {
			b.rec.Duplicate()
			req.Log.Debug("duplicate update skipped")
			return nil
		}
	}

	user, err := b.users.Resolve(ctx, req.Message.ChatID)
	if err != nil {
		b.rec.Failed("users")
		return fmt.Errorf("resolve user %d: %w", req.Message.ChatID, err)
	}
	req.User = user
	req.Message.By = user

	resp, src, err := b.resolve(ctx, req)
	if err != nil {
		b.rec.Failed("handler")
		return fmt.Errorf("%s handler: %w", src, err)
	}
	if resp.Empty() {
		src = SourceFallback
		resp, err = b.fallbackResponse(req)
		if err != nil {
			b.rec.Failed("fallback")
			return err
		}
	}

	mode, status, err := b.deliver(ctx, req, resp)
	took := time.Since(start)
	b.audit(ctx, req, src, mode, status, took, err)
	if err != nil {
		b.rec.Failed("deliver")
		req.Log.Warn("delivery failed", logx.String("source", string(src)), logx.String("mode", string(mode)), logx.Err(err))
		return err
	}
	b.rec.Dispatched(string(src), string(mode), took)
	req.Log.Debug("update answered", logx.String("source", string(src)), logx.String("mode", string(mode)), logx.Duration("took", took))
	return nil
}

// resolve walks the tables in priority order; the first non-empty response wins.
func (b *Bot) resolve(ctx context.Context, req *Request) (Response, Source, error) {
	if cb := req.Callback; cb != nil {
		h := b.lookupCallback(cb.Action)
		if h == nil {
			return NoResponse, SourceCallback, nil
		}
		resp, err := h.Handle(ctx, req)
		return resp, SourceCallback, err
	}

	text := req.Message.Text
	b.mu.RLock()
	cmd := b.commands[text]
	var state Handler
	if req.User.State != users.StateNone {
		state = b.states[req.User.State]
	}
	msg := b.messages[text]
	def := b.fallback
	b.mu.RUnlock()

	steps := []struct {
		src Source
		h   Handler
	}{
		{SourceCommand, cmd},
		{SourceState, state},
		{SourceMessage, msg},
		{SourceDefault, def},
	}
	for _, s := range steps {
		if s.h == nil {
			continue
		}
		resp, err := s.h.Handle(ctx, req)
		if err != nil {
			return NoResponse, s.src, err
		}
		if !resp.Empty() {
			return resp, s.src, nil
		}
	}
	return NoResponse, SourceFallback, nil
}

func (b *Bot) lookupCallback(action string) Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.callbacks[action]
}

func (b *Bot) fallbackResponse(req *Request) (Response, error) {
	text, err := b.texts.Get(WrongCommandKey, string(req.User.Language))
	if err != nil {
		return NoResponse, fmt.Errorf("fallback text: %w", err)
	}
	return Response{Message: req.Reply(text)}, nil
}

func (b *Bot) audit(ctx context.Context, req *Request, src Source, mode Mode, status int, took time.Duration, derr error) {
	if b.store == nil {
		return
	}
	e := storage.DeliveryEntry{
		At:        time.Now(),
		RequestID: req.ID,
		UpdateID:  req.Update.UpdateID,
		Kind:      string(req.Update.Kind),
		UserID:    req.User.ID,
		ChatID:    req.Message.ChatID,
		MessageID: req.Message.ID,
		Source:    string(src),
		Mode:      string(mode),
		Status:    status,
		TookMS:    took.Milliseconds(),
	}
	if derr != nil {
		e.Error = derr.Error()
	}
	if err := b.store.AppendDelivery(ctx, e); err != nil && !errors.Is(err, storage.ErrDisabled) {
		req.Log.Warn("delivery audit failed", logx.Err(err))
	}
}
