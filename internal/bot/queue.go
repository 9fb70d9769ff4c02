package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	logx "glassbot/pkg/logx"
)

const DefaultQueueSize = 256

type queueRecorder interface {
	Dropped()
	QueueDepth(n int)
}

// Queue feeds raw updates to Bot.Handle from exactly one goroutine, so two
// updates are never handled at the same time.
type Queue struct {
	b   *Bot
	ch  chan []byte
	rec queueRecorder

	// dropped counts updates refused because the queue was full. Logged
	// periodically to avoid per-update log spam.
	dropped uint64
	handled uint64
}

func NewQueue(b *Bot, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	q := &Queue{b: b, ch: make(chan []byte, size)}
	if r, ok := b.rec.(queueRecorder); ok {
		q.rec = r
	}
	return q
}

// Enqueue never blocks. It returns false when the queue is full.
func (q *Queue) Enqueue(raw []byte) bool {
	select {
	case q.ch <- raw:
		if q.rec != nil {
			q.rec.QueueDepth(len(q.ch))
		}
		return true
	default:
		atomic.AddUint64(&q.dropped, 1)
		if q.rec != nil {
			q.rec.Dropped()
		}
		return false
	}
}

// Put blocks until raw is queued or ctx is done. Long polling uses it: an
// update acknowledged by getUpdates cannot be redelivered, so it must not drop.
func (q *Queue) Put(ctx context.Context, raw []byte) error {
	select {
	case q.ch <- raw:
		if q.rec != nil {
			q.rec.QueueDepth(len(q.ch))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Len() int { return len(q.ch) }

// Handled is the number of updates taken off the queue.
func (q *Queue) Handled() uint64 { return atomic.LoadUint64(&q.handled) }

// Run consumes the queue until ctx is done. Per-update errors and panics are
// logged and never stop the loop.
func (q *Queue) Run(ctx context.Context) error {
	log := q.b.log.With(logx.String("comp", "dispatch"))
	log.Info("dispatcher started", logx.Int("queue_cap", cap(q.ch)))
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	report := func() {
		if n := atomic.SwapUint64(&q.dropped, 0); n > 0 {
			log.Warn("incoming updates dropped (queue full)", logx.Int64("count", int64(n)), logx.Int("queue_cap", cap(q.ch)))
		}
	}
	for {
		select {
		case <-ctx.Done():
			report()
			log.Info("dispatcher stopped", logx.Int("pending", len(q.ch)))
			return nil
		case <-ticker.C:
			report()
		case raw := <-q.ch:
			if q.rec != nil {
				q.rec.QueueDepth(len(q.ch))
			}
			if err := q.handleOne(ctx, raw); err != nil {
				log.Warn("update failed", logx.Err(err))
			}
			atomic.AddUint64(&q.handled, 1)
		}
	}
}

func (q *Queue) handleOne(ctx context.Context, raw []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.b.log.Error("handler panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return q.b.Handle(ctx, raw)
}
