package storage

import (
	"context"
	"sync"
	"time"
)

// Memory keeps everything in process. Deliveries are capped to the last
// maxDeliveries entries.
type Memory struct {
	mu         sync.Mutex
	seen       map[int64]time.Time
	deliveries []DeliveryEntry
	marks      int
}

const (
	maxDeliveries = 1000
	pruneEvery    = 500
)

func NewMemory() *Memory {
	return &Memory{seen: map[int64]time.Time{}}
}

func (m *Memory) MarkUpdate(_ context.Context, updateID int64, until time.Time) (bool, error) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.seen[updateID]; ok && u.After(now) {
		return false, nil
	}
	m.seen[updateID] = until
	if m.marks++; m.marks%pruneEvery == 0 {
		pruneSeen(m.seen, now)
	}
	return true, nil
}

func (m *Memory) AppendDelivery(_ context.Context, e DeliveryEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, e)
	if over := len(m.deliveries) - maxDeliveries; over > 0 {
		m.deliveries = append([]DeliveryEntry(nil), m.deliveries[over:]...)
	}
	return nil
}

// Deliveries returns a copy of the recorded entries, oldest first.
func (m *Memory) Deliveries() []DeliveryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeliveryEntry(nil), m.deliveries...)
}

func (m *Memory) Close() error { return nil }

func pruneSeen(seen map[int64]time.Time, now time.Time) {
	for id, until := range seen {
		if !until.After(now) {
			delete(seen, id)
		}
	}
}
