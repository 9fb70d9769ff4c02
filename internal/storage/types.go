package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "memory": process-local maps, lost on restart
//   - "file": jsonl deliveries and seen-update marks
//   - "sqlite": SQLite database file (modernc.org/sqlite, no cgo)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DeliveryEntry records how one update was answered.
// Keep it compact and schema-stable.
type DeliveryEntry struct {
	At        time.Time `json:"at"`
	RequestID string    `json:"request_id"`
	UpdateID  int64     `json:"update_id"`
	Kind      string    `json:"kind"`
	UserID    int64     `json:"user_id"`
	ChatID    int64     `json:"chat_id"`
	MessageID int       `json:"message_id,omitempty"`
	Source    string    `json:"source"`
	Mode      string    `json:"mode"`
	Status    int       `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	TookMS    int64     `json:"took_ms"`
}
