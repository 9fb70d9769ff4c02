package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "glassbot/pkg/logx"
)

// Store is the persistence API used by the dispatcher.
type Store interface {
	// MarkUpdate records updateID as answered until the given time. fresh is
	// false when the id was already marked and its window has not passed.
	MarkUpdate(ctx context.Context, updateID int64, until time.Time) (fresh bool, err error)
	AppendDelivery(ctx context.Context, e DeliveryEntry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "memory", "mem":
		return NewMemory(), nil
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

// SeenUpdate reports whether updateID was answered within the last ttl and
// marks it otherwise. Id 0 is never deduplicated.
func SeenUpdate(ctx context.Context, st Store, updateID int64, ttl time.Duration) (bool, error) {
	if st == nil || updateID == 0 {
		return false, nil
	}
	fresh, err := st.MarkUpdate(ctx, updateID, time.Now().Add(ttl))
	if err != nil {
		return false, err
	}
	return !fresh, nil
}
