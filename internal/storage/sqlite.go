package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	logx "glassbot/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	at         TEXT    NOT NULL,
	request_id TEXT,
	update_id  INTEGER NOT NULL,
	kind       TEXT    NOT NULL,
	user_id    INTEGER NOT NULL,
	chat_id    INTEGER NOT NULL,
	message_id INTEGER NOT NULL,
	source     TEXT    NOT NULL,
	mode       TEXT    NOT NULL,
	status     INTEGER NOT NULL,
	err        TEXT,
	took_ms    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS deliveries_chat ON deliveries(chat_id, at);
CREATE TABLE IF NOT EXISTS seen_updates (
	update_id INTEGER PRIMARY KEY,
	until     INTEGER NOT NULL
);`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	opCount    atomic.Uint64
	pruneEvery uint64
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, pruneEvery: 500}

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	log.Debug("sqlite store opened", logx.String("path", path))
	return st, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendDelivery(ctx context.Context, e DeliveryEntry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries(at, request_id, update_id, kind, user_id, chat_id, message_id, source, mode, status, err, took_ms)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), nullStr(e.RequestID), e.UpdateID, e.Kind, e.UserID, e.ChatID, e.MessageID,
		e.Source, e.Mode, e.Status, nullStr(e.Error), e.TookMS,
	)
	return err
}

// Deliveries returns the most recent entries for chatID, newest first.
func (s *sqliteStore) Deliveries(ctx context.Context, chatID int64, limit int) ([]DeliveryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, COALESCE(request_id,''), update_id, kind, user_id, chat_id, message_id, source, mode, status, COALESCE(err,''), took_ms
		 FROM deliveries WHERE chat_id = ? ORDER BY id DESC LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DeliveryEntry
	for rows.Next() {
		var (
			e  DeliveryEntry
			at string
		)
		if err := rows.Scan(&at, &e.RequestID, &e.UpdateID, &e.Kind, &e.UserID, &e.ChatID, &e.MessageID,
			&e.Source, &e.Mode, &e.Status, &e.Error, &e.TookMS); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkUpdate inserts the mark, or refreshes it only when the stored window
// has passed; one affected row means the update is fresh.
func (s *sqliteStore) MarkUpdate(ctx context.Context, updateID int64, until time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrDisabled
	}
	now := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO seen_updates(update_id, until) VALUES(?,?)
		 ON CONFLICT(update_id) DO UPDATE SET until=excluded.until
		 WHERE seen_updates.until <= ?`,
		updateID, until.UnixMilli(), now,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		if err := s.pruneExpired(pctx); err != nil {
			s.log.Debug("seen_updates prune failed", logx.Err(err))
		}
		cancel()
	}
	return n == 1, nil
}

func (s *sqliteStore) pruneExpired(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM seen_updates WHERE until <= ?`, time.Now().UnixMilli())
	return err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
