package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "glassbot/pkg/logx"
)

// fileStore appends JSON Lines to two files derived from the configured
// path:
//
//	<base>.deliveries.jsonl  delivery audit, append only
//	<base>.seen.jsonl        {"update_id":..,"until":..} marks
//
// The seen file is rewritten with only live marks every compactAfter
// appends.
type fileStore struct {
	log logx.Logger

	mu         sync.Mutex
	deliveries *os.File
	seenPath   string
	seenFile   *os.File
	seen       map[int64]time.Time
	lines      int
}

const compactAfter = 1000

type seenMark struct {
	UpdateID int64 `json:"update_id"`
	Until    int64 `json:"until"` // unix milli
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{log: log, seenPath: base + ".seen.jsonl", seen: map[int64]time.Time{}}
	n, err := s.load()
	if err != nil {
		return nil, err
	}
	s.lines = n

	if s.deliveries, err = os.OpenFile(base+".deliveries.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err != nil {
		return nil, err
	}
	if s.seenFile, err = os.OpenFile(s.seenPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err != nil {
		_ = s.deliveries.Close()
		return nil, err
	}
	log.Debug("file store opened", logx.String("base", base), logx.Int("seen", len(s.seen)))
	return s, nil
}

// load replays the seen file; malformed lines are skipped.
func (s *fileStore) load() (int, error) {
	f, err := os.Open(s.seenPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
		var m seenMark
		if json.Unmarshal(sc.Bytes(), &m) != nil || m.UpdateID == 0 {
			continue
		}
		s.seen[m.UpdateID] = time.UnixMilli(m.Until)
	}
	pruneSeen(s.seen, time.Now())
	return n, sc.Err()
}

func (s *fileStore) MarkUpdate(_ context.Context, updateID int64, until time.Time) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenFile == nil {
		return false, ErrDisabled
	}
	if u, ok := s.seen[updateID]; ok && u.After(now) {
		return false, nil
	}
	s.seen[updateID] = until
	if err := json.NewEncoder(s.seenFile).Encode(seenMark{UpdateID: updateID, Until: until.UnixMilli()}); err != nil {
		return true, err
	}
	if s.lines++; s.lines >= compactAfter {
		if err := s.compactLocked(now); err != nil {
			s.log.Warn("seen file compaction failed", logx.Err(err))
		}
	}
	return true, nil
}

// compactLocked rewrites the seen file through a temp file and rename.
func (s *fileStore) compactLocked(now time.Time) error {
	pruneSeen(s.seen, now)
	tmp := s.seenPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for id, until := range s.seen {
		if err := enc.Encode(seenMark{UpdateID: id, Until: until.UnixMilli()}); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.seenPath); err != nil {
		return err
	}
	_ = s.seenFile.Close()
	if s.seenFile, err = os.OpenFile(s.seenPath, os.O_APPEND|os.O_WRONLY, 0o600); err != nil {
		return err
	}
	s.lines = 0
	return nil
}

func (s *fileStore) AppendDelivery(_ context.Context, e DeliveryEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliveries == nil {
		return ErrDisabled
	}
	return json.NewEncoder(s.deliveries).Encode(e)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.deliveries != nil {
		errs = append(errs, s.deliveries.Close())
		s.deliveries = nil
	}
	if s.seenFile != nil {
		errs = append(errs, s.seenFile.Close())
		s.seenFile = nil
	}
	return errors.Join(errs...)
}
