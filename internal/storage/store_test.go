package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "glassbot/pkg/logx"
)

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	out := map[string]Store{}
	for _, cfg := range []Config{
		{Driver: "memory"},
		{Driver: "file", Path: filepath.Join(dir, "file", "glassbot")},
		{Driver: "sqlite", Path: filepath.Join(dir, "db", "glassbot.db"), BusyTimeout: time.Second},
	} {
		st, err := Open(cfg, logx.Nop())
		require.NoError(t, err, cfg.Driver)
		require.NotNil(t, st, cfg.Driver)
		t.Cleanup(func() { _ = st.Close() })
		out[cfg.Driver] = st
	}
	return out
}

func TestOpenDisabledAndUnknown(t *testing.T) {
	st, err := Open(Config{}, logx.Nop())
	require.NoError(t, err)
	assert.Nil(t, st)

	_, err = Open(Config{Driver: "redis"}, logx.Nop())
	require.Error(t, err)
	_, err = Open(Config{Driver: "sqlite"}, logx.Nop())
	require.Error(t, err)
}

func TestMarkUpdateAcrossDrivers(t *testing.T) {
	ctx := context.Background()
	for name, st := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			fresh, err := st.MarkUpdate(ctx, 42, time.Now().Add(time.Minute))
			require.NoError(t, err)
			assert.True(t, fresh)
			fresh, err = st.MarkUpdate(ctx, 42, time.Now().Add(time.Minute))
			require.NoError(t, err)
			assert.False(t, fresh)

			// an expired mark is refreshed
			fresh, err = st.MarkUpdate(ctx, 43, time.Now().Add(-time.Second))
			require.NoError(t, err)
			assert.True(t, fresh)
			fresh, err = st.MarkUpdate(ctx, 43, time.Now().Add(time.Minute))
			require.NoError(t, err)
			assert.True(t, fresh)

			seen, err := SeenUpdate(ctx, st, 100, time.Minute)
			require.NoError(t, err)
			assert.False(t, seen)
			seen, err = SeenUpdate(ctx, st, 100, time.Minute)
			require.NoError(t, err)
			assert.True(t, seen)

			// zero ids are never deduplicated
			seen, err = SeenUpdate(ctx, st, 0, time.Minute)
			require.NoError(t, err)
			assert.False(t, seen)
			seen, err = SeenUpdate(ctx, st, 0, time.Minute)
			require.NoError(t, err)
			assert.False(t, seen)
		})
	}
}

func TestAppendDelivery(t *testing.T) {
	ctx := context.Background()
	stores := openAll(t)
	e := DeliveryEntry{RequestID: "r1", UpdateID: 3, Kind: "message", UserID: 5, ChatID: 9, Source: "command", Mode: "send", Status: 200, TookMS: 4}
	for name, st := range stores {
		require.NoError(t, st.AppendDelivery(ctx, e), name)
	}

	mem := stores["memory"].(*Memory)
	got := mem.Deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, "command", got[0].Source)
	assert.False(t, got[0].At.IsZero())

	sq := stores["sqlite"].(*sqliteStore)
	rows, err := sq.Deliveries(ctx, 9, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "r1", rows[0].RequestID)
	assert.Equal(t, "send", rows[0].Mode)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "glassbot")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	fresh, err := st.MarkUpdate(ctx, 9, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.True(t, fresh)
	require.NoError(t, st.AppendDelivery(ctx, DeliveryEntry{UpdateID: 1, Source: "fallback", Mode: "send"}))
	require.NoError(t, st.Close())

	st, err = Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()
	fresh, err = st.MarkUpdate(ctx, 9, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, fresh)

	f, err := os.Open(path + ".deliveries.jsonl")
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var e DeliveryEntry
	require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
	assert.Equal(t, "fallback", e.Source)
}

func TestFileStoreCompactsSeen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "glassbot")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	for i := 1; i <= compactAfter; i++ {
		// expired marks are dropped by compaction
		_, err := st.MarkUpdate(ctx, int64(i), time.Now().Add(-time.Second))
		require.NoError(t, err)
	}
	_, err = st.MarkUpdate(ctx, 5000, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	b, err := os.ReadFile(path + ".seen.jsonl")
	require.NoError(t, err)
	assert.Less(t, len(b), 200, "seen file should hold only live marks")

	st, err = Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()
	fresh, err := st.MarkUpdate(ctx, 5000, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestMemoryCapsDeliveries(t *testing.T) {
	m := NewMemory()
	for i := 0; i < maxDeliveries+10; i++ {
		require.NoError(t, m.AppendDelivery(context.Background(), DeliveryEntry{UpdateID: int64(i)}))
	}
	got := m.Deliveries()
	assert.Len(t, got, maxDeliveries)
	assert.EqualValues(t, 10, got[0].UpdateID)
}
