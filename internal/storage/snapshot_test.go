package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusplay/internal/core/model"
)

func TestSnapshotRoundTripUntilCleared(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewSnapshotStore(t.TempDir(), clock, 0)

	loaded, err := store.LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	saved := model.Snapshot{SessionID: "pomodoro", TotalSec: 1500, RemainingSec: 120}
	require.NoError(t, store.SaveSnapshot(saved))

	loaded, err = store.LoadSnapshot()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "pomodoro", loaded.SessionID)
	assert.Equal(t, 1500, loaded.TotalSec)
	assert.Equal(t, 120, loaded.RemainingSec)
	assert.Equal(t, model.KindWork, loaded.Kind)
	assert.Equal(t, clock.Now().Unix(), loaded.SavedAt)

	// Loading does not consume the record.
	again, err := store.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, loaded, again)

	require.NoError(t, store.ClearSnapshot())
	require.NoError(t, store.ClearSnapshot())
	loaded, err = store.LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSnapshotKeepsStoredKind(t *testing.T) {
	store := NewSnapshotStore(t.TempDir(), clockwork.NewFakeClock(), 0)
	require.NoError(t, store.SaveSnapshot(model.Snapshot{SessionID: "short-break", Kind: model.KindWork, TotalSec: 60, RemainingSec: 30}))
	loaded, err := store.LoadSnapshot()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, model.KindWork, loaded.Kind)

	require.NoError(t, store.SaveSnapshot(model.Snapshot{SessionID: "pomodoro-break", Kind: model.KindBreak, TotalSec: 60, RemainingSec: 30}))
	loaded, err = store.LoadSnapshot()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, model.KindBreak, loaded.Kind)
}

func TestStaleSnapshotIsDiscarded(t *testing.T) {
	clock := clockwork.NewFakeClock()
	dir := t.TempDir()
	store := NewSnapshotStore(dir, clock, time.Hour)
	require.NoError(t, store.SaveSnapshot(model.Snapshot{SessionID: "pomodoro", TotalSec: 60, RemainingSec: 30}))

	clock.Advance(2 * time.Hour)
	loaded, err := store.LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, loaded)
	_, statErr := os.Stat(filepath.Join(dir, snapshotFileName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExhaustedSnapshotIsDiscarded(t *testing.T) {
	store := NewSnapshotStore(t.TempDir(), clockwork.NewFakeClock(), 0)
	require.NoError(t, store.SaveSnapshot(model.Snapshot{SessionID: "pomodoro", TotalSec: 60, RemainingSec: 0}))
	loaded, err := store.LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCorruptSnapshotReportsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, snapshotFileName), []byte("{{not yaml"), 0o644))
	store := NewSnapshotStore(dir, clockwork.NewFakeClock(), 0)
	loaded, err := store.LoadSnapshot()
	assert.Error(t, err)
	assert.Nil(t, loaded)

	loaded, err = store.LoadSnapshot()
	require.NoError(t, err, "corrupt record is removed")
	assert.Nil(t, loaded)
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "value.yaml")
	require.NoError(t, writeFileAtomic(path, []byte("a: 1\n"), 0o644))
	require.NoError(t, writeFileAtomic(path, []byte("a: 2\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a: 2\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
