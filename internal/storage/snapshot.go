package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"focusplay/internal/core/errs"
	"focusplay/internal/core/model"
)

const snapshotFileName = "session.yaml"

// DefaultSnapshotMaxAge is how long a persisted session stays resumable.
const DefaultSnapshotMaxAge = 24 * time.Hour

// SnapshotStore keeps the single in-progress session record.
type SnapshotStore struct {
	mu     sync.Mutex
	path   string
	clock  clockwork.Clock
	maxAge time.Duration
}

// NewSnapshotStore stores the session record under dataDir.
func NewSnapshotStore(dataDir string, clock clockwork.Clock, maxAge time.Duration) *SnapshotStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxAge <= 0 {
		maxAge = DefaultSnapshotMaxAge
	}
	return &SnapshotStore{
		path:   filepath.Join(dataDir, snapshotFileName),
		clock:  clock,
		maxAge: maxAge,
	}
}

// SaveSnapshot replaces the persisted session record.
func (store *SnapshotStore) SaveSnapshot(snapshot model.Snapshot) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if snapshot.SavedAt == 0 {
		snapshot.SavedAt = store.clock.Now().Unix()
	}
	if err := saveYAML(store.path, snapshot); err != nil {
		return errs.Persistence("save snapshot", err)
	}
	return nil
}

// ClearSnapshot removes the persisted session record. Clearing twice is fine.
func (store *SnapshotStore) ClearSnapshot() error {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.clearLocked()
}

// LoadSnapshot returns the resumable session, or nil when there is none.
// Records that are stale, exhausted or unreadable are discarded.
func (store *SnapshotStore) LoadSnapshot() (*model.Snapshot, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var snapshot model.Snapshot
	found, err := loadYAML(store.path, &snapshot)
	if err != nil {
		_ = store.clearLocked()
		return nil, errs.Persistence("load snapshot", err)
	}
	if !found {
		return nil, nil
	}

	age := store.clock.Now().Sub(time.Unix(snapshot.SavedAt, 0))
	if snapshot.SavedAt == 0 || age > store.maxAge || snapshot.RemainingSec <= 0 ||
		snapshot.SessionID == "" || snapshot.RemainingSec > snapshot.TotalSec {
		return nil, store.clearLocked()
	}
	if !snapshot.Kind.Valid() {
		snapshot.Kind = model.KindWork
	}
	return &snapshot, nil
}

func (store *SnapshotStore) clearLocked() error {
	if err := os.Remove(store.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errs.Persistence("clear snapshot", err)
	}
	return nil
}
