package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"focusplay/internal/core/errs"
	"focusplay/internal/core/model"
)

const profilesFileName = "profiles.yaml"

type profilesFile struct {
	Profiles []model.Profile `yaml:"profiles"`
}

// ProfileStore keeps profiles keyed by id, in insertion order.
type ProfileStore struct {
	mu       sync.RWMutex
	path     string
	profiles []model.Profile
	loaded   bool
}

// NewProfileStore stores profiles under dataDir.
func NewProfileStore(dataDir string) *ProfileStore {
	return &ProfileStore{path: filepath.Join(dataDir, profilesFileName)}
}

// Load reads the profile table, writing the default profiles on first run.
func (store *ProfileStore) Load() ([]model.Profile, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var fileData profilesFile
	found, err := loadYAML(store.path, &fileData)
	if err != nil {
		return nil, errs.Persistence("load profiles", err)
	}
	if !found || len(fileData.Profiles) == 0 {
		store.profiles = model.DefaultProfiles()
		store.loaded = true
		if err := store.saveLocked(store.profiles); err != nil {
			return store.copyLocked(), err
		}
		return store.copyLocked(), nil
	}
	store.profiles = fileData.Profiles
	store.loaded = true
	return store.copyLocked(), nil
}

// List returns the cached profiles, loading them first if needed.
func (store *ProfileStore) List() ([]model.Profile, error) {
	store.mu.RLock()
	if store.loaded {
		defer store.mu.RUnlock()
		return store.copyLocked(), nil
	}
	store.mu.RUnlock()
	return store.Load()
}

// Get returns the profile with id.
func (store *ProfileStore) Get(id string) (model.Profile, error) {
	profiles, err := store.List()
	if err != nil {
		return model.Profile{}, err
	}
	for _, profile := range profiles {
		if profile.ID == id {
			return profile, nil
		}
	}
	return model.Profile{}, fmt.Errorf("profile %q: %w", id, errs.ErrNotFound)
}

// Default returns the default profile, falling back to the first one.
func (store *ProfileStore) Default() (model.Profile, error) {
	profiles, err := store.List()
	if err != nil {
		return model.Profile{}, err
	}
	if len(profiles) == 0 {
		return model.Profile{}, fmt.Errorf("no profiles: %w", errs.ErrNotFound)
	}
	for _, profile := range profiles {
		if profile.IsDefault {
			return profile, nil
		}
	}
	return profiles[0], nil
}

// Save inserts or replaces profile and returns it with its id. At most one
// profile is default: saving a default profile clears the flag on the others.
func (store *ProfileStore) Save(profile model.Profile) (model.Profile, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	if profile.Name == "" {
		return model.Profile{}, errs.InvalidArgument("profile name is empty")
	}
	if profile.WorkSec <= 0 {
		return model.Profile{}, errs.InvalidArgument("work duration must be positive, got %d", profile.WorkSec)
	}
	if profile.BreakSec < 0 {
		return model.Profile{}, errs.InvalidArgument("break duration must not be negative, got %d", profile.BreakSec)
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}

	if _, err := store.List(); err != nil {
		return model.Profile{}, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	next := make([]model.Profile, 0, len(store.profiles)+1)
	replaced := false
	for _, existing := range store.profiles {
		if existing.ID == profile.ID {
			next = append(next, profile)
			replaced = true
			continue
		}
		if profile.IsDefault {
			existing.IsDefault = false
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, profile)
	}

	if err := store.saveLocked(next); err != nil {
		return model.Profile{}, err
	}
	store.profiles = next
	return profile, nil
}

// Delete removes the profile with id. Unknown ids are not an error.
func (store *ProfileStore) Delete(id string) error {
	if _, err := store.List(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	next := make([]model.Profile, 0, len(store.profiles))
	for _, existing := range store.profiles {
		if existing.ID != id {
			next = append(next, existing)
		}
	}
	if err := store.saveLocked(next); err != nil {
		return err
	}
	store.profiles = next
	return nil
}

func (store *ProfileStore) saveLocked(profiles []model.Profile) error {
	if err := saveYAML(store.path, profilesFile{Profiles: profiles}); err != nil {
		return errs.Persistence("save profiles", err)
	}
	return nil
}

func (store *ProfileStore) copyLocked() []model.Profile {
	return append([]model.Profile(nil), store.profiles...)
}
