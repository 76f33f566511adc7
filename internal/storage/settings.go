package storage

import (
	"path/filepath"
	"sync"

	"focusplay/internal/core/errs"
	"focusplay/internal/core/model"
)

const settingsFileName = "settings.yaml"

// SettingsStore keeps the singleton settings record.
type SettingsStore struct {
	mu      sync.RWMutex
	path    string
	current model.Settings
}

// NewSettingsStore reads settings from dataDir. A missing file yields defaults;
// an unreadable one yields defaults and the error.
func NewSettingsStore(dataDir string) (*SettingsStore, error) {
	store := &SettingsStore{
		path:    filepath.Join(dataDir, settingsFileName),
		current: model.DefaultSettings(),
	}
	loaded := model.DefaultSettings()
	found, err := loadYAML(store.path, &loaded)
	if err != nil {
		return store, errs.Persistence("load settings", err)
	}
	if found {
		store.current = normalizeSettings(loaded)
	}
	return store, nil
}

// Get returns the current settings.
func (store *SettingsStore) Get() model.Settings {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.current
}

// Save validates and persists settings.
func (store *SettingsStore) Save(settings model.Settings) error {
	if settings.DefaultVolume < 0 || settings.DefaultVolume > 100 {
		return errs.InvalidArgument("default volume %d outside 0-100", settings.DefaultVolume)
	}
	if settings.Theme == "" {
		settings.Theme = model.DefaultSettings().Theme
	}
	if !model.ValidTheme(settings.Theme) {
		return errs.InvalidArgument("unknown theme %q", settings.Theme)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if err := saveYAML(store.path, settings); err != nil {
		return errs.Persistence("save settings", err)
	}
	store.current = settings
	return nil
}

func normalizeSettings(settings model.Settings) model.Settings {
	defaults := model.DefaultSettings()
	if settings.DefaultVolume < 0 || settings.DefaultVolume > 100 {
		settings.DefaultVolume = defaults.DefaultVolume
	}
	if !model.ValidTheme(settings.Theme) {
		settings.Theme = defaults.Theme
	}
	return settings
}
