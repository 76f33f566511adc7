package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusplay/internal/core/errs"
	"focusplay/internal/core/model"
)

func TestFirstLoadWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	profiles, err := NewProfileStore(dir).Load()
	require.NoError(t, err)
	assert.Len(t, profiles, len(model.DefaultProfiles()))

	reloaded, err := NewProfileStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, profiles, reloaded)
}

func TestSaveMintsIDAndUpserts(t *testing.T) {
	store := NewProfileStore(t.TempDir())
	saved, err := store.Save(model.Profile{Name: "Reading", WorkSec: 1800})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	saved.Name = "Reading (long)"
	saved.WorkSec = 3600
	_, err = store.Save(saved)
	require.NoError(t, err)

	got, err := store.Get(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reading (long)", got.Name)
	assert.Equal(t, 3600, got.WorkSec)

	profiles, err := store.List()
	require.NoError(t, err)
	assert.Len(t, profiles, len(model.DefaultProfiles())+1)
}

func TestSaveKeepsASingleDefault(t *testing.T) {
	store := NewProfileStore(t.TempDir())
	saved, err := store.Save(model.Profile{Name: "Writing", WorkSec: 600, IsDefault: true})
	require.NoError(t, err)

	profiles, err := store.List()
	require.NoError(t, err)
	defaults := 0
	for _, profile := range profiles {
		if profile.IsDefault {
			defaults++
			assert.Equal(t, saved.ID, profile.ID)
		}
	}
	assert.Equal(t, 1, defaults)

	def, err := store.Default()
	require.NoError(t, err)
	assert.Equal(t, saved.ID, def.ID)
}

func TestSaveValidates(t *testing.T) {
	store := NewProfileStore(t.TempDir())
	cases := []model.Profile{
		{Name: "", WorkSec: 60},
		{Name: "zero", WorkSec: 0},
		{Name: "negative break", WorkSec: 60, BreakSec: -1},
	}
	for _, profile := range cases {
		_, err := store.Save(profile)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument, profile.Name)
	}
}

func TestSaveAcceptsBreakSuffixedID(t *testing.T) {
	store := NewProfileStore(t.TempDir())
	shortBreak, err := store.Get("short-break")
	require.NoError(t, err)

	shortBreak.WorkSec = 10 * 60
	_, err = store.Save(shortBreak)
	require.NoError(t, err)

	got, err := store.Get("short-break")
	require.NoError(t, err)
	assert.Equal(t, 10*60, got.WorkSec)
}

func TestDeleteAndNotFound(t *testing.T) {
	store := NewProfileStore(t.TempDir())
	require.NoError(t, store.Delete("pomodoro"))
	require.NoError(t, store.Delete("unknown"))
	_, err := store.Get("pomodoro")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
