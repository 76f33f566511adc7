package errs

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrappersKeepKindAndCause(t *testing.T) {
	err := AudioSource("/missing.mp3", os.ErrNotExist)
	assert.ErrorIs(t, err, ErrAudioSource)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "/missing.mp3")

	err = Persistence("save snapshot", os.ErrPermission)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, os.ErrPermission)

	assert.ErrorIs(t, InvalidState("pause while %s", "idle"), ErrInvalidState)
	assert.False(t, errors.Is(InvalidArgument("total %d", 0), ErrInvalidState))
	assert.ErrorIs(t, AudioSource("/empty", nil), ErrAudioSource)
}
