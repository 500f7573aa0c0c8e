package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := IllegalMove("path_blocked")
	assert.True(t, errors.Is(err, ErrIllegalMove))
	assert.False(t, errors.Is(err, ErrNotYourTurn))

	wrapped := fmt.Errorf("move 3: %w", err)
	assert.True(t, errors.Is(wrapped, ErrIllegalMove))
	assert.Equal(t, CodeIllegalMove, CodeOf(wrapped))
	assert.Equal(t, "path_blocked", ReasonOf(wrapped))
}

func TestCodeOfForeignError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
	assert.Equal(t, "", ReasonOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("redis down")
	err := Wrap(CodeConflict, "save match", cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "redis down")
}
