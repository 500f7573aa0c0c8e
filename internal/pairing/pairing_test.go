package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladiouz/on-chain-chess/internal/apperr"
)

func TestJoinPairsTwoDistinctPlayers(t *testing.T) {
	var s Slot
	s, p, err := s.Join("alice")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, "alice", s.Waiting)

	s, p, err = s.Join("bob")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, Pairing{White: "alice", Black: "bob"}, *p)
	assert.True(t, s.Empty())
}

func TestJoinRejectsSelfPairing(t *testing.T) {
	s := Slot{Waiting: "alice"}
	next, p, err := s.Join("alice")
	assert.ErrorIs(t, err, apperr.ErrSelfPairing)
	assert.Nil(t, p)
	assert.Equal(t, s, next)
}

func TestJoinRejectsBlankIdentity(t *testing.T) {
	_, _, err := Slot{}.Join("  ")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestWithdraw(t *testing.T) {
	s := Slot{Waiting: "alice"}
	_, err := s.Withdraw("bob")
	assert.ErrorIs(t, err, apperr.ErrNotWaiting)
	_, err = Slot{}.Withdraw("alice")
	assert.ErrorIs(t, err, apperr.ErrNotWaiting)

	next, err := s.Withdraw("alice")
	require.NoError(t, err)
	assert.True(t, next.Empty())
}
