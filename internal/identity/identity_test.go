package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladiouz/on-chain-chess/internal/apperr"
)

func TestHeaderMode(t *testing.T) {
	r := NewResolver("", "")
	assert.False(t, r.TokenMode())

	p, err := r.Resolve("", " alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", p)

	_, err = r.Resolve("Bearer x", "")
	assert.True(t, errors.Is(err, apperr.ErrUnauthenticated))

	_, err = r.Issue("alice", time.Hour)
	assert.Error(t, err)
}

func TestIssueAndResolve(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewResolver("s3cret", "arena", WithClock(func() time.Time { return now }))

	tok, err := r.Issue("bob", time.Hour)
	require.NoError(t, err)

	p, err := r.Resolve("Bearer "+tok, "mallory")
	require.NoError(t, err)
	assert.Equal(t, "bob", p, "header must be ignored in token mode")

	p, err = r.Resolve("bearer "+tok, "")
	require.NoError(t, err)
	assert.Equal(t, "bob", p)
}

func TestResolveRejects(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewResolver("s3cret", "arena", WithClock(func() time.Time { return now }))

	_, err := r.Resolve("", "alice")
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))

	other := NewResolver("other", "arena", WithClock(func() time.Time { return now }))
	forged, err := other.Issue("bob", time.Hour)
	require.NoError(t, err)
	_, err = r.Resolve("Bearer "+forged, "")
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))

	wrongIss := NewResolver("s3cret", "elsewhere", WithClock(func() time.Time { return now }))
	tok, err := wrongIss.Issue("bob", time.Hour)
	require.NoError(t, err)
	_, err = r.Resolve("Bearer "+tok, "")
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
	assert.True(t, errors.Is(err, jwt.ErrTokenInvalidIssuer))

	stale, err := r.Issue("bob", -time.Minute)
	require.NoError(t, err)
	_, err = r.Resolve("Bearer "+stale, "")
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "arena",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = r.Resolve("Bearer "+noSub, "")
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
}
