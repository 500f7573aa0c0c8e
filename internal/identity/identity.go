// Package identity resolves the calling player from request credentials.
package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vladiouz/on-chain-chess/internal/apperr"
)

// HeaderPlayerID names the trusted player header accepted when no secret is configured.
const HeaderPlayerID = "X-Player-Id"

// Resolver turns an Authorization header into a player id.
//
// With a secret, only HS256 bearer tokens whose subject is the player id are
// accepted. Without one, the X-Player-Id header is trusted as-is; that mode is
// meant for local play behind a trusted gateway.
type Resolver struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type Option func(*Resolver)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func NewResolver(secret, issuer string, opts ...Option) *Resolver {
	r := &Resolver{
		secret: []byte(strings.TrimSpace(secret)),
		issuer: strings.TrimSpace(issuer),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TokenMode reports whether bearer tokens are required.
func (r *Resolver) TokenMode() bool { return len(r.secret) > 0 }

// Resolve returns the caller's player id.
func (r *Resolver) Resolve(authorization, playerHeader string) (string, error) {
	if !r.TokenMode() {
		player := strings.TrimSpace(playerHeader)
		if player == "" {
			return "", apperr.New(apperr.CodeUnauthenticated, "missing "+HeaderPlayerID)
		}
		return player, nil
	}

	raw, ok := bearer(authorization)
	if !ok {
		return "", apperr.New(apperr.CodeUnauthenticated, "missing bearer token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.now),
		jwt.WithExpirationRequired(),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		return "", mapJWTError(err)
	}
	player := strings.TrimSpace(claims.Subject)
	if player == "" {
		return "", apperr.New(apperr.CodeUnauthenticated, "token has no subject")
	}
	return player, nil
}

// Issue signs a token for player valid for ttl.
func (r *Resolver) Issue(player string, ttl time.Duration) (string, error) {
	if !r.TokenMode() {
		return "", errors.New("identity: no signing secret configured")
	}
	player = strings.TrimSpace(player)
	if player == "" {
		return "", apperr.New(apperr.CodeInvalidArgument, "player is required")
	}
	now := r.now()
	claims := jwt.RegisteredClaims{
		Subject:   player,
		Issuer:    r.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

func bearer(h string) (string, bool) {
	h = strings.TrimSpace(h)
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.Wrap(apperr.CodeUnauthenticated, "token expired", err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return apperr.Wrap(apperr.CodeUnauthenticated, "token issuer mismatch", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperr.Wrap(apperr.CodeUnauthenticated, "token signature is invalid", err)
	}
	return apperr.Wrap(apperr.CodeUnauthenticated, "invalid token", err)
}
