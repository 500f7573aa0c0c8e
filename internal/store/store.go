// Package store persists matches, the pairing slot, scores and arena
// settings. Every mutation is a single serialized step: the Redis store uses
// WATCH/MULTI, the memory store a mutex.
package store

import (
	"context"

	"github.com/vladiouz/on-chain-chess/internal/match"
)

// Settings are the arena-wide switches.
type Settings struct {
	Paused bool        `json:"paused"`
	Stake  match.Stake `json:"stake"`
	// StakeSet is false until the owner fixes the stake terms.
	StakeSet bool `json:"stake_set"`
}

// JoinResult is what a join did to the pairing slot.
type JoinResult struct {
	// Match is set when the join paired two players.
	Match *match.Match
}

func (r JoinResult) Waiting() bool { return r.Match == nil }

// UpdateFunc mutates a match in place. Returning an error aborts the update.
type UpdateFunc func(m *match.Match) (match.Effects, error)

// UnsettledPayout is a transfer the escrow failed to perform.
type UnsettledPayout struct {
	Key     string       `json:"key"`
	MatchID uint64       `json:"match_id,omitempty"`
	Payout  match.Payout `json:"payout"`
	Reason  string       `json:"reason"`
}

type Store interface {
	// Join offers player to the pairing slot. When it pairs two players the
	// next match id is allocated and the match saved in the same step.
	Join(ctx context.Context, player string, stake match.Stake, now uint64) (JoinResult, error)
	Withdraw(ctx context.Context, player string) error
	Waiting(ctx context.Context) (string, error)

	Match(ctx context.Context, id uint64) (*match.Match, error)
	// UpdateMatch applies fn and commits the match with the score deltas of
	// the returned effects.
	UpdateMatch(ctx context.Context, id uint64, fn UpdateFunc) (*match.Match, match.Effects, error)
	MatchesOf(ctx context.Context, player string) ([]uint64, error)
	Score(ctx context.Context, player string) (int64, error)

	Settings(ctx context.Context) (Settings, error)
	// SeedSettings writes s only for fields never written before.
	SeedSettings(ctx context.Context, s Settings) error
	SetPaused(ctx context.Context, paused bool) error
	// SetStakeIfEmpty fixes the stake terms once; later calls report false.
	SetStakeIfEmpty(ctx context.Context, stake match.Stake) (bool, error)

	// AddUnsettled records p keyed by p.Key, replacing an earlier entry.
	AddUnsettled(ctx context.Context, p UnsettledPayout) error
	// Unsettled lists recorded payouts ordered by key without removing them.
	Unsettled(ctx context.Context) ([]UnsettledPayout, error)
	// SettleUnsettled drops the entry for key once its payout went through.
	SettleUnsettled(ctx context.Context, key string) error

	Close() error
}
