// Package escrow moves stakes between players and the arena.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vladiouz/on-chain-chess/internal/match"
)

// Escrow collects stakes and pays them out. Every call carries an
// idempotency key; repeating a key must not move funds twice.
type Escrow interface {
	Collect(ctx context.Context, player string, stake match.Stake, key string) error
	Payout(ctx context.Context, p match.Payout, key string) error
}

var keyNamespace = uuid.MustParse("4b0f6b3c-2f0e-4f7c-9a55-5d8e0c7f2a11")

// PayoutKey derives a stable idempotency key for the n-th payout of a match,
// so re-driving a failed payout reuses the original key.
func PayoutKey(matchID uint64, player string, n int) string {
	return uuid.NewSHA1(keyNamespace, []byte(fmt.Sprintf("payout/%d/%s/%d", matchID, player, n))).String()
}

// NewKey returns a fresh random idempotency key.
func NewKey() string { return uuid.NewString() }

// Transfer is one movement recorded by Memory.
type Transfer struct {
	Key    string
	Player string
	Amount uint64
	Token  string
	// In is true for a collected stake and false for a payout.
	In bool
}

// Memory is an in-process escrow keeping per-player balances. Collect
// fails with ErrInsufficientFunds when a player cannot cover the stake.
type Memory struct {
	mu        sync.Mutex
	balances  map[string]map[string]uint64
	seen      map[string]bool
	transfers []Transfer
	// Unlimited skips balance checks on Collect.
	Unlimited bool
}

var ErrInsufficientFunds = fmt.Errorf("insufficient funds")

// Ambiguous reports whether a failed transfer may still have been applied by
// the service: transport failures and 5xx answers. A refused transfer (any
// 4xx, or ErrInsufficientFunds) moved nothing.
func Ambiguous(err error) bool {
	if err == nil || errors.Is(err, ErrInsufficientFunds) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return true
}

func NewMemory() *Memory {
	return &Memory{balances: make(map[string]map[string]uint64), seen: make(map[string]bool)}
}

// Credit gives player funds to stake with.
func (m *Memory) Credit(player, token string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(player, token, amount)
}

func (m *Memory) credit(player, token string, amount uint64) {
	b := m.balances[player]
	if b == nil {
		b = make(map[string]uint64)
		m.balances[player] = b
	}
	b[strings.TrimSpace(token)] += amount
}

func (m *Memory) Balance(player, token string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[player][strings.TrimSpace(token)]
}

func (m *Memory) Transfers() []Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transfer(nil), m.transfers...)
}

func (m *Memory) Collect(_ context.Context, player string, stake match.Stake, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return nil
	}
	token := strings.TrimSpace(stake.Token)
	if !m.Unlimited && stake.Amount > 0 {
		have := m.balances[player][token]
		if have < stake.Amount {
			return fmt.Errorf("%w: %s has %d %s", ErrInsufficientFunds, player, have, token)
		}
		m.balances[player][token] = have - stake.Amount
	}
	m.seen[key] = true
	m.transfers = append(m.transfers, Transfer{Key: key, Player: player, Amount: stake.Amount, Token: token, In: true})
	return nil
}

func (m *Memory) Payout(_ context.Context, p match.Payout, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return nil
	}
	m.credit(p.Player, p.Token, p.Amount)
	m.seen[key] = true
	m.transfers = append(m.transfers, Transfer{Key: key, Player: p.Player, Amount: p.Amount, Token: strings.TrimSpace(p.Token)})
	return nil
}
