// Package pairing is the single-slot matchmaking queue. Slot values are pure;
// stores apply them under their own compare-and-set.
package pairing

import (
	"strings"

	"github.com/vladiouz/on-chain-chess/internal/apperr"
)

// Slot holds at most one waiting player.
type Slot struct {
	Waiting string `json:"waiting,omitempty"`
}

func (s Slot) Empty() bool { return s.Waiting == "" }

// Pairing is produced when a second distinct player joins. The player who
// waited plays White.
type Pairing struct {
	White string
	Black string
}

// Join returns the next slot and, when two players meet, the pairing.
func (s Slot) Join(player string) (Slot, *Pairing, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return s, nil, apperr.ErrInvalidArgument
	}
	switch s.Waiting {
	case "":
		return Slot{Waiting: player}, nil, nil
	case player:
		return s, nil, apperr.ErrSelfPairing
	}
	return Slot{}, &Pairing{White: s.Waiting, Black: player}, nil
}

// Withdraw empties the slot when player is the one waiting.
func (s Slot) Withdraw(player string) (Slot, error) {
	if s.Empty() || s.Waiting != strings.TrimSpace(player) {
		return s, apperr.ErrNotWaiting
	}
	return Slot{}, nil
}
