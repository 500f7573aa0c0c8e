package match

import (
	"fmt"
	"strings"

	"github.com/vladiouz/on-chain-chess/internal/board"
)

// State is the lifecycle state of a match. Only Ongoing accepts operations.
type State uint8

const (
	Ongoing State = iota
	WhiteWon
	BlackWon
	Draw
)

func (s State) String() string {
	switch s {
	case WhiteWon:
		return "white_won"
	case BlackWon:
		return "black_won"
	case Draw:
		return "draw"
	default:
		return "ongoing"
	}
}

func (s State) Terminal() bool { return s != Ongoing }

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	switch strings.TrimSpace(string(b)) {
	case "ongoing":
		*s = Ongoing
	case "white_won":
		*s = WhiteWon
	case "black_won":
		*s = BlackWon
	case "draw":
		*s = Draw
	default:
		return fmt.Errorf("unknown match state %q", string(b))
	}
	return nil
}

// Termination records how a match left Ongoing.
type Termination string

const (
	ByResignation   Termination = "resignation"
	ByDrawAgreement Termination = "draw_agreement"
	ByIllegalMove   Termination = "illegal_move"
	ByInactivity    Termination = "inactivity"
)

// Stake is the wager each player puts in.
type Stake struct {
	Amount uint64 `json:"amount"`
	Token  string `json:"token"`
}

func (s Stake) IsZero() bool { return s.Amount == 0 && s.Token == "" }

func (s Stake) Equal(o Stake) bool {
	return s.Amount == o.Amount && strings.TrimSpace(s.Token) == strings.TrimSpace(o.Token)
}

// Move is an accepted move.
type Move struct {
	From board.Square `json:"from"`
	To   board.Square `json:"to"`
}

// Payout is a transfer owed to a player after a terminal transition.
type Payout struct {
	Player string `json:"player"`
	Amount uint64 `json:"amount"`
	Token  string `json:"token"`
}

// ScoreDelta is a score increment for a player.
type ScoreDelta struct {
	Player string `json:"player"`
	Points int64  `json:"points"`
}

// Effects are produced by a transition and must be committed with it.
type Effects struct {
	Payouts []Payout
	Scores  []ScoreDelta
}

func (e Effects) Empty() bool { return len(e.Payouts) == 0 && len(e.Scores) == 0 }

// DrawResult tells what offerOrAcceptDraw did.
type DrawResult string

const (
	DrawOffered        DrawResult = "offered"
	DrawAccepted       DrawResult = "accepted"
	DrawAlreadyOffered DrawResult = "already_offered"
)

const (
	// WinPoints is the score credit for a win.
	WinPoints int64 = 2
	// DrawPoints is the score credit each player gets for a draw.
	DrawPoints int64 = 1
)

// Rules are the per-arena knobs applied to every match.
type Rules struct {
	// Grace is how many epochs may pass after the last move before the side
	// to move can no longer move and the other side may claim inactivity.
	Grace     uint64
	Promotion board.PromotionRule
}

func DefaultRules() Rules { return Rules{Grace: 1, Promotion: board.PromoteLegacy} }

func (r Rules) grace() uint64 {
	if r.Grace < 1 {
		return 1
	}
	return r.Grace
}
