// Package match is the state machine of a single wagered match. Every
// operation validates first and mutates only on success, so a rejected call
// leaves the match untouched.
package match

import (
	"github.com/vladiouz/on-chain-chess/internal/apperr"
	"github.com/vladiouz/on-chain-chess/internal/board"
	"github.com/vladiouz/on-chain-chess/internal/rules"
)

type Match struct {
	ID            uint64      `json:"id"`
	White         string      `json:"white"`
	Black         string      `json:"black"`
	Turn          board.Color `json:"turn"`
	LastMoveEpoch uint64      `json:"last_move_epoch"`
	CreatedEpoch  uint64      `json:"created_epoch"`
	State         State       `json:"state"`
	// DrawOffer is the player with a pending draw offer, if any.
	DrawOffer   string      `json:"draw_offer,omitempty"`
	Board       board.Board `json:"board"`
	Stake       Stake       `json:"stake"`
	Moves       int         `json:"moves"`
	LastMove    *Move       `json:"last_move,omitempty"`
	Winner      string      `json:"winner,omitempty"`
	Termination Termination `json:"termination,omitempty"`
}

// New creates a match in the starting position with White to move.
func New(id uint64, white, black string, stake Stake, now uint64) *Match {
	return &Match{
		ID:            id,
		White:         white,
		Black:         black,
		Turn:          board.White,
		LastMoveEpoch: now,
		CreatedEpoch:  now,
		State:         Ongoing,
		Board:         board.StartPosition(),
		Stake:         stake,
	}
}

// Clone returns a deep copy.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	if m.LastMove != nil {
		lm := *m.LastMove
		c.LastMove = &lm
	}
	return &c
}

// ColorOf returns the side player plays, if any.
func (m *Match) ColorOf(player string) (board.Color, bool) {
	switch player {
	case "":
		return board.White, false
	case m.White:
		return board.White, true
	case m.Black:
		return board.Black, true
	}
	return board.White, false
}

// PlayerOf returns the identity playing c.
func (m *Match) PlayerOf(c board.Color) string {
	if c == board.Black {
		return m.Black
	}
	return m.White
}

func (m *Match) ToMove() string { return m.PlayerOf(m.Turn) }

// Deadline is the last epoch at which the side to move may still move.
func (m *Match) Deadline(r Rules) uint64 { return m.LastMoveEpoch + r.grace() }

func (m *Match) participant(player string) (board.Color, error) {
	if m.State.Terminal() {
		return board.White, apperr.ErrMatchNotOngoing
	}
	c, ok := m.ColorOf(player)
	if !ok {
		return board.White, apperr.ErrNotAParticipant
	}
	return c, nil
}

// Move plays from->to for player at epoch now.
func (m *Match) Move(player string, from, to board.Square, now uint64, r Rules) error {
	c, err := m.participant(player)
	if err != nil {
		return err
	}
	if c != m.Turn {
		return apperr.ErrNotYourTurn
	}
	if now > m.Deadline(r) {
		return apperr.ErrDeadlineExpired
	}
	if err := rules.Validate(m.Board, c, from, to); err != nil {
		return err
	}

	m.Board = m.Board.Apply(from, to, r.Promotion)
	m.Turn = m.Turn.Opponent()
	if now > m.LastMoveEpoch {
		m.LastMoveEpoch = now
	}
	m.Moves++
	m.LastMove = &Move{From: from, To: to}
	return nil
}

// OfferOrAcceptDraw records an offer, or accepts the other player's pending one.
func (m *Match) OfferOrAcceptDraw(player string) (DrawResult, Effects, error) {
	if _, err := m.participant(player); err != nil {
		return "", Effects{}, err
	}
	switch m.DrawOffer {
	case "":
		m.DrawOffer = player
		return DrawOffered, Effects{}, nil
	case player:
		return DrawAlreadyOffered, Effects{}, nil
	}

	m.DrawOffer = ""
	m.State = Draw
	m.Termination = ByDrawAgreement
	eff := Effects{
		Scores: []ScoreDelta{{Player: m.White, Points: DrawPoints}, {Player: m.Black, Points: DrawPoints}},
	}
	if m.Stake.Amount > 0 {
		eff.Payouts = []Payout{
			{Player: m.White, Amount: m.Stake.Amount, Token: m.Stake.Token},
			{Player: m.Black, Amount: m.Stake.Amount, Token: m.Stake.Token},
		}
	}
	return DrawAccepted, eff, nil
}

// ClaimIllegalMove lets the side to move win when the previous mover left
// its own king attacked.
func (m *Match) ClaimIllegalMove(claimant string) (Effects, error) {
	c, err := m.participant(claimant)
	if err != nil {
		return Effects{}, err
	}
	if c != m.Turn {
		return Effects{}, apperr.ErrNotYourTurn
	}
	if !rules.InCheck(m.Board, c.Opponent()) {
		return Effects{}, apperr.ErrKingNotInCheck
	}
	return m.win(c, ByIllegalMove), nil
}

// ClaimInactivity lets the side not to move win once the deadline has passed.
func (m *Match) ClaimInactivity(claimant string, now uint64, r Rules) (Effects, error) {
	c, err := m.participant(claimant)
	if err != nil {
		return Effects{}, err
	}
	if c == m.Turn {
		return Effects{}, apperr.ErrNotYourTurn
	}
	if now <= m.Deadline(r) {
		return Effects{}, apperr.ErrDeadlineNotYetExpired
	}
	return m.win(c, ByInactivity), nil
}

// Resign hands the win to the other participant.
func (m *Match) Resign(player string) (Effects, error) {
	c, err := m.participant(player)
	if err != nil {
		return Effects{}, err
	}
	return m.win(c.Opponent(), ByResignation), nil
}

func (m *Match) win(c board.Color, how Termination) Effects {
	if c == board.White {
		m.State = WhiteWon
	} else {
		m.State = BlackWon
	}
	m.Winner = m.PlayerOf(c)
	m.Termination = how
	m.DrawOffer = ""

	eff := Effects{Scores: []ScoreDelta{{Player: m.Winner, Points: WinPoints}}}
	if m.Stake.Amount > 0 {
		eff.Payouts = []Payout{{Player: m.Winner, Amount: 2 * m.Stake.Amount, Token: m.Stake.Token}}
	}
	return eff
}
