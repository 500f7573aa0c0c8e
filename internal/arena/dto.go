package arena

import (
	"github.com/vladiouz/on-chain-chess/internal/match"
	"github.com/vladiouz/on-chain-chess/internal/notation"
	"github.com/vladiouz/on-chain-chess/pkg/matchdto"
)

// ToDTO converts m into its wire shape.
func ToDTO(m *match.Match, r match.Rules) *matchdto.Match {
	if m == nil {
		return nil
	}
	codes := m.Board.Codes()
	cells := make([]int, len(codes))
	for i, c := range codes {
		cells[i] = int(c)
	}
	out := &matchdto.Match{
		ID:            m.ID,
		White:         m.White,
		Black:         m.Black,
		Turn:          m.Turn.String(),
		State:         m.State.String(),
		Winner:        m.Winner,
		Termination:   string(m.Termination),
		DrawOffer:     m.DrawOffer,
		Stake:         matchdto.Stake{Amount: m.Stake.Amount, Token: m.Stake.Token},
		Moves:         m.Moves,
		CreatedEpoch:  m.CreatedEpoch,
		LastMoveEpoch: m.LastMoveEpoch,
		Deadline:      m.Deadline(r),
		Board:         cells,
		FEN:           notation.FEN(m),
	}
	if !m.State.Terminal() {
		out.ToMove = m.ToMove()
	}
	if m.LastMove != nil {
		out.LastMove = notation.UCI(*m.LastMove)
	}
	return out
}
