// Package notation exports arena positions in standard chess notations.
package notation

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"

	"github.com/vladiouz/on-chain-chess/internal/board"
	"github.com/vladiouz/on-chain-chess/internal/match"
)

// BoardFEN returns the piece-placement field of b.
func BoardFEN(b board.Board) string {
	return toLib(b).String()
}

// FEN renders the match position. Castling and en passant never exist in the
// arena rules, so those fields are always "-".
func FEN(m *match.Match) string {
	side := "w"
	if m.Turn == board.Black {
		side = "b"
	}
	return fmt.Sprintf("%s %s - - 0 %d", BoardFEN(m.Board), side, m.Moves/2+1)
}

// UCI renders a move in coordinate notation, e.g. "e2e4".
func UCI(mv match.Move) string {
	return mv.From.String() + mv.To.String()
}

// Square converts an arena square to the library square.
func Square(sq board.Square) nchess.Square {
	return nchess.NewSquare(nchess.File(sq.File), nchess.Rank(7-sq.Rank))
}

func toLib(b board.Board) *nchess.Board {
	m := make(map[nchess.Square]nchess.Piece, 32)
	for i := 0; i < board.Size; i++ {
		p := b[i]
		if p.IsEmpty() {
			continue
		}
		m[Square(board.Square{File: i % 8, Rank: i / 8})] = nchess.NewPiece(libType(p.Type), libColor(p.Color))
	}
	return nchess.NewBoard(m)
}

func libColor(c board.Color) nchess.Color {
	if c == board.Black {
		return nchess.Black
	}
	return nchess.White
}

func libType(t board.PieceType) nchess.PieceType {
	switch t {
	case board.King:
		return nchess.King
	case board.Queen:
		return nchess.Queen
	case board.Rook:
		return nchess.Rook
	case board.Bishop:
		return nchess.Bishop
	case board.Knight:
		return nchess.Knight
	case board.Pawn:
		return nchess.Pawn
	}
	return nchess.NoPieceType
}
