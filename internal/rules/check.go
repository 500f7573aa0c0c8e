package rules

import "github.com/vladiouz/on-chain-chess/internal/board"

var (
	orthogonal = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonal   = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	knightJump = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	adjacent   = [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// InCheck reports whether the king of c is attacked. A side without a king
// is never in check.
func InCheck(b board.Board, c board.Color) bool {
	king, ok := b.KingSquare(c)
	if !ok {
		return false
	}
	return Attacked(b, king, c.Opponent())
}

// Attacked reports whether any piece of color by attacks sq.
func Attacked(b board.Board, sq board.Square, by board.Color) bool {
	for _, d := range orthogonal {
		if p := firstOnRay(b, sq, d); p.Color == by && (p.Type == board.Rook || p.Type == board.Queen) {
			return true
		}
	}
	for _, d := range diagonal {
		if p := firstOnRay(b, sq, d); p.Color == by && (p.Type == board.Bishop || p.Type == board.Queen) {
			return true
		}
	}
	if anyAt(b, sq, knightJump[:], board.Piece{Type: board.Knight, Color: by}) {
		return true
	}
	// A pawn of color by attacks from one rank behind sq in its direction of travel.
	back := -board.Forward(by)
	pawnFrom := [2][2]int{{-1, back}, {1, back}}
	if anyAt(b, sq, pawnFrom[:], board.Piece{Type: board.Pawn, Color: by}) {
		return true
	}
	return anyAt(b, sq, adjacent[:], board.Piece{Type: board.King, Color: by})
}

func firstOnRay(b board.Board, from board.Square, d [2]int) board.Piece {
	cur, ok := from.Offset(d[0], d[1])
	for ok {
		if p := b.At(cur); !p.IsEmpty() {
			return p
		}
		cur, ok = cur.Offset(d[0], d[1])
	}
	return board.Empty
}

func anyAt(b board.Board, from board.Square, offsets [][2]int, want board.Piece) bool {
	for _, d := range offsets {
		if sq, ok := from.Offset(d[0], d[1]); ok && b.At(sq) == want {
			return true
		}
	}
	return false
}
