package board

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "white", "w":
		*c = White
	case "black", "b":
		*c = Black
	default:
		return fmt.Errorf("unknown color %q", string(b))
	}
	return nil
}

// Forward is the rank delta of a pawn step for c.
// Rank index 0 is Black's back rank, so White advances toward lower indices.
func Forward(c Color) int {
	if c == White {
		return -1
	}
	return 1
}

// HomeRank is the rank index pawns of c start on.
func HomeRank(c Color) int {
	if c == White {
		return 6
	}
	return 1
}

// LastRank is the rank index where pawns of c promote.
func LastRank(c Color) int {
	if c == White {
		return 0
	}
	return 7
}

type PieceType uint8

const (
	None PieceType = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

var pieceLetters = [...]byte{None: '.', King: 'K', Queen: 'Q', Rook: 'R', Bishop: 'B', Knight: 'N', Pawn: 'P'}

func (t PieceType) String() string {
	switch t {
	case King:
		return "king"
	case Queen:
		return "queen"
	case Rook:
		return "rook"
	case Bishop:
		return "bishop"
	case Knight:
		return "knight"
	case Pawn:
		return "pawn"
	default:
		return "none"
	}
}

// Piece is a colored piece. The zero value is an empty cell.
type Piece struct {
	Type  PieceType
	Color Color
}

// Empty is the content of an unoccupied cell.
var Empty = Piece{}

func (p Piece) IsEmpty() bool { return p.Type == None }

// Is reports whether p is a piece of type t owned by c.
func (p Piece) Is(t PieceType, c Color) bool { return p.Type == t && p.Color == c }

// Letter returns the FEN letter of p, upper case for White, or '.' when empty.
func (p Piece) Letter() byte {
	if p.IsEmpty() || int(p.Type) >= len(pieceLetters) {
		return '.'
	}
	l := pieceLetters[p.Type]
	if p.Color == Black {
		l += 'a' - 'A'
	}
	return l
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "empty"
	}
	return p.Color.String() + " " + p.Type.String()
}

// EmptyCode is the stored code for an unoccupied cell.
const EmptyCode uint8 = 6

// Code returns the stored cell code: White king..pawn are 0..5,
// empty is 6, Black king..pawn are 7..12.
func (p Piece) Code() uint8 {
	if p.IsEmpty() {
		return EmptyCode
	}
	return uint8(p.Type-1) + 7*uint8(p.Color)
}

// PieceFromCode decodes a stored cell code.
func PieceFromCode(code uint8) (Piece, error) {
	switch {
	case code == EmptyCode:
		return Empty, nil
	case code > 12:
		return Empty, fmt.Errorf("invalid piece code %d", code)
	}
	return Piece{Type: PieceType(code%7 + 1), Color: Color(code / 7)}, nil
}
