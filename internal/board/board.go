package board

import (
	"encoding/json"
	"fmt"
	"strings"
)

const Size = 64

// Board is a 64-cell position indexed by Square.Index. It is a value type;
// Apply returns a new board and never mutates the receiver.
type Board [Size]Piece

var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// StartPosition returns the standard initial position.
func StartPosition() Board {
	var b Board
	for f := 0; f < 8; f++ {
		b[f] = Piece{Type: backRank[f], Color: Black}
		b[8+f] = Piece{Type: Pawn, Color: Black}
		b[48+f] = Piece{Type: Pawn, Color: White}
		b[56+f] = Piece{Type: backRank[f], Color: White}
	}
	return b
}

// At returns the piece on s, or Empty when s is off the board.
func (b Board) At(s Square) Piece {
	if !s.OnBoard() {
		return Empty
	}
	return b[s.Index()]
}

// Put returns a copy of b with p placed on s.
func (b Board) Put(s Square, p Piece) Board {
	if s.OnBoard() {
		b[s.Index()] = p
	}
	return b
}

// KingSquare scans for the first king of c.
func (b Board) KingSquare(c Color) (Square, bool) {
	for i, p := range b {
		if p.Is(King, c) {
			return Square{File: i % 8, Rank: i / 8}, true
		}
	}
	return Square{}, false
}

// Count returns the number of occupied cells.
func (b Board) Count() int {
	n := 0
	for _, p := range b {
		if !p.IsEmpty() {
			n++
		}
	}
	return n
}

// PromotionRule decides which piece a pawn becomes on its last rank.
type PromotionRule uint8

const (
	// PromoteLegacy always yields a White queen, whatever the pawn's color.
	// Matches were historically played under this rule.
	PromoteLegacy PromotionRule = iota
	// PromoteOwnColor yields a queen of the mover's color.
	PromoteOwnColor
)

func (r PromotionRule) String() string {
	if r == PromoteOwnColor {
		return "own-color"
	}
	return "legacy"
}

func ParsePromotionRule(s string) (PromotionRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "legacy", "white-queen":
		return PromoteLegacy, nil
	case "own-color", "own", "mover":
		return PromoteOwnColor, nil
	}
	return PromoteLegacy, fmt.Errorf("unknown promotion rule %q", s)
}

// Resolve returns the piece that ends up on to when mover lands there.
func (r PromotionRule) Resolve(mover Piece, to Square) Piece {
	if mover.Type != Pawn || to.Rank != LastRank(mover.Color) {
		return mover
	}
	if r == PromoteOwnColor {
		return Piece{Type: Queen, Color: mover.Color}
	}
	return Piece{Type: Queen, Color: White}
}

// Apply moves the piece on from to to, emptying from. Legality is the
// caller's concern. The destination piece is resolved before anything moves.
func (b Board) Apply(from, to Square, rule PromotionRule) Board {
	if !from.OnBoard() || !to.OnBoard() {
		return b
	}
	placed := rule.Resolve(b[from.Index()], to)
	b[to.Index()] = placed
	b[from.Index()] = Empty
	return b
}

// Codes returns the stored cell codes.
func (b Board) Codes() [Size]uint8 {
	var out [Size]uint8
	for i, p := range b {
		out[i] = p.Code()
	}
	return out
}

// FromCodes decodes 64 stored cell codes.
func FromCodes(codes []uint8) (Board, error) {
	var b Board
	if len(codes) != Size {
		return b, fmt.Errorf("board needs %d cells, got %d", Size, len(codes))
	}
	for i, c := range codes {
		p, err := PieceFromCode(c)
		if err != nil {
			return Board{}, fmt.Errorf("cell %d: %w", i, err)
		}
		b[i] = p
	}
	return b, nil
}

// MarshalJSON encodes the board as its 64 cell codes.
func (b Board) MarshalJSON() ([]byte, error) {
	codes := b.Codes()
	out := make([]int, Size)
	for i, c := range codes {
		out[i] = int(c)
	}
	return json.Marshal(out)
}

func (b *Board) UnmarshalJSON(raw []byte) error {
	var cells []int
	if err := json.Unmarshal(raw, &cells); err != nil {
		return err
	}
	codes := make([]uint8, len(cells))
	for i, c := range cells {
		if c < 0 || c > 255 {
			return fmt.Errorf("cell %d: invalid piece code %d", i, c)
		}
		codes[i] = uint8(c)
	}
	decoded, err := FromCodes(codes)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// String draws the board with rank 8 on top.
func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < 8; r++ {
		sb.WriteByte(byte('8' - r))
		sb.WriteByte(' ')
		for f := 0; f < 8; f++ {
			sb.WriteByte(b[r*8+f].Letter())
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  abcdefgh")
	return sb.String()
}
