package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrOffBoard = errors.New("square off board")

// Square is a (file, rank) coordinate. File 0 is the a-file and rank 0 is
// Black's back rank (rank "8" in algebraic notation).
type Square struct {
	File int
	Rank int
}

// NewSquare returns the square at (file, rank) or ErrOffBoard.
func NewSquare(file, rank int) (Square, error) {
	s := Square{File: file, Rank: rank}
	if !s.OnBoard() {
		return Square{}, fmt.Errorf("%w: file=%d rank=%d", ErrOffBoard, file, rank)
	}
	return s, nil
}

// FromIndex converts a flat cell index (rank*8 + file).
func FromIndex(i int) (Square, error) {
	if i < 0 || i >= Size {
		return Square{}, fmt.Errorf("%w: index=%d", ErrOffBoard, i)
	}
	return Square{File: i % 8, Rank: i / 8}, nil
}

// MustSquare parses an algebraic square and panics on bad input. Test and table helper.
func MustSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}

func (s Square) OnBoard() bool {
	return s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8
}

// Index is the flat cell index. Only meaningful when OnBoard.
func (s Square) Index() int { return s.Rank*8 + s.File }

// Offset returns the square shifted by (df, dr) and whether it is still on the board.
func (s Square) Offset(df, dr int) (Square, bool) {
	n := Square{File: s.File + df, Rank: s.Rank + dr}
	return n, n.OnBoard()
}

// String renders algebraic notation ("e2"); off-board squares render as "-".
func (s Square) String() string {
	if !s.OnBoard() {
		return "-"
	}
	return string([]byte{byte('a' + s.File), byte('8' - s.Rank)})
}

func (s Square) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Square) UnmarshalText(b []byte) error {
	sq, err := ParseSquare(string(b))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}

// ParseSquare accepts algebraic notation ("e2") or a flat index ("52").
func ParseSquare(raw string) (Square, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return Square{}, fmt.Errorf("empty square")
	}
	if n, err := strconv.Atoi(v); err == nil {
		return FromIndex(n)
	}
	if len(v) != 2 || v[0] < 'a' || v[0] > 'h' || v[1] < '1' || v[1] > '8' {
		return Square{}, fmt.Errorf("invalid square %q", raw)
	}
	return Square{File: int(v[0] - 'a'), Rank: int('8' - v[1])}, nil
}
