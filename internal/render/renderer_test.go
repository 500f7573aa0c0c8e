package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladiouz/on-chain-chess/internal/board"
	"github.com/vladiouz/on-chain-chess/internal/match"
)

func decode(t *testing.T, raw []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func rgba(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func TestRenderStartPosition(t *testing.T) {
	r := New(WithSquareSize(32))
	m := match.New(3, "alice", "bob", match.Stake{}, 0)

	raw, err := r.RenderPNG(context.Background(), m)
	require.NoError(t, err)
	img := decode(t, raw)

	w, h := r.Size()
	assert.Equal(t, image.Rect(0, 0, w, h), img.Bounds())

	// empty squares keep their plain fill
	for _, name := range []string{"a4", "b4", "e5"} {
		sq := board.MustSquare(name)
		rect := r.squareRect(sq)
		assert.Equal(t, SquareColor(sq), rgba(img.At(rect.Min.X+1, rect.Min.Y+1)), name)
	}
	assert.Equal(t, darkSquare, SquareColor(board.MustSquare("a1")))
	assert.Equal(t, lightSquare, SquareColor(board.MustSquare("h1")))

	// a piece covers the center of its square
	e1 := r.squareRect(board.MustSquare("e1"))
	center := rgba(img.At(e1.Min.X+e1.Dx()/2, e1.Min.Y+e1.Dy()/2))
	assert.NotEqual(t, SquareColor(board.MustSquare("e1")), center)
}

func TestRenderHighlightsWhiteMove(t *testing.T) {
	r := New(WithSquareSize(32))
	m := match.New(3, "alice", "bob", match.Stake{}, 0)
	require.NoError(t, m.Move("alice", board.MustSquare("e2"), board.MustSquare("e4"), 0, match.DefaultRules()))

	raw, err := r.RenderPNG(context.Background(), m)
	require.NoError(t, err)
	img := decode(t, raw)

	e2 := board.MustSquare("e2")
	rect := r.squareRect(e2)
	assert.NotEqual(t, SquareColor(e2), rgba(img.At(rect.Min.X+1, rect.Min.Y+1)))
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().RenderPNG(ctx, match.New(1, "a", "b", match.Stake{}, 0))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = New().RenderPNG(context.Background(), nil)
	assert.Error(t, err)
}

func TestPieceSVGParses(t *testing.T) {
	for _, c := range []board.Color{board.White, board.Black} {
		for _, pt := range []board.PieceType{board.King, board.Queen, board.Rook, board.Bishop, board.Knight, board.Pawn} {
			_, err := pieceImage(board.Piece{Type: pt, Color: c}, 24)
			require.NoError(t, err, "%s %s", c, pt)
		}
	}
	_, err := pieceSVG(board.Empty)
	assert.Error(t, err)
}

func TestHeadline(t *testing.T) {
	m := match.New(9, "alice", "bob", match.Stake{}, 0)
	assert.Equal(t, "#9  alice vs bob  |  alice to move", headline(m))
	_, err := m.Resign("bob")
	require.NoError(t, err)
	assert.Contains(t, headline(m), m.State.String())
}
