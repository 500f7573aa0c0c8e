package notation

import (
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladiouz/on-chain-chess/internal/board"
	"github.com/vladiouz/on-chain-chess/internal/match"
)

func TestStartPositionFEN(t *testing.T) {
	m := match.New(1, "a", "b", match.Stake{}, 0)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1", FEN(m))
}

func TestFENAfterMoves(t *testing.T) {
	m := match.New(1, "a", "b", match.Stake{}, 0)
	require.NoError(t, m.Move("a", board.MustSquare("e2"), board.MustSquare("e4"), 0, match.DefaultRules()))
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b - - 0 1", FEN(m))

	require.NoError(t, m.Move("b", board.MustSquare("g8"), board.MustSquare("f6"), 0, match.DefaultRules()))
	fen := FEN(m)
	assert.Equal(t, "rnbqkb1r/pppppppp/5n2/8/4P3/8/PPPP1PPP/RNBQKBNR w - - 0 2", fen)

	opt, err := nchess.FEN(fen)
	require.NoError(t, err)
	game := nchess.NewGame(opt)
	pos := game.Position()
	assert.Equal(t, nchess.White, pos.Turn())
	assert.Equal(t, nchess.BlackKnight, pos.Board().Piece(Square(board.MustSquare("f6"))))
	assert.Equal(t, nchess.WhitePawn, pos.Board().Piece(Square(board.MustSquare("e4"))))
}

func TestSquareMapping(t *testing.T) {
	assert.Equal(t, nchess.A8, Square(board.MustSquare("a8")))
	assert.Equal(t, nchess.H1, Square(board.MustSquare("h1")))
	assert.Equal(t, nchess.E4, Square(board.MustSquare("e4")))
}

func TestUCI(t *testing.T) {
	mv := match.Move{From: board.MustSquare("e7"), To: board.MustSquare("e8")}
	assert.Equal(t, "e7e8", UCI(mv))
}
