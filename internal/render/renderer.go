// Package render draws match positions as PNG images.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/vladiouz/on-chain-chess/internal/board"
	"github.com/vladiouz/on-chain-chess/internal/match"
)

const (
	defaultSquareSize = 64
	sideMargin        = 28
	topMargin         = 56
	bottomMargin      = 28
	panelHeight       = 28
	panelGap          = 12
	panelRadius       = 8
)

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	backgroundColor = color.RGBA{20, 22, 33, 255}
	whiteMoveFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow  = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	panelColor      = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	panelText       = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateText  = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// Renderer draws a board with a header panel, coordinates and the last move.
type Renderer struct {
	squareSize int
	face       font.Face
}

type Option func(*Renderer)

func WithSquareSize(px int) Option {
	return func(r *Renderer) {
		if px >= 16 {
			r.squareSize = px
		}
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{squareSize: defaultSquareSize, face: basicfont.Face7x13}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Size returns the image dimensions produced by RenderPNG.
func (r *Renderer) Size() (int, int) {
	boardSize := r.squareSize * 8
	return boardSize + sideMargin*2, boardSize + topMargin + bottomMargin
}

func (r *Renderer) origin() image.Point { return image.Point{X: sideMargin, Y: topMargin} }

// RenderPNG draws m and encodes it as PNG.
func (r *Renderer) RenderPNG(ctx context.Context, m *match.Match) ([]byte, error) {
	if m == nil {
		return nil, errors.New("render: nil match")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := r.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	r.drawHeader(img, headline(m))
	r.drawSquares(img)
	r.drawLastMove(img, m)
	if err := r.drawPieces(img, m.Board); err != nil {
		return nil, err
	}
	r.drawCoordinates(img)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func headline(m *match.Match) string {
	status := m.ToMove() + " to move"
	if m.State.Terminal() {
		status = m.State.String()
	}
	return fmt.Sprintf("#%d  %s vs %s  |  %s", m.ID, m.White, m.Black, status)
}

func (r *Renderer) squareRect(sq board.Square) image.Rectangle {
	o := r.origin()
	x := o.X + sq.File*r.squareSize
	y := o.Y + sq.Rank*r.squareSize
	return image.Rect(x, y, x+r.squareSize, y+r.squareSize)
}

// SquareColor is the fill of sq; a1 is dark.
func SquareColor(sq board.Square) color.RGBA {
	if (sq.File+sq.Rank)%2 == 0 {
		return lightSquare
	}
	return darkSquare
}

func (r *Renderer) drawSquares(dst *image.RGBA) {
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			sq := board.Square{File: file, Rank: rank}
			imagedraw.Draw(dst, r.squareRect(sq), image.NewUniform(SquareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func (r *Renderer) drawPieces(dst *image.RGBA, b board.Board) error {
	for i, p := range b {
		if p.IsEmpty() {
			continue
		}
		pi, err := pieceImage(p, r.squareSize)
		if err != nil {
			return err
		}
		rect := r.squareRect(board.Square{File: i % 8, Rank: i / 8})
		imagedraw.Draw(dst, rect, pi, image.Point{}, imagedraw.Over)
	}
	return nil
}

// White's last move is shaded; Black's is drawn as an arrow.
func (r *Renderer) drawLastMove(dst *image.RGBA, m *match.Match) {
	if m.LastMove == nil {
		return
	}
	mover := m.Turn.Opponent()
	if mover == board.White {
		for _, sq := range []board.Square{m.LastMove.From, m.LastMove.To} {
			imagedraw.Draw(dst, r.squareRect(sq), image.NewUniform(whiteMoveFill), image.Point{}, imagedraw.Over)
		}
		return
	}
	r.drawArrow(dst, m.LastMove.From, m.LastMove.To, blackMoveArrow)
}

func (r *Renderer) drawHeader(dst *image.RGBA, text string) {
	d := &font.Drawer{Dst: dst, Face: r.face}
	width := 8 * r.squareSize
	rect := image.Rect(sideMargin, topMargin-panelGap-panelHeight, sideMargin+width, topMargin-panelGap)
	drawRoundedPanel(dst, rect, panelRadius, panelColor)
	text = truncate(r.face, text, rect.Dx()-16)
	drawCentered(d, rect, text, panelText)
}

func (r *Renderer) drawCoordinates(dst *image.RGBA) {
	d := &font.Drawer{Dst: dst, Face: r.face, Src: image.NewUniform(coordinateText)}
	ascent := r.face.Metrics().Ascent.Ceil()
	o := r.origin()
	for i := 0; i < 8; i++ {
		rankLabel := string(rune('8' - i))
		y := o.Y + i*r.squareSize + r.squareSize/2 + ascent/2
		drawTextAt(d, rankLabel, o.X-sideMargin/2, y)

		fileLabel := string(rune('a' + i))
		x := o.X + i*r.squareSize + r.squareSize/2
		drawTextAt(d, fileLabel, x, o.Y+8*r.squareSize+ascent+4)
	}
}

func (r *Renderer) drawArrow(img *image.RGBA, from, to board.Square, clr color.Color) {
	if from == to {
		return
	}
	size := float64(r.squareSize)
	fr, tr := r.squareRect(from), r.squareRect(to)
	sx, sy := float64(fr.Min.X)+size/2, float64(fr.Min.Y)+size/2
	ex, ey := float64(tr.Min.X)+size/2, float64(tr.Min.Y)+size/2

	dx, dy := ex-sx, ey-sy
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	shaft := length - size*0.45
	if shaft < size*0.35 {
		shaft = length * 0.6
	}
	half := size * 0.16
	head := size * 0.3
	bx, by := sx+dirX*shaft, sy+dirY*shaft

	fillTriangle(img, pointF{sx - perpX*half, sy - perpY*half}, pointF{sx + perpX*half, sy + perpY*half}, pointF{bx + perpX*half, by + perpY*half}, clr)
	fillTriangle(img, pointF{sx - perpX*half, sy - perpY*half}, pointF{bx + perpX*half, by + perpY*half}, pointF{bx - perpX*half, by - perpY*half}, clr)
	fillTriangle(img, pointF{ex, ey}, pointF{bx - perpX*head, by - perpY*head}, pointF{bx + perpX*head, by + perpY*head}, clr)
}

func truncate(face font.Face, text string, maxWidth int) string {
	text = strings.TrimSpace(text)
	d := font.Drawer{Face: face}
	if text == "" || maxWidth <= 0 || d.MeasureString(text).Round() <= maxWidth {
		return text
	}
	const ellipsis = "..."
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if d.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawCentered(d *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if text == "" {
		return
	}
	m := d.Face.Metrics()
	width := d.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Src = image.NewUniform(clr)
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)
}

func drawTextAt(d *font.Drawer, text string, centerX, baseline int) {
	width := d.MeasureString(text).Round()
	d.Dot = fixed.P(centerX-width/2, baseline)
	d.DrawString(text)
}
