package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/vladiouz/on-chain-chess/internal/board"
)

// Silhouettes on a 45x45 canvas.
var silhouettes = map[board.PieceType]string{
	board.Pawn: `<circle cx="22.5" cy="14" r="5"/>
<polygon points="15,36 30,36 26,21 19,21"/>
<rect x="11" y="35" width="23" height="4"/>`,
	board.Rook: `<polygon points="12,9 16,9 16,12 20,12 20,9 25,9 25,12 29,12 29,9 33,9 33,16 29,19 29,32 16,32 16,19 12,16"/>
<rect x="10" y="33" width="25" height="5"/>`,
	board.Knight: `<polygon points="14,38 33,38 31,20 25,8 21,11 12,20 14,25 20,22 15,31"/>
<circle cx="21" cy="15" r="1.2"/>`,
	board.Bishop: `<circle cx="22.5" cy="8" r="2.5"/>
<polygon points="22.5,11 30,21 27,32 18,32 15,21"/>
<rect x="12" y="33" width="21" height="5"/>`,
	board.Queen: `<polygon points="9,13 14,30 31,30 36,13 29,23 27,9 22.5,22 18,9 16,23"/>
<circle cx="9" cy="12" r="2"/><circle cx="18" cy="8" r="2"/><circle cx="27" cy="8" r="2"/><circle cx="36" cy="12" r="2"/>
<rect x="12" y="31" width="21" height="6"/>`,
	board.King: `<rect x="21" y="3" width="3" height="11"/>
<rect x="17.5" y="6" width="10" height="3"/>
<polygon points="11,17 34,17 30,32 15,32"/>
<rect x="12" y="33" width="21" height="5"/>`,
}

type pieceKey struct {
	piece board.Piece
	size  int
}

var (
	pieceCache   = map[pieceKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceSVG(p board.Piece) (string, error) {
	shape, ok := silhouettes[p.Type]
	if !ok {
		return "", fmt.Errorf("no silhouette for %s", p)
	}
	fill, stroke := "#ffffff", "#1b1b1b"
	if p.Color == board.Black {
		fill, stroke = "#1b1b1b", "#f0f0f0"
	}
	attrs := fmt.Sprintf(` fill="%s" stroke="%s" stroke-width="1.5"/>`, fill, stroke)
	body := strings.ReplaceAll(shape, "/>", attrs)
	return `<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45">` + body + `</svg>`, nil
}

func pieceImage(p board.Piece, size int) (image.Image, error) {
	key := pieceKey{piece: p, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	src, err := pieceSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
