package render

import (
	"image"
	"image/color"
	imagedraw "image/draw"
	"math"
)

type pointF struct {
	X, Y float64
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	if r := min(rect.Dx(), rect.Dy()) / 2; radius > r {
		radius = r
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	// cross of two rectangles, then the four corner discs
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	for _, c := range []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	} {
		drawQuarterDisc(img, c, radius, rect, clr)
	}
}

// drawQuarterDisc fills the disc at center, clipped to the corner region outside the cross.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, rect image.Rectangle, clr color.Color) {
	inner := image.Rect(rect.Min.X+radius, rect.Min.Y+radius, rect.Max.X-radius, rect.Max.Y-radius)
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > r2 {
				continue
			}
			p := image.Point{X: center.X + x, Y: center.Y + y}
			if !p.In(rect) {
				continue
			}
			if p.X >= inner.Min.X && p.X < inner.Max.X || p.Y >= inner.Min.Y && p.Y < inner.Max.Y {
				continue
			}
			blendPixel(img, p.X, p.Y, clr)
		}
	}
}

func fillTriangle(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if inTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func inTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	return alpha >= 0 && beta >= 0 && 1-alpha-beta >= 0
}

// blendPixel composites clr over the pixel at (x, y) using source-over.
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	d := img.RGBAAt(x, y)
	inv := 0xffff - sa
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(d.R)*0x101*inv/0xffff) >> 8),
		G: uint8((sg + uint32(d.G)*0x101*inv/0xffff) >> 8),
		B: uint8((sb + uint32(d.B)*0x101*inv/0xffff) >> 8),
		A: uint8((sa + uint32(d.A)*0x101*inv/0xffff) >> 8),
	})
}
