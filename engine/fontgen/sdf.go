package fontgen

import (
	"fmt"
	"image"
	"image/draw"
	gomath "math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/spaghettifunk/lavoro/engine/core"
	"github.com/spaghettifunk/lavoro/engine/math"
)

// rasterizeGlyph renders one glyph to a coverage mask and converts it to a
// signed distance field. Runs on worker goroutines; a face is built per
// call because font.Face is not safe for concurrent use.
func (g *Generator) rasterizeGlyph(r rune) (*Glyph, error) {
	f := g.activeFont()
	if f == nil {
		return nil, core.ErrNotInitialized
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(g.size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	defer face.Close()

	dr, mask, maskp, advance, ok := face.Glyph(fixed.P(0, 0), r)
	if !ok {
		return nil, fmt.Errorf("fontgen: font has no glyph for %q", r)
	}

	pad := g.padding
	w := dr.Dx() + 2*pad
	h := dr.Dy() + 2*pad

	cov := image.NewGray(image.Rect(0, 0, w, h))
	draw.DrawMask(cov, image.Rect(pad, pad, w-pad, h-pad), image.White, image.Point{}, mask, maskp, draw.Over)

	return &Glyph{
		Rune:     r,
		Width:    w,
		Height:   h,
		BearingX: dr.Min.X - pad,
		BearingY: -dr.Min.Y + pad,
		Advance:  advance.Round(),
		Pixels:   distanceField(cov, pad, g.edge),
	}, nil
}

// distanceField turns a coverage mask into an 8-bit signed distance field:
// edge at the glyph outline, larger values inside, smaller outside, with
// the field saturating radius pixels away from the outline. Brute force
// over a (2r+1)^2 window, which is fine at glyph sizes.
func distanceField(cov *image.Gray, radius int, edge uint8) []byte {
	b := cov.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h)

	if radius < 1 {
		radius = 1
	}

	inside := func(x, y int) bool {
		if x < 0 || y < 0 || x >= w || y >= h {
			return false
		}
		return cov.GrayAt(x, y).Y >= 128
	}

	maxDist := float64(radius)
	scale := float64(edge) / maxDist

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			in := inside(x, y)

			// Distance to the nearest pixel on the other side of the
			// outline, capped at the padding radius.
			bestSq := radius * radius
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					if dx*dx+dy*dy >= bestSq {
						continue
					}
					if inside(x+dx, y+dy) != in {
						bestSq = dx*dx + dy*dy
					}
				}
			}

			dist := gomath.Sqrt(float64(bestSq))
			if !in {
				dist = -dist
			}

			v := float64(edge) + dist*scale
			out[y*w+x] = uint8(math.Clamp(v, 0, 255))
		}
	}
	return out
}
