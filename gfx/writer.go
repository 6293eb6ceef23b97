package gfx

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/ericpauley/go-quantize/quantize"
)

type encoder struct {
	w io.Writer
}

func (e *encoder) encode(m *image.Paletted) error {
	var row [rowBytes]byte
	for y := 0; y < pixelY; y++ {
		for x := 0; x < rowBytes; x++ {
			dx := x << 1

			// This is masking off any bits leaving a 0-15 value
			row[x] = m.ColorIndexAt(dx+1, y)&0x0f<<4 | m.ColorIndexAt(dx, y)&0x0f
		}
		if _, err := e.w.Write(row[:]); err != nil {
			return err
		}
	}
	return nil
}

func countColors(m image.Image) int {
	b := m.Bounds()
	colors := make(map[color.Color]struct{})
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			colors[m.At(x, y)] = struct{}{}
			if len(colors) > numColors {
				return len(colors)
			}
		}
	}
	return len(colors)
}

// Encode writes the Image m to w in sheet format. Every color is mapped to
// the closest sheet color; images with more than 16 colors are reduced with a
// median cut first.
func Encode(w io.Writer, m image.Image) error {
	b := m.Bounds()
	if b.Dx() != pixelX || b.Dy() != pixelY {
		return errors.New("gfx: image is wrong size")
	}

	src := m
	if countColors(m) > numColors {
		q := quantize.MedianCutQuantizer{}
		tmp := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, numColors), m))
		draw.Draw(tmp, b, m, b.Min, draw.Src)
		src = tmp
	}

	// Remap onto the sheet palette, top-left corner at (0, 0)
	pm := image.NewPaletted(Bounds, Palette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pm.SetColorIndex(x-b.Min.X, y-b.Min.Y, uint8(Palette.Index(src.At(x, y))))
		}
	}

	e := encoder{w: w}

	return e.encode(pm)
}
