package cart

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/icza/bitio"
)

var errCoverTooSmall = errors.New("cart: cover image too small for stream")

// Embed hides b in the low bits of a copy of cover. Pixels past the end of
// b carry zero bits. The result is always an *image.NRGBA so the channels
// survive PNG encoding unchanged.
func Embed(cover image.Image, b []byte) (*image.NRGBA, error) {
	r := cover.Bounds()
	if r.Dx()*r.Dy() < len(b) {
		return nil, errCoverTooSmall
	}

	m := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(m, m.Bounds(), cover, r.Min, draw.Src)

	br := bitio.NewReader(bytes.NewReader(b))
	for i := 0; i < len(b); i++ {
		var p [4]uint8
		for j := range p {
			v, err := br.ReadBits(2)
			if err != nil {
				return nil, err
			}
			p[j] = uint8(v)
		}

		x, y := i%r.Dx(), i/r.Dx()
		c := m.NRGBAAt(x, y)
		m.SetNRGBA(x, y, color.NRGBA{
			R: c.R&^3 | p[1],
			G: c.G&^3 | p[2],
			B: c.B&^3 | p[3],
			A: c.A&^3 | p[0],
		})
	}

	for i := len(b); i < r.Dx()*r.Dy(); i++ {
		x, y := i%r.Dx(), i/r.Dx()
		c := m.NRGBAAt(x, y)
		m.SetNRGBA(x, y, color.NRGBA{R: c.R &^ 3, G: c.G &^ 3, B: c.B &^ 3, A: c.A &^ 3})
	}

	return m, nil
}
