package gfx

import (
	"errors"
	"image"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

var (
	errNotEnough = errors.New("gfx: not enough sheet data")
	errBadScale  = errors.New("gfx: invalid scale")
)

func upperNibble(b byte) byte {
	return b & 0xf0
}

func lowerNibble(b byte) byte {
	return b & 0x0f
}

// Decode renders the sheet held in b. Any bytes past the sheet are ignored.
func Decode(b []byte) (*image.Paletted, error) {
	if len(b) < pixelBytes {
		return nil, errNotEnough
	}

	m := image.NewPaletted(Bounds, Palette)
	for y := 0; y < pixelY; y++ {
		for x := 0; x < rowBytes; x++ {
			i := y*rowBytes + x
			m.SetColorIndex(x<<1+0, y, lowerNibble(b[i]))
			m.SetColorIndex(x<<1+1, y, upperNibble(b[i])>>4)
		}
	}

	return m, nil
}

// Scale enlarges m by an integer factor using nearest neighbour sampling so
// the pixels stay sharp.
func Scale(m image.Image, n int) (image.Image, error) {
	if n < 1 {
		return nil, errBadScale
	}
	if n == 1 {
		return m, nil
	}

	b := m.Bounds()
	r := image.Rect(0, 0, b.Dx()*n, b.Dy()*n)

	var dst draw.Image
	if pm, ok := m.(*image.Paletted); ok {
		dst = image.NewPaletted(r, pm.Palette)
	} else {
		dst = image.NewRGBA(r)
	}
	draw.NearestNeighbor.Scale(dst, r, m, b, draw.Src, nil)

	return dst, nil
}

// WriteBMP writes m to w as a BMP image.
func WriteBMP(w io.Writer, m image.Image) error {
	return bmp.Encode(w, m)
}
