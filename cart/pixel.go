package cart

import (
	"image"
	"image/color"
)

// Pixel is a single non-premultiplied image sample.
type Pixel struct {
	A, R, G, B uint8
}

// Pack returns the byte carried by the two low bits of each channel, alpha
// in the top bits down to blue in the bottom bits.
func (p Pixel) Pack() byte {
	return (p.A&3)<<6 | (p.R&3)<<4 | (p.G&3)<<2 | p.B&3
}

func pixelAt(m image.Image, x, y int) Pixel {
	c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
	return Pixel{A: c.A, R: c.R, G: c.G, B: c.B}
}

func extractPix(out, pix []byte, stride int, b image.Rectangle) []byte {
	for y := 0; y < b.Dy(); y++ {
		i := y * stride
		for x := 0; x < b.Dx(); x, i = x+1, i+4 {
			out = append(out, Pixel{A: pix[i+3], R: pix[i], G: pix[i+1], B: pix[i+2]}.Pack())
		}
	}
	return out
}

// Extract returns one byte per pixel of m in row-major order.
func Extract(m image.Image) []byte {
	b := m.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy())

	switch m := m.(type) {
	case *image.NRGBA:
		return extractPix(out, m.Pix[m.PixOffset(b.Min.X, b.Min.Y):], m.Stride, b)
	case *image.RGBA:
		// Premultiplied and straight values only agree when fully opaque,
		// which is always the case for RGBA from the PNG decoder
		if m.Opaque() {
			return extractPix(out, m.Pix[m.PixOffset(b.Min.X, b.Min.Y):], m.Stride, b)
		}
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out = append(out, pixelAt(m, x, y).Pack())
		}
	}

	return out
}
