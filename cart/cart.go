/*
Package cart implements reading PICO-8 cartridges stored as PNG images.

Each pixel of the image carries one byte of cartridge data in the two least
significant bits of its four channels. Reading the pixels row by row gives a
stream of at least 0x8001 bytes which is split at fixed offsets into the
graphics, map, flags, song, sound effect and code regions followed by a
single version byte.
*/
package cart

import (
	"errors"
	"fmt"
	"image"
	_ "image/png" // carts are always PNG
	"io"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/bit-hack/pico8dump/code"
)

const (
	graphicsOffset = 0x0000
	graphicsSize   = 0x2000
	mapOffset      = 0x2000
	mapSize        = 0x1000
	flagsOffset    = 0x3000
	flagsSize      = 0x0100
	songOffset     = 0x3100
	songSize       = 0x0100
	sfxOffset      = 0x3200
	sfxSize        = 0x1100
	codeOffset     = 0x4300
	codeSize       = 0x3d00
	versionOffset  = 0x8000

	// StreamSize is the number of bytes, and so pixels, a cart needs.
	StreamSize = versionOffset + 1

	// Suffix is the filename suffix used by PICO-8 for PNG carts.
	Suffix = ".p8.png"
)

// ErrOutOfRange is returned when a stream is too short to hold a cart.
var ErrOutOfRange = errors.New("cart: stream shorter than cartridge")

// ImageLoadError records a failure to decode the image holding a cart.
type ImageLoadError struct {
	File string
	Err  error
}

func (e *ImageLoadError) Error() string {
	if e.File == "" {
		return "cart: unable to load image: " + e.Err.Error()
	}
	return fmt.Sprintf("cart: unable to load image %q: %v", e.File, e.Err)
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}

// Cart holds the regions of a single cartridge.
type Cart struct {
	Graphics []byte
	Map      []byte
	Flags    []byte
	Song     []byte
	SFX      []byte
	Code     []byte
	Version  byte
}

func region(b []byte, offset, size int) []byte {
	r := make([]byte, size)
	copy(r, b[offset:offset+size])
	return r
}

// Split slices a flat stream into the cart regions. The regions are copies
// so b can be reused.
func Split(b []byte) (*Cart, error) {
	if len(b) < StreamSize {
		return nil, ErrOutOfRange
	}
	return &Cart{
		Graphics: region(b, graphicsOffset, graphicsSize),
		Map:      region(b, mapOffset, mapSize),
		Flags:    region(b, flagsOffset, flagsSize),
		Song:     region(b, songOffset, songSize),
		SFX:      region(b, sfxOffset, sfxSize),
		Code:     region(b, codeOffset, codeSize),
		Version:  b[versionOffset],
	}, nil
}

// Join is the inverse of Split. Short regions are zero padded, long ones
// are cut.
func Join(c *Cart) []byte {
	b := make([]byte, StreamSize)
	copy(b[graphicsOffset:graphicsOffset+graphicsSize], c.Graphics)
	copy(b[mapOffset:mapOffset+mapSize], c.Map)
	copy(b[flagsOffset:flagsOffset+flagsSize], c.Flags)
	copy(b[songOffset:songOffset+songSize], c.Song)
	copy(b[sfxOffset:sfxOffset+sfxSize], c.SFX)
	copy(b[codeOffset:codeOffset+codeSize], c.Code)
	b[versionOffset] = c.Version
	return b
}

// New extracts and splits the cart held in m.
func New(m image.Image) (*Cart, error) {
	return Split(Extract(m))
}

// Decode reads an image from r and returns the cart it holds.
func Decode(r io.Reader) (*Cart, error) {
	m, _, err := image.Decode(r)
	if err != nil {
		return nil, &ImageLoadError{Err: err}
	}
	return New(m)
}

// Open loads the image file and returns the cart it holds.
func Open(file string) (*Cart, error) {
	m, err := imgio.Open(file)
	if err != nil {
		return nil, &ImageLoadError{File: file, Err: err}
	}
	return New(m)
}

// Source decompresses the code region.
func (c *Cart) Source(opts ...code.Option) ([]byte, error) {
	return code.Decompress(c.Code, c.Version, opts...)
}

// SourceN is like Source but also returns the number of bytes the code
// region actually produced, which is less than the length of the source
// when the cart is truncated.
func (c *Cart) SourceN(opts ...code.Option) ([]byte, int, error) {
	return code.DecompressN(c.Code, c.Version, opts...)
}

// DeclaredLength returns the source length stored in the code region header.
func (c *Cart) DeclaredLength() int {
	n, _ := code.Length(c.Code)
	return n
}
