/*
Package gfx implements a decoder and encoder for the PICO-8 sprite sheet.

The sheet is 128 by 128 pixels, each pixel a 4-bit index into a fixed 16
color palette. It is stored as 0x2000 bytes, 64 bytes per row with two pixels
per byte; the low nibble is the left pixel and the high nibble the right one.
*/
package gfx

import (
	"image"
	"image/color"
)

const (
	pixelX     = 128
	pixelY     = 128
	pixelBytes = pixelX * pixelY >> 1
	rowBytes   = pixelX >> 1
	numColors  = 16
)

// Palette is the fixed sheet palette.
var Palette = color.Palette{
	color.RGBA{0, 0, 0, 0xff},
	color.RGBA{32, 51, 123, 0xff},
	color.RGBA{126, 37, 83, 0xff},
	color.RGBA{0, 144, 61, 0xff},
	color.RGBA{171, 82, 54, 0xff},
	color.RGBA{52, 54, 53, 0xff},
	color.RGBA{194, 195, 199, 0xff},
	color.RGBA{255, 241, 232, 0xff},
	color.RGBA{255, 0, 77, 0xff},
	color.RGBA{255, 155, 0, 0xff},
	color.RGBA{255, 231, 39, 0xff},
	color.RGBA{0, 226, 50, 0xff},
	color.RGBA{41, 173, 255, 0xff},
	color.RGBA{132, 112, 169, 0xff},
	color.RGBA{255, 119, 168, 0xff},
	color.RGBA{255, 214, 197, 0xff},
}

// Legacy is the part of the sheet that older dump tools rendered; the top
// half only, from the first 0x1000 bytes.
var Legacy = image.Rect(0, 0, pixelX, pixelY>>1)

// Bounds is the size of a full sheet.
var Bounds = image.Rect(0, 0, pixelX, pixelY)
