/*
Package code implements the PICO-8 code region decompressor.

The code region is 0x3D00 bytes. The first eight bytes are a header with the
decompressed length stored big-endian at offset 4, the rest is a stream of
tokens. Each token starts with a control byte which is either an escape
(0x00) followed by a literal byte, an index into a fixed table of 59 common
characters (0x01 to 0x3b), or the first half of a two byte back-reference
into the output produced so far.
*/
package code

import "errors"

const (
	headerSize   = 8
	lengthOffset = 4

	escape    = 0x00
	maxSymbol = 0x3b
)

var (
	// ErrUnsupportedVersion is returned for any cart version other than 1 or 5.
	ErrUnsupportedVersion = errors.New("code: unsupported version")

	// ErrBadReference is returned when a back-reference points before the
	// start of the output, or has an offset of zero and so would copy bytes
	// that have not been written yet.
	ErrBadReference = errors.New("code: back-reference before start of output")

	// ErrShortHeader is returned when the region cannot hold the header.
	ErrShortHeader = errors.New("code: region shorter than header")

	// ErrTruncated is only returned in strict mode, when the token stream
	// runs out before the declared length has been produced. The padded
	// output is returned with it.
	ErrTruncated = errors.New("code: compressed data truncated")
)

// Character table, indexed by control byte. Entry 0 is never emitted as the
// control byte 0x00 is the escape code. '#' appears twice.
var symbols = [maxSymbol + 1]byte{
	'#', '\n', ' ', '0', '1', '2', '3', '4',
	'5', '6', '7', '8', '9', 'a', 'b', 'c',
	'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k',
	'l', 'm', 'n', 'o', 'p', 'q', 'r', 's',
	't', 'u', 'v', 'w', 'x', 'y', 'z', '!',
	'#', '%', '(', ')', '{', '}', '[', ']',
	'<', '>', '+', '=', '/', '*', ':', ';',
	'.', ',', '~', '_',
}

// Symbol returns the character emitted for control byte c and whether c is a
// direct symbol at all.
func Symbol(c byte) (byte, bool) {
	if c == escape || c > maxSymbol {
		return 0, false
	}
	return symbols[c], true
}

// SupportedVersion reports whether carts of version v can be decompressed.
func SupportedVersion(v byte) bool {
	return v == 1 || v == 5
}
