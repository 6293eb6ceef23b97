package code

import "encoding/binary"

type options struct {
	strict bool
}

// Option configures Decompress.
type Option func(*options)

// Strict makes Decompress return ErrTruncated alongside the output when the
// token stream ends before the declared length is reached.
func Strict() Option {
	return func(o *options) {
		o.strict = true
	}
}

// Length returns the decompressed length declared in the region header.
func Length(region []byte) (int, error) {
	if len(region) < headerSize {
		return 0, ErrShortHeader
	}
	return int(binary.BigEndian.Uint16(region[lengthOffset:])), nil
}

// Decompress expands the code region of a cart of the given version back
// into source text. The result is always the declared length; if the token
// stream runs out first the remainder is left as zero bytes.
func Decompress(region []byte, version byte, opts ...Option) ([]byte, error) {
	out, _, err := DecompressN(region, version, opts...)
	return out, err
}

// DecompressN is like Decompress but also returns the number of bytes
// actually produced from the token stream.
func DecompressN(region []byte, version byte, opts ...Option) ([]byte, int, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if !SupportedVersion(version) {
		return nil, 0, ErrUnsupportedVersion
	}

	length, err := Length(region)
	if err != nil {
		return nil, 0, err
	}

	out := make([]byte, length)
	i, n := headerSize, 0

	for n < length && i < len(region) {
		c := region[i]
		switch {
		case c == escape:
			i++
			if i >= len(region) {
				return finish(out, n, o)
			}
			out[n] = region[i]
			n++
		case c <= maxSymbol:
			out[n] = symbols[c]
			n++
		default:
			i++
			if i >= len(region) {
				return finish(out, n, o)
			}
			b := region[i]
			offset := int(c-maxSymbol-1)*16 + int(b&0x0f)
			l := int(b>>4) + 2
			if offset == 0 || offset > n {
				return nil, 0, ErrBadReference
			}
			// Source and destination overlap whenever offset < l, so
			// every byte written may be read again later in this copy
			for j := 0; j < l && n < length; j++ {
				out[n] = out[n-offset]
				n++
			}
		}
		i++
	}

	return finish(out, n, o)
}

func finish(out []byte, n int, o options) ([]byte, int, error) {
	if n < len(out) && o.strict {
		return out, n, ErrTruncated
	}
	return out, n, nil
}
