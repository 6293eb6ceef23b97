/*
Package pico8dump is a library for dumping the source and sprite sheet of
PICO-8 cartridges stored as PNG images and keeping a catalog of them.
*/
package pico8dump

import (
	"github.com/bit-hack/pico8dump/code"
	"github.com/sirupsen/logrus"
)

const (
	sourceExt   = ".lua"
	graphicsExt = ".bmp"
	workers     = 10
)

type options struct {
	strict    bool
	scale     int
	legacyGfx bool
}

// Option configures a Dumper.
type Option func(*options)

// Strict treats carts whose code ends before the declared length as failed.
func Strict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// Scale enlarges the written sprite sheet by an integer factor.
func Scale(n int) Option {
	return func(o *options) {
		o.scale = n
	}
}

// LegacyGraphics writes only the top half of the sprite sheet, as older
// dump tools did.
func LegacyGraphics(legacy bool) Option {
	return func(o *options) {
		o.legacyGfx = legacy
	}
}

// Dumper dumps carts and records them in a catalog.
type Dumper struct {
	db     *CartDB
	logger logrus.FieldLogger
	opts   options
}

// New returns a Dumper using the catalog stored in file.
func New(file string, logger logrus.FieldLogger, opts ...Option) (*Dumper, error) {
	db, err := NewCartDB(file)
	if err != nil {
		return nil, err
	}

	o := options{scale: 1}
	for _, opt := range opts {
		opt(&o)
	}

	return &Dumper{
		db:     db,
		logger: logger,
		opts:   o,
	}, nil
}

// Close closes the catalog.
func (d *Dumper) Close() error {
	return d.db.Close()
}

// DB returns the catalog.
func (d *Dumper) DB() *CartDB {
	return d.db
}

func (d *Dumper) codeOptions() []code.Option {
	if d.opts.strict {
		return []code.Option{code.Strict()}
	}
	return nil
}
