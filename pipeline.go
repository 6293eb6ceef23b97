package pico8dump

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bit-hack/pico8dump/cart"
	"github.com/bit-hack/pico8dump/gfx"
)

// Summary counts the outcome of a scan.
type Summary struct {
	Dumped int
	Failed int
}

func isCart(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), cart.Suffix)
}

func cartName(file string) string {
	name := filepath.Base(file)
	if isCart(name) {
		return name[:len(name)-len(cart.Suffix)]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (d *Dumper) findCarts(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	info, err := os.Stat(base)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, errors.New("not a directory")
	}

	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() || !isCart(info.Name()) {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (d *Dumper) cartWorker(ctx context.Context, in <-chan string, dumped, failed *int64) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for {
			var file string
			select {
			case f, ok := <-in:
				if !ok {
					return
				}
				file = f
			case <-ctx.Done():
				return
			}

			// Both cases can be ready at once
			if ctx.Err() != nil {
				return
			}

			logger := d.logger.WithField("file", file)

			e, err := d.Dump(file)
			if err != nil {
				var ce *catalogError
				if errors.As(err, &ce) {
					errc <- err
					return
				}
				// Cart failures are reported and the scan carries on
				logger.WithError(err).Error("Dump failed")
				atomic.AddInt64(failed, 1)
				continue
			}

			logger = logger.WithField("sha1", e.SHA1)
			if e.Truncated() {
				logger.Warnf("Source truncated, %d of %d bytes", e.Length, e.Declared)
			}
			logger.Infof("Dumped %d bytes of source", e.Length)
			atomic.AddInt64(dumped, 1)
		}
	}()
	return errc, nil
}

// waitForPipeline returns the first error from errs, calling cancel as soon
// as it arrives. It only returns once every channel has been closed.
func waitForPipeline(cancel context.CancelFunc, errs ...<-chan error) error {
	var first error
	for err := range mergeErrors(errs...) {
		if err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan dumps every cart found below path. A cart that fails to dump is
// logged and counted; only failures to walk the filesystem or update the
// catalog stop the scan.
func (d *Dumper) Scan(path string) (Summary, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return Summary{}, err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error
	var dumped, failed int64

	files, errc, err := d.findCarts(ctx, dir)
	if err != nil {
		return Summary{}, err
	}
	errcList = append(errcList, errc)

	for i := 0; i < workers; i++ {
		errc, err := d.cartWorker(ctx, files, &dumped, &failed)
		if err != nil {
			return Summary{}, err
		}
		errcList = append(errcList, errc)
	}

	err = waitForPipeline(cancelFunc, errcList...)

	return Summary{
		Dumped: int(atomic.LoadInt64(&dumped)),
		Failed: int(atomic.LoadInt64(&failed)),
	}, err
}

type catalogError struct {
	err error
}

func (e *catalogError) Error() string {
	return "catalog: " + e.err.Error()
}

func (e *catalogError) Unwrap() error {
	return e.err
}

func hashFile(file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%X", h.Sum(nil)), nil
}

func (d *Dumper) load(file string) (*cart.Cart, string, error) {
	c, err := cart.Open(file)
	if err != nil {
		return nil, "", err
	}

	sha, err := hashFile(file)
	if err != nil {
		return nil, "", err
	}

	return c, sha, nil
}

func (d *Dumper) writeGraphics(file string, c *cart.Cart) error {
	m, err := gfx.Decode(c.Graphics)
	if err != nil {
		return err
	}

	var sheet image.Image = m
	if d.opts.legacyGfx {
		sheet = m.SubImage(gfx.Legacy)
	}

	scaled, err := gfx.Scale(sheet, d.opts.scale)
	if err != nil {
		return err
	}

	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gfx.WriteBMP(f, scaled); err != nil {
		return err
	}

	return f.Close()
}

// Dump decodes the cart in file, writes its source and sprite sheet next
// to it and records it in the catalog.
func (d *Dumper) Dump(file string) (*Entry, error) {
	c, sha, err := d.load(file)
	if err != nil {
		return nil, err
	}

	source, n, err := c.SourceN(d.codeOptions()...)
	if err != nil {
		return nil, err
	}

	if err := ioutil.WriteFile(file+sourceExt, source, 0644); err != nil {
		return nil, err
	}

	if err := d.writeGraphics(file+graphicsExt, c); err != nil {
		return nil, err
	}

	e := &Entry{
		SHA1:        sha,
		Name:        cartName(file),
		Version:     int(c.Version),
		Declared:    c.DeclaredLength(),
		Length:      n,
		GraphicsCRC: fmt.Sprintf("%.*X", crc32.Size<<1, crc32.ChecksumIEEE(c.Graphics)),
		Dumped:      time.Now(),
	}

	if err := d.db.Record(e, source); err != nil {
		return nil, &catalogError{err}
	}

	return e, nil
}
