package pico8dump

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bit-hack/pico8dump/cart"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeCart(t *testing.T, file string, version byte, length int, tokens ...byte) {
	t.Helper()

	c := &cart.Cart{
		Code:    make([]byte, 0x3d00),
		Version: version,
	}
	binary.BigEndian.PutUint16(c.Code[4:], uint16(length))
	copy(c.Code[8:], tokens)

	m, err := cart.Embed(image.NewNRGBA(image.Rect(0, 0, 160, 205)), cart.Join(c))
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0755))
	f, err := os.Create(file)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, m))
}

func newDumper(t *testing.T, opts ...Option) (*Dumper, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	d, err := New(filepath.Join(t.TempDir(), "catalog.db"), logger, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	return d, hook
}

func TestCartName(t *testing.T) {
	tables := []struct {
		file, want string
	}{
		{"/carts/celeste.p8.png", "celeste"},
		{"JELPI.P8.PNG", "JELPI"},
		{"other.png", "other"},
	}

	for _, table := range tables {
		assert.Equal(t, table.want, cartName(table.file))
	}
}

func TestDump(t *testing.T) {
	d, _ := newDumper(t)

	file := filepath.Join(t.TempDir(), "hello.p8.png")
	writeCart(t, file, 1, 3, 0x03, 0x04, 0x00, 0x41)

	e, err := d.Dump(file)
	require.NoError(t, err)
	assert.Equal(t, "hello", e.Name)
	assert.Equal(t, 1, e.Version)
	assert.Equal(t, 3, e.Length)
	assert.False(t, e.Truncated())
	assert.Len(t, e.SHA1, 40)

	b, err := ioutil.ReadFile(file + ".lua")
	require.NoError(t, err)
	assert.Equal(t, "01A", string(b))

	f, err := os.Open(file + ".bmp")
	require.NoError(t, err)
	defer f.Close()
	m, err := bmp.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 128, 128), m.Bounds())

	got, err := d.DB().FindBySHA1(e.SHA1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Name)

	src, err := d.DB().Source(e.SHA1)
	require.NoError(t, err)
	assert.Equal(t, "01A", string(src))
}

func TestDumpGraphicsOptions(t *testing.T) {
	d, _ := newDumper(t, Scale(2), LegacyGraphics(true))

	file := filepath.Join(t.TempDir(), "legacy.p8.png")
	writeCart(t, file, 5, 1, 0x0d)

	_, err := d.Dump(file)
	require.NoError(t, err)

	f, err := os.Open(file + ".bmp")
	require.NoError(t, err)
	defer f.Close()
	m, err := bmp.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 128), m.Bounds())
}

func TestDumpStrict(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "short.p8.png")
	// Declares far more source than the code region can hold
	writeCart(t, file, 1, 0xffff, 0x0d)

	d, _ := newDumper(t)
	e, err := d.Dump(file)
	require.NoError(t, err)
	assert.True(t, e.Truncated())

	// Unproduced source is left as zero bytes
	b, err := ioutil.ReadFile(file + ".lua")
	require.NoError(t, err)
	assert.Len(t, b, 0xffff)
	assert.Equal(t, byte('a'), b[0])
	assert.Equal(t, byte(0), b[len(b)-1])

	d, _ = newDumper(t, Strict(true))
	_, err = d.Dump(file)
	assert.Error(t, err)
}

func TestDumpFailures(t *testing.T) {
	d, _ := newDumper(t)
	dir := t.TempDir()

	_, err := d.Dump(filepath.Join(dir, "missing.p8.png"))
	var ile *cart.ImageLoadError
	assert.ErrorAs(t, err, &ile)

	bad := filepath.Join(dir, "bad.p8.png")
	require.NoError(t, ioutil.WriteFile(bad, []byte("not a png"), 0644))
	_, err = d.Dump(bad)
	assert.ErrorAs(t, err, &ile)
	assert.Equal(t, bad, ile.File)

	small := filepath.Join(dir, "small.p8.png")
	f, err := os.Create(small)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 8, 8))))
	require.NoError(t, f.Close())
	_, err = d.Dump(small)
	assert.ErrorIs(t, err, cart.ErrOutOfRange)
}

func TestScan(t *testing.T) {
	d, hook := newDumper(t)
	dir := t.TempDir()

	writeCart(t, filepath.Join(dir, "a.p8.png"), 1, 1, 0x0d)
	writeCart(t, filepath.Join(dir, "sub", "b.p8.png"), 5, 2, 0x0e, 0x0e)
	writeCart(t, filepath.Join(dir, "v2.p8.png"), 2, 1, 0x0d)
	writeCart(t, filepath.Join(dir, ".hidden", "c.p8.png"), 1, 1, 0x0d)
	writeCart(t, filepath.Join(dir, "notacart.png"), 1, 1, 0x0d)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "broken.p8.png"), []byte{0x89, 'P', 'N', 'G'}, 0644))

	s, err := d.Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, Summary{Dumped: 2, Failed: 2}, s)

	entries, err := d.DB().List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)

	var errors int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errors++
			assert.Contains(t, e.Data, "file")
		}
	}
	assert.Equal(t, 2, errors)

	_, err = os.Stat(filepath.Join(dir, ".hidden", "c.p8.png.lua"))
	assert.True(t, os.IsNotExist(err))
}

func TestScanNotDirectory(t *testing.T) {
	d, _ := newDumper(t)

	file := filepath.Join(t.TempDir(), "a.p8.png")
	writeCart(t, file, 1, 1, 0x0d)

	_, err := d.Scan(file)
	assert.Error(t, err)

	_, err = d.Scan(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func countSources(t *testing.T, dir string) int {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	require.NoError(t, err)
	return len(files)
}

func TestScanCatalogFailure(t *testing.T) {
	d, _ := newDumper(t)
	dir := t.TempDir()

	for i := 0; i < 40; i++ {
		writeCart(t, filepath.Join(dir, fmt.Sprintf("cart%02d.p8.png", i)), 1, 1, 0x0d)
	}

	// Every Record now fails
	require.NoError(t, d.db.db.Close())

	_, err := d.Scan(dir)
	var ce *catalogError
	require.ErrorAs(t, err, &ce)

	// Only carts already being dumped when the first failure arrived
	n := countSources(t, dir)
	assert.LessOrEqual(t, n, workers)

	// and nothing is still running once Scan has returned
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, n, countSources(t, dir))
}
