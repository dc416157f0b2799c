package source

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/aukilabs/fjall/dem"
	"github.com/aukilabs/fjall/models"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func writePNGTile(t *testing.T, dir string, z, x, y uint32, heights []float64) {
	t.Helper()

	dim := int(math.Sqrt(float64(len(heights))))
	img := image.NewNRGBA(image.Rect(0, 0, dim, dim))
	for i, h := range heights {
		r, g, b := dem.EncodingMapboxRGB.Pack(h)
		img.SetNRGBA(i%dim, i/dim, color.NRGBA{R: r, G: g, B: b, A: 255})
	}

	sub := filepath.Join(dir, fmt.Sprint(z), fmt.Sprint(x))
	require.NoError(t, os.MkdirAll(sub, 0o755))

	f, err := os.Create(filepath.Join(sub, fmt.Sprintf("%d.png", y)))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeRawTile(t *testing.T, dir string, z, x, y uint32, heights []float64) {
	t.Helper()

	sub := filepath.Join(dir, fmt.Sprint(z), fmt.Sprint(x))
	require.NoError(t, os.MkdirAll(sub, 0o755))

	f, err := os.Create(filepath.Join(sub, fmt.Sprintf("%d.bin.gz", y)))
	require.NoError(t, err)
	defer f.Close()

	zw := gzip.NewWriter(f)
	buf := make([]byte, 4)
	for _, h := range heights {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(h)))
		_, err = zw.Write(buf)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestLoadDirectory(t *testing.T) {
	t.Run("loads png and raw fixtures", func(t *testing.T) {
		dir := t.TempDir()
		writePNGTile(t, dir, 2, 1, 1, []float64{10, 20, 30, 40})
		writeRawTile(t, dir, 3, 2, 2, []float64{1, 2, 3, 4})

		c := newTestCache(t, 0)
		n, err := LoadDirectory(context.Background(), dir, dem.EncodingMapboxRGB, c)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.Equal(t, 2, c.Len())

		tile := c.DEMTile(models.NewOverscaledTileID(2, 0, 1, 1))
		require.NotNil(t, tile)
		require.InDelta(t, 10, tile.Data.Get(0, 0), 0.051)

		raw := c.DEMTile(models.NewOverscaledTileID(3, 0, 2, 2))
		require.NotNil(t, raw)
		require.Equal(t, 4.0, raw.Data.Get(1, 1))
	})

	t.Run("ignores files outside the tile layout", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("fixtures"), 0o644))

		sub := filepath.Join(dir, "5", "1")
		require.NoError(t, os.MkdirAll(sub, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "notes.txt"), []byte("x"), 0o644))

		c := newTestCache(t, 0)
		n, err := LoadDirectory(context.Background(), dir, dem.EncodingMapboxRGB, c)
		require.NoError(t, err)
		require.Zero(t, n)
		require.Zero(t, c.Len())
	})

	t.Run("skips fixtures that fail to decode", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "2", "1")
		require.NoError(t, os.MkdirAll(sub, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "1.png"), []byte("not a png"), 0o644))
		writePNGTile(t, dir, 2, 1, 2, []float64{1, 2, 3, 4})

		c := newTestCache(t, 0)
		n, err := LoadDirectory(context.Background(), dir, dem.EncodingMapboxRGB, c)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("skips tiles addressed outside their zoom", func(t *testing.T) {
		dir := t.TempDir()
		writePNGTile(t, dir, 2, 7, 0, []float64{1, 2, 3, 4})

		c := newTestCache(t, 0)
		n, err := LoadDirectory(context.Background(), dir, dem.EncodingMapboxRGB, c)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("stops on a canceled context", func(t *testing.T) {
		dir := t.TempDir()
		writePNGTile(t, dir, 2, 1, 1, []float64{1, 2, 3, 4})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := newTestCache(t, 0)
		_, err := LoadDirectory(ctx, dir, dem.EncodingMapboxRGB, c)
		require.Error(t, err)
	})
}
