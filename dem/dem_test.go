package dem

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

// testGrid is a 2x2 tile with heights 0, 10 on the first row and 20, 30 on
// the second.
func testGrid(t *testing.T) *Data {
	t.Helper()

	d, err := NewFromHeights(2, []float64{0, 10, 20, 30})
	require.NoError(t, err)
	return d
}

func TestNewFromHeights(t *testing.T) {
	t.Run("stores the grid row-major", func(t *testing.T) {
		d := testGrid(t)
		require.Equal(t, 2, d.Dim())
		require.Equal(t, 0.0, d.Get(0, 0))
		require.Equal(t, 10.0, d.Get(1, 0))
		require.Equal(t, 20.0, d.Get(0, 1))
		require.Equal(t, 30.0, d.Get(1, 1))
	})

	t.Run("synthesizes the border by edge clamp", func(t *testing.T) {
		d := testGrid(t)
		require.Equal(t, 0.0, d.Get(-1, 0))
		require.Equal(t, 10.0, d.Get(2, 0))
		require.Equal(t, 0.0, d.Get(0, -1))
		require.Equal(t, 20.0, d.Get(0, 2))
		require.Equal(t, 0.0, d.Get(-1, -1))
		require.Equal(t, 10.0, d.Get(2, -1))
		require.Equal(t, 20.0, d.Get(-1, 2))
		require.Equal(t, 30.0, d.Get(2, 2))
	})

	t.Run("rejects a mismatched height count", func(t *testing.T) {
		_, err := NewFromHeights(2, []float64{0, 10, 20})
		require.Error(t, err)
	})

	t.Run("rejects a non-positive dimension", func(t *testing.T) {
		_, err := NewFromHeights(0, nil)
		require.Error(t, err)
	})
}

func TestDataGet(t *testing.T) {
	d := testGrid(t)

	t.Run("panics beyond the border", func(t *testing.T) {
		require.Panics(t, func() { d.Get(-2, 0) })
		require.Panics(t, func() { d.Get(3, 0) })
		require.Panics(t, func() { d.Get(0, -2) })
		require.Panics(t, func() { d.Get(0, 3) })
	})
}

func TestDataBilinearAt(t *testing.T) {
	d := testGrid(t)

	t.Run("cell centers return the cell height", func(t *testing.T) {
		require.Equal(t, 0.0, d.BilinearAt(0, 0))
		require.Equal(t, 30.0, d.BilinearAt(1, 1))
	})

	t.Run("interpolates between cells", func(t *testing.T) {
		require.InDelta(t, 15.0, d.BilinearAt(0.5, 0.5), 1e-12)
		require.InDelta(t, 2.5, d.BilinearAt(0.25, 0), 1e-12)
		require.InDelta(t, 10.0, d.BilinearAt(0, 0.5), 1e-12)
	})

	t.Run("interpolates into the border", func(t *testing.T) {
		// clamped border repeats the edge, so the gradient flattens
		require.InDelta(t, 0.0, d.BilinearAt(-0.5, 0), 1e-12)
		require.InDelta(t, 10.0, d.BilinearAt(1.5, 0), 1e-12)
	})

	t.Run("the far edge resolves as the limit from inside", func(t *testing.T) {
		require.Equal(t, d.Get(2, 0), d.BilinearAt(2, 0))
		require.Equal(t, d.Get(0, 2), d.BilinearAt(0, 2))
		require.Equal(t, d.Get(2, 2), d.BilinearAt(2, 2))
	})
}

func TestDataMinMax(t *testing.T) {
	d := testGrid(t)
	min, max := d.MinMax()
	require.Equal(t, 0.0, min)
	require.Equal(t, 30.0, max)
}

func TestNewFromImage(t *testing.T) {
	t.Run("decodes packed heights", func(t *testing.T) {
		heights := []float64{0, 10.5, -12.3, 300}
		img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
		for i, h := range heights {
			r, g, b := EncodingMapboxRGB.Pack(h)
			img.SetNRGBA(i%2, i/2, color.NRGBA{R: r, G: g, B: b, A: 255})
		}

		d, err := NewFromImage(img, EncodingMapboxRGB)
		require.NoError(t, err)
		require.Equal(t, 2, d.Dim())
		for i, h := range heights {
			require.InDelta(t, h, d.Get(i%2, i/2), 0.051)
		}
	})

	t.Run("rejects a non-square image", func(t *testing.T) {
		_, err := NewFromImage(image.NewNRGBA(image.Rect(0, 0, 2, 3)), EncodingMapboxRGB)
		require.Error(t, err)
	})

	t.Run("rejects an empty image", func(t *testing.T) {
		_, err := NewFromImage(image.NewNRGBA(image.Rect(0, 0, 0, 0)), EncodingMapboxRGB)
		require.Error(t, err)
	})
}

func TestEncodingPackUnpack(t *testing.T) {
	heights := []float64{-9999.9, -432.1, 0, 8.2, 1234.5, 8848.86}

	t.Run("mapbox round trip", func(t *testing.T) {
		for _, h := range heights {
			r, g, b := EncodingMapboxRGB.Pack(h)
			require.InDelta(t, h, EncodingMapboxRGB.Unpack(r, g, b), 0.05, "h=%v", h)
		}
	})

	t.Run("terrarium round trip", func(t *testing.T) {
		for _, h := range heights {
			r, g, b := EncodingTerrarium.Pack(h)
			require.InDelta(t, h, EncodingTerrarium.Unpack(r, g, b), 1.0/512, "h=%v", h)
		}
	})

	t.Run("out of range heights clamp", func(t *testing.T) {
		r, g, b := EncodingMapboxRGB.Pack(-20000)
		require.Equal(t, -10000.0, EncodingMapboxRGB.Unpack(r, g, b))

		r, g, b = EncodingMapboxRGB.Pack(1e9)
		require.InDelta(t, 1667721.5, EncodingMapboxRGB.Unpack(r, g, b), 1e-6)
	})
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		in      string
		out     Encoding
		wantErr bool
	}{
		{in: "mapbox", out: EncodingMapboxRGB},
		{in: "", out: EncodingMapboxRGB},
		{in: "Terrarium", out: EncodingTerrarium},
		{in: "terrarium", out: EncodingTerrarium},
		{in: "plasma", wantErr: true},
	}

	for _, test := range tests {
		enc, err := ParseEncoding(test.in)
		if test.wantErr {
			require.Error(t, err, "in=%q", test.in)
			continue
		}
		require.NoError(t, err, "in=%q", test.in)
		require.Equal(t, test.out, enc, "in=%q", test.in)
	}
}

func TestEncodingString(t *testing.T) {
	require.Equal(t, "mapbox", EncodingMapboxRGB.String())
	require.Equal(t, "terrarium", EncodingTerrarium.String())
}

func TestBackfillBorder(t *testing.T) {
	newGrid := func(base float64) *Data {
		d, err := NewFromHeights(2, []float64{base, base + 10, base + 20, base + 30})
		require.NoError(t, err)
		return d
	}

	t.Run("east neighbor fills the right border column", func(t *testing.T) {
		d := newGrid(0)
		east := newGrid(100)
		require.NoError(t, d.BackfillBorder(east, 1, 0))
		require.Equal(t, east.Get(0, 0), d.Get(2, 0))
		require.Equal(t, east.Get(0, 1), d.Get(2, 1))
	})

	t.Run("west neighbor fills the left border column", func(t *testing.T) {
		d := newGrid(0)
		west := newGrid(200)
		require.NoError(t, d.BackfillBorder(west, -1, 0))
		require.Equal(t, west.Get(1, 0), d.Get(-1, 0))
		require.Equal(t, west.Get(1, 1), d.Get(-1, 1))
	})

	t.Run("diagonal neighbor fills the corner cell", func(t *testing.T) {
		d := newGrid(0)
		corner := newGrid(300)
		require.NoError(t, d.BackfillBorder(corner, 1, 1))
		require.Equal(t, corner.Get(0, 0), d.Get(2, 2))
		// interior untouched
		require.Equal(t, 30.0, d.Get(1, 1))
	})

	t.Run("dimension mismatch is rejected", func(t *testing.T) {
		d := newGrid(0)
		big, err := NewFromHeights(3, make([]float64, 9))
		require.NoError(t, err)
		require.Error(t, d.BackfillBorder(big, 1, 0))
	})

	t.Run("invalid offsets are rejected", func(t *testing.T) {
		d := newGrid(0)
		require.Error(t, d.BackfillBorder(newGrid(0), 0, 0))
		require.Error(t, d.BackfillBorder(newGrid(0), 2, 0))
		require.Error(t, d.BackfillBorder(nil, 1, 0))
	})
}
