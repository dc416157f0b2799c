package terrain

import (
	"testing"

	"github.com/aukilabs/fjall/dem"
	"github.com/aukilabs/fjall/models"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	Provider

	finds int
}

func (p *countingProvider) FindDEMTile(id models.OverscaledTileID) *dem.Tile {
	p.finds++
	return p.Provider.FindDEMTile(id)
}

// flatWorld loads a single z0 tile whose every cell has the given height.
func flatWorld(t *testing.T, height float64) *Terrain {
	t.Helper()

	cache := testCache(t, 0)
	cache.Add(models.NewOverscaledTileID(0, 0, 0, 0), flatData(t, 2, height))
	return New(cache, 1, nil)
}

func TestIntersect(t *testing.T) {
	t.Run("vertical segment converges onto flat terrain", func(t *testing.T) {
		e := NewElevation(flatWorld(t, 100))

		start := models.MercatorCoordinate{X: 0.5, Y: 0.5, Z: models.MercatorZFromAltitude(1000, 0)}
		end := models.MercatorCoordinate{X: 0.5, Y: 0.5}

		hit, ok := e.Intersect(start, end)
		require.True(t, ok)
		require.InDelta(t, 100, hit.ToAltitude(), intersectThreshold)
		require.Equal(t, 0.5, hit.X)
		require.Equal(t, 0.5, hit.Y)
	})

	t.Run("tilted segment stays on its line", func(t *testing.T) {
		e := NewElevation(flatWorld(t, 100))

		start := models.MercatorCoordinate{
			X: 0.4,
			Y: 0.45,
			Z: models.MercatorZFromAltitude(800, models.LatFromMercatorY(0.45)),
		}
		end := models.MercatorCoordinate{
			X: 0.6,
			Y: 0.55,
			Z: models.MercatorZFromAltitude(-50, models.LatFromMercatorY(0.55)),
		}

		hit, ok := e.Intersect(start, end)
		require.True(t, ok)
		require.InDelta(t, 100, hit.ToAltitude(), intersectThreshold)
		require.Greater(t, hit.X, 0.4)
		require.Less(t, hit.X, 0.6)
		// midpoints are component-wise averages, so the hit cannot leave
		// the segment's line
		require.InDelta(t, (hit.X-0.4)/0.2, (hit.Y-0.45)/0.1, 1e-9)
	})

	t.Run("segment above the terrain misses", func(t *testing.T) {
		e := NewElevation(flatWorld(t, 100))

		start := models.MercatorCoordinate{X: 0.5, Y: 0.5, Z: models.MercatorZFromAltitude(2000, 0)}
		end := models.MercatorCoordinate{X: 0.5, Y: 0.5, Z: models.MercatorZFromAltitude(500, 0)}

		hit, ok := e.Intersect(start, end)
		require.False(t, ok)
		require.Equal(t, models.MercatorCoordinate{}, hit)
	})

	t.Run("segment below the terrain misses", func(t *testing.T) {
		e := NewElevation(flatWorld(t, 100))

		start := models.MercatorCoordinate{X: 0.5, Y: 0.5, Z: models.MercatorZFromAltitude(-500, 0)}
		end := models.MercatorCoordinate{X: 0.5, Y: 0.5, Z: models.MercatorZFromAltitude(-50, 0)}

		_, ok := e.Intersect(start, end)
		require.False(t, ok)
	})

	t.Run("a miss exhausts exactly the sample budget", func(t *testing.T) {
		p := &countingProvider{Provider: flatWorld(t, 100)}
		e := NewElevation(p)

		start := models.MercatorCoordinate{X: 0.5, Y: 0.5, Z: models.MercatorZFromAltitude(2000, 0)}
		end := models.MercatorCoordinate{X: 0.5, Y: 0.5, Z: models.MercatorZFromAltitude(500, 0)}

		_, ok := e.Intersect(start, end)
		require.False(t, ok)
		require.Equal(t, intersectMaxSamples, p.finds)
	})

	t.Run("missing data samples as a zero surface", func(t *testing.T) {
		e := NewElevation(New(testCache(t, 0), 1, nil))

		start := models.MercatorCoordinate{X: 0.5, Y: 0.5, Z: models.MercatorZFromAltitude(100, 0)}
		end := models.MercatorCoordinate{X: 0.5, Y: 0.5, Z: models.MercatorZFromAltitude(-100, 0)}

		hit, ok := e.Intersect(start, end)
		require.True(t, ok)
		require.InDelta(t, 0, hit.ToAltitude(), intersectThreshold)
	})

	t.Run("intersects the exaggerated surface", func(t *testing.T) {
		terrain := flatWorld(t, 100)
		terrain.SetExaggeration(2)
		e := NewElevation(terrain)

		start := models.MercatorCoordinate{X: 0.5, Y: 0.5, Z: models.MercatorZFromAltitude(1000, 0)}
		end := models.MercatorCoordinate{X: 0.5, Y: 0.5}

		hit, ok := e.Intersect(start, end)
		require.True(t, ok)
		require.InDelta(t, 200, hit.ToAltitude(), intersectThreshold)
	})
}
