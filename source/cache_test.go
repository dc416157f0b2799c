package source

import (
	"testing"

	"github.com/aukilabs/fjall/dem"
	"github.com/aukilabs/fjall/models"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, maxZoom uint32) *Cache {
	t.Helper()

	c, err := NewCache(maxZoom, 32)
	require.NoError(t, err)
	return c
}

func flatData(t *testing.T, dim int, height float64) *dem.Data {
	t.Helper()

	heights := make([]float64, dim*dim)
	for i := range heights {
		heights[i] = height
	}
	d, err := dem.NewFromHeights(dim, heights)
	require.NoError(t, err)
	return d
}

func TestCacheAdd(t *testing.T) {
	c := newTestCache(t, 4)

	id := models.NewOverscaledTileID(2, 0, 1, 1)
	tile := c.Add(id, flatData(t, 4, 100))
	require.Equal(t, id, tile.ID)
	require.NotZero(t, tile.UID)
	require.Equal(t, 1, c.Len())

	t.Run("tiles get distinct uids", func(t *testing.T) {
		other := c.Add(models.NewOverscaledTileID(2, 0, 1, 2), flatData(t, 4, 50))
		require.NotEqual(t, tile.UID, other.UID)
		require.Equal(t, 2, c.Len())
	})
}

func TestCacheDEMTile(t *testing.T) {
	c := newTestCache(t, 4)
	id := models.NewOverscaledTileID(2, 0, 1, 1)
	added := c.Add(id, flatData(t, 4, 100))

	t.Run("exact identity resolves", func(t *testing.T) {
		require.Equal(t, added, c.DEMTile(id))
	})

	t.Run("unknown identity is nil", func(t *testing.T) {
		require.Nil(t, c.DEMTile(models.NewOverscaledTileID(2, 0, 0, 0)))
	})

	t.Run("child identity does not resolve exactly", func(t *testing.T) {
		require.Nil(t, c.DEMTile(models.NewOverscaledTileID(3, 0, 2, 2)))
	})
}

func TestCacheFindDEMTile(t *testing.T) {
	c := newTestCache(t, 6)
	parent := c.Add(models.NewOverscaledTileID(2, 0, 1, 1), flatData(t, 4, 100))

	t.Run("exact identity", func(t *testing.T) {
		require.Equal(t, parent, c.FindDEMTile(parent.ID))
	})

	t.Run("walks to the nearest resident ancestor", func(t *testing.T) {
		require.Equal(t, parent, c.FindDEMTile(models.NewOverscaledTileID(4, 0, 6, 5)))
	})

	t.Run("prefers the deepest covering tile", func(t *testing.T) {
		mid := c.Add(models.NewOverscaledTileID(3, 0, 3, 2), flatData(t, 4, 50))
		require.Equal(t, mid, c.FindDEMTile(models.NewOverscaledTileID(4, 0, 6, 5)))
	})

	t.Run("identities deeper than max zoom clamp first", func(t *testing.T) {
		require.Equal(t, parent, c.FindDEMTile(models.NewOverscaledTileID(9, 0, 200, 200)))
	})

	t.Run("wrap is preserved through the walk", func(t *testing.T) {
		west := c.Add(models.NewOverscaledTileID(2, -1, 1, 1), flatData(t, 4, 75))
		require.Equal(t, west, c.FindDEMTile(models.NewOverscaledTileID(4, -1, 6, 5)))
	})

	t.Run("nothing covering is nil", func(t *testing.T) {
		require.Nil(t, c.FindDEMTile(models.NewOverscaledTileID(4, 0, 0, 0)))
	})
}

func TestCacheMaxZoom(t *testing.T) {
	t.Run("explicit max zoom wins", func(t *testing.T) {
		c := newTestCache(t, 7)
		c.Add(models.NewOverscaledTileID(9, 0, 0, 0), flatData(t, 2, 0))
		require.Equal(t, uint32(7), c.MaxZoom())
	})

	t.Run("derived from the deepest tile added", func(t *testing.T) {
		c := newTestCache(t, 0)
		require.Equal(t, uint32(0), c.MaxZoom())

		c.Add(models.NewOverscaledTileID(4, 0, 1, 1), flatData(t, 2, 0))
		c.Add(models.NewOverscaledTileID(2, 0, 1, 1), flatData(t, 2, 0))
		require.Equal(t, uint32(4), c.MaxZoom())
	})
}

func TestCacheTiles(t *testing.T) {
	c := newTestCache(t, 4)
	c.Add(models.NewOverscaledTileID(3, 0, 1, 0), flatData(t, 2, 0))
	c.Add(models.NewOverscaledTileID(2, 0, 1, 1), flatData(t, 2, 0))
	c.Add(models.NewOverscaledTileID(2, 0, 0, 1), flatData(t, 2, 0))

	tiles := c.Tiles()
	require.Len(t, tiles, 3)
	require.Equal(t, "2/0/1", tiles[0].ID.String())
	require.Equal(t, "2/1/1", tiles[1].ID.String())
	require.Equal(t, "3/1/0", tiles[2].ID.String())
}
