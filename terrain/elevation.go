package terrain

import (
	"github.com/aukilabs/fjall/dem"
	"github.com/aukilabs/fjall/models"
)

// Elevation answers terrain height queries through a Provider's hooks. All
// operations are synchronous, read-only and O(1) per sample: they never
// trigger tile loads, and missing data falls back to the caller's default
// instead of blocking.
type Elevation struct {
	provider Provider
}

func NewElevation(p Provider) *Elevation {
	return &Elevation{provider: p}
}

// AtPoint returns the terrain height in meters at a normalized mercator
// position, scaled by the provider's current exaggeration. The tile identity
// is resolved at the cache's max zoom; the covering DEM tile may be a
// coarser ancestor. Returns def when there is no cache, Y lies outside
// [0, 1], or no DEM tile covers the position.
func (e *Elevation) AtPoint(point models.MercatorCoordinate, def float64) float64 {
	cache := e.provider.SourceCache()
	if cache == nil || !(point.Y >= 0 && point.Y <= 1) {
		return def
	}

	id := models.TileIDAtCoordinate(point, cache.MaxZoom())
	demTile := e.provider.FindDEMTile(id)
	if demTile == nil || demTile.Data == nil {
		return def
	}

	data := demTile.Data
	dim := float64(data.Dim())
	demTiles := float64(uint32(1) << demTile.ID.Canonical.Z)
	px := point.X - float64(id.Wrap)
	x := (px*demTiles - float64(demTile.ID.Canonical.X)) * dim
	y := (point.Y*demTiles - float64(demTile.ID.Canonical.Y)) * dim

	return e.provider.Exaggeration() * data.BilinearAt(x, y)
}

// AtPointOrZero is AtPoint with a zero default.
func (e *Elevation) AtPointOrZero(point models.MercatorCoordinate) float64 {
	return e.AtPoint(point, 0)
}

// IsDataAvailableAtPoint reports whether a resident DEM tile covers the
// position.
func (e *Elevation) IsDataAvailableAtPoint(point models.MercatorCoordinate) bool {
	cache := e.provider.SourceCache()
	if cache == nil || !(point.Y >= 0 && point.Y <= 1) {
		return false
	}

	demTile := e.provider.FindDEMTile(models.TileIDAtCoordinate(point, cache.MaxZoom()))
	return demTile != nil && demTile.Data != nil
}

// AtTileOffset returns the height at an extent-space offset within the given
// tile, zero when no data covers it. The offset is reinterpreted into
// normalized mercator space arithmetically; no grid lookup happens before
// the point resolution.
func (e *Elevation) AtTileOffset(id models.OverscaledTileID, x, y float64) float64 {
	tiles := float64(uint32(1) << id.Canonical.Z)
	return e.AtPointOrZero(models.MercatorCoordinate{
		X: float64(id.Wrap) + (float64(id.Canonical.X)+x/models.Extent)/tiles,
		Y: (float64(id.Canonical.Y) + y/models.Extent) / tiles,
	})
}

// ForTilePoints fills the height slot of extent-space points sharing one
// target tile. The covering DEM tile is resolved once; useDemTile skips even
// that lookup when the caller already holds the tile. interpolated selects
// bilinear sampling over nearest-cell reads. Returns false, with every point
// untouched, when no DEM tile covers the identity: heights are unknown then,
// not zero.
func (e *Elevation) ForTilePoints(id models.OverscaledTileID, points [][3]float64, interpolated bool, useDemTile *dem.Tile) bool {
	s := NewDEMSampler(e.provider, id, useDemTile)
	if s == nil {
		return false
	}

	exaggeration := e.provider.Exaggeration()
	for i := range points {
		points[i][2] = exaggeration * s.ElevationAt(points[i][0], points[i][1], interpolated)
	}
	return true
}
