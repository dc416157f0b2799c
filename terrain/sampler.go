package terrain

import (
	"math"

	"github.com/aukilabs/fjall/dem"
	"github.com/aukilabs/fjall/models"
)

// DEMSampler maps extent-space offsets within one target tile onto pixel
// positions of the DEM tile covering it. The affine transform is computed
// once at creation and reused for every sample, which is what makes dense
// point batches cheap.
type DEMSampler struct {
	demTile *dem.Tile
	scale   float64
	offsetX float64
	offsetY float64
}

// NewDEMSampler resolves the DEM tile covering id through the provider, or
// adopts useDemTile when the caller already resolved one. Returns nil when
// no DEM tile covers the identity, or when the supplied tile is deeper than
// the target and cannot cover it.
func NewDEMSampler(p Provider, id models.OverscaledTileID, useDemTile *dem.Tile) *DEMSampler {
	demTile := useDemTile
	if demTile == nil {
		demTile = p.FindDEMTile(id)
	}
	if demTile == nil || demTile.Data == nil {
		return nil
	}
	if demTile.ID.Canonical.Z > id.Canonical.Z {
		return nil
	}

	scale := float64(uint32(1) << (id.Canonical.Z - demTile.ID.Canonical.Z))
	dim := float64(demTile.Data.Dim())
	xOffset := float64(id.Canonical.X)/scale - float64(demTile.ID.Canonical.X)
	yOffset := float64(id.Canonical.Y)/scale - float64(demTile.ID.Canonical.Y)

	return &DEMSampler{
		demTile: demTile,
		scale:   dim / models.Extent / scale,
		offsetX: xOffset * dim,
		offsetY: yOffset * dim,
	}
}

// Tile returns the DEM tile the sampler reads from.
func (s *DEMSampler) Tile() *dem.Tile {
	return s.demTile
}

// TileCoordToPixel returns the DEM grid cell containing the extent-space
// offset (x, y).
func (s *DEMSampler) TileCoordToPixel(x, y float64) (i, j int) {
	px := x*s.scale + s.offsetX
	py := y*s.scale + s.offsetY
	return int(math.Floor(px)), int(math.Floor(py))
}

// ElevationAt samples the unexaggerated height at the extent-space offset
// (x, y), bilinearly interpolated or from the containing grid cell alone.
func (s *DEMSampler) ElevationAt(x, y float64, interpolated bool) float64 {
	px := x*s.scale + s.offsetX
	py := y*s.scale + s.offsetY

	if !interpolated {
		return s.demTile.Data.Get(int(math.Floor(px)), int(math.Floor(py)))
	}
	return s.demTile.Data.BilinearAt(px, py)
}
