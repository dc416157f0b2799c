package models

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// CanonicalTileID identifies a tile in the standard XYZ scheme, without wrap
// or overscaling.
type CanonicalTileID struct {
	Z uint32
	X uint32
	Y uint32
}

// IsValid reports whether X and Y address a tile that exists at zoom Z.
func (id CanonicalTileID) IsValid() bool {
	return id.Z < 32 && id.X < 1<<id.Z && id.Y < 1<<id.Z
}

// MapTile returns the orb representation of the tile.
func (id CanonicalTileID) MapTile() maptile.Tile {
	return maptile.New(id.X, id.Y, maptile.Zoom(id.Z))
}

// Bound returns the tile's geographic bounds in degrees.
func (id CanonicalTileID) Bound() orb.Bound {
	return id.MapTile().Bound()
}

func (id CanonicalTileID) String() string {
	return fmt.Sprintf("%d/%d/%d", id.Z, id.X, id.Y)
}

// OverscaledTileID identifies a tile as addressed by the renderer: a
// canonical tile, possibly reused at a higher zoom (Z > Canonical.Z when the
// data source ran out of zoom levels), in a specific world copy. The zero
// Wrap is the prime world copy; negative values lie to the west.
//
// The type is comparable and used as a map key by the tile store.
type OverscaledTileID struct {
	Z         uint32
	Wrap      int
	Canonical CanonicalTileID
}

// NewOverscaledTileID builds an identity whose overscaled and canonical zooms
// agree.
func NewOverscaledTileID(z uint32, wrap int, x, y uint32) OverscaledTileID {
	return OverscaledTileID{
		Z:    z,
		Wrap: wrap,
		Canonical: CanonicalTileID{
			Z: z,
			X: x,
			Y: y,
		},
	}
}

// TileIDAtCoordinate returns the identity of the tile containing c at zoom z.
// The world copy comes from the floor of c.X, so coordinates west of the
// prime copy resolve into negative wraps rather than being truncated toward
// zero.
func TileIDAtCoordinate(c MercatorCoordinate, z uint32) OverscaledTileID {
	wrap := c.Wrap()
	tiles := float64(uint32(1) << z)
	x := (c.X - float64(wrap)) * tiles
	y := c.Y * tiles
	return NewOverscaledTileID(z, wrap,
		uint32(math.Floor(x)),
		uint32(math.Floor(y)),
	)
}

// ScaledTo returns the identity covering the same area at zoom z. Scaling
// below the canonical zoom walks up the tile pyramid; scaling above keeps the
// canonical tile and only raises the overscaled zoom.
func (id OverscaledTileID) ScaledTo(z uint32) OverscaledTileID {
	if z >= id.Canonical.Z {
		return OverscaledTileID{
			Z:         z,
			Wrap:      id.Wrap,
			Canonical: id.Canonical,
		}
	}

	diff := id.Canonical.Z - z
	return OverscaledTileID{
		Z:    z,
		Wrap: id.Wrap,
		Canonical: CanonicalTileID{
			Z: z,
			X: id.Canonical.X >> diff,
			Y: id.Canonical.Y >> diff,
		},
	}
}

// IsChildOf reports whether parent covers id from a lower zoom in the same
// world copy. The world tile at zoom 0 covers everything in its copy.
func (id OverscaledTileID) IsChildOf(parent OverscaledTileID) bool {
	if parent.Wrap != id.Wrap {
		return false
	}
	if parent.Z == 0 {
		return true
	}
	if parent.Z >= id.Z || parent.Canonical.Z >= id.Canonical.Z {
		return false
	}

	diff := id.Canonical.Z - parent.Canonical.Z
	return parent.Canonical.X == id.Canonical.X>>diff &&
		parent.Canonical.Y == id.Canonical.Y>>diff
}

func (id OverscaledTileID) String() string {
	if id.Z == id.Canonical.Z && id.Wrap == 0 {
		return id.Canonical.String()
	}
	return fmt.Sprintf("%d/%d/%d/%d:%d",
		id.Z,
		id.Canonical.Z,
		id.Canonical.X,
		id.Canonical.Y,
		id.Wrap,
	)
}
