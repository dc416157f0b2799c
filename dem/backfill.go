package dem

import "github.com/aukilabs/go-tooling/pkg/errors"

// BackfillBorder overwrites the border region facing a neighboring tile with
// that neighbor's edge data. dx and dy locate the neighbor relative to this
// tile in whole-tile steps, each in [-1, 1]; diagonal offsets fill the
// matching corner cell. Once all eight neighbors are backfilled, bilinear
// reads agree exactly across tile seams.
func (d *Data) BackfillBorder(neighbor *Data, dx, dy int) error {
	if neighbor == nil {
		return errors.New("nil neighbor dem")
	}
	if d.dim != neighbor.dim {
		return errors.New("dem dimension mismatch").
			WithTag("dim", d.dim).
			WithTag("neighbor_dim", neighbor.dim)
	}
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 || (dx == 0 && dy == 0) {
		return errors.New("invalid neighbor offset").
			WithTag("dx", dx).
			WithTag("dy", dy)
	}

	xMin, xMax := dx*d.dim, dx*d.dim+d.dim
	yMin, yMax := dy*d.dim, dy*d.dim+d.dim
	switch dx {
	case -1:
		xMin = xMax - 1
	case 1:
		xMax = xMin + 1
	}
	switch dy {
	case -1:
		yMin = yMax - 1
	case 1:
		yMax = yMin + 1
	}

	ox := -dx * d.dim
	oy := -dy * d.dim
	for y := yMin; y < yMax; y++ {
		for x := xMin; x < xMax; x++ {
			d.values[d.idx(x, y)] = neighbor.values[neighbor.idx(x+ox, y+oy)]
		}
	}
	return nil
}
