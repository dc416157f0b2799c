package dem

import (
	"fmt"
	"image"
	"math"

	"github.com/aukilabs/fjall/models"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Border is the number of cells kept around a tile's height grid. The border
// starts as a clamped copy of the nearest edge and may later be overwritten
// with neighbor data, so interpolation stays continuous across tile seams.
const Border = 1

// Data holds the decoded height grid of a single DEM tile, padded with a
// border on every side. Heights are meters.
type Data struct {
	dim    int
	stride int
	values []float32
	min    float64
	max    float64
}

func newData(dim int) *Data {
	stride := dim + 2*Border
	return &Data{
		dim:    dim,
		stride: stride,
		values: make([]float32, stride*stride),
	}
}

// NewFromImage decodes a square raster DEM tile. The border is synthesized
// from the nearest interior cells.
func NewFromImage(img image.Image, encoding Encoding) (*Data, error) {
	bounds := img.Bounds()
	if bounds.Dx() != bounds.Dy() {
		return nil, errors.New("dem tile is not square").
			WithTag("width", bounds.Dx()).
			WithTag("height", bounds.Dy())
	}
	if bounds.Dx() == 0 {
		return nil, errors.New("dem tile is empty")
	}

	d := newData(bounds.Dx())
	for y := 0; y < d.dim; y++ {
		for x := 0; x < d.dim; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			d.values[d.idx(x, y)] = float32(encoding.Unpack(
				uint8(r>>8),
				uint8(g>>8),
				uint8(b>>8),
			))
		}
	}

	d.clampBorder()
	d.computeMinMax()
	return d, nil
}

// NewFromHeights builds a tile from a row-major dim*dim grid of heights in
// meters. The border is synthesized from the nearest interior cells.
func NewFromHeights(dim int, heights []float64) (*Data, error) {
	if dim <= 0 {
		return nil, errors.New("dem dimension must be positive").
			WithTag("dim", dim)
	}
	if len(heights) != dim*dim {
		return nil, errors.New("height count does not match dem dimension").
			WithTag("dim", dim).
			WithTag("count", len(heights))
	}

	d := newData(dim)
	for y := 0; y < dim; y++ {
		for x := 0; x < dim; x++ {
			d.values[d.idx(x, y)] = float32(heights[y*dim+x])
		}
	}

	d.clampBorder()
	d.computeMinMax()
	return d, nil
}

// Dim returns the edge length of the tile's interior grid.
func (d *Data) Dim() int {
	return d.dim
}

// Get returns the height at the given cell. Coordinates may overrun the
// interior by exactly the border width on each side. Anything farther is a
// programming error and panics.
func (d *Data) Get(x, y int) float64 {
	return float64(d.values[d.idx(x, y)])
}

// BilinearAt interpolates the height at fractional pixel coordinates. Both
// the point and the batch sampling paths resolve through here so a given
// world position yields one height no matter how it was asked for.
//
// Coordinates may reach the far tile edge exactly; the sample then resolves
// as the limit from the interior, reading the border row or column instead
// of overrunning it.
func (d *Data) BilinearAt(x, y float64) float64 {
	i := int(math.Floor(x))
	j := int(math.Floor(y))
	if i == d.dim {
		i--
	}
	if j == d.dim {
		j--
	}
	fx := x - float64(i)
	fy := y - float64(j)

	return interpolate(
		interpolate(d.Get(i, j), d.Get(i, j+1), fy),
		interpolate(d.Get(i+1, j), d.Get(i+1, j+1), fy),
		fx,
	)
}

// MinMax returns the lowest and highest interior heights, fixed at
// construction.
func (d *Data) MinMax() (min, max float64) {
	return d.min, d.max
}

func (d *Data) idx(x, y int) int {
	if x < -Border || x > d.dim || y < -Border || y > d.dim {
		panic(fmt.Sprintf("dem: cell (%d, %d) out of range for dim %d", x, y, d.dim))
	}
	return (y+Border)*d.stride + (x + Border)
}

func (d *Data) clampBorder() {
	for i := 0; i < d.dim; i++ {
		d.values[d.idx(-1, i)] = d.values[d.idx(0, i)]
		d.values[d.idx(d.dim, i)] = d.values[d.idx(d.dim-1, i)]
		d.values[d.idx(i, -1)] = d.values[d.idx(i, 0)]
		d.values[d.idx(i, d.dim)] = d.values[d.idx(i, d.dim-1)]
	}
	d.values[d.idx(-1, -1)] = d.values[d.idx(0, 0)]
	d.values[d.idx(d.dim, -1)] = d.values[d.idx(d.dim-1, 0)]
	d.values[d.idx(-1, d.dim)] = d.values[d.idx(0, d.dim-1)]
	d.values[d.idx(d.dim, d.dim)] = d.values[d.idx(d.dim-1, d.dim-1)]
}

func (d *Data) computeMinMax() {
	d.min = math.Inf(1)
	d.max = math.Inf(-1)
	for y := 0; y < d.dim; y++ {
		for x := 0; x < d.dim; x++ {
			v := float64(d.values[d.idx(x, y)])
			d.min = math.Min(d.min, v)
			d.max = math.Max(d.max, v)
		}
	}
}

func interpolate(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// Tile is a loaded DEM tile as held by a tile store.
type Tile struct {
	ID   models.OverscaledTileID
	UID  uint32
	Data *Data
}
