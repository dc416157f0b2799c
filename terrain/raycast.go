package terrain

import (
	"math"

	"github.com/aukilabs/fjall/models"
)

const (
	intersectMaxSamples = 20
	intersectThreshold  = 0.01
)

// Intersect bisects the segment from start to end against the terrain
// surface and returns the point where they meet, within intersectThreshold
// meters. The search assumes the segment crosses the surface at most once;
// for segments that cross repeatedly it may settle on any crossing or on
// none. False means the sample budget ran out before a point within the
// threshold was found, a legitimate outcome for segments that stay clear of
// the terrain, not an error.
func (e *Elevation) Intersect(start, end models.MercatorCoordinate) (models.MercatorCoordinate, bool) {
	for i := 0; i < intersectMaxSamples; i++ {
		mid := models.MercatorCoordinate{
			X: (start.X + end.X) / 2,
			Y: (start.Y + end.Y) / 2,
			Z: (start.Z + end.Z) / 2,
		}

		diff := e.AtPointOrZero(mid) - mid.ToAltitude()
		if math.Abs(diff) < intersectThreshold {
			return mid, true
		}

		// terrain above the midpoint pulls the far end in, terrain below
		// pushes the near end out
		if diff > 0 {
			end = mid
		} else {
			start = mid
		}
	}

	return models.MercatorCoordinate{}, false
}
