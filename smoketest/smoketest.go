// Package smoketest runs a synthetic battery of elevation queries against
// the engine, verifying a build end to end without any DEM fixtures on disk.
package smoketest

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/aukilabs/fjall/dem"
	"github.com/aukilabs/fjall/models"
	"github.com/aukilabs/fjall/source"
	"github.com/aukilabs/fjall/terrain"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Options configures a smoke test run.
type Options struct {
	// The edge length of the synthetic DEM grids. Defaults to 8, values
	// below 4 are raised to the default.
	Dim int

	// The exaggeration applied to the synthetic terrain. Defaults to 1.
	Exaggeration float64
}

// Check is the outcome of one smoke test step.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Results collects the outcome of a full smoke test run.
type Results struct {
	Status           string  `json:"status"`
	Checks           []Check `json:"checks"`
	DurationMilliSec float64 `json:"duration_ms"`
}

// Run executes the smoke test battery against synthetic tile sets built for
// the occasion. Failing checks are reported in the results, never as an
// error.
func Run(ctx context.Context, opts Options) Results {
	start := time.Now()

	r := runner{
		dim:          opts.Dim,
		exaggeration: opts.Exaggeration,
	}
	if r.dim < 4 {
		r.dim = 8
	}
	if r.exaggeration == 0 {
		r.exaggeration = 1
	}

	checks := []struct {
		name string
		run  func() error
	}{
		{name: "point-sampling", run: r.checkPointSampling},
		{name: "fallback", run: r.checkFallback},
		{name: "batch-vs-point", run: r.checkBatchAgainstPoint},
		{name: "raycast", run: r.checkRaycast},
		{name: "seam-continuity", run: r.checkSeamContinuity},
		{name: "live-exaggeration", run: r.checkLiveExaggeration},
	}

	res := Results{Status: StatusSuccess}
	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			res.Status = StatusFailed
			res.Checks = append(res.Checks, Check{
				Name:   c.name,
				Status: StatusFailed,
				Detail: err.Error(),
			})
			break
		}

		check := Check{Name: c.name, Status: StatusSuccess}
		if err := c.run(); err != nil {
			logs.WithTag("check", c.name).
				Warn(errors.New("smoke test check failed").Wrap(err))

			check.Status = StatusFailed
			check.Detail = err.Error()
			res.Status = StatusFailed
		}
		res.Checks = append(res.Checks, check)
	}

	res.DurationMilliSec = float64(time.Since(start)) / float64(time.Millisecond)
	return res
}

// HandleSmokeTest runs the battery and reports its results.
func HandleSmokeTest(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := Run(r.Context(), opts)

		b, err := json.Marshal(res)
		if err != nil {
			logs.Error(errors.New("encoding smoke test results failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	}
}

type runner struct {
	dim          int
	exaggeration float64
}

func (r runner) newElevation(maxZoom uint32) (*terrain.Elevation, *terrain.Terrain, *source.Cache, error) {
	cache, err := source.NewCache(maxZoom, 16)
	if err != nil {
		return nil, nil, nil, err
	}
	t := terrain.New(cache, r.exaggeration, nil)
	return terrain.NewElevation(t), t, cache, nil
}

// rampData builds a grid whose height is linear in the cell address, so the
// bilinear surface is hand computable everywhere in the interior.
func (r runner) rampData() (*dem.Data, error) {
	heights := make([]float64, r.dim*r.dim)
	for j := 0; j < r.dim; j++ {
		for i := 0; i < r.dim; i++ {
			heights[j*r.dim+i] = float64(i) + 10*float64(j)
		}
	}
	return dem.NewFromHeights(r.dim, heights)
}

func (r runner) flatData(height float64) (*dem.Data, error) {
	heights := make([]float64, r.dim*r.dim)
	for i := range heights {
		heights[i] = height
	}
	return dem.NewFromHeights(r.dim, heights)
}

func (r runner) checkPointSampling() error {
	e, _, cache, err := r.newElevation(0)
	if err != nil {
		return err
	}

	data, err := r.rampData()
	if err != nil {
		return err
	}
	cache.Add(models.NewOverscaledTileID(0, 0, 0, 0), data)

	dim := float64(r.dim)
	for _, p := range []struct{ x, y float64 }{
		{0.25, 0.25},
		{0.5, 0.5},
		{0.125, 0.75},
	} {
		want := r.exaggeration * (p.x*dim + 10*p.y*dim)
		got := e.AtPoint(models.MercatorCoordinate{X: p.x, Y: p.y}, math.NaN())
		if math.IsNaN(got) {
			return errors.New("covered position resolved no dem tile").
				WithTag("x", p.x).
				WithTag("y", p.y)
		}
		if math.Abs(got-want) > 1e-9 {
			return errors.New("point sample diverged from the ramp surface").
				WithTag("x", p.x).
				WithTag("y", p.y).
				WithTag("want", want).
				WithTag("got", got)
		}
	}
	return nil
}

func (r runner) checkFallback() error {
	e, _, cache, err := r.newElevation(2)
	if err != nil {
		return err
	}

	data, err := r.flatData(7)
	if err != nil {
		return err
	}
	cache.Add(models.NewOverscaledTileID(2, 0, 0, 0), data)

	covered := models.MercatorCoordinate{X: 0.1, Y: 0.1}
	if got, want := e.AtPoint(covered, -1), 7*r.exaggeration; math.Abs(got-want) > 1e-9 {
		return errors.New("covered position did not answer from the dem").
			WithTag("want", want).
			WithTag("got", got)
	}
	if !e.IsDataAvailableAtPoint(covered) {
		return errors.New("covered position reported no data")
	}

	for _, p := range []models.MercatorCoordinate{
		{X: 0.9, Y: 0.9},
		{X: 0.1, Y: -0.5},
		{X: 0.1, Y: 1.5},
	} {
		for _, def := range []float64{0, -1, 4321.5} {
			if got := e.AtPoint(p, def); got != def {
				return errors.New("uncovered position did not report the default").
					WithTag("x", p.X).
					WithTag("y", p.Y).
					WithTag("def", def).
					WithTag("got", got)
			}
		}
		if e.IsDataAvailableAtPoint(p) {
			return errors.New("uncovered position reported data").
				WithTag("x", p.X).
				WithTag("y", p.Y)
		}
	}
	return nil
}

func (r runner) checkBatchAgainstPoint() error {
	e, t, cache, err := r.newElevation(0)
	if err != nil {
		return err
	}

	data, err := r.rampData()
	if err != nil {
		return err
	}
	cache.Add(models.NewOverscaledTileID(0, 0, 0, 0), data)

	id := models.NewOverscaledTileID(1, 0, 0, 0)
	offsets := [][2]float64{
		{0, 0},
		{models.Extent / 2, models.Extent / 4},
		{1234.5, 678.25},
		{models.Extent, models.Extent},
	}

	interpolated := make([][3]float64, len(offsets))
	for i, o := range offsets {
		interpolated[i] = [3]float64{o[0], o[1], 0}
	}
	if !e.ForTilePoints(id, interpolated, true, nil) {
		return errors.New("no dem tile resolved for batch sampling")
	}
	for _, p := range interpolated {
		want := e.AtTileOffset(id, p[0], p[1])
		if math.Abs(p[2]-want) > 1e-9 {
			return errors.New("batch height diverged from the point path").
				WithTag("u", p[0]).
				WithTag("v", p[1]).
				WithTag("want", want).
				WithTag("got", p[2])
		}
	}

	s := terrain.NewDEMSampler(t, id, nil)
	if s == nil {
		return errors.New("no dem tile resolved for nearest sampling")
	}

	nearest := make([][3]float64, len(offsets))
	for i, o := range offsets {
		nearest[i] = [3]float64{o[0], o[1], 0}
	}
	if !e.ForTilePoints(id, nearest, false, nil) {
		return errors.New("no dem tile resolved for nearest sampling")
	}
	for _, p := range nearest {
		i, j := s.TileCoordToPixel(p[0], p[1])
		if want := r.exaggeration * data.Get(i, j); p[2] != want {
			return errors.New("nearest height is not the containing cell").
				WithTag("u", p[0]).
				WithTag("v", p[1]).
				WithTag("want", want).
				WithTag("got", p[2])
		}
	}
	return nil
}

func (r runner) checkRaycast() error {
	e, _, cache, err := r.newElevation(0)
	if err != nil {
		return err
	}

	data, err := r.flatData(100)
	if err != nil {
		return err
	}
	cache.Add(models.NewOverscaledTileID(0, 0, 0, 0), data)

	surface := 100 * r.exaggeration
	above := models.MercatorCoordinate{
		X: 0.5, Y: 0.5,
		Z: models.MercatorZFromAltitude(surface+500, 0),
	}
	below := models.MercatorCoordinate{
		X: 0.5, Y: 0.5,
		Z: models.MercatorZFromAltitude(surface-200, 0),
	}

	hit, ok := e.Intersect(above, below)
	if !ok {
		return errors.New("raycast did not converge on flat terrain")
	}
	if got := hit.ToAltitude(); math.Abs(got-surface) > 0.011 {
		return errors.New("raycast hit is off the surface").
			WithTag("want", surface).
			WithTag("got", got)
	}

	clearAbove := models.MercatorCoordinate{
		X: 0.5, Y: 0.5,
		Z: models.MercatorZFromAltitude(surface+2000, 0),
	}
	clearBelow := models.MercatorCoordinate{
		X: 0.5, Y: 0.5,
		Z: models.MercatorZFromAltitude(surface+1000, 0),
	}
	if _, ok := e.Intersect(clearAbove, clearBelow); ok {
		return errors.New("raycast hit a segment clear of the terrain")
	}
	return nil
}

func (r runner) checkSeamContinuity() error {
	e, _, cache, err := r.newElevation(1)
	if err != nil {
		return err
	}

	left, err := r.rampData()
	if err != nil {
		return err
	}
	right, err := r.flatData(40)
	if err != nil {
		return err
	}

	if err := left.BackfillBorder(right, 1, 0); err != nil {
		return err
	}
	if err := right.BackfillBorder(left, -1, 0); err != nil {
		return err
	}

	cache.Add(models.NewOverscaledTileID(1, 0, 0, 0), left)
	cache.Add(models.NewOverscaledTileID(1, 0, 1, 0), right)

	dim := float64(r.dim)
	for _, y := range []float64{0, 1.5, dim / 2} {
		a := left.BilinearAt(dim, y)
		b := right.BilinearAt(0, y)
		if math.Abs(a-b) > 1e-9 {
			return errors.New("backfilled seam is discontinuous").
				WithTag("y", y).
				WithTag("west", a).
				WithTag("east", b)
		}
	}

	leftID := models.NewOverscaledTileID(1, 0, 0, 0)
	rightID := models.NewOverscaledTileID(1, 0, 1, 0)
	for _, v := range []float64{0, models.Extent / 3, models.Extent / 2} {
		a := e.AtTileOffset(leftID, models.Extent, v)
		b := e.AtTileOffset(rightID, 0, v)
		if a != b {
			return errors.New("seam offsets resolve to different heights").
				WithTag("v", v).
				WithTag("west", a).
				WithTag("east", b)
		}
	}
	return nil
}

func (r runner) checkLiveExaggeration() error {
	cache, err := source.NewCache(0, 16)
	if err != nil {
		return err
	}

	data, err := r.flatData(50)
	if err != nil {
		return err
	}
	cache.Add(models.NewOverscaledTileID(0, 0, 0, 0), data)

	t := terrain.New(cache, 1, nil)
	e := terrain.NewElevation(t)
	point := models.MercatorCoordinate{X: 0.3, Y: 0.3}

	if got := e.AtPointOrZero(point); math.Abs(got-50) > 1e-9 {
		return errors.New("unexaggerated sample is off").
			WithTag("want", 50).
			WithTag("got", got)
	}

	t.SetExaggeration(3)
	if got := e.AtPointOrZero(point); math.Abs(got-150) > 1e-9 {
		return errors.New("exaggeration update did not apply").
			WithTag("want", 150).
			WithTag("got", got)
	}
	return nil
}
