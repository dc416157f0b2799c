package http

import (
	"net/http"
	"strconv"

	"github.com/aukilabs/fjall/featureflag"
	"github.com/aukilabs/fjall/models"
	"github.com/aukilabs/fjall/source"
	"github.com/aukilabs/fjall/terrain"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	defaultGridSize = 16
	maxGridSize     = 256
)

type tileGridResponse struct {
	Tile         string      `json:"tile"`
	Size         int         `json:"size"`
	Interpolated bool        `json:"interpolated"`
	Elevations   [][]float64 `json:"elevations"`
}

// HandleTileGrid samples a size x size elevation grid over a tile:
//
//	GET /tiles/{z}/{x}/{y}/grid?size=N[&nearest=true]
//
// Grid rows run north to south and include both tile edges. Responds 404
// when no DEM tile covers the requested tile.
func HandleTileGrid(elevation *terrain.Elevation, flags featureflag.FeatureFlag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		id, err := tileIDFromRequest(r)
		if err != nil {
			instrumentQuery(handlerTileGrid, resultBadRequest)
			badRequest(w, err)
			return
		}

		q := r.URL.Query()

		size := defaultGridSize
		if v := q.Get("size"); v != "" {
			if size, err = strconv.Atoi(v); err != nil {
				instrumentQuery(handlerTileGrid, resultBadRequest)
				badRequest(w, errors.New("invalid grid size").Wrap(err))
				return
			}
		}
		if size < 2 || size > maxGridSize {
			instrumentQuery(handlerTileGrid, resultBadRequest)
			badRequest(w, errors.New("grid size is out of range").
				WithTag("size", size).
				WithTag("min", 2).
				WithTag("max", maxGridSize))
			return
		}

		var nearest bool
		if v := q.Get("nearest"); v != "" {
			if nearest, err = strconv.ParseBool(v); err != nil {
				instrumentQuery(handlerTileGrid, resultBadRequest)
				badRequest(w, errors.New("invalid nearest parameter").Wrap(err))
				return
			}
		}

		interpolated := !nearest
		flags.IfSet(featureflag.FlagDisableBatchInterpolation, func() {
			interpolated = false
		})

		points := make([][3]float64, 0, size*size)
		step := models.Extent / float64(size-1)
		for j := 0; j < size; j++ {
			for i := 0; i < size; i++ {
				points = append(points, [3]float64{float64(i) * step, float64(j) * step, 0})
			}
		}

		if !elevation.ForTilePoints(id, points, interpolated, nil) {
			instrumentQuery(handlerTileGrid, resultNotFound)
			notFound(w, errors.New("no dem tile covers the requested tile").
				WithTag("tile", id.String()))
			return
		}

		elevations := make([][]float64, size)
		for j := range elevations {
			row := make([]float64, size)
			for i := range row {
				row[i] = points[j*size+i][2]
			}
			elevations[j] = row
		}

		instrumentQuery(handlerTileGrid, resultOK)
		writeJSON(w, http.StatusOK, tileGridResponse{
			Tile:         id.String(),
			Size:         size,
			Interpolated: interpolated,
			Elevations:   elevations,
		})
	}
}

type tileInfo struct {
	Tile         string     `json:"tile"`
	UID          uint32     `json:"uid"`
	Dim          int        `json:"dim"`
	Bounds       [4]float64 `json:"bounds"`
	MinElevation float64    `json:"min_elevation"`
	MaxElevation float64    `json:"max_elevation"`
}

type tilesResponse struct {
	Count   int        `json:"count"`
	MaxZoom uint32     `json:"max_zoom"`
	Tiles   []tileInfo `json:"tiles"`
}

// HandleTiles lists the resident DEM tiles with their geographic bounds,
// for inspecting what a deployment has loaded.
func HandleTiles(cache *source.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		tiles := cache.Tiles()

		infos := make([]tileInfo, len(tiles))
		for i, t := range tiles {
			min, max := t.Data.MinMax()
			b := t.ID.Canonical.Bound()

			infos[i] = tileInfo{
				Tile:         t.ID.String(),
				UID:          t.UID,
				Dim:          t.Data.Dim(),
				Bounds:       [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()},
				MinElevation: min,
				MaxElevation: max,
			}
		}

		writeJSON(w, http.StatusOK, tilesResponse{
			Count:   len(infos),
			MaxZoom: cache.MaxZoom(),
			Tiles:   infos,
		})
	}
}

func tileIDFromRequest(r *http.Request) (models.OverscaledTileID, error) {
	z, err := strconv.ParseUint(r.PathValue("z"), 10, 32)
	if err != nil {
		return models.OverscaledTileID{}, errors.New("invalid tile zoom").Wrap(err)
	}

	x, err := strconv.ParseUint(r.PathValue("x"), 10, 32)
	if err != nil {
		return models.OverscaledTileID{}, errors.New("invalid tile x").Wrap(err)
	}

	y, err := strconv.ParseUint(r.PathValue("y"), 10, 32)
	if err != nil {
		return models.OverscaledTileID{}, errors.New("invalid tile y").Wrap(err)
	}

	id := models.NewOverscaledTileID(uint32(z), 0, uint32(x), uint32(y))
	if !id.Canonical.IsValid() {
		return models.OverscaledTileID{}, errors.New("tile address is outside its zoom level").
			WithTag("tile", id.String())
	}
	return id, nil
}
