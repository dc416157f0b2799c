// Package http provides the handlers and the serving plumbing of the
// elevation service.
package http

import (
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aukilabs/fjall/models"
	"github.com/aukilabs/fjall/terrain"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

type elevationResponse struct {
	Elevation float64 `json:"elevation"`
	Available bool    `json:"available"`
}

// HandleElevation serves single point elevation queries:
//
//	GET /elevation?lng=LNG&lat=LAT[&def=DEF]
//
// Positions without terrain data report the def fallback (0 when omitted)
// and available false.
func HandleElevation(elevation *terrain.Elevation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()

		lng, err := queryFloat(q, "lng")
		if err != nil {
			instrumentQuery(handlerElevation, resultBadRequest)
			badRequest(w, err)
			return
		}

		lat, err := queryFloat(q, "lat")
		if err == nil && (lat < -90 || lat > 90) {
			err = errors.New("latitude is out of range").
				WithTag("lat", lat)
		}
		if err != nil {
			instrumentQuery(handlerElevation, resultBadRequest)
			badRequest(w, err)
			return
		}

		var def float64
		if q.Get("def") != "" {
			if def, err = queryFloat(q, "def"); err != nil {
				instrumentQuery(handlerElevation, resultBadRequest)
				badRequest(w, err)
				return
			}
		}

		point := models.MercatorFromLngLat(lng, lat)
		res := elevationResponse{
			Elevation: elevation.AtPoint(point, def),
			Available: elevation.IsDataAvailableAtPoint(point),
		}

		if res.Available {
			instrumentQuery(handlerElevation, resultOK)
		} else {
			instrumentQuery(handlerElevation, resultFallback)
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type raycastRequest struct {
	From []float64 `json:"from"`
	To   []float64 `json:"to"`
}

type raycastPoint struct {
	Lng       float64 `json:"lng"`
	Lat       float64 `json:"lat"`
	Elevation float64 `json:"elevation"`
}

type raycastResponse struct {
	Hit   bool          `json:"hit"`
	Point *raycastPoint `json:"point,omitempty"`
}

// HandleRaycast serves ray and terrain intersection queries:
//
//	POST /raycast {"from": [lng, lat, alt], "to": [lng, lat, alt]}
//
// A non-converging ray reports hit false with no point.
func HandleRaycast(elevation *terrain.Elevation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		b, err := io.ReadAll(r.Body)
		if err != nil {
			instrumentQuery(handlerRaycast, resultBadRequest)
			internalServerError(w, errors.New("reading request body failed").Wrap(err))
			return
		}

		var req raycastRequest
		if err := json.Unmarshal(b, &req); err != nil {
			instrumentQuery(handlerRaycast, resultBadRequest)
			badRequest(w, errors.New("decoding request body failed").Wrap(err))
			return
		}

		start, err := rayEndpoint(req.From, "from")
		if err != nil {
			instrumentQuery(handlerRaycast, resultBadRequest)
			badRequest(w, err)
			return
		}

		end, err := rayEndpoint(req.To, "to")
		if err != nil {
			instrumentQuery(handlerRaycast, resultBadRequest)
			badRequest(w, err)
			return
		}

		hit, ok := elevation.Intersect(start, end)

		res := raycastResponse{Hit: ok}
		if ok {
			ll := hit.ToLngLat()
			res.Point = &raycastPoint{
				Lng:       ll.Lon(),
				Lat:       ll.Lat(),
				Elevation: hit.ToAltitude(),
			}
			instrumentQuery(handlerRaycast, resultHit)
		} else {
			instrumentQuery(handlerRaycast, resultMiss)
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func rayEndpoint(v []float64, name string) (models.MercatorCoordinate, error) {
	if len(v) != 3 {
		return models.MercatorCoordinate{}, errors.New("ray endpoint must be a [lng, lat, alt] triple").
			WithTag("endpoint", name).
			WithTag("length", len(v))
	}

	if lat := v[1]; lat < -90 || lat > 90 {
		return models.MercatorCoordinate{}, errors.New("ray endpoint latitude is out of range").
			WithTag("endpoint", name).
			WithTag("lat", lat)
	}

	return models.MercatorFromLngLatAltitude(v[0], v[1], v[2]), nil
}

func queryFloat(q url.Values, name string) (float64, error) {
	v, err := strconv.ParseFloat(q.Get(name), 64)
	if err != nil {
		return 0, errors.New("invalid query parameter").
			WithTag("parameter", name).
			Wrap(err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("query parameter is not finite").
			WithTag("parameter", name)
	}
	return v, nil
}
