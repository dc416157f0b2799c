package websocket

import (
	"context"

	"github.com/aukilabs/fjall/models"
	"github.com/aukilabs/fjall/terrain"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

// DefaultMaxQueryPoints bounds how many points a single query frame may
// carry.
const DefaultMaxQueryPoints = 4096

const errTypeInvalidQuery = "invalid_query"

// QueryRequest is a probe frame asking for the elevation at a set of
// longitude/latitude points.
type QueryRequest struct {
	ID      uint64       `json:"id"`
	Points  [][2]float64 `json:"points"`
	Default *float64     `json:"default,omitempty"`
}

// QueryResponse answers a QueryRequest. Elevations and Available are indexed
// like the request points; positions without terrain data carry the query's
// default height and a false flag.
type QueryResponse struct {
	ID         uint64    `json:"id"`
	Elevations []float64 `json:"elevations"`
	Available  []bool    `json:"available"`
}

// ErrorResponse is the last frame sent before the server closes a
// connection whose frame could not be decoded or answered.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ProbeHandler answers elevation query frames for one probe connection.
type ProbeHandler struct {
	// The elevation engine queries are answered from.
	Elevation *terrain.Elevation

	// The maximum number of points accepted per query frame.
	// DefaultMaxQueryPoints when zero.
	MaxQueryPoints int

	sessionUUID string
}

func (h *ProbeHandler) HandleConnect(conn *websocket.Conn) {
	h.sessionUUID = uuid.NewString()
}

func (h *ProbeHandler) HandleQuery(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	if len(req.Points) == 0 {
		return QueryResponse{}, errors.New("query has no points").
			WithType(errTypeInvalidQuery).
			WithTag("query_id", req.ID)
	}

	maxPoints := h.MaxQueryPoints
	if maxPoints <= 0 {
		maxPoints = DefaultMaxQueryPoints
	}
	if len(req.Points) > maxPoints {
		return QueryResponse{}, errors.New("query has too many points").
			WithType(errTypeInvalidQuery).
			WithTag("query_id", req.ID).
			WithTag("point_count", len(req.Points)).
			WithTag("max_point_count", maxPoints)
	}

	var def float64
	if req.Default != nil {
		def = *req.Default
	}

	res := QueryResponse{
		ID:         req.ID,
		Elevations: make([]float64, len(req.Points)),
		Available:  make([]bool, len(req.Points)),
	}

	for i, p := range req.Points {
		lng, lat := p[0], p[1]
		if lat < -90 || lat > 90 {
			return QueryResponse{}, errors.New("query point latitude is out of range").
				WithType(errTypeInvalidQuery).
				WithTag("query_id", req.ID).
				WithTag("lat", lat)
		}

		point := models.MercatorFromLngLat(lng, lat)
		res.Elevations[i] = h.Elevation.AtPoint(point, def)
		res.Available[i] = h.Elevation.IsDataAvailableAtPoint(point)
	}

	return res, nil
}

func (h *ProbeHandler) HandleDisconnect(err error) {
}

func (h *ProbeHandler) Close() {
}

func (h *ProbeHandler) SessionUUID() string {
	return h.sessionUUID
}
