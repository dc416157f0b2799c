package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	handlerLabel = "handler"
	resultLabel  = "result"
)

const (
	handlerElevation = "elevation"
	handlerRaycast   = "raycast"
	handlerTileGrid  = "tile_grid"

	resultOK         = "ok"
	resultFallback   = "fallback"
	resultHit        = "hit"
	resultMiss       = "miss"
	resultNotFound   = "not_found"
	resultBadRequest = "bad_request"
)

var elevationQueryCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "elevation_query_count_total",
	Help: "The total number of elevation queries served, by handler and result.",
}, []string{handlerLabel, resultLabel})

func instrumentQuery(handler, result string) {
	elevationQueryCountTotal.
		With(prometheus.Labels{
			handlerLabel: handler,
			resultLabel:  result,
		}).
		Inc()
}
