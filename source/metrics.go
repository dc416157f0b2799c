package source

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	zoomLabel = "zoom"
)

var (
	demTileCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dem_tile_count",
		Help: "The number of DEM tiles held in the store.",
	})

	demTileLoadCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dem_tile_load_count_total",
		Help: "The total number of DEM tiles added to the store.",
	}, []string{zoomLabel})

	demTileDropCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dem_tile_drop_count_total",
		Help: "The total number of DEM tiles dropped from the store.",
	})

	demTileLoadErrorCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dem_tile_load_error_count_total",
		Help: "The total number of DEM tile fixtures that failed to load.",
	})
)

func instrumentTileAdded(zoom uint32) {
	demTileCount.Inc()
	demTileLoadCountTotal.
		With(prometheus.Labels{zoomLabel: strconv.FormatUint(uint64(zoom), 10)}).
		Inc()
}

func instrumentTileDropped() {
	demTileCount.Dec()
	demTileDropCountTotal.Inc()
}

func instrumentTileLoadError() {
	demTileLoadErrorCountTotal.Inc()
}
