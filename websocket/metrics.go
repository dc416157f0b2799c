package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/websocket"
)

const errTypeLabel = "error_type"

var (
	probeConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "probe_connected_clients",
		Help: "The number of connected probe clients.",
	})

	probeQueryCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "probe_query_count_total",
		Help: "The total number of probe queries answered.",
	})

	probeQueryErrorCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "probe_query_error_count_total",
		Help: "The total number of probe queries that failed.",
	}, []string{errTypeLabel})

	probePointCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "probe_point_count_total",
		Help: "The total number of points sampled through probe queries.",
	})

	probeQueryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "probe_query_latency",
		Help: "The time to answer a probe query.",
	})
)

// HandlerWithMetrics wraps a handler to instrument connections, queries and
// sampled point volumes.
func HandlerWithMetrics(h Handler) Handler {
	return &handlerWithMetrics{Handler: h}
}

type handlerWithMetrics struct {
	Handler
}

func (h *handlerWithMetrics) HandleConnect(conn *websocket.Conn) {
	probeConnectedClients.Inc()
	h.Handler.HandleConnect(conn)
}

func (h *handlerWithMetrics) HandleQuery(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	start := time.Now()

	res, err := h.Handler.HandleQuery(ctx, req)
	if err != nil {
		probeQueryErrorCountTotal.
			With(prometheus.Labels{errTypeLabel: errors.Type(err)}).
			Inc()
		return res, err
	}

	probeQueryCountTotal.Inc()
	probePointCountTotal.Add(float64(len(req.Points)))
	probeQueryLatency.Observe(time.Since(start).Seconds())
	return res, nil
}

func (h *handlerWithMetrics) HandleDisconnect(err error) {
	probeConnectedClients.Dec()
	h.Handler.HandleDisconnect(err)
}
