package websocket

import (
	"context"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

// HandlerWithLogs wraps a handler to log the connection lifecycle and a
// per-connection traffic summary on disconnect.
func HandlerWithLogs(h Handler) Handler {
	return &handlerWithLogs{Handler: h}
}

type handlerWithLogs struct {
	Handler

	remoteAddr string

	mutex      sync.Mutex
	queryCount int
	pointCount int
}

func (h *handlerWithLogs) HandleConnect(conn *websocket.Conn) {
	h.Handler.HandleConnect(conn)

	if conn != nil {
		if req := conn.Request(); req != nil {
			h.remoteAddr = req.RemoteAddr
		}
	}

	logs.WithTag("session_uuid", h.SessionUUID()).
		WithTag("remote_addr", h.remoteAddr).
		Info("probe client connected")
}

func (h *handlerWithLogs) HandleQuery(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	res, err := h.Handler.HandleQuery(ctx, req)
	if err != nil {
		logs.WithTag("session_uuid", h.SessionUUID()).
			WithTag("query_id", req.ID).
			Warn(errors.New("handling probe query failed").Wrap(err))
		return res, err
	}

	h.mutex.Lock()
	h.queryCount++
	h.pointCount += len(req.Points)
	h.mutex.Unlock()

	logs.WithTag("session_uuid", h.SessionUUID()).
		WithTag("query_id", req.ID).
		WithTag("point_count", len(req.Points)).
		Debug("probe query answered")
	return res, nil
}

func (h *handlerWithLogs) HandleDisconnect(err error) {
	h.Handler.HandleDisconnect(err)

	h.mutex.Lock()
	queryCount, pointCount := h.queryCount, h.pointCount
	h.mutex.Unlock()

	entry := logs.WithTag("session_uuid", h.SessionUUID()).
		WithTag("remote_addr", h.remoteAddr).
		WithTag("query_count", queryCount).
		WithTag("point_count", pointCount)
	if err != nil {
		entry = entry.WithTag("reason", err.Error())
	}
	entry.Info("probe client disconnected")
}
