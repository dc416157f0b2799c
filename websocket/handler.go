// Package websocket streams elevation queries over a probe connection: one
// query frame in, one response frame out, on a single long-lived socket.
package websocket

import (
	"context"
	"io"

	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// Handler represents a probe connection handler.
type Handler interface {
	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles an elevation query frame.
	HandleQuery(ctx context.Context, req QueryRequest) (QueryResponse, error)

	// Handles a client's disconnection.
	HandleDisconnect(err error)

	// Closes the handler and releases its allocated resources.
	Close()

	// The identity assigned to the connection, for logs and debugging.
	SessionUUID() string
}

// Codec marshals probe frames with the same JSON encoding the rest of the
// service uses.
var Codec = websocket.Codec{
	Marshal: func(v any) ([]byte, byte, error) {
		b, err := json.Marshal(v)
		return b, websocket.TextFrame, err
	},
	Unmarshal: func(data []byte, payloadType byte, v any) error {
		return json.Unmarshal(data, v)
	},
}

// Handle runs the probe loop on the given connection until the client
// leaves, the context ends, or a frame cannot be handled. A frame that
// cannot be decoded or answered is reported back in a final error frame
// before the connection closes.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	h.HandleConnect(conn)

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()

		case <-stop:
		}
	}()

	for {
		var req QueryRequest
		if err := Codec.Receive(conn, &req); err != nil {
			if err == io.EOF || ctx.Err() != nil {
				h.HandleDisconnect(nil)
				return
			}

			sendError(conn, err)
			h.HandleDisconnect(err)
			return
		}

		res, err := h.HandleQuery(ctx, req)
		if err != nil {
			sendError(conn, err)
			h.HandleDisconnect(err)
			return
		}

		if err := Codec.Send(conn, res); err != nil {
			h.HandleDisconnect(err)
			return
		}
	}
}

func sendError(conn *websocket.Conn, err error) {
	_ = Codec.Send(conn, ErrorResponse{Error: err.Error()})
}
