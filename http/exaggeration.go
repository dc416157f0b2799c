package http

import (
	"io"
	"net/http"

	"github.com/aukilabs/fjall/terrain"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
)

type exaggerationPayload struct {
	Exaggeration float64 `json:"exaggeration"`
}

// HandleExaggeration reads and updates the live height multiplier:
//
//	GET  /exaggeration
//	POST /exaggeration {"exaggeration": N}
//
// Updates apply to queries in flight immediately. The handler is meant for
// the admin server.
func HandleExaggeration(t *terrain.Terrain) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:

		case http.MethodPost:
			b, err := io.ReadAll(r.Body)
			if err != nil {
				internalServerError(w, errors.New("reading request body failed").Wrap(err))
				return
			}

			var req exaggerationPayload
			if err := json.Unmarshal(b, &req); err != nil {
				badRequest(w, errors.New("decoding request body failed").Wrap(err))
				return
			}

			if req.Exaggeration < 0 {
				badRequest(w, errors.New("exaggeration cannot be negative").
					WithTag("exaggeration", req.Exaggeration))
				return
			}

			t.SetExaggeration(req.Exaggeration)
			logs.WithTag("exaggeration", req.Exaggeration).
				Info("exaggeration updated")

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		writeJSON(w, http.StatusOK, exaggerationPayload{
			Exaggeration: t.Exaggeration(),
		})
	}
}
