package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// shutdownGrace bounds how long in-flight queries may delay shutdown.
const shutdownGrace = 10 * time.Second

// ListenAndServe runs the given servers until ctx is canceled, then drains
// them. Queries still in flight get shutdownGrace to complete.
func ListenAndServe(ctx context.Context, servers ...*http.Server) {
	go func() {
		<-ctx.Done()

		drain, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		for _, s := range servers {
			if err := s.Shutdown(drain); err != nil {
				logs.Warn(errors.Newf("shutting down the server failed").
					WithTag("addr", s.Addr).
					Wrap(err))
			}
		}
	}()

	var wg sync.WaitGroup

	for _, s := range servers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			logs.WithTag("addr", s.Addr).Info("server listening")

			err := s.ListenAndServe()
			if err != nil && err != http.ErrServerClosed {
				logs.Warn(errors.Newf("server failed").
					WithTag("addr", s.Addr).
					Wrap(err))
				return
			}
			logs.WithTag("addr", s.Addr).Info("server stopped")
		}()
	}

	wg.Wait()
}

// MetricsPathFormatter returns empty string on HTTP 301, 400, 404 or 405
// statusCode. Tile grid paths collapse onto one pattern so per-tile addresses
// do not fan out into their own metric series.
func MetricsPathFormatter(statusCode int, path string) string {
	if statusCode == http.StatusMovedPermanently ||
		statusCode == http.StatusBadRequest ||
		statusCode == http.StatusNotFound ||
		statusCode == http.StatusMethodNotAllowed {
		return ""
	}

	if strings.HasPrefix(path, "/tiles/") {
		return "/tiles/{z}/{x}/{y}/grid"
	}

	return path
}
