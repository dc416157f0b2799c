package smoketest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	res := Run(context.Background(), Options{})

	require.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.Checks, 6)
	for _, c := range res.Checks {
		require.Equal(t, StatusSuccess, c.Status, c.Name)
		require.Empty(t, c.Detail, c.Name)
	}
}

func TestRunWithOptions(t *testing.T) {
	res := Run(context.Background(), Options{Dim: 16, Exaggeration: 2.5})

	require.Equal(t, StatusSuccess, res.Status)
	for _, c := range res.Checks {
		require.Equal(t, StatusSuccess, c.Status, c.Name)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Run(ctx, Options{})
	require.Equal(t, StatusFailed, res.Status)
	require.NotEmpty(t, res.Checks)
	require.Equal(t, StatusFailed, res.Checks[0].Status)
	require.NotEmpty(t, res.Checks[0].Detail)
}

func TestHandleSmokeTest(t *testing.T) {
	w := httptest.NewRecorder()
	HandleSmokeTest(Options{})(w, httptest.NewRequest(http.MethodGet, "/smoke-test", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var res Results
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.Checks, 6)
}
