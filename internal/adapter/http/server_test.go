package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckReadiness(context.Context) error { return s.err }

func testServer(ready error) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(":0", stubChecker{err: ready}, logger)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	testServer(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReadyzWhenReady(t *testing.T) {
	rec := httptest.NewRecorder()
	testServer(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestReadyzWhenNotReady(t *testing.T) {
	rec := httptest.NewRecorder()
	srv := testServer(errors.New("no requests processed"))
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no requests processed")
}

func TestProducts(t *testing.T) {
	rec := httptest.NewRecorder()
	testServer(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Products []string `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Products, "CDI")
	assert.Contains(t, body.Products, "SPI")
}

func TestMetricsEndpointRegistered(t *testing.T) {
	rec := httptest.NewRecorder()
	testServer(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
