package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

func TestHealthHandler(t *testing.T) {
	ms := New(&Config{Port: 9091}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	ms.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestReadyHandler_StoreUp(t *testing.T) {
	ms := New(&Config{Port: 9091}, stubPinger{}, zap.NewNop())

	rec := httptest.NewRecorder()
	ms.readyHandler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)
}

func TestReadyHandler_StoreDown(t *testing.T) {
	ms := New(&Config{Port: 9091}, stubPinger{err: errors.New("dial tcp: refused")}, zap.NewNop())

	rec := httptest.NewRecorder()
	ms.readyHandler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "store_unreachable")
}

func TestReadyHandler_NoStore(t *testing.T) {
	ms := New(&Config{Port: 9091}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	ms.readyHandler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
