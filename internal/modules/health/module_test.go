package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mt5_gateway/internal/models"
	"mt5_gateway/internal/modules/health/service"
	"mt5_gateway/internal/modules/terminal/fake"
	terminal "mt5_gateway/internal/modules/terminal/service"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadinessFollowsTerminal(t *testing.T) {
	session := terminal.NewSession(fake.New(), models.Credentials{Login: 1})
	mux := NewMux(service.NewState(session.Connected, nil))

	assert.Equal(t, http.StatusOK, get(t, mux, "/livez").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, mux, "/readyz").Code)

	require.NoError(t, session.EnsureConnected(context.Background()))
	assert.Equal(t, http.StatusOK, get(t, mux, "/readyz").Code)
}

func TestHealthzReportsStore(t *testing.T) {
	connected := func() bool { return true }
	broken := func(context.Context) error { return errors.New("db is gone") }
	mux := NewMux(service.NewState(connected, broken))

	rec := get(t, mux, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ready"])
	assert.Equal(t, false, body["storeOk"])
	assert.Equal(t, "db is gone", body["storeError"])
}
