package server_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/angelia/internal/api"
	"github.com/shaharia-lab/angelia/internal/server"
	"github.com/shaharia-lab/angelia/internal/service"
	svcmocks "github.com/shaharia-lab/angelia/internal/service/mocks"
)

func newTestServer(t *testing.T, origins ...string) (http.Handler, *svcmocks.MockNotificationService) {
	t.Helper()
	svc := new(svcmocks.MockNotificationService)
	apiSrv, err := api.New(svc, slog.Default())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "angelia_test_total", Help: "test"}))

	s := server.New(apiSrv, server.Options{
		Port:        0,
		CORSOrigins: origins,
		Gatherer:    reg,
		Logger:      slog.Default(),
	})
	return s.Handler(), svc
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	h, _ := newTestServer(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "angelia_test_total")
}

func TestAPIMountedUnderPrefix(t *testing.T) {
	h, svc := newTestServer(t)
	svc.On("Channels").Return([]service.ChannelInfo{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/channels", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Content-Type"))
}

func TestCORS(t *testing.T) {
	h, _ := newTestServer(t, "https://status.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/api/notifications", nil)
	req.Header.Set("Origin", "https://status.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "https://status.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
