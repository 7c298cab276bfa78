package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"creditshop/services/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestLivenessAndReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewTestDB(t)

	h := ProvideHealth(HealthParams{DB: db})
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, statusHealthy, body.Status)
	require.Len(t, body.Deps, 1)
	require.Equal(t, "database:sqlite", body.Deps[0].Name)
}

func TestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := ProvideHealth(HealthParams{})
	r := gin.New()
	r.GET("/metrics", h.Metrics)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}
