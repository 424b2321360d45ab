package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kinship/backend/internal/api"
	"kinship/backend/internal/constants"
	"kinship/backend/internal/metrics"
	"kinship/backend/internal/services"
	"kinship/backend/pkg/config"
)

// newServer wires the real router over SQLite the way main does
func newServer(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:                  "development",
		RequestTimeout:       5 * time.Second,
		ContactBackend:       constants.BackendSQLite,
		GraphBackend:         constants.BackendSQLite,
		SQLitePath:           filepath.Join(t.TempDir(), "kinship.db"),
		ReconcileConcurrency: 2,
	}
	collector := metrics.NewCollector("kinship")
	svc, err := services.Start(context.Background(), cfg, collector, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	return api.NewRouter(api.Options{
		Executor:       svc.Executor,
		Metrics:        collector,
		RequestTimeout: cfg.RequestTimeout,
	})
}

func post(t *testing.T, h http.Handler, path, body string) map[string]interface{} {
	t.Helper()
	req, _ := http.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

func TestHealthEndpoint(t *testing.T) {
	h := newServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
}

func TestEllenScenarioOverHTTP(t *testing.T) {
	h := newServer(t)

	resp := post(t, h, "/api/tools/add_or_get_contact", `{"name": "Ellen"}`)
	require.Equal(t, true, resp["success"], resp)

	resp = post(t, h, "/api/tools/add_fact", `{"contact_id": 1, "fact_text": "mother"}`)
	assert.Equal(t, float64(1), resp["data"].(map[string]interface{})["fact_number"])
	resp = post(t, h, "/api/tools/add_fact", `{"contact_id": 1, "fact_text": "lives in Denver"}`)
	assert.Equal(t, float64(2), resp["data"].(map[string]interface{})["fact_number"])

	resp = post(t, h, "/api/tools/delete_fact", `{"contact_id": 1, "fact_number": 1}`)
	require.Equal(t, true, resp["success"], resp)

	resp = post(t, h, "/api/tools/get_contact", `{"contact_id": 1}`)
	found := resp["data"].([]interface{})
	require.Len(t, found, 1)
	facts := found[0].(map[string]interface{})["facts"].([]interface{})
	require.Len(t, facts, constants.FactSlotCount)
	assert.Equal(t, "", facts[0].(map[string]interface{})["text"])
	assert.Equal(t, "lives in Denver", facts[1].(map[string]interface{})["text"])
}

func TestRequestWithoutBody_InvalidJSON(t *testing.T) {
	h := newServer(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/tools/add_fact", bytes.NewBuffer([]byte(`{"contact_id"`)))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
