package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/turtle/internal/config"
	"github.com/aristath/turtle/internal/di"
	"github.com/aristath/turtle/internal/domain"
	"github.com/aristath/turtle/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *di.Container) {
	t.Helper()
	cfg := &config.Config{
		DataDir:               t.TempDir(),
		Port:                  8001,
		DevMode:               true,
		DefaultInitialBalance: domain.DefaultInitialBalance,
		FallbackRisk:          domain.DefaultRiskSettings(),
		Kiwoom: config.KiwoomConfig{
			BaseURL:   "http://127.0.0.1:1",
			RateLimit: 5,
			Timeout:   2 * time.Second,
		},
	}

	container, jobs, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	return New(Config{Log: zerolog.Nop(), Config: cfg, Container: container, Jobs: jobs}), container
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "turtle", body["service"])
}

func TestServer_HealthReportsClosedDatabase(t *testing.T) {
	s, container := newTestServer(t)
	require.NoError(t, container.PortfolioDB.Close())

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", decodeBody(t, rec)["status"])
}

func TestServer_PortfolioRoutesMounted(t *testing.T) {
	s, _ := newTestServer(t)

	// No credentials: the first read bootstraps the stored ledger
	rec := do(t, s, http.MethodGet, "/api/portfolio/ACC-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "persisted", body["tier"])
	assert.Equal(t, false, body["kiwoomConnected"])

	rec = do(t, s, http.MethodGet, "/api/portfolio/ACC-1/trades", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/portfolio/ACC-1/positions/005930/close", `{"exitPrice":"70000"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/portfolio/ACC-1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSystemHandlers_Status(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/system/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.False(t, status.Broker.Configured)
	assert.True(t, status.Database.Healthy)
	assert.Equal(t, "portfolio.db", status.Database.Name)
	assert.False(t, status.BackupsEnabled)
	assert.Equal(t, []string{"check_database", "reconcile_accounts"}, status.Jobs)
}

func TestSystemHandlers_RunJob(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/system/jobs/check_database/run", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decodeBody(t, rec)["status"])

	rec = do(t, s, http.MethodPost, "/api/system/jobs/rebalance/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type failingJob struct{}

func (failingJob) Run() error   { return errors.New("boom") }
func (failingJob) Name() string { return "failing" }

type directRunner struct{}

func (directRunner) RunNow(job scheduler.Job) error { return job.Run() }

func TestSystemHandlers_RunJobFailure(t *testing.T) {
	h := NewSystemHandlers(nil, BrokerInfo{}, nil, map[string]scheduler.Job{"failing": failingJob{}}, directRunner{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/jobs/failing/run", nil)
	rec := httptest.NewRecorder()
	router := chiRouter(h)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}

func TestSystemHandlers_BackupsDisabled(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/system/backups", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func chiRouter(h *SystemHandlers) http.Handler {
	r := chi.NewRouter()
	r.Post("/jobs/{name}/run", h.HandleRunJob)
	return r
}
