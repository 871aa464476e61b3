package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routedash/internal/config"
	"routedash/internal/dates"
	"routedash/internal/diagnostics"
	"routedash/internal/metrics"
	"routedash/internal/prefs"
	"routedash/internal/stats"
	"routedash/internal/workday"
)

func fptr(v float64) *float64 { return &v }

func testRecords() []workday.Record {
	var out []workday.Record
	for i := 0; i < 35; i++ {
		iso := dates.AddDaysISO("2024-02-05", i)
		if dates.MondayIndexISO(iso) == 6 {
			out = append(out, workday.Record{Date: iso, Status: workday.StatusOff})
			continue
		}
		p := 80 + (i*29)%50
		l := 220 + (i*41)%180
		route := 45 + 1.4*float64(p) + 0.25*float64(l) + float64(i%3)
		out = append(out, workday.Record{
			Date:          iso,
			Status:        workday.StatusWorked,
			Parcels:       p,
			Letters:       l,
			RouteDuration: fptr(route),
		})
	}
	return out
}

func newTestServer(t *testing.T, cfg config.HTTPConfig) (*Server, *metrics.Registry) {
	t.Helper()
	store := workday.NewStore()
	store.Upsert(testRecords()...)
	reg := metrics.NewRegistry()
	clock := dates.FixedClock(time.Date(2024, time.March, 12, 8, 0, 0, 0, time.UTC))
	engine := diagnostics.NewEngine(store, prefs.New(prefs.NewMemoryStore()), stats.DefaultTuning(), clock, reg)
	return NewServer(engine, reg, cfg), reg
}

func defaultHTTP() config.HTTPConfig {
	return config.HTTPConfig{Addr: "127.0.0.1:0", RateLimit: 1000, Burst: 1000}
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndRequestID(t *testing.T) {
	s, reg := newTestServer(t, defaultHTTP())

	rec := do(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 8)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.HTTPRequests.WithLabelValues("/healthz", "200")))
}

func TestModelEndpoint(t *testing.T) {
	s, _ := newTestServer(t, defaultHTTP())

	rec := do(s, http.MethodGet, "/api/model", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body modelBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Model)
	assert.InDelta(t, 1.4, body.Model.BP, 0.05)
	assert.Equal(t, 30, body.FitRows)

	rec = do(s, http.MethodPost, "/api/model/reload", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompareEndpoint(t *testing.T) {
	s, _ := newTestServer(t, defaultHTTP())

	rec := do(s, http.MethodGet, "/api/compare/2024-03-05?mode=baseline", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cmp stats.DayComparison
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmp))
	assert.Equal(t, stats.CompareBaseline, cmp.Mode)
	assert.Contains(t, cmp.Reference.Label, "Weekday average")

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/compare/2024-03-05?mode=manual", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/compare/March-5", "").Code)
	// The first Monday has nothing earlier to compare with.
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/compare/2024-02-05", "").Code)
}

func TestDismissalEndpoints(t *testing.T) {
	s, _ := newTestServer(t, defaultHTTP())

	rec := do(s, http.MethodPost, "/api/dismissals/2024-02-20", `{"reasons":"Detour +20"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res diagnostics.DismissResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Applied)

	rec = do(s, http.MethodGet, "/api/residuals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report stats.ResidualReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.DismissedCount)
	assert.Nil(t, report.All)

	assert.Equal(t, http.StatusUnprocessableEntity, do(s, http.MethodPost, "/api/dismissals/2024-02-21", `{"reasons":" "}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/dismissals/2024-02-21", `not json`).Code)

	assert.Equal(t, http.StatusNoContent, do(s, http.MethodDelete, "/api/dismissals/2024-02-20", "").Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodDelete, "/api/dismissals/2024-02-20", "").Code)
}

func TestPreferenceEndpoints(t *testing.T) {
	s, _ := newTestServer(t, defaultHTTP())

	rec := do(s, http.MethodPut, "/api/preferences/model-scope", `{"scope":"all"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body modelBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, stats.ScopeAll, body.Scope)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPut, "/api/preferences/model-scope", `{"scope":"weekly"}`).Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodPut, "/api/preferences/holiday-downweight", `{"enabled":true}`).Code)

	rec = do(s, http.MethodGet, "/api/context", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var c diagnostics.Context
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.True(t, c.HolidayDownweight)
	assert.Equal(t, stats.ScopeAll, c.Scope)
}

func TestRateLimit(t *testing.T) {
	s, reg := newTestServer(t, config.HTTPConfig{Addr: "127.0.0.1:0", RateLimit: 0.001, Burst: 2})

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/healthz", "").Code)
	rec := do(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.HTTPRateLimit))
}

func TestMetricsAndNotFound(t *testing.T) {
	s, _ := newTestServer(t, defaultHTTP())
	do(s, http.MethodGet, "/api/model", "")

	rec := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "routedash_rebuilds_total")

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/nope", "").Code)
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("host"))
	}
}
