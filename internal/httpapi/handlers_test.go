package httpapi

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/apetrei/meteotab/internal/frame"
	"github.com/apetrei/meteotab/internal/openmeteo"
	"github.com/apetrei/meteotab/internal/pipeline"
)

// stubResponse implements frame.Response for router tests.
type stubResponse struct {
	start, end, interval int64
	lat, lon             float64
	vars                 [][]float64
}

type stubHourly struct{ r *stubResponse }

func (r *stubResponse) Hourly() frame.Hourly { return stubHourly{r} }
func (r *stubResponse) Latitude() float64    { return r.lat }
func (r *stubResponse) Longitude() float64   { return r.lon }

func (h stubHourly) Time() int64     { return h.r.start }
func (h stubHourly) TimeEnd() int64  { return h.r.end }
func (h stubHourly) Interval() int64 { return h.r.interval }
func (h stubHourly) Variables(i int) []float64 {
	if i < 0 || i >= len(h.r.vars) {
		return nil
	}
	return h.r.vars[i]
}

// newTestRefresher builds a refresher over a canned response. refreshed
// controls whether the first run already happened.
func newTestRefresher(t *testing.T, refreshed bool) *pipeline.Refresher {
	t.Helper()
	resp := &stubResponse{
		start: 0, end: 2 * 3600, interval: 3600,
		lat: 47.0, lon: 28.8,
		vars: [][]float64{{1.5, math.NaN()}, {3, 4}},
	}
	fetcher := pipeline.FetcherFunc(func(ctx context.Context, q openmeteo.Query) (frame.Response, error) {
		return resp, nil
	})
	eng, _ := frame.DetectEngine(true)
	r := pipeline.NewRefresher(
		pipeline.New(fetcher, eng, zap.NewNop()),
		openmeteo.Query{Hourly: []string{"rain", "temperature_2m"}},
		zap.NewNop(),
	)
	if refreshed {
		if err := r.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce() error = %v", err)
		}
	}
	return r
}

func newTestRouter(t *testing.T, refreshed bool, limiter *rate.Limiter) http.Handler {
	t.Helper()
	h := NewHandler(newTestRefresher(t, refreshed), zap.NewNop())
	return NewRouter(h, limiter, zap.NewNop(), time.Second)
}

// TestGetHealth_Starting verifies 503 before the first frame exists.
func TestGetHealth_Starting(t *testing.T) {
	router := newTestRouter(t, false, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "starting" {
		t.Errorf("status field = %v, want starting", body["status"])
	}
}

// TestGetHealth_Healthy verifies 200 once a frame was produced, plus the
// correlation header from the middleware stack.
func TestGetHealth_Healthy(t *testing.T) {
	router := newTestRouter(t, true, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("missing X-Correlation-ID header")
	}
}

// TestGetFrame serves the latest dataset with counters.
func TestGetFrame(t *testing.T) {
	router := newTestRouter(t, true, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/frame", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Mode         string `json:"mode"`
		Materialized int    `json:"materialized"`
		Dropped      int    `json:"dropped"`
		Data         struct {
			Columns []string `json:"columns"`
			Rows    [][]any  `json:"rows"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Mode != "table" {
		t.Errorf("mode = %q, want table", body.Mode)
	}
	if body.Materialized != 2 {
		t.Errorf("materialized = %d, want 2", body.Materialized)
	}
	if len(body.Data.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(body.Data.Rows))
	}
	if len(body.Data.Columns) == 0 || body.Data.Columns[0] != "date" {
		t.Errorf("columns = %v, want date first", body.Data.Columns)
	}
}

// TestGetFrame_NoData verifies 503 with the NO_DATA error code.
func TestGetFrame_NoData(t *testing.T) {
	router := newTestRouter(t, false, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/frame", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Error map[string]string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error["code"] != "NO_DATA" {
		t.Errorf("error code = %q, want NO_DATA", body.Error["code"])
	}
}

// TestGetColumn serves one column and 404s on unknown names.
func TestGetColumn(t *testing.T) {
	router := newTestRouter(t, true, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/frame/columns/rain", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Column string `json:"column"`
		Values []any  `json:"values"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Column != "rain" || len(body.Values) != 2 {
		t.Errorf("body = %+v, want rain with 2 values", body)
	}
	if body.Values[1] != 0.0 {
		t.Errorf("values[1] = %v, want 0 (defaulted)", body.Values[1])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/frame/columns/snow", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown column status = %d, want 404", rec.Code)
	}
}

// TestRateLimit verifies the 429 path once the bucket is drained.
func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, true, rate.NewLimiter(rate.Limit(0.001), 1))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
}
