// Package httpapi serves the latest materialized weather frame over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/apetrei/meteotab/internal/frame"
	"github.com/apetrei/meteotab/internal/observability"
	"github.com/apetrei/meteotab/internal/pipeline"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	refresher *pipeline.Refresher
	logger    *zap.Logger
	started   time.Time
}

// NewHandler returns a new Handler.
func NewHandler(refresher *pipeline.Refresher, logger *zap.Logger) *Handler {
	return &Handler{refresher: refresher, logger: logger, started: time.Now()}
}

// NewRouter wires the routes with correlation, metrics, timeout and rate
// limit middleware. limiter may be nil to disable rate limiting.
func NewRouter(h *Handler, limiter *rate.Limiter, logger *zap.Logger, requestTimeout time.Duration) *mux.Router {
	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(limiter))

	r.HandleFunc("/healthz", h.GetHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	frameRoutes := r.PathPrefix("/v1/frame").Subrouter()
	if requestTimeout > 0 {
		frameRoutes.Use(TimeoutMiddleware(requestTimeout))
	}
	frameRoutes.HandleFunc("", h.GetFrame).Methods(http.MethodGet)
	frameRoutes.HandleFunc("/columns/{name}", h.GetColumn).Methods(http.MethodGet)
	return r
}

// GetHealth handles GET /healthz. The service reports starting until the
// first successful refresh produced a frame, healthy afterwards. A later
// failed refresh does not flip the status back; the last good frame keeps
// serving.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	statusCode := http.StatusOK
	checks := map[string]string{"frame": "ready"}
	if h.refresher.Latest() == nil {
		status = "starting"
		statusCode = http.StatusServiceUnavailable
		checks["frame"] = "pending"
	}

	writeJSONStatus(w, statusCode, map[string]interface{}{
		"status":    status,
		"service":   "meteotab",
		"checks":    checks,
		"uptime":    time.Since(h.started).Truncate(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetFrame handles GET /v1/frame. Serves the most recent cleaned dataset
// with materialization counters.
func (h *Handler) GetFrame(w http.ResponseWriter, r *http.Request) {
	latest := h.refresher.Latest()
	if latest == nil {
		writeError(w, r, http.StatusServiceUnavailable, "NO_DATA", "no frame has been materialized yet")
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]interface{}{
		"mode":         latest.Mode,
		"materialized": latest.Materialized,
		"dropped":      latest.Dropped,
		"data":         latest.Data,
	})
}

// GetColumn handles GET /v1/frame/columns/{name}.
func (h *Handler) GetColumn(w http.ResponseWriter, r *http.Request) {
	latest := h.refresher.Latest()
	if latest == nil {
		writeError(w, r, http.StatusServiceUnavailable, "NO_DATA", "no frame has been materialized yet")
		return
	}

	name := mux.Vars(r)["name"]
	values, ok := columnCells(latest.Data, name)
	if !ok {
		writeError(w, r, http.StatusNotFound, "COLUMN_NOT_FOUND", "no column named "+name)
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]interface{}{
		"column": name,
		"values": values,
	})
}

// columnCells pulls one column out of either dataset representation.
func columnCells(d frame.Dataset, name string) ([]any, bool) {
	switch data := d.(type) {
	case *frame.Table:
		if !data.HasColumn(name) {
			return nil, false
		}
		return data.Column(name), true
	case frame.Rows:
		if len(data) == 0 {
			return nil, false
		}
		if _, ok := data[0][name]; !ok {
			return nil, false
		}
		cells := make([]any, len(data))
		for i, rec := range data {
			cells[i] = rec[name]
		}
		return cells, true
	default:
		return nil, false
	}
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSONStatus(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
