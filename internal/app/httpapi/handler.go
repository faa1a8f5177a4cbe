// Package httpapi exposes the housing services over REST.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"

	app "github.com/alpex-ai/housing-intelligence/internal/app"
	"github.com/alpex-ai/housing-intelligence/internal/app/metrics"
	advisorsvc "github.com/alpex-ai/housing-intelligence/internal/app/services/advisor"
	"github.com/alpex-ai/housing-intelligence/internal/app/storage"
	"github.com/alpex-ai/housing-intelligence/pkg/logger"
)

// Options configures the REST handler.
type Options struct {
	// CronSecret guards sync, seed, import and advisor routes. Empty leaves
	// them open.
	CronSecret string
	// ZHVIURL is fetched by /api/import/zhvi when the request has no body.
	ZHVIURL     string
	CORSOrigins []string
	// AuditSink receives privileged requests as JSON lines.
	AuditSink io.Writer
	Clock     clockwork.Clock
	Log       *logger.Logger
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app     *app.Application
	zhviURL string
	audit   *auditLog
	clock   clockwork.Clock
	log     *logger.Logger
}

// NewHandler returns a router exposing the REST API.
func NewHandler(application *app.Application, opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = logger.NewDefault("httpapi")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	h := &handler{
		app:     application,
		zhviURL: opts.ZHVIURL,
		audit:   newAuditLog(0, opts.AuditSink, opts.Clock),
		clock:   opts.Clock,
		log:     opts.Log,
	}
	auth := newBearerAuth(opts.CronSecret, h.audit, opts.Log)

	router := mux.NewRouter()
	router.Use(metrics.InstrumentHandler)
	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	dash := api.PathPrefix("/dashboard").Subrouter()
	dash.Methods(http.MethodGet).Path("/summary").HandlerFunc(h.dashboardSummary)
	dash.Methods(http.MethodGet).Path("/metrics/latest").HandlerFunc(h.latestMetric)
	dash.Methods(http.MethodGet).Path("/metrics/history").HandlerFunc(h.metricHistory)
	dash.Methods(http.MethodGet).Path("/regional").HandlerFunc(h.regional)
	dash.Methods(http.MethodGet).Path("/expenses/builder").HandlerFunc(h.builderExpenses)
	dash.Methods(http.MethodGet).Path("/expenses/household").HandlerFunc(h.householdExpenses)
	dash.Methods(http.MethodGet).Path("/crash-indicators").HandlerFunc(h.crashIndicators)
	dash.Methods(http.MethodGet).Path("/economic-index").HandlerFunc(h.economicIndex)

	api.Methods(http.MethodGet).Path("/metros").HandlerFunc(h.metros)
	api.Methods(http.MethodGet).Path("/metros/{id:[0-9]+}/trend").HandlerFunc(h.metroTrend)

	cron := api.NewRoute().Subrouter()
	cron.Use(auth.Handler)
	cron.Methods(http.MethodGet, http.MethodPost).Path("/cron/sync-fred").HandlerFunc(h.syncFRED)
	cron.Methods(http.MethodGet, http.MethodPost).Path("/cron/sync-all").HandlerFunc(h.syncAll)
	cron.Methods(http.MethodPost).Path("/cron/sync-history").HandlerFunc(h.syncHistory)
	cron.Methods(http.MethodGet).Path("/cron/audit").HandlerFunc(h.auditEntries)
	cron.Methods(http.MethodPost).Path("/seed").HandlerFunc(h.seed)
	cron.Methods(http.MethodPost).Path("/import/zhvi").HandlerFunc(h.importZHVI)

	user := cron.NewRoute().Subrouter()
	user.Use(requireUser)
	user.Methods(http.MethodPost).Path("/analyze-scenario").HandlerFunc(h.analyzeScenario)
	user.Methods(http.MethodGet).Path("/homes").HandlerFunc(h.listHomes)
	user.Methods(http.MethodPost).Path("/homes").HandlerFunc(h.createHome)
	user.Methods(http.MethodGet).Path("/homes/{id}").HandlerFunc(h.getHome)
	user.Methods(http.MethodPut).Path("/homes/{id}").HandlerFunc(h.updateHome)
	user.Methods(http.MethodDelete).Path("/homes/{id}").HandlerFunc(h.deleteHome)
	user.Methods(http.MethodGet).Path("/homes/{id}/appraisals").HandlerFunc(h.listAppraisals)
	user.Methods(http.MethodPost).Path("/homes/{id}/appraisals").HandlerFunc(h.addAppraisal)
	user.Methods(http.MethodGet).Path("/scenarios").HandlerFunc(h.listScenarios)
	user.Methods(http.MethodPost).Path("/scenarios").HandlerFunc(h.createScenario)
	user.Methods(http.MethodGet).Path("/scenarios/{id}").HandlerFunc(h.getScenario)
	user.Methods(http.MethodDelete).Path("/scenarios/{id}").HandlerFunc(h.deleteScenario)
	user.Methods(http.MethodPost).Path("/scenarios/{id}/refresh").HandlerFunc(h.refreshScenario)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	})

	return newCORS(opts.CORSOrigins).Handler(router)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"services": h.app.Services(),
		"time":     h.clock.Now().UTC(),
	})
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

// statusFor maps service errors to HTTP status codes. Errors it does not
// recognise get fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, advisorsvc.ErrHomeNotFound),
		errors.Is(err, advisorsvc.ErrScenarioNotFound):
		return http.StatusNotFound
	case errors.Is(err, advisorsvc.ErrInvalidScenarioType):
		return http.StatusBadRequest
	}
	return fallback
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

// queryDate parses ?date=YYYY-MM-DD. A missing value returns the zero time.
func queryDate(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Time{}, nil
	}
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return date, nil
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
