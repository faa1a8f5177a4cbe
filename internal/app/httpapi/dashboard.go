package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/alpex-ai/housing-intelligence/internal/app/services/dashboard"
)

func (h *handler) dashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.app.Dashboard.Summary(r.Context())
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) latestMetric(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.Dashboard.LatestMetric(r.Context())
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) metricHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", dashboard.DefaultHistoryLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, err := h.app.Dashboard.MetricHistory(r.Context(), limit)
	respond(w, rows, err)
}

func (h *handler) economicIndex(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", dashboard.DefaultHistoryLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, err := h.app.Dashboard.EconomicIndex(r.Context(), limit)
	respond(w, rows, err)
}

func (h *handler) regional(w http.ResponseWriter, r *http.Request) {
	dated(w, r, h.app.Dashboard.Regional)
}

func (h *handler) builderExpenses(w http.ResponseWriter, r *http.Request) {
	dated(w, r, h.app.Dashboard.BuilderExpenses)
}

func (h *handler) householdExpenses(w http.ResponseWriter, r *http.Request) {
	dated(w, r, h.app.Dashboard.HouseholdExpenses)
}

func (h *handler) crashIndicators(w http.ResponseWriter, r *http.Request) {
	dated(w, r, h.app.Dashboard.CrashIndicators)
}

// dated serves a list filtered by the optional ?date query.
func dated[T any](w http.ResponseWriter, r *http.Request, list func(ctx context.Context, date time.Time) ([]T, error)) {
	date, err := queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, err := list(r.Context(), date)
	respond(w, rows, err)
}

func respond[T any](w http.ResponseWriter, rows []T, err error) {
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	if rows == nil {
		rows = []T{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// metros finds one metro by name with ?q, or lists metros.
func (h *handler) metros(w http.ResponseWriter, r *http.Request) {
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		region, err := h.app.Advisor.FindMetro(r.Context(), q)
		if err != nil {
			writeError(w, statusFor(err, http.StatusInternalServerError), err)
			return
		}
		writeJSON(w, http.StatusOK, region)
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	regions, err := h.app.Advisor.ListMetros(r.Context(), limit)
	respond(w, regions, err)
}

func (h *handler) metroTrend(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid region id"))
		return
	}
	trend, err := h.app.Advisor.MetroTrend(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	if trend == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no values for region %d", id))
		return
	}
	writeJSON(w, http.StatusOK, trend)
}
