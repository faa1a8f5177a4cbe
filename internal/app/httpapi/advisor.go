package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/alpex-ai/housing-intelligence/internal/app/domain/advisor"
	advisorsvc "github.com/alpex-ai/housing-intelligence/internal/app/services/advisor"
)

var (
	errMissingScenarioFields = errors.New("Missing required fields: homeId, targetCity, scenarioType")
	errHomeNotFound          = errors.New("Home not found or unauthorized")
)

func (h *handler) analyzeScenario(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		HomeID       string               `json:"homeId"`
		TargetCity   string               `json:"targetCity"`
		ScenarioType advisor.ScenarioType `json:"scenarioType"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.HomeID == "" || strings.TrimSpace(payload.TargetCity) == "" || payload.ScenarioType == "" {
		writeError(w, http.StatusBadRequest, errMissingScenarioFields)
		return
	}

	analysis, err := h.app.Advisor.Analyze(r.Context(), userFromContext(r.Context()), payload.HomeID, payload.TargetCity, payload.ScenarioType)
	switch {
	case errors.Is(err, advisorsvc.ErrHomeNotFound):
		writeError(w, http.StatusNotFound, errHomeNotFound)
		return
	case errors.Is(err, advisorsvc.ErrInvalidScenarioType):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		h.log.WithError(err).WithField("home_id", payload.HomeID).Error("scenario analysis failed")
		writeFailure(w, "Analysis failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"analysis": analysis,
	})
}

func (h *handler) listHomes(w http.ResponseWriter, r *http.Request) {
	homes, err := h.app.Advisor.ListHomes(r.Context(), userFromContext(r.Context()))
	respond(w, homes, err)
}

func (h *handler) createHome(w http.ResponseWriter, r *http.Request) {
	var home advisor.Home
	if err := decodeJSON(r.Body, &home); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	home.UserID = userFromContext(r.Context())
	created, err := h.app.Advisor.CreateHome(r.Context(), home)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) getHome(w http.ResponseWriter, r *http.Request) {
	home, err := h.app.Advisor.GetHome(r.Context(), userFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, home)
}

func (h *handler) updateHome(w http.ResponseWriter, r *http.Request) {
	var home advisor.Home
	if err := decodeJSON(r.Body, &home); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	home.ID = mux.Vars(r)["id"]
	updated, err := h.app.Advisor.UpdateHome(r.Context(), userFromContext(r.Context()), home)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteHome(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Advisor.DeleteHome(r.Context(), userFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listAppraisals(w http.ResponseWriter, r *http.Request) {
	appraisals, err := h.app.Advisor.ListAppraisals(r.Context(), userFromContext(r.Context()), mux.Vars(r)["id"])
	respond(w, appraisals, err)
}

func (h *handler) addAppraisal(w http.ResponseWriter, r *http.Request) {
	var appraisal advisor.Appraisal
	if err := decodeJSON(r.Body, &appraisal); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	appraisal.HomeID = mux.Vars(r)["id"]
	created, err := h.app.Advisor.AddAppraisal(r.Context(), userFromContext(r.Context()), appraisal)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.app.Advisor.ListScenarios(r.Context(), userFromContext(r.Context()))
	respond(w, scenarios, err)
}

func (h *handler) createScenario(w http.ResponseWriter, r *http.Request) {
	var req advisorsvc.ScenarioRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sc, err := h.app.Advisor.CreateScenario(r.Context(), userFromContext(r.Context()), req)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (h *handler) getScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := h.app.Advisor.GetScenario(r.Context(), userFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *handler) refreshScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := h.app.Advisor.RefreshScenario(r.Context(), userFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *handler) deleteScenario(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Advisor.DeleteScenario(r.Context(), userFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
