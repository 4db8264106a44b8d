package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/benefitform/internal/auth"
	"github.com/dukerupert/benefitform/internal/fiscaspec"
	"github.com/dukerupert/benefitform/internal/model"
	"github.com/dukerupert/benefitform/internal/simulation"
	"github.com/dukerupert/benefitform/internal/store"
)

type CalculationHandler struct {
	client *simulation.Client
	calcs  *store.CalculationStore
	spec   *fiscaspec.Loader
	logger *slog.Logger
}

func NewCalculationHandler(c *simulation.Client, cs *store.CalculationStore, spec *fiscaspec.Loader, logger *slog.Logger) *CalculationHandler {
	return &CalculationHandler{client: c, calcs: cs, spec: spec, logger: logger}
}

// Calculate submits the session household to the simulator and merges the
// computed benefits back into it.
func (h *CalculationHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.FromContext(r.Context())

	res, calcErr := h.client.Calculate(r.Context(), s.Household.Get())

	entry := model.Calculation{
		SessionID:  s.ID,
		Month:      s.Month,
		Status:     res.Status,
		Request:    string(res.Request),
		Response:   string(res.Response),
		DurationMS: res.Duration.Milliseconds(),
	}
	if calcErr != nil {
		entry.Error = calcErr.Error()
	}
	if _, err := h.calcs.Record(entry); err != nil {
		h.logger.Error("record calculation", "error", err, "session", s.ID)
	}

	if calcErr != nil {
		if errors.Is(calcErr, simulation.ErrRejected) {
			writeError(w, http.StatusUnprocessableEntity, calcErr.Error())
			return
		}
		h.logger.Warn("calculate", "error", calcErr, "session", s.ID)
		writeError(w, http.StatusBadGateway, "simulator unavailable")
		return
	}

	rev, err := s.Household.MergeResults(res.Household)
	if err != nil {
		h.logger.Error("merge results", "error", err, "session", s.ID)
		writeError(w, http.StatusInternalServerError, "failed to merge results")
		return
	}

	writeJSON(w, http.StatusOK, householdResponse{
		Revision:  rev,
		Month:     string(s.Month),
		Household: s.Household.Get(),
	})
}

// List returns the session's calculation log, newest first.
func (h *CalculationHandler) List(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.FromContext(r.Context())

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	calcs, err := h.calcs.ListBySession(s.ID, limit)
	if err != nil {
		h.logger.Error("list calculations", "error", err, "session", s.ID)
		writeError(w, http.StatusInternalServerError, "failed to list calculations")
		return
	}
	if calcs == nil {
		calcs = []model.Calculation{}
	}
	writeJSON(w, http.StatusOK, calcs)
}

// Spec returns the simulator's household and person definitions.
func (h *CalculationHandler) Spec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.spec.Sections())
}
