package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/benefitform/internal/auth"
	"github.com/dukerupert/benefitform/internal/field"
	"github.com/dukerupert/benefitform/internal/form"
	"github.com/dukerupert/benefitform/internal/model"
)

// FormHandler serves the household, the respondent profile and the form
// controls of the current session.
type FormHandler struct {
	maxChildren int
	logger      *slog.Logger
}

func NewFormHandler(maxChildren int, logger *slog.Logger) *FormHandler {
	return &FormHandler{maxChildren: maxChildren, logger: logger}
}

type householdResponse struct {
	Revision  uint64          `json:"revision"`
	Month     string          `json:"month"`
	Household model.Household `json:"household"`
}

func (h *FormHandler) GetHousehold(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, householdResponse{
		Revision:  s.Household.Revision(),
		Month:     string(s.Month),
		Household: s.Household.Get(),
	})
}

func (h *FormHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, s.Profile.Get())
}

// UpdateProfile replaces the respondent's answers. The household follows
// through the session's profile mirror.
func (h *FormHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.FromContext(r.Context())

	var y model.Yourself
	if err := json.NewDecoder(r.Body).Decode(&y); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := y.Validate(h.maxChildren); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.Profile.Set(y)
	writeJSON(w, http.StatusOK, s.Profile.Get())
}

type formResponse struct {
	Fields []field.View `json:"fields"`
}

func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.FromContext(r.Context())
	views, err := s.Form.Views()
	if err != nil {
		h.logger.Error("render form", "error", err, "session", s.ID)
		writeError(w, http.StatusInternalServerError, "failed to render form")
		return
	}
	writeJSON(w, http.StatusOK, formResponse{Fields: views})
}

type selectRequest struct {
	Index *int `json:"index"`
}

// SelectField applies a choice index to one visible control.
func (h *FormHandler) SelectField(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.FromContext(r.Context())
	key := r.PathValue("key")

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}

	view, err := s.Form.Select(key, *req.Index)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, view)
	case errors.Is(err, form.ErrUnknownField):
		writeError(w, http.StatusNotFound, "field not found")
	case errors.Is(err, form.ErrFieldHidden):
		writeError(w, http.StatusConflict, "field is hidden")
	case errors.Is(err, field.ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, field.ErrClosed):
		writeError(w, http.StatusConflict, "field was removed")
	default:
		h.logger.Error("select field", "error", err, "session", s.ID, "key", key)
		writeError(w, http.StatusInternalServerError, "failed to update field")
	}
}
