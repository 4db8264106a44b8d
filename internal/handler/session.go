package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/benefitform/internal/auth"
	"github.com/dukerupert/benefitform/internal/middleware"
	"github.com/dukerupert/benefitform/internal/session"
)

type SessionHandler struct {
	manager *session.Manager
	logger  *slog.Logger
}

func NewSessionHandler(m *session.Manager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{manager: m, logger: logger}
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Month     string    `json:"month"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Create starts a session with the default household and sets its cookie.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, token, err := h.manager.Create()
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	writeJSON(w, http.StatusCreated, sessionResponse{
		ID:        s.ID,
		Month:     string(s.Month),
		ExpiresAt: s.ExpiresAt,
	})
}

// End discards the current session and clears the cookie.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	id := auth.SessionID(r.Context())
	if err := h.manager.End(id); err != nil {
		h.logger.Error("end session", "error", err, "session", id)
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
