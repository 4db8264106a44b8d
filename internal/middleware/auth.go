package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/benefitform/internal/auth"
	"github.com/dukerupert/benefitform/internal/session"
)

const SessionCookieName = "benefitform_session"

// RequireSession resolves the session cookie to a live session and stores it
// in the request context. Requests without one get 401.
func RequireSession(manager *session.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			s, err := manager.Lookup(cookie.Value)
			if err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					logger.Error("lookup session", "error", err)
				}
				unauthorized(w)
				return
			}

			ctx := auth.WithSession(r.Context(), s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "no active session"})
}
