package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and runs it as a client of the
// session that sessionID resolves from the request.
func HandleWebSocket(hub *Hub, sessionID func(*http.Request) string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r)
		if id == "" {
			http.Error(w, "no session", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err, "session", id)
			return
		}

		client := NewClient(hub, conn, id)
		client.Run(r.Context())
	}
}
