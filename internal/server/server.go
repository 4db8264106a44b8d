package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/benefitform/internal/auth"
	"github.com/dukerupert/benefitform/internal/cell"
	"github.com/dukerupert/benefitform/internal/database"
	"github.com/dukerupert/benefitform/internal/field"
	"github.com/dukerupert/benefitform/internal/fiscaspec"
	"github.com/dukerupert/benefitform/internal/handler"
	"github.com/dukerupert/benefitform/internal/middleware"
	"github.com/dukerupert/benefitform/internal/model"
	"github.com/dukerupert/benefitform/internal/session"
	"github.com/dukerupert/benefitform/internal/simulation"
	"github.com/dukerupert/benefitform/internal/store"
	ws "github.com/dukerupert/benefitform/internal/websocket"
)

type Config struct {
	SessionTTL  time.Duration
	MaxChildren int
	Simulation  simulation.Config
	// RateLimit bounds session creation and calculation per client IP.
	RateLimit       int
	RateLimitWindow time.Duration
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	sessions     *session.Manager
	sessionH     *handler.SessionHandler
	formH        *handler.FormHandler
	calculationH *handler.CalculationHandler
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, spec *fiscaspec.Loader, cfg Config, logger *slog.Logger) *Server {
	if cfg.MaxChildren == 0 {
		cfg.MaxChildren = 5
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateLimitWindow == 0 {
		cfg.RateLimitWindow = time.Minute
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	sessionStore := store.NewSessionStore(db)
	calculationStore := store.NewCalculationStore(db)

	manager := session.NewManager(sessionStore, session.Config{
		TTL:         cfg.SessionTTL,
		MaxChildren: cfg.MaxChildren,
	}, logger.With("component", "session"))

	// Push every control and household change to the session's sockets.
	manager.OnCreate(func(s *session.Session) {
		s.Form.OnChange(func(v field.View) {
			hub.Broadcast(s.ID, ws.NewMessage(ws.TypeFieldUpdated, s.Household.Revision(), v))
		})
		s.Household.Subscribe(func(ch cell.Change[model.Household]) {
			hub.Broadcast(s.ID, ws.NewMessage(ws.TypeHouseholdUpdated, ch.Revision, ch.New))
		})
	})
	manager.OnEnd(hub.CloseSession)

	simClient := simulation.NewClient(cfg.Simulation, logger.With("component", "simulation"))

	return &Server{
		db:           db,
		hub:          hub,
		sessions:     manager,
		sessionH:     handler.NewSessionHandler(manager, logger.With("component", "session_handler")),
		formH:        handler.NewFormHandler(cfg.MaxChildren, logger.With("component", "form_handler")),
		calculationH: handler.NewCalculationHandler(simClient, calculationStore, spec, logger.With("component", "calculation")),
		rateLimiter:  middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow),
		logger:       logger,
	}
}

// Sessions returns the session manager for the sweeper.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/sessions", s.rateLimitedHandler(s.sessionH.Create))
	outerMux.HandleFunc("GET /api/spec", s.calculationH.Spec)

	// Session routes, wrapped with RequireSession
	sessionMux := http.NewServeMux()
	s.registerSessionRoutes(sessionMux)

	requireSession := middleware.RequireSession(s.sessions, s.logger.With("component", "auth"))
	sessionLogger := middleware.SessionLogger(s.logger.With("component", "http"))
	outerMux.Handle("/", requireSession(sessionLogger(sessionMux)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	version, err := database.SchemaVersion(s.db)
	if err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"schema":   version,
		"sessions": s.sessions.Count(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerSessionRoutes(mux *http.ServeMux) {
	mux.HandleFunc("DELETE /api/sessions/current", s.sessionH.End)

	mux.HandleFunc("GET /api/household", s.formH.GetHousehold)
	mux.HandleFunc("GET /api/profile", s.formH.GetProfile)
	mux.HandleFunc("PUT /api/profile", s.formH.UpdateProfile)

	mux.HandleFunc("GET /api/form", s.formH.GetForm)
	mux.HandleFunc("PUT /api/form/fields/{key}", s.formH.SelectField)

	mux.HandleFunc("POST /api/calculate", s.rateLimitedHandler(s.calculationH.Calculate))
	mux.HandleFunc("GET /api/calculations", s.calculationH.List)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, func(r *http.Request) string {
		return auth.SessionID(r.Context())
	}, s.logger.With("component", "websocket")))
}

// Close tears down every live session.
func (s *Server) Close() {
	s.sessions.Close()
}
