package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dukerupert/benefitform/internal/database"
	"github.com/dukerupert/benefitform/internal/fiscaspec"
	"github.com/dukerupert/benefitform/internal/logging"
	"github.com/dukerupert/benefitform/internal/server"
	"github.com/dukerupert/benefitform/internal/simulation"
)

func main() {
	logger := logging.Setup(os.Getenv("BENEFITFORM_LOG_LEVEL"), os.Getenv("BENEFITFORM_LOG_FORMAT"))

	port := envOr("BENEFITFORM_PORT", "8080")
	dbPath := envOr("BENEFITFORM_DB_PATH", ":memory:")
	apiURL := strings.TrimRight(envOr("BENEFITFORM_API_URL", "http://localhost:50000"), "/")
	specURL := envOr("BENEFITFORM_SPEC_URL", apiURL+"/spec")

	sessionTTL, err := time.ParseDuration(envOr("BENEFITFORM_SESSION_TTL", "12h"))
	if err != nil || sessionTTL <= 0 {
		slog.Error("invalid BENEFITFORM_SESSION_TTL", "value", os.Getenv("BENEFITFORM_SESSION_TTL"))
		os.Exit(1)
	}
	maxChildren, err := strconv.Atoi(envOr("BENEFITFORM_MAX_CHILDREN", "5"))
	if err != nil || maxChildren < 1 {
		slog.Error("invalid BENEFITFORM_MAX_CHILDREN", "value", os.Getenv("BENEFITFORM_MAX_CHILDREN"))
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	spec := fiscaspec.NewLoader(fiscaspec.Config{URL: specURL}, logger.With("component", "fiscaspec"))
	loadCtx, loadCancel := context.WithTimeout(context.Background(), 15*time.Second)
	spec.Load(loadCtx)
	loadCancel()

	srv := server.New(db, spec, server.Config{
		SessionTTL:  sessionTTL,
		MaxChildren: maxChildren,
		Simulation:  simulation.Config{BaseURL: apiURL},
	}, logger)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go srv.Sessions().Run(sweepCtx, time.Minute)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("benefitform starting", "addr", ":"+port, "api", apiURL, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	sweepCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
