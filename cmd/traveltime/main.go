// Command traveltime serves travel-duration lookups over HTTP, NATS,
// WebSocket and MCP, and runs one-off lookups from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfhttp "github.com/Strob0t/TravelTime/internal/adapter/http"
	cfmcp "github.com/Strob0t/TravelTime/internal/adapter/mcp"
	cfnats "github.com/Strob0t/TravelTime/internal/adapter/nats"
	cfotel "github.com/Strob0t/TravelTime/internal/adapter/otel"
	"github.com/Strob0t/TravelTime/internal/adapter/ristretto"
	"github.com/Strob0t/TravelTime/internal/adapter/ws"
	"github.com/Strob0t/TravelTime/internal/config"
	"github.com/Strob0t/TravelTime/internal/logger"
	"github.com/Strob0t/TravelTime/internal/middleware"
	"github.com/Strob0t/TravelTime/internal/port/broadcast"
	"github.com/Strob0t/TravelTime/internal/resilience"
	"github.com/Strob0t/TravelTime/internal/secrets"
)

const (
	version      = "0.1.0"
	mcpAPIKeyEnv = "TRAVELTIME_MCP_API_KEY"
)

func main() {
	var err error
	if len(os.Args) > 1 && os.Args[1] == "lookup" {
		err = runLookup(os.Args[2:])
	} else {
		err = run(os.Args[1:])
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	cfg, configPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"config_file", configPath,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Backend,
		"log_level", cfg.Logging.Level,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := cfotel.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	s, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	// --- Events ---
	hub := ws.NewHub(cfg.Server.CORSOrigin)
	defer hub.Close()

	var events broadcast.Broadcaster = hub
	if s.bus != nil {
		// Every instance relays the shared event stream to its own clients,
		// so services publish to NATS only.
		events = s.bus
		cancelRelay, err := s.bus.Subscribe(ctx, cfnats.EventSubject(">"), func(ctx context.Context, subject string, data []byte) error {
			hub.Relay(ctx, strings.TrimPrefix(subject, cfnats.EventSubject("")), data)
			return nil
		})
		if err != nil {
			return fmt.Errorf("event relay: %w", err)
		}
		defer cancelRelay()

		cancelResponder, err := s.bus.Respond(cfg.NATS.Subject, s.dispatcher.Handle)
		if err != nil {
			return fmt.Errorf("nats responder: %w", err)
		}
		defer cancelResponder()
	}
	s.lookups.SetBroadcaster(events)
	s.distances.SetBroadcaster(events)

	// --- HTTP ---
	limiter := middleware.NewRateLimiter(cfg.Rate)
	limiter.StartCleanup(ctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)

	handlers := &cfhttp.Handlers{
		Lookups:      s.lookups,
		Distances:    s.distances,
		Destinations: s.destinations,
		Origins:      s.origins,
		Settings:     s.settings,
		Dispatcher:   s.dispatcher,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfotel.HTTPMiddleware(cfg.OTel.ServiceName))

	r.Get("/health", healthHandler(cfg, s, hub))
	r.Get("/ws", hub.HandleWS)

	if cfg.MCP.Enabled {
		apiKey, err := mcpKey(ctx, cfg)
		if err != nil {
			return err
		}
		mcpSrv := cfmcp.NewServer(
			cfmcp.ServerConfig{Name: "traveltime", Version: version, APIKey: apiKey},
			cfmcp.ServerDeps{Lookups: s.lookups, Distances: s.distances, Destinations: s.destinations},
		)
		mountMCP(r, mcpSrv.Handler(), limiter.Handler)
		slog.Info("mcp server mounted", "path", "/mcp", "auth", apiKey() != "")
	}

	cfhttp.MountRoutes(r, handlers, limiter.Handler)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// mountMCP serves the MCP endpoint behind the same per-IP limit as the API.
func mountMCP(r chi.Router, h http.Handler, limit func(http.Handler) http.Handler) {
	r.Handle("/mcp", limit(h))
}

// mcpKey returns the MCP API key source. The .env file is re-read on
// SIGHUP so the key can be rotated without a restart; the configured key
// applies while the file sets none.
func mcpKey(ctx context.Context, cfg *config.Config) (func() string, error) {
	vault, err := secrets.NewVault(secrets.DotEnvLoader(config.DefaultEnvFile, mcpAPIKeyEnv))
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	vault.ReloadOn(ctx, syscall.SIGHUP)
	if vault.Get(mcpAPIKeyEnv) != "" {
		slog.Info("mcp api key loaded", "source", config.DefaultEnvFile, "key", vault.Redacted(mcpAPIKeyEnv))
	}
	fromVault := vault.Getter(mcpAPIKeyEnv)
	return func() string {
		if k := fromVault(); k != "" {
			return k
		}
		return cfg.MCP.APIKey
	}, nil
}

// healthHandler reports the storage backend, upstream breaker and the
// connected transports.
func healthHandler(cfg *config.Config, s *stack, hub *ws.Hub) http.HandlerFunc {
	type healthStatus struct {
		Status          string           `json:"status"`
		Version         string           `json:"version"`
		Storage         string           `json:"storage"`
		Breaker         resilience.Mode  `json:"breaker"`
		BreakerFailures int              `json:"breaker_failures"`
		BreakerRetryAt  *time.Time       `json:"breaker_retry_at,omitempty"`
		NATS            string           `json:"nats"`
		WSConnections   int              `json:"ws_connections"`
		L1              *ristretto.Stats `json:"l1,omitempty"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		breaker := s.breaker.Snapshot()
		status := healthStatus{
			Status:          "ok",
			Version:         version,
			Storage:         cfg.Storage.Backend,
			Breaker:         breaker.Mode,
			BreakerFailures: breaker.Failures,
			NATS:            "disabled",
			WSConnections:   hub.ConnectionCount(),
		}
		if s.l1 != nil {
			st := s.l1.Stats()
			status.L1 = &st
		}
		code := http.StatusOK
		if s.bus != nil {
			status.NATS = "connected"
			if !s.bus.IsConnected() {
				status.NATS = "disconnected"
				status.Status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		if !breaker.RetryAt.IsZero() {
			status.BreakerRetryAt = &breaker.RetryAt
		}
		if status.Breaker == resilience.Open && status.Status == "ok" {
			status.Status = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
