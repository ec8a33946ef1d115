package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	diagnosticadapter "github.com/ericfisherdev/runreaper/internal/adapter/driven/diagnostic"
	githubadapter "github.com/ericfisherdev/runreaper/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/runreaper/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/runreaper/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/runreaper/internal/adapter/driving/web"
	"github.com/ericfisherdev/runreaper/internal/adapter/driving/webhook"
	"github.com/ericfisherdev/runreaper/internal/application"
	"github.com/ericfisherdev/runreaper/internal/config"
	"github.com/ericfisherdev/runreaper/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"excluded_events", cfg.ExcludedEvents,
		"repo_config_path", cfg.RepoConfigPath,
		"webhook_secret_set", cfg.WebhookSecret != "",
		"debug", cfg.Debug,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	schemaVersion, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	slog.Info("migrations complete", "schema_version", schemaVersion)

	// 5. Wire adapters.
	episodeStore := sqliteadapter.NewEpisodeRepo(db)
	ghClient := githubadapter.NewClient(cfg.GitHubToken, cfg.RepoConfigPath)

	var sink driven.DiagnosticSink = driven.NopSink{}
	if cfg.Debug {
		sink = diagnosticadapter.NewFileSink(cfg.DebugFile, logger)
		slog.Info("diagnostic sink enabled", "path", cfg.DebugFile)
	}

	// 6. Create services.
	reconcileSvc := application.NewReconcileService(ghClient, episodeStore, sink, cfg.ExcludedEvents, logger)
	eventSvc := application.NewEventService(ghClient, ghClient, logger)

	// 7. Register routes.
	mux := http.NewServeMux()

	hookHandler := webhook.NewHandler(reconcileSvc, eventSvc, sink, cfg.WebhookSecret, logger)
	webhook.RegisterRoutes(mux, hookHandler)

	apiHandler := httphandler.NewHandler(episodeStore, cfg.HistoryLimit, logger)
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	webHandler := webhandler.NewHandler(episodeStore, cfg.HistoryLimit, logger)
	webhandler.RegisterRoutes(mux, webHandler)

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("runreaper started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Stop accepting deliveries, then drain in-flight episodes before the
	// database closes. Jobs still running at the deadline are cancelled.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	if err := hookHandler.Drain(shutdownCtx); err != nil {
		slog.Error("webhook jobs cancelled before finishing", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
