package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/metaclip/metaclip/pkg/metaclip"
	"github.com/metaclip/metaclip/pkg/metaclip/api"
	"github.com/metaclip/metaclip/pkg/metaclip/config"
	"github.com/metaclip/metaclip/pkg/metaclip/hub"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	repo, executor, closer, err := cfg.BuildRepository(ctx)
	if err != nil {
		slog.Error("failed to build repository", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	blobStore, err := cfg.BuildBlobStore()
	if err != nil {
		slog.Error("failed to build blob store", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	eventHub := hub.New(
		hub.WithBufferSize(cfg.HubBufferSize),
		hub.WithMetrics(registry),
	)
	defer eventHub.Close()

	options := []metaclip.Option{
		metaclip.WithRepository(repo),
		metaclip.WithBlobStore(blobStore),
		metaclip.WithEventPublisher(eventHub),
	}
	if executor != nil {
		options = append(options, metaclip.WithStatementExecutor(executor))
	}

	svc, err := metaclip.New(options...)
	if err != nil {
		slog.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: routes(svc, eventHub, registry, cfg),
	}

	go func() {
		slog.Info("metaclip server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"database", cfg.DatabaseType,
			"storage", cfg.StorageType)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exiting")
}

func routes(svc metaclip.Service, eventHub *hub.Hub, registry *prometheus.Registry, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	auth := api.RequireToken(cfg.AuthTokens)

	queryHandler := api.NewQueryHandler(svc)
	r.With(auth).Post("/api", queryHandler.Execute)

	itemsHandler := api.NewItemsHandler(svc)
	r.Route("/items", func(r chi.Router) {
		r.Use(auth)
		r.Mount("/", itemsHandler.Routes())
	})

	wsHandler := api.NewWSHandler(eventHub)
	r.With(auth).Get("/ws", wsHandler.Serve)

	return r
}
