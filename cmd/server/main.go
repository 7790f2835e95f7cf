package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/parkit/server/internal/app"
	"github.com/parkit/server/internal/config"
	"github.com/parkit/server/internal/handlers"
	custommw "github.com/parkit/server/internal/middleware"
	"github.com/parkit/server/internal/observability"
	"github.com/parkit/server/internal/services"
)

const serviceName = "parkit-server"

func main() {
	configPath := flag.String("config", "", "path to config file (JSON or YAML)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.GetLogger()
	logger.SetLevel(observability.ParseLevel(cfg.LogLevel))

	// Telemetry must be up before the instrumented components are created
	telemetry, err := observability.Initialize(context.Background(),
		observability.NewConfig(serviceName, handlers.Version, cfg.Telemetry.Enabled, cfg.Telemetry.Endpoint))
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	hub := services.NewWebSocketHub()
	go hub.Run(runCtx)

	a, err := app.New(cfg, services.WithNotifier(services.TopicNotifier{Hub: hub, Topic: services.TopicParking}))
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	logger.Infof("Using %s database", a.DBSystem)
	a.Start(runCtx)

	// Initialize handlers
	parkingHandler := handlers.NewParkingHandler(a.Controller, services.NewHashService(), cfg.Capture.MaxUploadMB<<20)
	guideHandler := handlers.NewGuideHandler(a.Guide)
	healthHandler := handlers.NewHealthHandler(a.Controller)
	wsHandler := handlers.NewWebSocketHandler(hub, a.Controller)

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Telemetry.Enabled {
		r.Use(observability.TracingMiddleware(serviceName))
		if httpMetrics, err := observability.NewHTTPMetrics(); err == nil {
			r.Use(observability.MetricsMiddleware(httpMetrics))
		} else {
			logger.Warnf("Failed to create HTTP metrics: %v", err)
		}
	}
	r.Use(custommw.APIKeyAuth(cfg.Security.APIKey, cfg.Security.APIKeyHeader))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/ws", wsHandler.HandleConnection)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/version", handlers.VersionHandler)

		r.Route("/parking", func(r chi.Router) {
			r.Get("/", parkingHandler.Get)
			r.Post("/", parkingHandler.Capture)
			r.Delete("/", parkingHandler.Clear)
			r.Post("/preview", parkingHandler.Preview)
			r.Get("/photo", parkingHandler.Photo)
		})

		r.Get("/guide", guideHandler.Get)
		r.Post("/guide/dismiss", guideHandler.Dismiss)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("parkit server %s starting on %s", handlers.Version, cfg.ServerAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	stopRun()
	if err := a.Close(); err != nil {
		logger.Errorf("Failed to close database: %v", err)
	}
	if err := telemetry.Shutdown(ctx); err != nil {
		logger.Errorf("Failed to shut down telemetry: %v", err)
	}

	log.Println("Server stopped")
}
