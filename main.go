package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streampay/internal/database"
	"streampay/internal/handlers"
	"streampay/internal/logging"
	"streampay/internal/metrics"
	"streampay/internal/middleware"
	"streampay/internal/scanner"
	"streampay/internal/startup"
	"streampay/internal/streaming"
	"streampay/internal/transcode"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	// Refresh database gauges periodically
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		for range ticker.C {
			db.UpdateDBMetrics()
		}
	}()

	// Initialize transcode orchestrator
	orch := transcode.New(db, config.FFmpegPath, config.LeaseTimeout)
	startup.LogTranscoderInit(orch.FFmpegPath(), orch.FFprobePath())

	// Initialize scanner
	startup.LogScannerInit(config.ScanInterval, config.ScanBatchSize)
	sc := scanner.New(db, config.LibraryDir, config.Categories, config.ScanBatchSize, config.ScanInterval)
	sc.SetProber(orch.Prober())

	// Streaming delivery
	strategy, err := streaming.NewStrategy(config.DeliveryMode, config.InternalMount, config.LibraryDir)
	if err != nil {
		startup.LogFatal("Delivery configuration error: %v", err)
	}
	resolver := streaming.NewResolver(config.LibraryDir)

	// Start background workers
	sc.Start()
	orch.Start()
	startup.LogScannerStarted()

	// Initialize handlers
	h := handlers.New(db, sc, orch, resolver, strategy)

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply metrics middleware
	metered := middleware.Metrics(middleware.DefaultMetricsConfig())(router)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	logged := middleware.Logger(loggingConfig)(metered)

	// The player front-end is served from another origin, so the API
	// answers cross-origin requests from anywhere.
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Range"},
		ExposedHeaders: []string{"Content-Range", "Accept-Ranges", "Content-Length"},
	}).Handler(logged)

	// Create server
	srv := &http.Server{
		Addr:        ":" + config.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Streaming responses can legitimately run for hours; the
		// chunked writer enforces its own per-write timeout instead.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics are on their own port so they stay off the public surface
	if config.MetricsEnabled {
		go func() {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(":"+config.MetricsPort, metricsMux); err != nil {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, sc, orch)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.VersionInfo).Methods("GET")

	// The whole API surface dispatches on the action query parameter.
	// HEAD is allowed so players can probe stream sizes.
	r.HandleFunc("/api", h.API).Methods("GET", "POST", "HEAD")

	return r
}

func handleShutdown(srv *http.Server, sc *scanner.Scanner, orch *transcode.Orchestrator) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping scanner")
	sc.Stop()
	startup.LogShutdownStepComplete("Scanner stopped")

	startup.LogShutdownStep("Stopping transcode orchestrator")
	orch.Stop()
	startup.LogShutdownStepComplete("Transcode orchestrator stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
