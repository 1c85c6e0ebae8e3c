package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"signalguard/internal/bootstrap"
	"signalguard/internal/config"
	"signalguard/internal/engine"
	"signalguard/internal/enrichment"
	"signalguard/internal/logging"
	"signalguard/internal/metrics"
	"signalguard/internal/models"
	"signalguard/internal/store"
	"signalguard/internal/webhook"
)

// appContext bundles the dependencies every handler needs, passed
// explicitly through handler constructors rather than package globals.
type appContext struct {
	settings *config.Settings
	logger   *zap.Logger
	store    store.Store
	engine   *engine.Engine
	queue    *enrichment.Queue
	webhooks *webhook.Dispatcher
}

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	logger, err := logging.New(settings.Environment)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("🔌 connecting to store", zap.String("addr", settings.StoreAddr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.Build(ctx, settings, logger)
	if err != nil {
		log.Fatalf("❌ Failed to build application: %v", err)
	}
	logger.Info("✅ connected to store and engine wired")

	dispatcher := webhook.NewDispatcher(settings.WebhookURLs, settings.WebhookTLSVerify, logger)
	if len(settings.WebhookURLs) > 0 {
		logger.Info("🛡️  webhook delivery enabled", zap.Int("urls", len(settings.WebhookURLs)))
	}

	appCtx := &appContext{
		settings: settings,
		logger:   logger,
		store:    app.Store,
		engine:   app.Engine,
		queue:    app.Queue,
		webhooks: dispatcher,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/analyse", enableCORS(requestID(analyseHandler(appCtx, models.ModeFull))))
	mux.HandleFunc("/analyse/fast", enableCORS(requestID(analyseHandler(appCtx, models.ModeFast))))
	mux.HandleFunc("/results/", enableCORS(requestID(resultsHandler(appCtx))))
	mux.HandleFunc("/admin/stats/overview", enableCORS(requireAdminKey(settings.AdminAPIKey, adminOverviewHandler(appCtx))))
	mux.HandleFunc("/admin/stats/recent-ips", enableCORS(requireAdminKey(settings.AdminAPIKey, adminRecentIPsHandler(appCtx))))
	mux.HandleFunc("/admin/stats/recent-emails", enableCORS(requireAdminKey(settings.AdminAPIKey, adminRecentEmailsHandler(appCtx))))
	mux.HandleFunc("/admin/velocity/", enableCORS(requireAdminKey(settings.AdminAPIKey, adminClearVelocityHandler(appCtx))))
	mux.HandleFunc("/healthz", healthHandler(appCtx))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         addrFromEnv(),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		fmt.Printf("🚀 signalguard api listening on %s\n", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	<-quit
	logger.Info("⏳ shutdown signal received, draining in-flight requests")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}
	logger.Info("✅ server shut down cleanly")
}

func addrFromEnv() string {
	if addr := os.Getenv("SIGNALGUARD_HTTP_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}

// requestID echoes X-Request-ID if present, or mints one,
func requestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-ID", id)
		}
		w.Header().Set("X-Request-ID", id)
		next(w, r)
	}
}

// enableCORS mirrors an established permissive CORS middleware.
func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Admin-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func healthHandler(app *appContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if err := app.store.Ping(r.Context()); err != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
