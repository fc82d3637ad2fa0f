package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pmtracker/pmtracker/internal/collector/kalshi"
	"github.com/pmtracker/pmtracker/internal/collector/polymarket"
	"github.com/pmtracker/pmtracker/internal/config"
	"github.com/pmtracker/pmtracker/internal/metrics"
	"github.com/pmtracker/pmtracker/internal/recorder"
	"github.com/pmtracker/pmtracker/internal/scheduler"
	"github.com/pmtracker/pmtracker/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	log.Info("Starting pmtracker collector...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	log.WithFields(logrus.Fields{
		"environment":     cfg.Environment,
		"interval_sec":    cfg.CollectionIntervalSec,
		"tracked_markets": cfg.TrackedMarkets,
		"sources":         cfg.Sources,
	}).Info("Configuration loaded")

	if !cfg.WorkerEnabled {
		log.Info("Worker disabled by configuration, exiting")
		return
	}

	// Initialize database
	db, err := storage.New(cfg.DatabaseDSN, cfg.WorkerDatabaseMaxConns, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Run auto-migration
	if err := db.AutoMigrate(); err != nil {
		log.WithError(err).Fatal("Failed to run database migrations")
	}

	log.Info("Database migrations complete")

	// Build source adapters in the configured order
	sources := buildSources(cfg, log)
	rec := recorder.New(db, log)
	sched := scheduler.New(cfg, rec, sources, log)

	// Start HTTP server (health + metrics)
	go startHTTPServer(cfg.HealthPort, log)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	if err := sched.Run(ctx); err != nil {
		log.WithError(err).Fatal("Scheduler failed")
	}

	log.Info("Graceful shutdown complete")
}

func buildSources(cfg *config.Config, log *logrus.Logger) []scheduler.Source {
	sources := make([]scheduler.Source, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		switch name {
		case "polymarket":
			sources = append(sources, scheduler.Source{Name: storage.SourcePolymarket, Fetcher: polymarket.NewClient(cfg, log)})
		case "kalshi":
			sources = append(sources, scheduler.Source{Name: storage.SourceKalshi, Fetcher: kalshi.NewClient(cfg, log)})
		}
	}
	return sources
}

func startHTTPServer(port int, log *logrus.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordHealthCheck(true)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy"}`)
	})

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.WithField("port", port).Info("Starting HTTP server (health + metrics)")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("HTTP server failed")
	}
}
