// Package main provides the entrypoint for the PunktePass approval mail worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/config"
	"github.com/punktepass/punktepass/internal/notify"
	"github.com/punktepass/punktepass/internal/telemetry"
	"github.com/punktepass/punktepass/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "punktepass-worker"

	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting PunktePass worker")

	// Worker also exposes health endpoint for Cloud Run
	port := config.GetEnvOrDefault("APP_PORT", "8080")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	smtpCfg := notify.SMTPConfigFromEnv()
	if !smtpCfg.Enabled() {
		log.Fatal().Msg("SMTP_HOST is required")
	}

	workerCfg := worker.ConfigFromEnv()
	if workerCfg.ProjectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		Config: workerCfg,
		Mailer: notify.NewMailer(smtpCfg),
		Logger: log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer func() {
		if closeErr := handler.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close pubsub client")
		}
	}()

	// Create HTTP server for health checks
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK", "version": Version})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start health check server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Start worker loop
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := handler.Start(ctx); err != nil {
			log.Error().Err(err).Msg("pubsub receive stopped")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-done:
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn().Msg("timed out waiting for in-flight messages")
	}

	log.Info().Msg("worker stopped")
}
