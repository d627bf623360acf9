// Package main provides the entrypoint for the PunktePass API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/api"
	"github.com/punktepass/punktepass/internal/api/middleware"
	"github.com/punktepass/punktepass/internal/auditlog"
	"github.com/punktepass/punktepass/internal/auth"
	"github.com/punktepass/punktepass/internal/config"
	"github.com/punktepass/punktepass/internal/database"
	"github.com/punktepass/punktepass/internal/fingerprint"
	"github.com/punktepass/punktepass/internal/notify"
	"github.com/punktepass/punktepass/internal/resilience"
	"github.com/punktepass/punktepass/internal/scan"
	"github.com/punktepass/punktepass/internal/store"
	"github.com/punktepass/punktepass/internal/telemetry"
	"github.com/punktepass/punktepass/internal/userdevice"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "punktepass-api"

	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting PunktePass API")

	port := config.GetEnvOrDefault("APP_PORT", "8080")

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)

	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Float64("sample_ratio", telemetryCfg.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	scanMetrics, err := scan.NewMetrics(tp.Meter)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize scan metrics")
		os.Exit(1)
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	applied, err := database.Migrate(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}
	if len(applied) > 0 {
		log.Info().Strs("migrations", applied).Msg("migrations applied")
	}

	limits := config.LimitsFromEnv()
	log.Info().
		Int("max_accounts_per_device", limits.MaxAccountsPerDevice).
		Int("max_devices_per_store", limits.MaxDevicesPerStore).
		Int("rate_limit_scans", limits.RateLimitScans).
		Dur("rate_limit_window", limits.RateLimitWindow).
		Bool("atomic_account_limit", limits.AtomicAccountLimit).
		Msg("limits loaded")

	audit := auditlog.NewLogger(auditlog.NewPostgresRepository(pool), log)
	storeService := store.NewService(store.NewPostgresRepository(pool))

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     os.Getenv("JWT_ISSUER"),
		Audience:   os.Getenv("JWT_AUDIENCE"),
	})

	adminKey := os.Getenv("ADMIN_API_KEY")
	if adminKey == "" {
		log.Warn().Msg("ADMIN_API_KEY not set - admin endpoints are disabled")
	}

	authService := auth.NewService(auth.ServiceConfig{
		JWT:      jwtService,
		Stores:   storeService,
		AdminKey: adminKey,
		Logger:   log,
	})
	log.Info().Msg("auth service initialized")

	scanService := scan.NewService(scan.ServiceConfig{
		Ledger:  scan.NewPostgresLedger(pool),
		Stores:  storeService,
		Audit:   audit,
		Logger:  log,
		Limits:  limits,
		Metrics: scanMetrics,
	})
	log.Info().Msg("scan service initialized")

	fingerprintService := fingerprint.NewService(fingerprint.ServiceConfig{
		Repository:  fingerprint.NewPostgresRepository(pool),
		Audit:       audit,
		Logger:      log,
		MaxAccounts: limits.MaxAccountsPerDevice,
	})
	log.Info().Msg("fingerprint service initialized")

	// Initialize the approval notifier
	dependencies := resilience.NewRegistry()
	notifier, stopNotifier := newNotifier(ctx, log, dependencies)
	defer stopNotifier()

	userDeviceService := userdevice.NewService(userdevice.ServiceConfig{
		Repository: userdevice.NewPostgresRepository(pool),
		Stores:     storeService,
		Notifier:   notifier,
		Audit:      audit,
		Logger:     log,
		MaxDevices: limits.MaxDevicesPerStore,
		PublicURL:  config.GetEnvOrDefault("PUBLIC_URL", "http://localhost:"+port),
	})
	log.Info().Msg("user device service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		AuthService:        authService,
		ScanService:        scanService,
		FingerprintService: fingerprintService,
		UserDeviceService:  userDeviceService,
		AtomicAccountLimit: limits.AtomicAccountLimit,
		Database:           pool,
		Dependencies:       dependencies,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// newNotifier selects the approval transport from NOTIFIER. The returned
// function releases the transport on shutdown.
func newNotifier(ctx context.Context, log zerolog.Logger, registry *resilience.Registry) (notify.Notifier, func()) {
	noop := func() {}

	switch kind := config.GetEnvOrDefault("NOTIFIER", "log"); kind {
	case "smtp":
		smtpCfg := notify.SMTPConfigFromEnv()
		if !smtpCfg.Enabled() {
			log.Warn().Msg("NOTIFIER=smtp but SMTP_HOST is not set - logging approval requests instead")
			return notify.NewLogNotifier(log), noop
		}
		log.Info().Str("host", smtpCfg.Host).Msg("approval requests sent by email")
		return notify.NewMailer(smtpCfg), noop

	case "pubsub":
		projectID := os.Getenv("PUBSUB_PROJECT_ID")
		client, err := pubsub.NewClient(ctx, projectID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub client")
		}
		topic := config.GetEnvOrDefault("PUBSUB_APPROVAL_TOPIC", "device-approvals")
		publisher := notify.NewPublisher(client, topic)
		log.Info().Str("project", projectID).Str("topic", topic).Msg("approval requests published to pubsub")
		return publisher, func() {
			publisher.Stop()
			if err := client.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub client")
			}
		}

	case "webhook":
		url := os.Getenv("WEBHOOK_URL")
		if url == "" {
			log.Fatal().Msg("NOTIFIER=webhook requires WEBHOOK_URL")
		}
		client := resilience.NewClient(resilience.ClientConfig{
			Name:     "approval-webhook",
			Registry: registry,
		})
		log.Info().Str("url", url).Msg("approval requests posted to webhook")
		return notify.NewWebhook(url, os.Getenv("WEBHOOK_SECRET"), client), noop

	default:
		if kind != "log" {
			log.Warn().Str("notifier", kind).Msg("unknown NOTIFIER - logging approval requests")
		}
		return notify.NewLogNotifier(log), noop
	}
}
