// Package api provides the HTTP API for PunktePass.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/api/handler"
	"github.com/punktepass/punktepass/internal/api/middleware"
	"github.com/punktepass/punktepass/internal/auth"
	"github.com/punktepass/punktepass/internal/fingerprint"
	"github.com/punktepass/punktepass/internal/resilience"
	"github.com/punktepass/punktepass/internal/scan"
	"github.com/punktepass/punktepass/internal/userdevice"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	AuthService        *auth.Service
	ScanService        *scan.Service
	FingerprintService *fingerprint.Service
	UserDeviceService  *userdevice.Service

	// AtomicAccountLimit selects the race-free device registration path.
	AtomicAccountLimit bool

	// Database is pinged by the readiness probe.
	Database handler.Pinger
	// Dependencies reports notifier client health on /v1/ops/status.
	Dependencies *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "punktepass-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type
	r.Use(middleware.RequireJSON)          // Reject non-JSON request bodies

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:      cfg.Version,
		BuildTime:    cfg.BuildTime,
		Database:     cfg.Database,
		Dependencies: cfg.Dependencies,
		Logger:       cfg.Logger,
	})
	fingerprintHandler := handler.NewFingerprintHandler(cfg.FingerprintService, cfg.AtomicAccountLimit, cfg.Logger)
	posHandler := handler.NewPOSHandler(cfg.AuthService, cfg.ScanService, cfg.Logger)
	userDeviceHandler := handler.NewUserDeviceHandler(cfg.UserDeviceService, cfg.Logger)
	qrHandler := handler.NewQRHandler(cfg.Logger)
	adminHandler := handler.NewAdminHandler(cfg.AuthService, cfg.FingerprintService, cfg.Logger)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.AuthService)

	// Create rate limit middleware for different endpoint categories
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)         // 10 req/min
	deviceRateLimit := middleware.RateLimitByIP(middleware.DeviceRateLimit)     // 30 req/min
	scanRateLimit := middleware.RateLimitByIP(middleware.ScanRateLimit)         // 120 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires an admin session
			r.With(authMiddleware, middleware.RequireAdmin).Get("/status", opsHandler.SystemStatus)
		})

		// Account-limit guard (public, called during sign-up)
		r.Route("/device", func(r chi.Router) {
			r.Use(deviceRateLimit)
			r.Post("/check", fingerprintHandler.Check)
			r.Post("/register", fingerprintHandler.Register)
		})

		// POS terminal endpoints; scans authenticate by store key
		r.Route("/pos", func(r chi.Router) {
			r.With(authRateLimit).Post("/session", posHandler.OpenSession)
			r.With(scanRateLimit).Post("/scan", posHandler.Scan)
			r.With(scanRateLimit).Post("/sync_offline", posHandler.SyncOffline)
		})

		// Trusted scanner devices
		r.Route("/user-devices", func(r chi.Router) {
			// Approval links are opened from the admin email, the token is the credential
			r.With(standardRateLimit).Get("/approve/{token}", userDeviceHandler.Approve)
			r.With(standardRateLimit).Get("/reject/{token}", userDeviceHandler.Reject)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(middleware.RateLimitByStore(middleware.StandardRateLimit)) // 100 req/min per store
				r.Get("/", userDeviceHandler.List)
				r.Post("/register", userDeviceHandler.Register)
				r.Post("/request-add", userDeviceHandler.RequestAdd)
				r.Post("/request-remove", userDeviceHandler.RequestRemove)
				r.Post("/check", userDeviceHandler.Check)
			})
		})

		// Customer QR cards (store session)
		r.With(authMiddleware, middleware.RateLimitByStore(middleware.StandardRateLimit)).
			Get("/users/{userId}/qr.png", qrHandler.UserQR)

		// Admin endpoints
		r.Route("/admin", func(r chi.Router) {
			r.With(authRateLimit).Post("/session", adminHandler.OpenSession)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(middleware.RequireAdmin)
				r.Use(standardRateLimit)

				r.Route("/blocked-devices", func(r chi.Router) {
					r.Get("/", adminHandler.ListBlocked)
					r.Post("/", adminHandler.Block)
					r.Delete("/{hash}", adminHandler.Unblock)
				})
			})
		})
	})

	return r
}
