// Package handler provides HTTP handlers for the PunktePass API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/api/models"
	"github.com/punktepass/punktepass/internal/api/response"
	"github.com/punktepass/punktepass/internal/resilience"
)

// Pinger checks connectivity to a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// readinessTimeout bounds the database ping of a readiness probe.
const readinessTimeout = 2 * time.Second

// OpsHandlerConfig holds configuration for the ops handler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	// Database is pinged by the readiness probe. Nil skips the check.
	Database Pinger
	// Dependencies tracks outbound notifier clients. Nil reports none.
	Dependencies *resilience.Registry
	Logger       zerolog.Logger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	db        Pinger
	deps      *resilience.Registry
	logger    zerolog.Logger
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		db:        cfg.Database,
		deps:      cfg.Dependencies,
		logger:    cfg.Logger,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pingDatabase(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("readiness check failed")
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status:  models.HealthStatusFail,
			Time:    models.Timestamp(time.Now()),
			Details: map[string]interface{}{"database": "unreachable"},
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	})
}

func (h *OpsHandler) pingDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return h.db.Ping(ctx)
}

// SystemStatus handles GET /v1/ops/status - database and notifier status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:       models.HealthStatusOK,
		Time:         models.Timestamp(time.Now()),
		Dependencies: []models.DependencyStatus{},
	}

	db := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
	if err := h.pingDatabase(r.Context()); err != nil {
		detail := "unreachable"
		db.Status = models.HealthStatusFail
		db.Detail = &detail
		status.Status = models.HealthStatusFail
	}
	status.Subsystems = []models.SubsystemStatus{db}

	if h.deps != nil {
		for _, dep := range h.deps.All() {
			ds := dependencyStatus(dep)
			if ds.Status != models.HealthStatusOK && status.Status == models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Dependencies = append(status.Dependencies, ds)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func dependencyStatus(h *resilience.Health) models.DependencyStatus {
	ds := models.DependencyStatus{
		Name:         h.Name,
		CircuitState: h.State.String(),
	}
	switch h.Status() {
	case "ok":
		ds.Status = models.HealthStatusOK
	case "degraded":
		ds.Status = models.HealthStatusDegraded
	default:
		ds.Status = models.HealthStatusFail
	}
	if h.LastSuccessAt != nil {
		ts := models.Timestamp(*h.LastSuccessAt)
		ds.LastSuccessAt = &ts
	}
	if h.LastFailureAt != nil {
		ts := models.Timestamp(*h.LastFailureAt)
		ds.LastFailureAt = &ts
	}
	if h.LastError != "" {
		msg := h.LastError
		ds.Message = &msg
	}
	return ds
}
