package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/api/models"
	"github.com/punktepass/punktepass/internal/api/response"
	"github.com/punktepass/punktepass/internal/auth"
	"github.com/punktepass/punktepass/internal/fingerprint"
)

// AdminHandler handles operator endpoints for the device blocklist.
type AdminHandler struct {
	auth         *auth.Service
	fingerprints *fingerprint.Service
	logger       zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(authService *auth.Service, fingerprints *fingerprint.Service, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		auth:         authService,
		fingerprints: fingerprints,
		logger:       logger,
	}
}

// OpenSession handles POST /v1/admin/session - exchange the admin key for an
// admin session token.
func (h *AdminHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var input models.AdminSessionRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	token, err := h.auth.OpenAdminSession(r.Context(), input.AdminKey)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Unauthorized(w, r, "invalid admin key")
			return
		}
		h.logger.Error().Err(err).Msg("open admin session failed")
		response.InternalError(w, r, "could not open session")
		return
	}

	response.JSON(w, r, http.StatusOK, models.SessionResponse{
		Success:   true,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	})
}

// ListBlocked handles GET /v1/admin/blocked-devices.
func (h *AdminHandler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	blocked, err := h.fingerprints.ListBlocked(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list blocked devices failed")
		response.InternalError(w, r, "could not list blocked devices")
		return
	}

	out := make([]models.BlockedDevice, len(blocked))
	for i, b := range blocked {
		out[i] = models.BlockedDevice{
			FingerprintHash: b.Hash,
			Reason:          b.Reason,
			BlockedBy:       b.BlockedBy,
			BlockedAt:       b.BlockedAt,
		}
	}
	response.JSON(w, r, http.StatusOK, models.BlockedDeviceListResponse{Success: true, Devices: out})
}

// Block handles POST /v1/admin/blocked-devices. Blocking twice is not an error.
func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	var input models.BlockDeviceRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	// Admin sessions are not tied to an operator account.
	if err := h.fingerprints.Block(r.Context(), input.FingerprintHash, strings.TrimSpace(input.Reason), 0); err != nil {
		if errors.Is(err, fingerprint.ErrInvalidInput) {
			response.BadRequest(w, r, "fingerprint_hash must be a sha256 hex digest", nil)
			return
		}
		h.logger.Error().Err(err).Msg("block device failed")
		response.InternalError(w, r, "could not block device")
		return
	}
	response.Message(w, r, http.StatusOK, "device blocked")
}

// Unblock handles DELETE /v1/admin/blocked-devices/{hash}.
func (h *AdminHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	removed, err := h.fingerprints.Unblock(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		h.logger.Error().Err(err).Msg("unblock device failed")
		response.InternalError(w, r, "could not unblock device")
		return
	}
	if !removed {
		response.NotFound(w, r, "device is not blocked")
		return
	}
	response.Message(w, r, http.StatusOK, "device unblocked")
}
