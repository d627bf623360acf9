package handler

import (
	"errors"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/api/models"
	"github.com/punktepass/punktepass/internal/api/response"
	"github.com/punktepass/punktepass/internal/fingerprint"
)

// FingerprintHandler handles the public device account-limit endpoints.
type FingerprintHandler struct {
	fingerprints *fingerprint.Service
	atomic       bool
	logger       zerolog.Logger
}

// NewFingerprintHandler creates a new FingerprintHandler. When atomic is true
// registration enforces the account limit in the same storage operation.
func NewFingerprintHandler(fingerprints *fingerprint.Service, atomic bool, logger zerolog.Logger) *FingerprintHandler {
	return &FingerprintHandler{
		fingerprints: fingerprints,
		atomic:       atomic,
		logger:       logger,
	}
}

// Check handles POST /v1/device/check - may another account be created here.
func (h *FingerprintHandler) Check(w http.ResponseWriter, r *http.Request) {
	var input models.DeviceCheckRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	result, err := h.fingerprints.CheckLimit(r.Context(), input.Fingerprint)
	if err != nil {
		h.logger.Error().Err(err).Msg("device check failed")
		response.InternalError(w, r, "device check failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.DeviceCheckResponse{
		Allowed:  result.Allowed,
		Blocked:  result.Blocked,
		Accounts: result.Accounts,
		Limit:    result.Limit,
	})
}

// Register handles POST /v1/device/register - record an account on a device.
func (h *FingerprintHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input models.DeviceRegisterRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	in := fingerprint.RegisterInput{
		UserID:      input.UserID,
		Fingerprint: input.Fingerprint,
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
		Components:  input.Components,
	}

	var err error
	if h.atomic {
		_, err = h.fingerprints.RegisterWithLimit(r.Context(), in)
	} else {
		_, err = h.fingerprints.Register(r.Context(), in)
	}

	switch {
	case err == nil:
		response.Message(w, r, http.StatusOK, "device registered")
	case errors.Is(err, fingerprint.ErrInvalidInput):
		response.BadRequest(w, r, "fingerprint and user_id are required", nil)
	case errors.Is(err, fingerprint.ErrDeviceBlocked):
		response.Forbidden(w, r, models.CodeBlocked, "device is blocked")
	case errors.Is(err, fingerprint.ErrAccountLimitReached):
		response.Forbidden(w, r, models.CodeLimit, "account limit reached for this device")
	default:
		h.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("device registration failed")
		response.InternalError(w, r, "device registration failed")
	}
}

// clientIP returns the caller address without port. chi's RealIP middleware
// has already replaced RemoteAddr with the forwarded address when present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
