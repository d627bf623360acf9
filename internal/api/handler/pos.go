package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/api/models"
	"github.com/punktepass/punktepass/internal/api/response"
	"github.com/punktepass/punktepass/internal/auth"
	"github.com/punktepass/punktepass/internal/scan"
	"github.com/punktepass/punktepass/internal/store"
)

// POSHandler handles POS terminal endpoints.
type POSHandler struct {
	auth   *auth.Service
	scans  *scan.Service
	logger zerolog.Logger
}

// NewPOSHandler creates a new POSHandler.
func NewPOSHandler(authService *auth.Service, scans *scan.Service, logger zerolog.Logger) *POSHandler {
	return &POSHandler{
		auth:   authService,
		scans:  scans,
		logger: logger,
	}
}

// OpenSession handles POST /v1/pos/session - exchange store key and POS token
// for a session token.
func (h *POSHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var input models.POSSessionRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	token, err := h.auth.OpenPOSSession(r.Context(), input.StoreKey, input.POSToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Unauthorized(w, r, "invalid store key or POS token")
			return
		}
		h.logger.Error().Err(err).Msg("open pos session failed")
		response.InternalError(w, r, "could not open session")
		return
	}

	response.JSON(w, r, http.StatusOK, models.SessionResponse{
		Success:   true,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
		StoreID:   token.StoreID,
	})
}

// Scan handles POST /v1/pos/scan - award points for a live QR scan.
func (h *POSHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var input models.ScanRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	result, err := h.scans.ProcessScan(r.Context(), scan.ScanInput{
		QR:       input.QR,
		StoreKey: input.StoreKey,
	})
	if err != nil {
		h.writeScanError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.ScanResponse{
		Success: true,
		Message: "points awarded",
		UserID:  result.UserID,
		StoreID: result.StoreID,
		Points:  result.Points,
		Time:    result.Time,
	})
}

func (h *POSHandler) writeScanError(w http.ResponseWriter, r *http.Request, err error) {
	var rateLimited *scan.RateLimitError
	switch {
	case errors.Is(err, store.ErrStoreNotFound):
		response.BadRequestCode(w, r, models.CodeUnknownStore, "unknown store")
	case errors.Is(err, scan.ErrInvalidQR):
		response.BadRequestCode(w, r, models.CodeInvalidQR, "invalid QR code")
	case errors.As(err, &rateLimited):
		response.TooManyRequests(w, r, "this customer was already scanned here recently", rateLimited.RetryAt)
	default:
		h.logger.Error().Err(err).Msg("scan failed")
		response.InternalError(w, r, "scan could not be recorded")
	}
}

// SyncOffline handles POST /v1/pos/sync_offline - upload scans buffered while
// the terminal was offline. The batch never fails as a whole.
func (h *POSHandler) SyncOffline(w http.ResponseWriter, r *http.Request) {
	var input models.SyncOfflineRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	scans := make([]scan.OfflineScan, len(input.Scans))
	for i, item := range input.Scans {
		scans[i] = scan.OfflineScan{QR: item.QR, StoreKey: item.StoreKey}
	}

	result, err := h.scans.SyncOffline(r.Context(), scans)
	if err != nil {
		h.logger.Error().Err(err).Int("scans", len(scans)).Msg("offline sync failed")
		response.InternalError(w, r, "offline sync failed")
		return
	}

	skipped := make([]models.SkippedScan, len(result.Skipped))
	for i, s := range result.Skipped {
		skipped[i] = models.SkippedScan{Index: s.Index, QR: s.QR, Reason: string(s.Reason)}
	}

	response.JSON(w, r, http.StatusOK, models.SyncOfflineResponse{
		Success:        true,
		Synced:         result.Synced,
		Duplicates:     result.Duplicates,
		DuplicateCount: result.DuplicateCount,
		Skipped:        skipped,
	})
}
