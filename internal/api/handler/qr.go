package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"github.com/punktepass/punktepass/internal/api/models"
	"github.com/punktepass/punktepass/internal/api/response"
	"github.com/punktepass/punktepass/internal/scan"
)

// qrSize is the edge length of the rendered QR code in pixels.
const qrSize = 256

// QRHandler renders customer QR cards.
type QRHandler struct {
	logger zerolog.Logger
}

// NewQRHandler creates a new QRHandler.
func NewQRHandler(logger zerolog.Logger) *QRHandler {
	return &QRHandler{logger: logger}
}

// UserQR handles GET /v1/users/{userId}/qr.png?token= - the PNG a customer
// shows at the till.
func (h *QRHandler) UserQR(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || userID <= 0 {
		response.BadRequest(w, r, "userId must be a positive integer", nil)
		return
	}

	payload, err := scan.EncodeUserQR(userID, r.URL.Query().Get("token"))
	if err != nil {
		response.BadRequestCode(w, r, models.CodeInvalidQR, "token must not start with a digit")
		return
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, qrSize)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("encode qr code failed")
		response.InternalError(w, r, "could not render QR code")
		return
	}
	response.PNG(w, r, png)
}
