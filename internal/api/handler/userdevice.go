package handler

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/api/middleware"
	"github.com/punktepass/punktepass/internal/api/models"
	"github.com/punktepass/punktepass/internal/api/response"
	"github.com/punktepass/punktepass/internal/store"
	"github.com/punktepass/punktepass/internal/userdevice"
)

// UserDeviceHandler handles trusted scanner device endpoints.
type UserDeviceHandler struct {
	devices *userdevice.Service
	logger  zerolog.Logger
}

// NewUserDeviceHandler creates a new UserDeviceHandler.
func NewUserDeviceHandler(devices *userdevice.Service, logger zerolog.Logger) *UserDeviceHandler {
	return &UserDeviceHandler{
		devices: devices,
		logger:  logger,
	}
}

// List handles GET /v1/user-devices - active devices of the session store.
func (h *UserDeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	storeID, ok := sessionStoreID(w, r)
	if !ok {
		return
	}

	devices, err := h.devices.List(r.Context(), storeID)
	if err != nil {
		h.writeError(w, r, err, "list devices")
		return
	}

	out := make([]models.UserDevice, len(devices))
	for i, d := range devices {
		out[i] = models.UserDevice{
			ID:           d.ID,
			DeviceName:   d.Name,
			UserAgent:    d.UserAgent,
			Status:       d.Status,
			RegisteredAt: d.RegisteredAt,
			LastUsedAt:   d.LastUsedAt,
		}
	}

	response.JSON(w, r, http.StatusOK, models.UserDeviceListResponse{
		Success:    true,
		Devices:    out,
		MaxDevices: h.devices.MaxDevices(),
	})
}

// Register handles POST /v1/user-devices/register - add a device while the
// store is under its device cap.
func (h *UserDeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	storeID, ok := sessionStoreID(w, r)
	if !ok {
		return
	}
	var input models.UserDeviceRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	result, err := h.devices.Register(r.Context(), storeID, userdevice.RegisterInput{
		Fingerprint: input.Fingerprint,
		DeviceName:  input.DeviceName,
		UserAgent:   r.UserAgent(),
	})
	if err != nil {
		h.writeError(w, r, err, "register device")
		return
	}

	resp := models.UserDeviceRegisterResponse{
		Success:           !result.LimitReached,
		AlreadyRegistered: result.AlreadyRegistered,
		LimitReached:      result.LimitReached,
		DeviceCount:       result.DeviceCount,
		MaxDevices:        result.MaxDevices,
	}
	switch {
	case result.AlreadyRegistered:
		resp.Message = "device already registered"
	case result.LimitReached:
		resp.Message = "device limit reached, request approval to add this device"
	default:
		resp.Message = "device registered"
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// RequestAdd handles POST /v1/user-devices/request-add - ask the store admin
// to approve an additional device.
func (h *UserDeviceHandler) RequestAdd(w http.ResponseWriter, r *http.Request) {
	storeID, ok := sessionStoreID(w, r)
	if !ok {
		return
	}
	var input models.UserDeviceRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	_, err := h.devices.RequestAdd(r.Context(), storeID, userdevice.RegisterInput{
		Fingerprint: input.Fingerprint,
		DeviceName:  input.DeviceName,
		UserAgent:   r.UserAgent(),
	})
	if err != nil {
		h.writeError(w, r, err, "request device add")
		return
	}
	response.Message(w, r, http.StatusOK, "approval request sent")
}

// RequestRemove handles POST /v1/user-devices/request-remove - ask the store
// admin to approve removing a device.
func (h *UserDeviceHandler) RequestRemove(w http.ResponseWriter, r *http.Request) {
	storeID, ok := sessionStoreID(w, r)
	if !ok {
		return
	}
	var input models.UserDeviceRemoveRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	if _, err := h.devices.RequestRemoval(r.Context(), storeID, input.DeviceID); err != nil {
		h.writeError(w, r, err, "request device removal")
		return
	}
	response.Message(w, r, http.StatusOK, "removal request sent")
}

// Check handles POST /v1/user-devices/check - is this device trusted.
func (h *UserDeviceHandler) Check(w http.ResponseWriter, r *http.Request) {
	storeID, ok := sessionStoreID(w, r)
	if !ok {
		return
	}
	var input models.UserDeviceRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	trusted, err := h.devices.Verify(r.Context(), storeID, input.Fingerprint)
	if err != nil {
		h.writeError(w, r, err, "check device")
		return
	}
	response.JSON(w, r, http.StatusOK, models.UserDeviceCheckResponse{Success: true, Trusted: trusted})
}

func (h *UserDeviceHandler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, userdevice.ErrInvalidInput):
		response.BadRequest(w, r, "fingerprint is required", nil)
	case errors.Is(err, store.ErrStoreNotFound):
		response.NotFound(w, r, "store not found")
	case errors.Is(err, userdevice.ErrDeviceNotFound):
		response.NotFound(w, r, "device not found")
	case errors.Is(err, userdevice.ErrRequestPending):
		response.Conflict(w, r, "a request for this device is already pending")
	case errors.Is(err, userdevice.ErrDeviceExists):
		response.Conflict(w, r, "device is already registered")
	default:
		h.logger.Error().Err(err).Int64("store_id", middleware.GetStoreID(r)).Msg(op + " failed")
		response.InternalError(w, r, "request could not be processed")
	}
}

// Approve handles GET /v1/user-devices/approve/{token} - the approve link of
// the admin email.
func (h *UserDeviceHandler) Approve(w http.ResponseWriter, r *http.Request) {
	decision, err := h.devices.Approve(r.Context(), chi.URLParam(r, "token"), "email")
	h.renderDecision(w, r, decision, err)
}

// Reject handles GET /v1/user-devices/reject/{token} - the reject link of the
// admin email.
func (h *UserDeviceHandler) Reject(w http.ResponseWriter, r *http.Request) {
	decision, err := h.devices.Reject(r.Context(), chi.URLParam(r, "token"), "email")
	h.renderDecision(w, r, decision, err)
}

type decisionPage struct {
	Title   string
	Message string
	Success bool
}

func (h *UserDeviceHandler) renderDecision(w http.ResponseWriter, r *http.Request, decision *userdevice.Decision, err error) {
	page := decisionPage{Success: err == nil}
	status := http.StatusOK

	switch {
	case errors.Is(err, userdevice.ErrRequestNotFound):
		status = http.StatusNotFound
		page.Title = "Anfrage nicht gefunden"
		page.Message = "Dieser Link ist ungültig oder die Anfrage wurde bereits bearbeitet."
	case err != nil:
		h.logger.Error().Err(err).Msg("resolve device request failed")
		status = http.StatusInternalServerError
		page.Title = "Fehler"
		page.Message = "Die Anfrage konnte nicht bearbeitet werden. Bitte versuchen Sie es später erneut."
	default:
		page.Title, page.Message = decisionText(decision.Request)
	}

	var buf bytes.Buffer
	if err := decisionTemplate.Execute(&buf, page); err != nil {
		h.logger.Error().Err(err).Msg("render decision page failed")
		response.InternalError(w, r, "could not render page")
		return
	}
	response.HTML(w, r, status, buf.Bytes())
}

func decisionText(req *userdevice.Request) (string, string) {
	name := req.DeviceName
	switch {
	case req.Status == userdevice.RequestRejected:
		return "Anfrage abgelehnt", "Die Anfrage für das Gerät „" + name + "“ wurde abgelehnt."
	case req.Type == userdevice.RequestRemove:
		return "Gerät entfernt", "Das Gerät „" + name + "“ wurde entfernt."
	default:
		return "Gerät freigegeben", "Das Gerät „" + name + "“ wurde freigegeben und kann jetzt scannen."
	}
}

var decisionTemplate = template.Must(template.New("decision").Parse(`<!DOCTYPE html>
<html lang="de">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>PunktePass – {{.Title}}</title>
<style>
body{font-family:-apple-system,Segoe UI,Roboto,sans-serif;background:#f4f5f7;margin:0;padding:40px 16px;color:#1f2933}
.card{max-width:480px;margin:0 auto;background:#fff;border-radius:12px;padding:32px;box-shadow:0 2px 8px rgba(0,0,0,.08);text-align:center}
h1{font-size:22px;margin:0 0 12px}
.ok h1{color:#1b873f}
.fail h1{color:#c62828}
</style>
</head>
<body>
<div class="card {{if .Success}}ok{{else}}fail{{end}}">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</div>
</body>
</html>
`))
