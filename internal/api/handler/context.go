package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/punktepass/punktepass/internal/api/models"
	"github.com/punktepass/punktepass/internal/api/response"
	"github.com/punktepass/punktepass/internal/auth"
)

// maxBodyBytes bounds request bodies. Offline batches are the largest.
const maxBodyBytes = 1 << 20

// validator is implemented by request models that can check themselves.
type validator interface {
	Validate() []models.FieldError
}

// decodeJSON decodes the request body into dst and validates it, writing a
// 400 response and returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			response.BadRequest(w, r, "request body is required", nil)
			return false
		}
		response.BadRequest(w, r, "invalid JSON body", nil)
		return false
	}
	if v, ok := dst.(validator); ok {
		if errs := v.Validate(); len(errs) > 0 {
			response.BadRequest(w, r, "validation failed", errs)
			return false
		}
	}
	return true
}

// sessionStoreID returns the store of the POS session, writing a 401 and
// returning false when the request has no store-bound session.
func sessionStoreID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok || session.StoreID <= 0 {
		response.Unauthorized(w, r, "store session required")
		return 0, false
	}
	return session.StoreID, true
}
