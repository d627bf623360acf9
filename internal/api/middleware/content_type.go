package middleware

import (
	"mime"
	"net/http"

	"github.com/punktepass/punktepass/internal/api/models"
)

// ContentTypeJSON defaults the response Content-Type to application/json.
// Handlers that render HTML or images set their own.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects request bodies declared as anything but JSON. A missing
// Content-Type is accepted, since POS terminals often omit it.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if ct := r.Header.Get("Content-Type"); ct != "" {
				if mediaType, _, err := mime.ParseMediaType(ct); err != nil || mediaType != "application/json" {
					models.NewError(http.StatusUnsupportedMediaType, models.CodeMediaType,
						"Content-Type must be application/json", GetRequestID(r.Context())).Write(w)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
