package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/punktepass/punktepass/internal/api/models"
	"github.com/punktepass/punktepass/internal/auth"
)

// TokenValidator validates a bearer token into a session.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Session, error)
}

// Auth creates authentication middleware that validates JWT bearer tokens
// and stores the resulting auth.Session in the request context.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract bearer token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}

			// Check for Bearer prefix (case-insensitive)
			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
			if tokenString == "" {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}

			session, err := validator.ValidateToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					writeUnauthorized(w, r, "session has expired")
				case errors.Is(err, auth.ErrInvalidToken):
					writeUnauthorized(w, r, "invalid session token")
				default:
					writeUnauthorized(w, r, "authentication failed")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

// RequireAdmin rejects requests whose session is not an admin session.
// Must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := auth.SessionFrom(r.Context())
		if !ok {
			writeUnauthorized(w, r, "missing session")
			return
		}
		if !session.IsAdmin() {
			models.NewForbidden(GetRequestID(r.Context()), "admin session required").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeUnauthorized writes a 401 Unauthorized response.
// This is implemented directly here to avoid import cycle with response package.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	models.NewUnauthorized(GetRequestID(r.Context()), detail).Write(w)
}

// GetStoreID retrieves the session store id from the context.
// Returns 0 if the request carries no store session.
func GetStoreID(r *http.Request) int64 {
	if session, ok := auth.SessionFrom(r.Context()); ok {
		return session.StoreID
	}
	return 0
}
