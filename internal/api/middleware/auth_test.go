package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punktepass/punktepass/internal/api/middleware"
	"github.com/punktepass/punktepass/internal/auth"
)

func newTestJWT() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.punktepass.de",
		Audience:   "punktepass-pos",
	})
}

func newTestAuth(jwtService *auth.JWTService) *auth.Service {
	return auth.NewService(auth.ServiceConfig{JWT: jwtService})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_MissingAuthorizationHeader(t *testing.T) {
	handler := middleware.Auth(newTestAuth(newTestJWT()))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestAuth_InvalidAuthorizationFormat(t *testing.T) {
	handler := middleware.Auth(newTestAuth(newTestJWT()))(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "token123"},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"bearer lowercase no space", "bearer"},
		{"empty bearer", "Bearer "},
		{"just bearer", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	handler := middleware.Auth(newTestAuth(newTestJWT()))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer invalid.jwt.token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid session token")
}

func TestAuth_ValidToken(t *testing.T) {
	jwtService := newTestJWT()
	token, _, err := jwtService.Issue(42, auth.RolePOS)
	require.NoError(t, err)

	var captured int64
	handler := middleware.Auth(newTestAuth(jwtService))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = middleware.GetStoreID(r)
		w.WriteHeader(http.StatusOK)
	}))

	cases := []string{"Bearer ", "bearer ", "BEARER "}
	for _, prefix := range cases {
		t.Run(prefix, func(t *testing.T) {
			captured = 0
			req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			req.Header.Set("Authorization", prefix+token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, int64(42), captured)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	jwtService := newTestJWT()
	handler := middleware.Auth(newTestAuth(jwtService))(middleware.RequireAdmin(okHandler()))

	posToken, _, err := jwtService.Issue(42, auth.RolePOS)
	require.NoError(t, err)
	adminToken, _, err := jwtService.Issue(0, auth.RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+posToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin_WithoutSession(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.RequireAdmin(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", http.NoBody))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetStoreID_NoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	assert.Zero(t, middleware.GetStoreID(req))
}
