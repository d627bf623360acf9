// Package auth issues and validates the signed session tokens that carry the
// current store into every request.
package auth

import (
	"context"
	"time"
)

// Role is the kind of session.
type Role string

// Session roles.
const (
	RolePOS   Role = "pos"
	RoleAdmin Role = "admin"
)

// Session is the request-scoped identity: which store the caller acts for.
// Admin sessions are not bound to a store and have StoreID 0.
type Session struct {
	StoreID   int64
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// IsAdmin reports whether the session has the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// TokenResponse is returned when a session is opened.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	StoreID   int64     `json:"store_id,omitempty"`
	Role      Role      `json:"role"`
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored in ctx, if any.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
