package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/store"
)

// ErrInvalidCredentials is returned when a store key, POS token or admin key
// does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWT    *JWTService
	Stores *store.Service
	// AdminKey enables admin sessions. Empty disables them.
	AdminKey string
	Logger   zerolog.Logger
}

// Service opens and validates sessions.
type Service struct {
	jwt      *JWTService
	stores   *store.Service
	adminKey string
	logger   zerolog.Logger
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		jwt:      cfg.JWT,
		stores:   cfg.Stores,
		adminKey: cfg.AdminKey,
		logger:   cfg.Logger,
	}
}

// OpenPOSSession authenticates a terminal by its store key and POS token.
func (s *Service) OpenPOSSession(ctx context.Context, storeKey, posToken string) (*TokenResponse, error) {
	posToken = strings.TrimSpace(posToken)
	if posToken == "" {
		return nil, ErrInvalidCredentials
	}

	st, err := s.stores.ResolveByKey(ctx, storeKey)
	if err != nil {
		if errors.Is(err, store.ErrStoreNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("resolve store: %w", err)
	}
	if st.POSToken == nil || !equal(*st.POSToken, posToken) {
		s.logger.Info().Int64("store_id", st.ID).Msg("pos session rejected")
		return nil, ErrInvalidCredentials
	}

	return s.issue(st.ID, RolePOS)
}

// OpenAdminSession authenticates an operator by the shared admin key.
func (s *Service) OpenAdminSession(_ context.Context, adminKey string) (*TokenResponse, error) {
	if s.adminKey == "" || !equal(s.adminKey, strings.TrimSpace(adminKey)) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(0, RoleAdmin)
}

func (s *Service) issue(storeID int64, role Role) (*TokenResponse, error) {
	token, expiresAt, err := s.jwt.Issue(storeID, role)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: token, ExpiresAt: expiresAt, StoreID: storeID, Role: role}, nil
}

// ValidateToken returns the session carried by a bearer token.
func (s *Service) ValidateToken(token string) (*Session, error) {
	return s.jwt.Validate(token)
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
