package store

import (
	"context"
	"strings"
)

// Service provides store directory lookups.
type Service struct {
	repo Repository
}

// NewService creates a new store service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get retrieves a store by id.
func (s *Service) Get(ctx context.Context, id int64) (*Store, error) {
	if id <= 0 {
		return nil, ErrStoreNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// ResolveByKey retrieves a store by its public key. Blank keys never match.
func (s *Service) ResolveByKey(ctx context.Context, key string) (*Store, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrStoreNotFound
	}
	return s.repo.GetByKey(ctx, key)
}

// ResolveByPOSToken retrieves a store by its POS terminal token.
func (s *Service) ResolveByPOSToken(ctx context.Context, token string) (*Store, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrStoreNotFound
	}
	return s.repo.GetByPOSToken(ctx, token)
}

// ResolveParent returns the store whose device list governs storeID: the
// parent for a branch, otherwise the store itself.
func (s *Service) ResolveParent(ctx context.Context, storeID int64) (*Store, error) {
	st, err := s.Get(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if !st.IsBranch() {
		return st, nil
	}
	return s.repo.GetByID(ctx, st.TrustRootID())
}
