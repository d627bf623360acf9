// Package store provides the store directory: lookup of tenant stores by key,
// POS token or id, and resolution of branch stores to their parent.
package store

import "errors"

// Repository errors.
var (
	ErrStoreNotFound = errors.New("store not found")
)

// Store is a tenant retail location. A store with a ParentStoreID is a branch
// ("Filiale") that shares device trust with its parent.
type Store struct {
	ID            int64
	Key           string
	POSToken      *string
	Name          string
	AdminEmail    *string
	ParentStoreID *int64
}

// TrustRootID returns the id used for device-limit purposes: the parent store
// id for branches, the store's own id otherwise.
func (s *Store) TrustRootID() int64 {
	if s.ParentStoreID != nil && *s.ParentStoreID > 0 {
		return *s.ParentStoreID
	}
	return s.ID
}

// IsBranch reports whether the store has a parent.
func (s *Store) IsBranch() bool {
	return s.TrustRootID() != s.ID
}
