package fingerprint

import "context"

// Repository defines the interface for fingerprint persistence.
type Repository interface {
	// IsBlocked reports whether hash is on the blocklist.
	IsBlocked(ctx context.Context, hash string) (bool, error)

	// CountAccounts returns the number of distinct user ids ever registered
	// with hash.
	CountAccounts(ctx context.Context, hash string) (int, error)

	// Insert records a registration unconditionally.
	Insert(ctx context.Context, rec *Record) error

	// TryRegisterWithLimit records a registration only if the user is already
	// known for the hash or the distinct account count is below limit. The
	// check and insert are atomic. Returns the count after the call.
	TryRegisterWithLimit(ctx context.Context, rec *Record, limit int) (accepted bool, count int, err error)

	// Block adds hash to the blocklist. Returns false if it was already there.
	Block(ctx context.Context, blocked *BlockedDevice) (created bool, err error)

	// Unblock removes hash from the blocklist. Returns false if nothing was removed.
	Unblock(ctx context.Context, hash string) (bool, error)

	// ListBlocked returns all blocklist entries, newest first.
	ListBlocked(ctx context.Context) ([]*BlockedDevice, error)
}
