package fingerprint

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/auditlog"
)

// DefaultMaxAccountsPerDevice is used when ServiceConfig.MaxAccounts is unset.
const DefaultMaxAccountsPerDevice = 2

var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ServiceConfig holds configuration for the fingerprint service.
type ServiceConfig struct {
	Repository  Repository
	Audit       *auditlog.Logger
	Logger      zerolog.Logger
	MaxAccounts int
}

// Service implements the account-limit guard and blocklist.
type Service struct {
	repo        Repository
	audit       *auditlog.Logger
	logger      zerolog.Logger
	maxAccounts int
	now         func() time.Time
}

// NewService creates a new fingerprint service.
func NewService(cfg ServiceConfig) *Service {
	maxAccounts := cfg.MaxAccounts
	if maxAccounts <= 0 {
		maxAccounts = DefaultMaxAccountsPerDevice
	}
	return &Service{
		repo:        cfg.Repository,
		audit:       cfg.Audit,
		logger:      cfg.Logger,
		maxAccounts: maxAccounts,
		now:         time.Now,
	}
}

// Limit returns the configured accounts-per-device limit.
func (s *Service) Limit() int {
	return s.maxAccounts
}

// CheckLimit reports whether another account may be registered from the device.
func (s *Service) CheckLimit(ctx context.Context, raw string) (*LimitResult, error) {
	if !IsReliable(raw) {
		return &LimitResult{Allowed: true, Limit: s.maxAccounts}, nil
	}

	hash := Hash(raw)

	blocked, err := s.repo.IsBlocked(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("check blocklist: %w", err)
	}
	if blocked {
		return &LimitResult{Allowed: false, Blocked: true, Limit: s.maxAccounts}, nil
	}

	count, err := s.repo.CountAccounts(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}

	return &LimitResult{
		Allowed:  count < s.maxAccounts,
		Accounts: count,
		Limit:    s.maxAccounts,
	}, nil
}

// AccountCount returns the number of distinct accounts registered with hash.
func (s *Service) AccountCount(ctx context.Context, hash string) (int, error) {
	return s.repo.CountAccounts(ctx, hash)
}

// Register records an account registration from a device. The account limit
// is advisory here: the row is inserted without re-checking the count, so two
// concurrent registrations that both passed CheckLimit will both be stored.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	rec, err := s.newRecord(in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert fingerprint: %w", err)
	}

	s.audit.Record(ctx, 0, &in.UserID, auditlog.TypeFingerprint,
		"device registered for user %d (%s)", in.UserID, shortHash(rec.Hash))

	return &RegisterResult{Accepted: true, Limit: s.maxAccounts}, nil
}

// RegisterWithLimit records an account registration only if the device is
// not blocked and is still under the account limit, atomically with respect
// to other registrations from the same device.
func (s *Service) RegisterWithLimit(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	rec, err := s.newRecord(in)
	if err != nil {
		return nil, err
	}

	blocked, err := s.repo.IsBlocked(ctx, rec.Hash)
	if err != nil {
		return nil, fmt.Errorf("check blocklist: %w", err)
	}
	if blocked {
		return nil, ErrDeviceBlocked
	}

	accepted, count, err := s.repo.TryRegisterWithLimit(ctx, rec, s.maxAccounts)
	if err != nil {
		return nil, fmt.Errorf("register fingerprint: %w", err)
	}

	result := &RegisterResult{Accepted: accepted, Accounts: count, Limit: s.maxAccounts}
	if !accepted {
		s.logger.Info().
			Int64("user_id", in.UserID).
			Str("fingerprint", shortHash(rec.Hash)).
			Int("accounts", count).
			Msg("device account limit reached")
		return result, ErrAccountLimitReached
	}

	s.audit.Record(ctx, 0, &in.UserID, auditlog.TypeFingerprint,
		"device registered for user %d (%s), %d/%d accounts", in.UserID, shortHash(rec.Hash), count, s.maxAccounts)

	return result, nil
}

func (s *Service) newRecord(in RegisterInput) (*Record, error) {
	if in.UserID <= 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Fingerprint) == "" || !IsReliable(in.Fingerprint) {
		return nil, fmt.Errorf("%w: fingerprint is missing or too short", ErrInvalidInput)
	}

	return &Record{
		Hash:       Hash(in.Fingerprint),
		UserID:     in.UserID,
		IP:         in.IP,
		UserAgent:  truncate(in.UserAgent, 500),
		Components: in.Components,
		CreatedAt:  s.now(),
	}, nil
}

// Block adds a device hash to the blocklist. Blocking an already blocked
// device succeeds without changing the original entry.
func (s *Service) Block(ctx context.Context, hash, reason string, adminID int64) error {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if !hashPattern.MatchString(hash) {
		return fmt.Errorf("%w: fingerprint_hash must be a sha256 hex digest", ErrInvalidInput)
	}

	created, err := s.repo.Block(ctx, &BlockedDevice{
		Hash:      hash,
		Reason:    reason,
		BlockedBy: adminID,
		BlockedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("block device: %w", err)
	}

	if created {
		s.audit.Record(ctx, 0, nil, auditlog.TypeAdmin,
			"device %s blocked by admin %d: %s", shortHash(hash), adminID, reason)
	}
	return nil
}

// Unblock removes a device hash from the blocklist. Returns false if the
// device was not blocked.
func (s *Service) Unblock(ctx context.Context, hash string) (bool, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	removed, err := s.repo.Unblock(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("unblock device: %w", err)
	}
	if removed {
		s.audit.Record(ctx, 0, nil, auditlog.TypeAdmin, "device %s unblocked", shortHash(hash))
	}
	return removed, nil
}

// ListBlocked returns the blocklist.
func (s *Service) ListBlocked(ctx context.Context) ([]*BlockedDevice, error) {
	return s.repo.ListBlocked(ctx)
}

func shortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
