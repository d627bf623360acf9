package userdevice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/auditlog"
	"github.com/punktepass/punktepass/internal/fingerprint"
	"github.com/punktepass/punktepass/internal/notify"
	"github.com/punktepass/punktepass/internal/store"
)

// DefaultMaxDevices is used when ServiceConfig.MaxDevices is unset.
const DefaultMaxDevices = 2

const defaultDeviceName = "Gerät"

// ServiceConfig holds configuration for the device service.
type ServiceConfig struct {
	Repository Repository
	Stores     *store.Service
	Notifier   notify.Notifier
	Audit      *auditlog.Logger
	Logger     zerolog.Logger
	MaxDevices int
	// PublicURL is the externally reachable API base used in approval links.
	PublicURL string
}

// Service implements device registration and the approval workflow.
type Service struct {
	repo       Repository
	stores     *store.Service
	notifier   notify.Notifier
	audit      *auditlog.Logger
	logger     zerolog.Logger
	maxDevices int
	publicURL  string
	newToken   func() (string, error)
	now        func() time.Time
}

// NewService creates a new device service.
func NewService(cfg ServiceConfig) *Service {
	maxDevices := cfg.MaxDevices
	if maxDevices <= 0 {
		maxDevices = DefaultMaxDevices
	}
	return &Service{
		repo:       cfg.Repository,
		stores:     cfg.Stores,
		notifier:   cfg.Notifier,
		audit:      cfg.Audit,
		logger:     cfg.Logger,
		maxDevices: maxDevices,
		publicURL:  strings.TrimRight(cfg.PublicURL, "/"),
		newToken:   NewToken,
		now:        time.Now,
	}
}

// MaxDevices returns the per-store device cap.
func (s *Service) MaxDevices() int {
	return s.maxDevices
}

// ApproveURL returns the link an admin follows to approve a request.
func (s *Service) ApproveURL(token string) string {
	return s.publicURL + "/v1/user-devices/approve/" + token
}

// RejectURL returns the link an admin follows to reject a request.
func (s *Service) RejectURL(token string) string {
	return s.publicURL + "/v1/user-devices/reject/" + token
}

func normalize(in RegisterInput) (RegisterInput, error) {
	in.Fingerprint = strings.TrimSpace(in.Fingerprint)
	if in.Fingerprint == "" {
		return in, fmt.Errorf("%w: fingerprint is required", ErrInvalidInput)
	}
	in.DeviceName = strings.TrimSpace(in.DeviceName)
	if in.DeviceName == "" {
		in.DeviceName = defaultDeviceName
	}
	return in, nil
}

// Register adds a device to the store's allow-list if there is room.
// Re-registering an active device is a no-op that refreshes last use.
func (s *Service) Register(ctx context.Context, storeID int64, in RegisterInput) (*RegisterResult, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	root, err := s.stores.ResolveParent(ctx, storeID)
	if err != nil {
		return nil, err
	}
	hash := fingerprint.Hash(in.Fingerprint)
	now := s.now()

	result := &RegisterResult{MaxDevices: s.maxDevices}

	existing, err := s.repo.FindDevice(ctx, root.ID, hash)
	switch {
	case err == nil:
		return s.alreadyRegistered(ctx, root.ID, existing, now)
	case !errors.Is(err, ErrDeviceNotFound):
		return nil, fmt.Errorf("find device: %w", err)
	}

	dev := &Device{
		StoreID:      root.ID,
		Hash:         hash,
		Name:         in.DeviceName,
		UserAgent:    in.UserAgent,
		RegisteredAt: now,
	}
	inserted, count, err := s.repo.InsertWithinLimit(ctx, dev, s.maxDevices)
	if errors.Is(err, ErrDeviceExists) {
		existing, err = s.repo.FindDevice(ctx, root.ID, hash)
		if err != nil {
			return nil, fmt.Errorf("find device: %w", err)
		}
		return s.alreadyRegistered(ctx, root.ID, existing, now)
	}
	if err != nil {
		return nil, fmt.Errorf("insert device: %w", err)
	}

	if !inserted {
		result.LimitReached = true
		result.DeviceCount = count
		return result, nil
	}

	s.audit.Record(ctx, root.ID, nil, auditlog.TypeDevice,
		"device %q registered (%d/%d)", dev.Name, count+1, s.maxDevices)

	result.Registered = true
	result.DeviceCount = count + 1
	result.Device = dev
	return result, nil
}

func (s *Service) alreadyRegistered(ctx context.Context, storeID int64, dev *Device, now time.Time) (*RegisterResult, error) {
	if _, err := s.repo.Touch(ctx, storeID, dev.Hash, now); err != nil {
		return nil, fmt.Errorf("touch device: %w", err)
	}
	dev.LastUsedAt = &now

	count, err := s.repo.CountActive(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}
	return &RegisterResult{
		AlreadyRegistered: true,
		DeviceCount:       count,
		MaxDevices:        s.maxDevices,
		Device:            dev,
	}, nil
}

// RequestAdd opens an add request for a device and notifies the store admin.
func (s *Service) RequestAdd(ctx context.Context, storeID int64, in RegisterInput) (*Request, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	root, err := s.stores.ResolveParent(ctx, storeID)
	if err != nil {
		return nil, err
	}
	hash := fingerprint.Hash(in.Fingerprint)

	if _, err := s.repo.FindDevice(ctx, root.ID, hash); err == nil {
		return nil, ErrDeviceExists
	} else if !errors.Is(err, ErrDeviceNotFound) {
		return nil, fmt.Errorf("find device: %w", err)
	}

	return s.openRequest(ctx, root, &Request{
		StoreID:    root.ID,
		Hash:       hash,
		DeviceName: in.DeviceName,
		UserAgent:  in.UserAgent,
		Type:       RequestAdd,
	})
}

// RequestRemoval opens a remove request for an active device and notifies the
// store admin.
func (s *Service) RequestRemoval(ctx context.Context, storeID, deviceID int64) (*Request, error) {
	if deviceID <= 0 {
		return nil, fmt.Errorf("%w: device_id is required", ErrInvalidInput)
	}
	root, err := s.stores.ResolveParent(ctx, storeID)
	if err != nil {
		return nil, err
	}

	dev, err := s.repo.GetDevice(ctx, root.ID, deviceID)
	if err != nil {
		return nil, err
	}

	return s.openRequest(ctx, root, &Request{
		StoreID:    root.ID,
		Hash:       dev.Hash,
		DeviceName: dev.Name,
		UserAgent:  dev.UserAgent,
		Type:       RequestRemove,
	})
}

func (s *Service) openRequest(ctx context.Context, root *store.Store, req *Request) (*Request, error) {
	token, err := s.newToken()
	if err != nil {
		return nil, err
	}
	req.Token = token
	req.RequestedAt = s.now()

	if err := s.repo.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, ErrRequestPending) {
			return nil, err
		}
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.audit.Record(ctx, root.ID, nil, auditlog.TypeDeviceRequest,
		"%s request %d opened for device %q", req.Type, req.ID, req.DeviceName)

	s.sendApproval(ctx, root, req)
	return req, nil
}

// sendApproval notifies the admin. Failures are logged, the request stays pending.
func (s *Service) sendApproval(ctx context.Context, root *store.Store, req *Request) {
	if s.notifier == nil {
		return
	}

	notice := notify.ApprovalRequest{
		RequestID:   req.ID,
		StoreID:     root.ID,
		StoreName:   root.Name,
		RequestType: req.Type,
		DeviceName:  req.DeviceName,
		UserAgent:   req.UserAgent,
		ApproveURL:  s.ApproveURL(req.Token),
		RejectURL:   s.RejectURL(req.Token),
		RequestedAt: req.RequestedAt,
	}
	if root.AdminEmail != nil {
		notice.Recipient = *root.AdminEmail
	}

	if err := s.notifier.SendApprovalRequest(ctx, notice); err != nil {
		s.logger.Warn().
			Err(err).
			Int64("request_id", req.ID).
			Int64("store_id", root.ID).
			Msg("failed to send device approval request")
	}
}

// Approve applies a pending request. A token that is unknown or already
// processed yields ErrRequestNotFound.
func (s *Service) Approve(ctx context.Context, token, processedBy string) (*Decision, error) {
	return s.resolve(ctx, token, RequestApproved, processedBy)
}

// Reject closes a pending request without changing the allow-list.
func (s *Service) Reject(ctx context.Context, token, processedBy string) (*Decision, error) {
	return s.resolve(ctx, token, RequestRejected, processedBy)
}

func (s *Service) resolve(ctx context.Context, token, status, processedBy string) (*Decision, error) {
	token = strings.TrimSpace(token)
	if len(token) != TokenLength {
		return nil, ErrRequestNotFound
	}
	if processedBy == "" {
		processedBy = "email"
	}

	decision, err := s.repo.Resolve(ctx, token, status, processedBy, s.now())
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve request: %w", err)
	}

	req := decision.Request
	s.audit.Record(ctx, req.StoreID, nil, auditlog.TypeDeviceRequest,
		"%s request %d %s by %s", req.Type, req.ID, status, processedBy)

	return decision, nil
}

// List returns the active devices governing storeID.
func (s *Service) List(ctx context.Context, storeID int64) ([]*Device, error) {
	root, err := s.stores.ResolveParent(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListActive(ctx, root.ID)
}

// Verify reports whether the fingerprint belongs to a trusted device of the
// store, recording the use when it does.
func (s *Service) Verify(ctx context.Context, storeID int64, raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, fmt.Errorf("%w: fingerprint is required", ErrInvalidInput)
	}
	root, err := s.stores.ResolveParent(ctx, storeID)
	if err != nil {
		return false, err
	}
	return s.repo.Touch(ctx, root.ID, fingerprint.Hash(raw), s.now())
}
