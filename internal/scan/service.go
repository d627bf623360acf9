package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/punktepass/punktepass/internal/auditlog"
	"github.com/punktepass/punktepass/internal/config"
	"github.com/punktepass/punktepass/internal/store"
)

// ServiceConfig holds configuration for the scan service.
type ServiceConfig struct {
	Ledger  Ledger
	Stores  *store.Service
	Audit   *auditlog.Logger
	Logger  zerolog.Logger
	Limits  config.Limits
	Metrics *Metrics
}

// Service processes online scans and offline sync batches.
type Service struct {
	ledger      Ledger
	stores      *store.Service
	audit       *auditlog.Logger
	logger      zerolog.Logger
	metrics     *Metrics
	admission   *Admission
	dedupWindow time.Duration
	now         func() time.Time
}

// NewService creates a new scan service.
func NewService(cfg ServiceConfig) *Service {
	dedup := cfg.Limits.OfflineDedupWindow
	if dedup <= 0 {
		dedup = config.DefaultLimits().OfflineDedupWindow
	}
	return &Service{
		ledger:      cfg.Ledger,
		stores:      cfg.Stores,
		audit:       cfg.Audit,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		admission:   NewAdmission(cfg.Ledger, cfg.Limits.RateLimitScans, cfg.Limits.RateLimitWindow),
		dedupWindow: dedup,
		now:         time.Now,
	}
}

// SetClock replaces the service clock. It is intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.admission.now = now
}

// Admission returns the admission controller backing ProcessScan.
func (s *Service) Admission() *Admission {
	return s.admission
}

// ProcessScan awards one point for a customer QR scanned at a store, subject
// to the rolling admission window.
func (s *Service) ProcessScan(ctx context.Context, in ScanInput) (*ScanResult, error) {
	st, err := s.stores.ResolveByKey(ctx, in.StoreKey)
	if err != nil {
		s.metrics.recordScan(ctx, OutcomeInvalid)
		return nil, err
	}

	userID, err := DecodeUserQR(in.QR)
	if err != nil {
		s.metrics.recordScan(ctx, OutcomeInvalid)
		return nil, err
	}

	ev := &Event{
		UserID:    userID,
		StoreID:   st.ID,
		Points:    PointsPerScan,
		Type:      TypeQRScan,
		CreatedAt: s.now(),
	}

	if err := s.admission.Record(ctx, ev); err != nil {
		if errors.Is(err, ErrRateLimited) {
			s.metrics.recordScan(ctx, OutcomeRateLimited)
			s.logger.Info().
				Int64("user_id", userID).
				Int64("store_id", st.ID).
				Msg("scan denied by rate limit")
			return nil, err
		}
		s.metrics.recordScan(ctx, OutcomeError)
		return nil, fmt.Errorf("record scan: %w", err)
	}

	s.metrics.recordScan(ctx, OutcomeAccepted)
	s.audit.Record(ctx, st.ID, &userID, auditlog.TypeScan,
		"user %d scanned at store %d", userID, st.ID)

	return &ScanResult{
		UserID:  userID,
		StoreID: st.ID,
		Points:  PointsPerScan,
		Time:    ev.CreatedAt,
	}, nil
}

// SyncOffline reconciles scans captured while a terminal was offline. Each
// item is handled on its own: a bad or duplicate item is skipped and reported,
// never failing the batch.
func (s *Service) SyncOffline(ctx context.Context, scans []OfflineScan) (*SyncResult, error) {
	result := &SyncResult{
		Duplicates: []string{},
		Skipped:    []SkippedScan{},
	}

	for i, item := range scans {
		reason, ok := s.syncOne(ctx, item)
		if ok {
			result.Synced++
			s.metrics.recordOffline(ctx, OutcomeAccepted)
			continue
		}

		result.Skipped = append(result.Skipped, SkippedScan{Index: i, QR: item.QR, Reason: reason})
		switch reason {
		case SkipDuplicate:
			result.Duplicates = append(result.Duplicates, item.QR)
			s.metrics.recordOffline(ctx, OutcomeRateLimited)
		case SkipStorageError:
			s.metrics.recordOffline(ctx, OutcomeError)
		default:
			s.metrics.recordOffline(ctx, OutcomeInvalid)
		}
	}

	result.DuplicateCount = len(result.Duplicates)
	return result, nil
}

func (s *Service) syncOne(ctx context.Context, item OfflineScan) (SkipReason, bool) {
	qr := strings.TrimSpace(item.QR)
	if qr == "" || strings.TrimSpace(item.StoreKey) == "" {
		return SkipEmpty, false
	}

	st, err := s.stores.ResolveByKey(ctx, item.StoreKey)
	if err != nil {
		if !errors.Is(err, store.ErrStoreNotFound) {
			s.logger.Error().Err(err).Msg("offline sync: store lookup failed")
			return SkipStorageError, false
		}
		return SkipUnknownStore, false
	}

	userID, err := DecodeUserQR(qr)
	if err != nil {
		return SkipInvalidQR, false
	}

	now := s.now()
	ref := item.QR
	ev := &Event{
		UserID:    userID,
		StoreID:   st.ID,
		Points:    PointsPerScan,
		Type:      TypePOSOffline,
		Reference: &ref,
		CreatedAt: now,
	}

	// Any ledger row for the pair inside the dedup window makes this a duplicate.
	out, err := s.ledger.InsertWithinLimit(ctx, ev, now.Add(-s.dedupWindow), 1)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int64("user_id", userID).
			Int64("store_id", st.ID).
			Msg("offline sync: ledger write failed")
		return SkipStorageError, false
	}
	if !out.Inserted {
		return SkipDuplicate, false
	}

	s.audit.Record(ctx, st.ID, &userID, auditlog.TypeOfflineSync,
		"offline scan synced for user %d at store %d", userID, st.ID)
	return "", true
}
