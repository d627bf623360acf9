package auditlog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes audit entries. Write failures are logged and swallowed: the
// audit trail never fails the operation it describes.
type Logger struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

// NewLogger creates a new audit Logger.
func NewLogger(repo Repository, logger zerolog.Logger) *Logger {
	return &Logger{repo: repo, logger: logger, now: time.Now}
}

// Record appends an entry with a formatted message.
func (l *Logger) Record(ctx context.Context, storeID int64, userID *int64, entryType, format string, args ...any) {
	if l == nil || l.repo == nil {
		return
	}

	entry := &Entry{
		StoreID:   storeID,
		UserID:    userID,
		Message:   fmt.Sprintf(format, args...),
		Type:      entryType,
		CreatedAt: l.now(),
	}
	if err := l.repo.Append(ctx, entry); err != nil {
		l.logger.Warn().
			Err(err).
			Int64("store_id", storeID).
			Str("type", entryType).
			Msg("failed to write audit entry")
	}
}
