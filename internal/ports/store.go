package ports

import (
	"context"
	"time"

	"github.com/topcoder-platform/email-preferences-service/internal/domain"
)

// SnapshotPatch is a partial update of a stored preference record.
// UpdatedAt is always set; Email only when the stored subsection differs
// from the desired one.
type SnapshotPatch struct {
	UpdatedAt time.Time
	Email     *domain.EmailPreferences
}

// SnapshotStore holds the authoritative preference snapshot, one record
// per user id. Get reports absence as found=false.
type SnapshotStore interface {
	Get(ctx context.Context, userID string) (rec domain.PreferenceRecord, found bool, err error)
	Insert(ctx context.Context, rec domain.PreferenceRecord) error
	UpdatePartial(ctx context.Context, userID string, patch SnapshotPatch) error
}
