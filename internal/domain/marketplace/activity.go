package marketplace

import (
	"context"
	"time"
)

// ActivityStatus represents the outcome recorded on an activity entry
type ActivityStatus string

const (
	// ActivityStatusSuccess indicates the action succeeded
	ActivityStatusSuccess ActivityStatus = "success"
	// ActivityStatusFailed indicates the action failed
	ActivityStatusFailed ActivityStatus = "failed"
)

// Activity is an audit record of one marketplace-affecting action. Every
// field pushed to a marketplace is logged regardless of outcome.
type Activity struct {
	// UserID is the acting user
	UserID string
	// Description is the human-readable action summary
	Description string
	// EntityType names the affected entity kind (e.g. "product")
	EntityType string
	// EntityID identifies the affected entity
	EntityID string
	// Action names the performed action (e.g. "push_price")
	Action string
	// Status is the recorded outcome
	Status ActivityStatus
	// Metadata carries action-specific details
	Metadata map[string]string
	// OccurredAt is when the action happened
	OccurredAt time.Time
}

// ActivityRecorder is the sink for activity records. Recording is
// best-effort: implementations log and swallow their own failures so an
// audit-sink outage never fails the business operation.
type ActivityRecorder interface {
	Record(ctx context.Context, activity Activity)
}

// ActivityReader lists recorded activities, newest first
type ActivityReader interface {
	RecentForUser(ctx context.Context, userID string, limit int) ([]Activity, error)
}

// SyncRecordRepository persists sync attempt records
type SyncRecordRepository interface {
	// Save persists a sync record
	Save(ctx context.Context, record *SyncRecord) error

	// FindRecent returns the most recent records for a user, newest first
	FindRecent(ctx context.Context, userID string, limit int) ([]SyncRecord, error)

	// LastSyncedAt returns the completion time of the last successful sync
	// for a user and marketplace, or nil if none exists
	LastSyncedAt(ctx context.Context, userID string, code Code) (*time.Time, error)
}
