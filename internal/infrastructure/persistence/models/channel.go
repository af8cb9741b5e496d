package models

import (
	"time"

	"github.com/channelops/backend/internal/domain/marketplace"
	"github.com/google/uuid"
)

// MarketplaceCredentialModel stores one user's encrypted credential bag for
// one marketplace. The plaintext never reaches this table; Ciphertext holds
// the sealed JSON payload produced by the credentials package.
type MarketplaceCredentialModel struct {
	BaseModel
	UserID      string `gorm:"type:varchar(64);not null;uniqueIndex:idx_credential_user_marketplace,priority:1"`
	Marketplace string `gorm:"type:varchar(32);not null;uniqueIndex:idx_credential_user_marketplace,priority:2"`
	Ciphertext  string `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM
func (MarketplaceCredentialModel) TableName() string {
	return "marketplace_credentials"
}

// SyncRecordModel is the persistence model for one sync attempt.
type SyncRecordModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID       string    `gorm:"type:varchar(64);not null;index:idx_sync_record_user_synced"`
	Marketplace  string    `gorm:"type:varchar(32);not null;index"`
	Operation    string    `gorm:"type:varchar(32);not null"`
	Status       string    `gorm:"type:varchar(16);not null"`
	TotalCount   int       `gorm:"not null;default:0"`
	SuccessCount int       `gorm:"not null;default:0"`
	FailedCount  int       `gorm:"not null;default:0"`
	Error        string    `gorm:"type:text"`
	SyncedAt     time.Time `gorm:"not null;index:idx_sync_record_user_synced"`
}

// TableName returns the table name for GORM
func (SyncRecordModel) TableName() string {
	return "sync_records"
}

// ToDomain converts the persistence model to a domain SyncRecord.
func (m *SyncRecordModel) ToDomain() marketplace.SyncRecord {
	return marketplace.SyncRecord{
		ID:           m.ID.String(),
		UserID:       m.UserID,
		Marketplace:  marketplace.Code(m.Marketplace),
		Operation:    m.Operation,
		Status:       marketplace.SyncStatus(m.Status),
		TotalCount:   m.TotalCount,
		SuccessCount: m.SuccessCount,
		FailedCount:  m.FailedCount,
		Error:        m.Error,
		SyncedAt:     m.SyncedAt,
	}
}

// SyncRecordModelFromDomain creates a persistence model from a domain
// SyncRecord, generating an ID when the record has none.
func SyncRecordModelFromDomain(r *marketplace.SyncRecord) *SyncRecordModel {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		id = uuid.New()
	}
	return &SyncRecordModel{
		ID:           id,
		UserID:       r.UserID,
		Marketplace:  r.Marketplace.String(),
		Operation:    r.Operation,
		Status:       r.Status.String(),
		TotalCount:   r.TotalCount,
		SuccessCount: r.SuccessCount,
		FailedCount:  r.FailedCount,
		Error:        r.Error,
		SyncedAt:     r.SyncedAt,
	}
}

// ActivityLogModel is the persistence model for one audit activity entry.
// Metadata is stored as a JSON object.
type ActivityLogModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID      string    `gorm:"type:varchar(64);not null;index:idx_activity_user_occurred"`
	Description string    `gorm:"type:varchar(500);not null"`
	EntityType  string    `gorm:"type:varchar(64);not null;index"`
	EntityID    string    `gorm:"type:varchar(128);not null;index"`
	Action      string    `gorm:"type:varchar(64);not null"`
	Status      string    `gorm:"type:varchar(16);not null"`
	Metadata    string    `gorm:"type:text"`
	OccurredAt  time.Time `gorm:"not null;index:idx_activity_user_occurred"`
}

// TableName returns the table name for GORM
func (ActivityLogModel) TableName() string {
	return "activity_logs"
}
