package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/channelops/backend/internal/domain/marketplace"
	"github.com/channelops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSyncRecordRepository implements SyncRecordRepository using GORM
type GormSyncRecordRepository struct {
	db *gorm.DB
}

// NewGormSyncRecordRepository creates a new GormSyncRecordRepository
func NewGormSyncRecordRepository(db *gorm.DB) *GormSyncRecordRepository {
	return &GormSyncRecordRepository{db: db}
}

var _ marketplace.SyncRecordRepository = (*GormSyncRecordRepository)(nil)

// Save persists a sync record
func (r *GormSyncRecordRepository) Save(ctx context.Context, record *marketplace.SyncRecord) error {
	model := models.SyncRecordModelFromDomain(record)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	record.ID = model.ID.String()
	return nil
}

// FindRecent returns the most recent records for a user, newest first
func (r *GormSyncRecordRepository) FindRecent(ctx context.Context, userID string, limit int) ([]marketplace.SyncRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var recordModels []models.SyncRecordModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("synced_at DESC").
		Limit(limit).
		Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]marketplace.SyncRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = model.ToDomain()
	}
	return records, nil
}

// LastSyncedAt returns the completion time of the last successful sync for a
// user and marketplace, or nil if none exists
func (r *GormSyncRecordRepository) LastSyncedAt(ctx context.Context, userID string, code marketplace.Code) (*time.Time, error) {
	var model models.SyncRecordModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND marketplace = ? AND status = ?",
			userID, code.String(), marketplace.SyncStatusSuccess.String()).
		Order("synced_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	syncedAt := model.SyncedAt
	return &syncedAt, nil
}
