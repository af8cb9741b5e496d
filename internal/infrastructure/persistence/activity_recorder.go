package persistence

import (
	"context"
	"encoding/json"

	"github.com/channelops/backend/internal/domain/marketplace"
	"github.com/channelops/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormActivityRecorder persists marketplace activity entries. Failures are
// logged and swallowed so an audit write never fails the calling operation.
type GormActivityRecorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormActivityRecorder creates a new GormActivityRecorder
func NewGormActivityRecorder(db *gorm.DB, logger *zap.Logger) *GormActivityRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormActivityRecorder{db: db, logger: logger}
}

var _ marketplace.ActivityRecorder = (*GormActivityRecorder)(nil)

// Record writes one activity entry
func (r *GormActivityRecorder) Record(ctx context.Context, activity marketplace.Activity) {
	metadata := ""
	if len(activity.Metadata) > 0 {
		encoded, err := json.Marshal(activity.Metadata)
		if err != nil {
			r.logger.Warn("failed to encode activity metadata",
				zap.String("action", activity.Action),
				zap.Error(err))
		} else {
			metadata = string(encoded)
		}
	}

	model := &models.ActivityLogModel{
		ID:          uuid.New(),
		UserID:      activity.UserID,
		Description: activity.Description,
		EntityType:  activity.EntityType,
		EntityID:    activity.EntityID,
		Action:      activity.Action,
		Status:      string(activity.Status),
		Metadata:    metadata,
		OccurredAt:  activity.OccurredAt,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Warn("failed to record activity",
			zap.String("user_id", activity.UserID),
			zap.String("action", activity.Action),
			zap.Error(err))
	}
}

// RecentForUser returns a user's most recent activity entries, newest first
func (r *GormActivityRecorder) RecentForUser(ctx context.Context, userID string, limit int) ([]marketplace.Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	var logModels []models.ActivityLogModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&logModels).Error; err != nil {
		return nil, err
	}

	activities := make([]marketplace.Activity, len(logModels))
	for i, model := range logModels {
		var metadata map[string]string
		if model.Metadata != "" {
			if err := json.Unmarshal([]byte(model.Metadata), &metadata); err != nil {
				metadata = nil
			}
		}
		activities[i] = marketplace.Activity{
			UserID:      model.UserID,
			Description: model.Description,
			EntityType:  model.EntityType,
			EntityID:    model.EntityID,
			Action:      model.Action,
			Status:      marketplace.ActivityStatus(model.Status),
			Metadata:    metadata,
			OccurredAt:  model.OccurredAt,
		}
	}
	return activities, nil
}
