package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/channelops/backend/internal/domain/insight"
	"github.com/channelops/backend/internal/domain/shared"
	"github.com/channelops/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInsightRepository implements insight.Repository using GORM
type GormInsightRepository struct {
	db *gorm.DB
}

// NewGormInsightRepository creates a new GormInsightRepository
func NewGormInsightRepository(db *gorm.DB) *GormInsightRepository {
	return &GormInsightRepository{db: db}
}

var _ insight.Repository = (*GormInsightRepository)(nil)

// FindByID finds an insight by its ID
func (r *GormInsightRepository) FindByID(ctx context.Context, id uuid.UUID) (*insight.Insight, error) {
	var model models.InsightModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForUser finds all insights for a user matching the filter
func (r *GormInsightRepository) FindAllForUser(ctx context.Context, userID string, filter shared.Filter) ([]insight.Insight, error) {
	var insightModels []models.InsightModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.InsightModel{}).Where("user_id = ?", userID),
		filter,
	)

	if err := query.Find(&insightModels).Error; err != nil {
		return nil, err
	}

	insights := make([]insight.Insight, len(insightModels))
	for i, model := range insightModels {
		insights[i] = *model.ToDomain()
	}
	return insights, nil
}

// FindOpenForUser finds all pending and approved insights for a user
func (r *GormInsightRepository) FindOpenForUser(ctx context.Context, userID string) ([]insight.Insight, error) {
	var insightModels []models.InsightModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []string{
			string(insight.StatusPending),
			string(insight.StatusApproved),
		}).
		Order("created_at DESC").
		Find(&insightModels).Error; err != nil {
		return nil, err
	}

	insights := make([]insight.Insight, len(insightModels))
	for i, model := range insightModels {
		insights[i] = *model.ToDomain()
	}
	return insights, nil
}

// Save creates or updates an insight
func (r *GormInsightRepository) Save(ctx context.Context, ins *insight.Insight) error {
	model := models.InsightModelFromDomain(ins)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes an insight by ID
func (r *GormInsightRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InsightModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountForUser counts a user's insights matching the filter
func (r *GormInsightRepository) CountForUser(ctx context.Context, userID string, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.InsightModel{}).Where("user_id = ?", userID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormInsightRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, InsightSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInsightRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(detail) LIKE ?", searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "type":
			query = query.Where("type = ?", value)
		case "severity":
			query = query.Where("severity = ?", value)
		}
	}

	return query
}
