package models

import (
	"time"

	"github.com/channelops/backend/internal/domain/insight"
)

// InsightModel is the persistence model for a business insight
type InsightModel struct {
	BaseModel
	UserID     string     `gorm:"type:varchar(64);not null;index:idx_insight_user_status,priority:1"`
	Type       string     `gorm:"type:varchar(16);not null;index"`
	Severity   string     `gorm:"type:varchar(16);not null"`
	Title      string     `gorm:"type:varchar(200);not null"`
	Detail     string     `gorm:"type:text"`
	Status     string     `gorm:"type:varchar(16);not null;index:idx_insight_user_status,priority:2"`
	ResolvedAt *time.Time
}

// TableName returns the table name for GORM
func (InsightModel) TableName() string {
	return "insights"
}

// ToDomain converts the persistence model to a domain insight
func (m *InsightModel) ToDomain() *insight.Insight {
	return &insight.Insight{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		Type:       insight.InsightType(m.Type),
		Severity:   insight.Severity(m.Severity),
		Title:      m.Title,
		Detail:     m.Detail,
		Status:     insight.Status(m.Status),
		ResolvedAt: m.ResolvedAt,
	}
}

// InsightModelFromDomain creates a persistence model from a domain insight
func InsightModelFromDomain(ins *insight.Insight) *InsightModel {
	model := &InsightModel{
		UserID:     ins.UserID,
		Type:       string(ins.Type),
		Severity:   string(ins.Severity),
		Title:      ins.Title,
		Detail:     ins.Detail,
		Status:     string(ins.Status),
		ResolvedAt: ins.ResolvedAt,
	}
	model.FromDomainBaseEntity(ins.BaseEntity)
	return model
}
