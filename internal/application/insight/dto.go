package insight

import (
	"time"

	"github.com/google/uuid"

	"github.com/channelops/backend/internal/domain/insight"
)

// CreateInsightRequest represents a request to record a new insight
type CreateInsightRequest struct {
	Type     string `json:"type" binding:"omitempty,oneof=pricing stock sales general"`
	Severity string `json:"severity" binding:"omitempty,oneof=info warning critical"`
	Title    string `json:"title" binding:"required,min=1,max=200"`
	Detail   string `json:"detail" binding:"max=2000"`
}

// InsightListFilter narrows an insight listing
type InsightListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status" binding:"omitempty,oneof=pending approved resolved dismissed"`
	Type     string `form:"type" binding:"omitempty,oneof=pricing stock sales general"`
	Severity string `form:"severity" binding:"omitempty,oneof=info warning critical"`
}

// InsightResponse represents an insight in API responses
type InsightResponse struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Severity   string     `json:"severity"`
	Title      string     `json:"title"`
	Detail     string     `json:"detail"`
	Status     string     `json:"status"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ToInsightResponse converts a domain insight to its API shape
func ToInsightResponse(ins *insight.Insight) InsightResponse {
	return InsightResponse{
		ID:         ins.ID,
		Type:       string(ins.Type),
		Severity:   string(ins.Severity),
		Title:      ins.Title,
		Detail:     ins.Detail,
		Status:     string(ins.Status),
		ResolvedAt: ins.ResolvedAt,
		CreatedAt:  ins.CreatedAt,
		UpdatedAt:  ins.UpdatedAt,
	}
}
