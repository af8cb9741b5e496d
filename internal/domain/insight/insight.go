// Package insight holds generated business insights and their review
// lifecycle. Generation happens upstream; this package owns the record.
package insight

import (
	"context"
	"time"

	"github.com/channelops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InsightType classifies what the insight is about
type InsightType string

const (
	InsightTypePricing InsightType = "pricing"
	InsightTypeStock   InsightType = "stock"
	InsightTypeSales   InsightType = "sales"
	InsightTypeGeneral InsightType = "general"
)

// Severity grades how urgent an insight is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Status tracks the review lifecycle of an insight
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

// Insight is one actionable observation surfaced to a user
type Insight struct {
	shared.BaseEntity
	UserID   string
	Type     InsightType
	Severity Severity
	Title    string
	Detail   string
	Status   Status
	// ResolvedAt is set when the insight leaves the open states
	ResolvedAt *time.Time
}

// NewInsight creates a pending insight
func NewInsight(userID string, insightType InsightType, severity Severity, title, detail string) (*Insight, error) {
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Insight title cannot be empty")
	}
	if insightType == "" {
		insightType = InsightTypeGeneral
	}
	if severity == "" {
		severity = SeverityInfo
	}
	return &Insight{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		Type:       insightType,
		Severity:   severity,
		Title:      title,
		Detail:     detail,
		Status:     StatusPending,
	}, nil
}

// Approve accepts a pending insight for action
func (i *Insight) Approve() error {
	if i.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending insights can be approved")
	}
	i.Status = StatusApproved
	i.UpdatedAt = time.Now()
	return nil
}

// Resolve closes an insight after its action completed. Pending insights
// may be resolved directly.
func (i *Insight) Resolve() error {
	if i.Status == StatusResolved || i.Status == StatusDismissed {
		return shared.NewDomainError("INVALID_STATE", "Insight is already closed")
	}
	now := time.Now()
	i.Status = StatusResolved
	i.ResolvedAt = &now
	i.UpdatedAt = now
	return nil
}

// Dismiss closes an insight without action
func (i *Insight) Dismiss() error {
	if i.Status == StatusResolved || i.Status == StatusDismissed {
		return shared.NewDomainError("INVALID_STATE", "Insight is already closed")
	}
	now := time.Now()
	i.Status = StatusDismissed
	i.ResolvedAt = &now
	i.UpdatedAt = now
	return nil
}

// IsOpen returns true while the insight still needs attention
func (i *Insight) IsOpen() bool {
	return i.Status == StatusPending || i.Status == StatusApproved
}

// Repository provides access to the insight store
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Insight, error)
	FindAllForUser(ctx context.Context, userID string, filter shared.Filter) ([]Insight, error)
	FindOpenForUser(ctx context.Context, userID string) ([]Insight, error)
	Save(ctx context.Context, ins *Insight) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountForUser(ctx context.Context, userID string, filter shared.Filter) (int64, error)
}
