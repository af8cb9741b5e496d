package crm

import (
	"context"
	"time"

	"github.com/channelops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProjectStatus represents the lifecycle state of a project
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

// Project is a unit of seller work (a launch, a campaign, a bulk listing
// effort) tracked next to the operational data.
type Project struct {
	shared.BaseEntity
	UserID      string
	Name        string
	Description string
	Status      ProjectStatus
	DueDate     *time.Time
	CompletedAt *time.Time
}

// NewProject creates an active project
func NewProject(userID, name, description string) (*Project, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Project name cannot be empty")
	}
	return &Project{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Status:      ProjectStatusActive,
	}, nil
}

// Complete marks the project as done
func (p *Project) Complete() error {
	if p.Status != ProjectStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Only active projects can be completed")
	}
	now := time.Now()
	p.Status = ProjectStatusCompleted
	p.CompletedAt = &now
	p.UpdatedAt = now
	return nil
}

// Archive removes the project from active listings
func (p *Project) Archive() error {
	if p.Status == ProjectStatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Project is already archived")
	}
	p.Status = ProjectStatusArchived
	p.UpdatedAt = time.Now()
	return nil
}

// IsOverdue returns true when the due date passed while the project is
// still active
func (p *Project) IsOverdue(now time.Time) bool {
	return p.Status == ProjectStatusActive && p.DueDate != nil && p.DueDate.Before(now)
}

// ProjectRepository provides access to the project store
type ProjectRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)
	FindAllForUser(ctx context.Context, userID string, filter shared.Filter) ([]Project, error)
	Save(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountForUser(ctx context.Context, userID string, filter shared.Filter) (int64, error)
}
