// Package insight exposes business-insight review operations to the HTTP
// layer. Insight generation happens upstream and is out of scope here.
package insight

import (
	"context"

	"github.com/google/uuid"

	"github.com/channelops/backend/internal/domain/insight"
	"github.com/channelops/backend/internal/domain/shared"
)

// InsightService handles insight CRUD and lifecycle transitions
type InsightService struct {
	insights insight.Repository
}

// NewInsightService creates a new InsightService
func NewInsightService(insights insight.Repository) *InsightService {
	return &InsightService{insights: insights}
}

// Create records a new pending insight
func (s *InsightService) Create(ctx context.Context, userID string, req CreateInsightRequest) (*InsightResponse, error) {
	ins, err := insight.NewInsight(userID, insight.InsightType(req.Type), insight.Severity(req.Severity), req.Title, req.Detail)
	if err != nil {
		return nil, err
	}
	if err := s.insights.Save(ctx, ins); err != nil {
		return nil, err
	}
	response := ToInsightResponse(ins)
	return &response, nil
}

// GetByID retrieves an insight owned by the user
func (s *InsightService) GetByID(ctx context.Context, userID string, id uuid.UUID) (*InsightResponse, error) {
	ins, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	response := ToInsightResponse(ins)
	return &response, nil
}

// List retrieves a page of insights with filtering
func (s *InsightService) List(ctx context.Context, userID string, filter InsightListFilter) ([]InsightResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Filters:  map[string]interface{}{},
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Type != "" {
		domainFilter.Filters["type"] = filter.Type
	}
	if filter.Severity != "" {
		domainFilter.Filters["severity"] = filter.Severity
	}

	insights, err := s.insights.FindAllForUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.insights.CountForUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InsightResponse, len(insights))
	for i := range insights {
		responses[i] = ToInsightResponse(&insights[i])
	}
	return responses, total, nil
}

// Approve accepts a pending insight for action
func (s *InsightService) Approve(ctx context.Context, userID string, id uuid.UUID) (*InsightResponse, error) {
	return s.transition(ctx, userID, id, (*insight.Insight).Approve)
}

// Resolve closes an insight after its action completed
func (s *InsightService) Resolve(ctx context.Context, userID string, id uuid.UUID) (*InsightResponse, error) {
	return s.transition(ctx, userID, id, (*insight.Insight).Resolve)
}

// Dismiss closes an insight without action
func (s *InsightService) Dismiss(ctx context.Context, userID string, id uuid.UUID) (*InsightResponse, error) {
	return s.transition(ctx, userID, id, (*insight.Insight).Dismiss)
}

// Delete removes an insight owned by the user
func (s *InsightService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	ins, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.insights.Delete(ctx, ins.ID)
}

func (s *InsightService) transition(ctx context.Context, userID string, id uuid.UUID, apply func(*insight.Insight) error) (*InsightResponse, error) {
	ins, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(ins); err != nil {
		return nil, err
	}
	if err := s.insights.Save(ctx, ins); err != nil {
		return nil, err
	}
	response := ToInsightResponse(ins)
	return &response, nil
}

func (s *InsightService) findOwned(ctx context.Context, userID string, id uuid.UUID) (*insight.Insight, error) {
	ins, err := s.insights.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ins.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return ins, nil
}
