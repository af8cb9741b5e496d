package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	insightapp "github.com/channelops/backend/internal/application/insight"
	"github.com/channelops/backend/internal/interfaces/http/middleware"
)

// InsightHandler serves operational insight endpoints
type InsightHandler struct {
	BaseHandler
	insights *insightapp.InsightService
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(insights *insightapp.InsightService) *InsightHandler {
	return &InsightHandler{insights: insights}
}

// CreateInsight handles POST /insights
func (h *InsightHandler) CreateInsight(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req insightapp.CreateInsightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	ins, err := h.insights.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, ins)
}

// GetInsight handles GET /insights/:id
func (h *InsightHandler) GetInsight(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid insight ID")
		return
	}

	ins, err := h.insights.GetByID(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ins)
}

// ListInsights handles GET /insights
func (h *InsightHandler) ListInsights(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var filter insightapp.InsightListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	insights, total, err := h.insights.List(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, insights, total, filter.Page, filter.PageSize)
}

// ApproveInsight handles POST /insights/:id/approve
func (h *InsightHandler) ApproveInsight(c *gin.Context) {
	h.transition(c, h.insights.Approve)
}

// ResolveInsight handles POST /insights/:id/resolve
func (h *InsightHandler) ResolveInsight(c *gin.Context) {
	h.transition(c, h.insights.Resolve)
}

// DismissInsight handles POST /insights/:id/dismiss
func (h *InsightHandler) DismissInsight(c *gin.Context) {
	h.transition(c, h.insights.Dismiss)
}

// DeleteInsight handles DELETE /insights/:id
func (h *InsightHandler) DeleteInsight(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid insight ID")
		return
	}

	if err := h.insights.Delete(c.Request.Context(), userID, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

func (h *InsightHandler) transition(
	c *gin.Context,
	apply func(ctx context.Context, userID string, id uuid.UUID) (*insightapp.InsightResponse, error),
) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid insight ID")
		return
	}

	ins, err := apply(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ins)
}
