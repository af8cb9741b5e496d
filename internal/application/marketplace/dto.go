package marketplace

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelops/backend/internal/domain/marketplace"
)

// =============================================================================
// Push DTOs
// =============================================================================

// PushUpdateRequest carries the fields to push for one product. Only
// populated fields are sent to the marketplace; price and rrp together form
// a single price push.
type PushUpdateRequest struct {
	// IdempotencyKey deduplicates retried pushes when set
	IdempotencyKey string           `json:"idempotency_key" binding:"max=128"`
	Price          *decimal.Decimal `json:"price"`
	RRP            *decimal.Decimal `json:"rrp"`
	Stock          *int             `json:"stock" binding:"omitempty,min=0"`
	Status         *string          `json:"status" binding:"omitempty,oneof=active inactive"`
}

// IsEmpty returns true when no pushable field is populated
func (r *PushUpdateRequest) IsEmpty() bool {
	return r.Price == nil && r.RRP == nil && r.Stock == nil && r.Status == nil
}

// FieldFailure records one field the marketplace rejected
type FieldFailure struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PushResult is the per-field outcome of one push
type PushResult struct {
	ProductID   uuid.UUID              `json:"product_id"`
	SKU         string                 `json:"sku"`
	Marketplace marketplace.Code       `json:"marketplace"`
	Successful  []string               `json:"successful"`
	Failed      []FieldFailure         `json:"failed"`
	Status      marketplace.SyncStatus `json:"status"`
	Message     string                 `json:"message"`
	PushedAt    time.Time              `json:"pushed_at"`
}

// =============================================================================
// Sync DTOs
// =============================================================================

// MarketplaceSyncOutcome is the outcome of one sync against one marketplace
type MarketplaceSyncOutcome struct {
	Marketplace  marketplace.Code       `json:"marketplace"`
	Status       marketplace.SyncStatus `json:"status"`
	SuccessCount int                    `json:"success_count"`
	FailedCount  int                    `json:"failed_count"`
	Error        string                 `json:"error,omitempty"`
}

// SyncReport aggregates the outcomes of one sync run across marketplaces
type SyncReport struct {
	Outcomes []MarketplaceSyncOutcome `json:"outcomes"`
	SyncedAt time.Time                `json:"synced_at"`
}

// StatusForCode returns the outcome for a marketplace, or nil
func (r *SyncReport) StatusForCode(code marketplace.Code) *MarketplaceSyncOutcome {
	for i := range r.Outcomes {
		if r.Outcomes[i].Marketplace == code {
			return &r.Outcomes[i]
		}
	}
	return nil
}

// =============================================================================
// Health DTOs
// =============================================================================

// HealthReport is one marketplace's connection health entry
type HealthReport struct {
	Marketplace marketplace.Code `json:"marketplace"`
	Connected   bool             `json:"connected"`
	Message     string           `json:"message,omitempty"`
	CheckedAt   time.Time        `json:"checked_at"`
}

// HealthCache caches the full health fan-out result so repeated health
// requests do not hammer vendor status endpoints
type HealthCache interface {
	Get() ([]HealthReport, bool)
	Set(reports []HealthReport)
}
