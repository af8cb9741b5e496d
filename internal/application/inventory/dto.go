package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelops/backend/internal/domain/inventory"
)

// CreateItemRequest represents a request to create an inventory item
type CreateItemRequest struct {
	SKU         string           `json:"sku" binding:"required,min=1,max=64"`
	Title       string           `json:"title" binding:"required,min=1,max=200"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price" binding:"required"`
	RRP         *decimal.Decimal `json:"rrp"`
	Currency    string           `json:"currency" binding:"omitempty,len=3"`
	StockLevel  *int             `json:"stock_level" binding:"omitempty,min=0"`
}

// UpdateItemRequest represents a request to update an inventory item
type UpdateItemRequest struct {
	Title       *string          `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	RRP         *decimal.Decimal `json:"rrp"`
	Status      *string          `json:"status" binding:"omitempty,oneof=active inactive"`
}

// AdjustStockRequest applies a signed stock delta
type AdjustStockRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"max=200"`
}

// ItemListFilter narrows an item listing
type ItemListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=active inactive"`
}

// ItemResponse represents an inventory item in API responses
type ItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	SKU         string          `json:"sku"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	RRP         decimal.Decimal `json:"rrp"`
	Currency    string          `json:"currency"`
	StockLevel  int             `json:"stock_level"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ToItemResponse converts a domain item to its API shape
func ToItemResponse(item *inventory.Item) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		SKU:         item.SKU,
		Title:       item.Title,
		Description: item.Description,
		Price:       item.Price,
		RRP:         item.RRP,
		Currency:    item.Currency,
		StockLevel:  item.StockLevel,
		Status:      string(item.Status),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}
