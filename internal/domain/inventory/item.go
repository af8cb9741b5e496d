// Package inventory holds the seller-side catalog: the items whose stock,
// price, and status get pushed to marketplaces.
package inventory

import (
	"strings"
	"time"

	"github.com/channelops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ItemStatus represents the listing status of an inventory item
type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusInactive ItemStatus = "inactive"
)

// IsValid returns true if the status is a known listing status
func (s ItemStatus) IsValid() bool {
	return s == ItemStatusActive || s == ItemStatusInactive
}

// Item represents one sellable SKU owned by a user. Price is the everyday
// selling price; RRP is the recommended retail price shown as the listed
// price when a sale price is pushed.
type Item struct {
	shared.BaseEntity
	UserID      string
	SKU         string
	Title       string
	Description string
	Price       decimal.Decimal
	RRP         decimal.Decimal
	Currency    string
	StockLevel  int
	Status      ItemStatus
}

// NewItem creates a new inventory item
func NewItem(userID, sku, title, currency string, price decimal.Decimal) (*Item, error) {
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if currency == "" {
		currency = "ZAR"
	}

	return &Item{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		SKU:        strings.ToUpper(sku),
		Title:      title,
		Price:      price,
		RRP:        decimal.Zero,
		Currency:   strings.ToUpper(currency),
		Status:     ItemStatusActive,
	}, nil
}

// Update updates the item's descriptive fields
func (i *Item) Update(title, description string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	i.Title = title
	i.Description = description
	i.UpdatedAt = time.Now()
	return nil
}

// SetPrices sets the selling price and recommended retail price
func (i *Item) SetPrices(price, rrp decimal.Decimal) error {
	if price.IsNegative() || rrp.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}
	if !rrp.IsZero() && rrp.LessThan(price) {
		return shared.NewDomainError("INVALID_PRICE", "RRP cannot be below the selling price")
	}
	i.Price = price
	i.RRP = rrp
	i.UpdatedAt = time.Now()
	return nil
}

// AdjustStock applies a signed stock delta. The level never goes negative.
func (i *Item) AdjustStock(delta int) error {
	next := i.StockLevel + delta
	if next < 0 {
		return shared.ErrInsufficientStock
	}
	i.StockLevel = next
	i.UpdatedAt = time.Now()
	return nil
}

// SetStock replaces the absolute stock level
func (i *Item) SetStock(level int) error {
	if level < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock level cannot be negative")
	}
	i.StockLevel = level
	i.UpdatedAt = time.Now()
	return nil
}

// Activate marks the item as listed
func (i *Item) Activate() {
	i.Status = ItemStatusActive
	i.UpdatedAt = time.Now()
}

// Deactivate marks the item as delisted
func (i *Item) Deactivate() {
	i.Status = ItemStatusInactive
	i.UpdatedAt = time.Now()
}

// IsActive returns true if the item is listed
func (i *Item) IsActive() bool {
	return i.Status == ItemStatusActive
}

// HasSalePrice returns true when the item carries a distinct RRP above the
// selling price, meaning the selling price is effectively a sale price.
func (i *Item) HasSalePrice() bool {
	return !i.RRP.IsZero() && i.RRP.GreaterThan(i.Price)
}

func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 64 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 64 characters")
	}
	for _, r := range sku {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_SKU", "SKU can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Title cannot be empty")
	}
	if len(title) > 200 {
		return shared.NewDomainError("INVALID_TITLE", "Title cannot exceed 200 characters")
	}
	return nil
}
