package marketplace

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Product Projection
// ---------------------------------------------------------------------------

// ProductStatus represents the listing status of a product on a marketplace
type ProductStatus string

const (
	// ProductStatusActive indicates the product is listed for sale
	ProductStatusActive ProductStatus = "active"
	// ProductStatusInactive indicates the product is delisted or paused
	ProductStatusInactive ProductStatus = "inactive"
)

// IsValid returns true if the status is valid
func (s ProductStatus) IsValid() bool {
	return s == ProductStatusActive || s == ProductStatusInactive
}

// String returns the string representation of ProductStatus
func (s ProductStatus) String() string {
	return string(s)
}

// Product is the canonical product projection produced by adapters from
// marketplace-native shapes. It is a transient DTO per call, not an entity
// persisted by this subsystem.
type Product struct {
	// ID is the marketplace-native product identifier
	ID string
	// SKU is the seller's stock keeping unit, unique per marketplace+seller
	SKU string
	// Title is the listing title
	Title string
	// Price is the current selling price
	Price decimal.Decimal
	// RRP is the recommended retail (undiscounted reference) price.
	// Zero when the marketplace does not expose one.
	RRP decimal.Decimal
	// Currency is the ISO currency code
	Currency string
	// StockLevel is the available quantity
	StockLevel int
	// Status is the listing status
	Status ProductStatus
	// CreatedAt is when the listing was created on the marketplace
	CreatedAt time.Time
	// UpdatedAt is when the listing was last modified on the marketplace
	UpdatedAt time.Time
}

// ProductFilter narrows a product listing request
type ProductFilter struct {
	// SKUs restricts the listing to the given SKUs (optional)
	SKUs []string
	// Status restricts the listing to one status (optional)
	Status ProductStatus
	// UpdatedSince restricts to products modified after this time (optional)
	UpdatedSince time.Time
}

// ProductPage is one page of a product listing. Adapters using cursor
// pagination translate page requests to native cursors transparently.
type ProductPage struct {
	// Items contains the products on this page
	Items []Product
	// Page is the 0-based page number that was requested
	Page int
	// PageSize is the requested page size
	PageSize int
	// HasMore indicates more pages are available
	HasMore bool
}

// ---------------------------------------------------------------------------
// Update Payloads
// ---------------------------------------------------------------------------

// StockUpdate sets the stock level for one SKU
type StockUpdate struct {
	// SKU identifies the item
	SKU string
	// Quantity is the new absolute stock level
	Quantity int
}

// PriceUpdate sets the price for one SKU. When SalePrice is non-zero, Price
// is the regular listed price and SalePrice the discounted selling price.
type PriceUpdate struct {
	// SKU identifies the item
	SKU string
	// Price is the regular listed price
	Price decimal.Decimal
	// SalePrice is the discounted selling price (optional)
	SalePrice decimal.Decimal
	// Currency is the ISO currency code (optional, adapter default applies)
	Currency string
}

// StatusUpdate sets the listing status for one SKU
type StatusUpdate struct {
	// SKU identifies the item
	SKU string
	// Status is the new listing status
	Status ProductStatus
}
