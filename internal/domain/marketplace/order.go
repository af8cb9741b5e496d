package marketplace

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Order Projection
// ---------------------------------------------------------------------------

// OrderStatus represents the order lifecycle status on a marketplace
type OrderStatus string

const (
	// OrderStatusPending indicates the order awaits payment
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid indicates payment received, pending shipment
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusShipped indicates the order has been shipped
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the order was delivered
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded indicates the order was refunded
	OrderStatusRefunded OrderStatus = "refunded"
)

// IsValid returns true if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsFinal returns true if the status is a terminal state
func (s OrderStatus) IsFinal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	// PaymentStatusPending indicates payment has not completed
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid indicates payment completed
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusRefunded indicates payment was refunded
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Address is a normalized postal address
type Address struct {
	// Name is the addressee's full name
	Name string
	// Phone is the contact phone number
	Phone string
	// Line1 is the first address line
	Line1 string
	// Line2 is the second address line (optional)
	Line2 string
	// City is the city or locality
	City string
	// Province is the state, province or region
	Province string
	// PostalCode is the postal or ZIP code
	PostalCode string
	// CountryCode is the ISO 3166-1 alpha-2 country code
	CountryCode string
}

// OrderItem is a line item in a marketplace order
type OrderItem struct {
	// SKU is the seller's stock keeping unit
	SKU string
	// Title is the product title at order time
	Title string
	// Quantity is the ordered quantity
	Quantity int
	// UnitPrice is the per-unit price
	UnitPrice decimal.Decimal
	// Total is the line total
	Total decimal.Decimal
}

// Order is the canonical order projection built per-adapter from paginated
// marketplace responses. It is immutable once constructed for a given fetch.
type Order struct {
	// ID is the adapter-chosen stable identifier (usually MarketplaceOrderID)
	ID string
	// MarketplaceOrderID is the order ID on the marketplace
	MarketplaceOrderID string
	// Marketplace identifies the source marketplace
	Marketplace Code
	// BuyerName is the buyer's name or nickname
	BuyerName string
	// BuyerEmail is the buyer's email address (may be anonymized)
	BuyerEmail string
	// ShippingAddress is the delivery address
	ShippingAddress Address
	// Items contains the order line items
	Items []OrderItem
	// Status is the order lifecycle status
	Status OrderStatus
	// PaymentStatus is the payment state
	PaymentStatus PaymentStatus
	// Subtotal is the item total before shipping and discounts
	Subtotal decimal.Decimal
	// ShippingTotal is the shipping fee
	ShippingTotal decimal.Decimal
	// Total is the grand total the buyer paid
	Total decimal.Decimal
	// Currency is the ISO currency code
	Currency string
	// CreatedAt is when the order was placed on the marketplace
	CreatedAt time.Time
	// UpdatedAt is when the order was last modified on the marketplace
	UpdatedAt time.Time
}

// TrackingInfo carries shipment tracking details for an order status update
type TrackingInfo struct {
	// Carrier is the shipping carrier name or code
	Carrier string
	// TrackingNumber is the carrier tracking number
	TrackingNumber string
	// ShippedAt is when the parcel was handed to the carrier
	ShippedAt time.Time
}

// OrderQuery narrows an order listing request
type OrderQuery struct {
	// Since restricts to orders created after this time (optional)
	Since time.Time
	// Status restricts to one order status (optional)
	Status OrderStatus
	// Page is the 0-based page number
	Page int
	// PageSize is the requested page size
	PageSize int
}

// OrderPage is one page of an order listing
type OrderPage struct {
	// Items contains the orders on this page
	Items []Order
	// Page is the 0-based page number that was requested
	Page int
	// PageSize is the requested page size
	PageSize int
	// HasMore indicates more pages are available
	HasMore bool
}
