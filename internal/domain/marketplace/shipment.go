package marketplace

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Shipping Carrier Extension
// ---------------------------------------------------------------------------

// ShipmentStatus represents the carrier-side state of a shipment
type ShipmentStatus string

const (
	// ShipmentStatusCreated indicates the label was created
	ShipmentStatusCreated ShipmentStatus = "created"
	// ShipmentStatusInTransit indicates the parcel is moving
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	// ShipmentStatusDelivered indicates the parcel was delivered
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	// ShipmentStatusException indicates a delivery exception
	ShipmentStatusException ShipmentStatus = "exception"
	// ShipmentStatusCancelled indicates the shipment was cancelled
	ShipmentStatusCancelled ShipmentStatus = "cancelled"
)

// String returns the string representation of ShipmentStatus
func (s ShipmentStatus) String() string {
	return string(s)
}

// Parcel describes one package in a shipment request
type Parcel struct {
	// WeightKG is the parcel weight in kilograms
	WeightKG decimal.Decimal
	// LengthCM, WidthCM, HeightCM are the parcel dimensions in centimeters
	LengthCM int
	WidthCM  int
	HeightCM int
}

// ShipmentRequest describes a shipment to create with a carrier
type ShipmentRequest struct {
	// Reference is the caller's reference (typically the order ID)
	Reference string
	// From is the pickup address
	From Address
	// To is the delivery address
	To Address
	// Parcels contains the packages to ship
	Parcels []Parcel
	// ServiceCode is the carrier service level (carrier-native code)
	ServiceCode string
}

// Shipment is the normalized result of creating or tracking a shipment
type Shipment struct {
	// ID is the carrier shipment identifier
	ID string
	// TrackingNumber is the carrier tracking number
	TrackingNumber string
	// Carrier identifies the carrier
	Carrier Code
	// Status is the current shipment status
	Status ShipmentStatus
	// LabelURL points at the shipping label document, when available
	LabelURL string
	// Events contains tracking events, newest first
	Events []TrackingEvent
	// CreatedAt is when the shipment was created with the carrier
	CreatedAt time.Time
}

// TrackingEvent is one scan event in a shipment's history
type TrackingEvent struct {
	// Timestamp is when the event occurred
	Timestamp time.Time
	// Location is the scan location description
	Location string
	// Description is the carrier's event description
	Description string
	// Status is the normalized status at this event
	Status ShipmentStatus
}

// RateQuote is a priced shipping option returned by a carrier
type RateQuote struct {
	// ServiceCode is the carrier service level code
	ServiceCode string
	// ServiceName is the human-readable service name
	ServiceName string
	// Price is the quoted price
	Price decimal.Decimal
	// Currency is the ISO currency code
	Currency string
	// EstimatedDays is the estimated transit time in days, 0 if unknown
	EstimatedDays int
}

// Carrier is the extension port shipping carriers (DHL, FedEx) implement in
// addition to the base Adapter contract
type Carrier interface {
	Adapter

	// CreateShipment creates a shipment and returns the label and tracking
	// number. Not retry-safe: a retried call creates a second shipment.
	CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error)

	// TrackShipment returns the current state and event history of a
	// shipment, or ErrShipmentNotFound
	TrackShipment(ctx context.Context, trackingNumber string) (*Shipment, error)

	// GetRates quotes available services for a prospective shipment
	GetRates(ctx context.Context, req ShipmentRequest) ([]RateQuote, error)

	// CancelShipment cancels a shipment that has not been collected.
	// Carrier-side rejection is reported in the result, not thrown.
	CancelShipment(ctx context.Context, id string) (*OperationResult, error)
}
