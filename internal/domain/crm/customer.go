// Package crm holds buyer and project records kept alongside the
// marketplace sync data.
package crm

import (
	"context"
	"strings"
	"time"

	"github.com/channelops/backend/internal/domain/marketplace"
	"github.com/channelops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerStatus represents the status of a customer record
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusArchived CustomerStatus = "archived"
)

// Customer is a buyer aggregated from marketplace orders or entered by hand
type Customer struct {
	shared.BaseEntity
	UserID string
	Name   string
	Email  string
	Phone  string
	// Marketplace is the channel the customer was first seen on, empty for
	// manually entered records
	Marketplace marketplace.Code
	TotalOrders int
	TotalSpend  decimal.Decimal
	Status      CustomerStatus
}

// NewCustomer creates an active customer record
func NewCustomer(userID, name, email string) (*Customer, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		Name:       name,
		Email:      strings.ToLower(email),
		TotalSpend: decimal.Zero,
		Status:     CustomerStatusActive,
	}, nil
}

// RecordOrder folds one order's total into the customer's history
func (c *Customer) RecordOrder(total decimal.Decimal) {
	c.TotalOrders++
	c.TotalSpend = c.TotalSpend.Add(total)
	c.UpdatedAt = time.Now()
}

// Archive hides the customer from active listings
func (c *Customer) Archive() {
	c.Status = CustomerStatusArchived
	c.UpdatedAt = time.Now()
}

// CustomerRepository provides access to the customer store
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByEmail(ctx context.Context, userID, email string) (*Customer, error)
	FindAllForUser(ctx context.Context, userID string, filter shared.Filter) ([]Customer, error)
	Save(ctx context.Context, customer *Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountForUser(ctx context.Context, userID string, filter shared.Filter) (int64, error)
}
