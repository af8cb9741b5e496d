package inventory

import (
	"context"

	"github.com/channelops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ItemRepository provides access to the inventory item store
type ItemRepository interface {
	// FindByID finds an item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)

	// FindBySKU finds an item by SKU within a user's catalog
	FindBySKU(ctx context.Context, userID, sku string) (*Item, error)

	// FindAllForUser lists a user's items matching the filter
	FindAllForUser(ctx context.Context, userID string, filter shared.Filter) ([]Item, error)

	// FindActiveForUser lists a user's active items
	FindActiveForUser(ctx context.Context, userID string) ([]Item, error)

	// Save creates or updates an item
	Save(ctx context.Context, item *Item) error

	// Delete removes an item
	Delete(ctx context.Context, id uuid.UUID) error

	// CountForUser counts a user's items matching the filter
	CountForUser(ctx context.Context, userID string, filter shared.Filter) (int64, error)
}
