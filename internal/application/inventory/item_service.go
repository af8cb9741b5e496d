// Package inventory exposes catalog item CRUD and stock adjustment to the
// HTTP layer.
package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/channelops/backend/internal/domain/inventory"
	"github.com/channelops/backend/internal/domain/shared"
)

// ItemService handles inventory item operations
type ItemService struct {
	items inventory.ItemRepository
}

// NewItemService creates a new ItemService
func NewItemService(items inventory.ItemRepository) *ItemService {
	return &ItemService{items: items}
}

// Create creates a new inventory item. SKUs are unique per user.
func (s *ItemService) Create(ctx context.Context, userID string, req CreateItemRequest) (*ItemResponse, error) {
	existing, err := s.items.FindBySKU(ctx, userID, req.SKU)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Item with this SKU already exists")
	}

	item, err := inventory.NewItem(userID, req.SKU, req.Title, req.Currency, req.Price)
	if err != nil {
		return nil, err
	}
	item.Description = req.Description
	if req.RRP != nil {
		if err := item.SetPrices(req.Price, *req.RRP); err != nil {
			return nil, err
		}
	}
	if req.StockLevel != nil {
		if err := item.SetStock(*req.StockLevel); err != nil {
			return nil, err
		}
	}

	if err := s.items.Save(ctx, item); err != nil {
		return nil, err
	}
	response := ToItemResponse(item)
	return &response, nil
}

// GetByID retrieves an item owned by the user
func (s *ItemService) GetByID(ctx context.Context, userID string, id uuid.UUID) (*ItemResponse, error) {
	item, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	response := ToItemResponse(item)
	return &response, nil
}

// GetBySKU retrieves an item by SKU
func (s *ItemService) GetBySKU(ctx context.Context, userID, sku string) (*ItemResponse, error) {
	item, err := s.items.FindBySKU(ctx, userID, sku)
	if err != nil {
		return nil, err
	}
	response := ToItemResponse(item)
	return &response, nil
}

// List retrieves a page of items with filtering
func (s *ItemService) List(ctx context.Context, userID string, filter ItemListFilter) ([]ItemResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Search:   filter.Search,
		Filters:  map[string]interface{}{},
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}

	items, err := s.items.FindAllForUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.items.CountForUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ItemResponse, len(items))
	for i := range items {
		responses[i] = ToItemResponse(&items[i])
	}
	return responses, total, nil
}

// Update applies the populated fields of the request
func (s *ItemService) Update(ctx context.Context, userID string, id uuid.UUID, req UpdateItemRequest) (*ItemResponse, error) {
	item, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		description := item.Description
		if req.Description != nil {
			description = *req.Description
		}
		if err := item.Update(*req.Title, description); err != nil {
			return nil, err
		}
	} else if req.Description != nil {
		item.Description = *req.Description
	}

	if req.Price != nil || req.RRP != nil {
		price, rrp := item.Price, item.RRP
		if req.Price != nil {
			price = *req.Price
		}
		if req.RRP != nil {
			rrp = *req.RRP
		}
		if err := item.SetPrices(price, rrp); err != nil {
			return nil, err
		}
	}

	if req.Status != nil {
		switch inventory.ItemStatus(*req.Status) {
		case inventory.ItemStatusActive:
			item.Activate()
		case inventory.ItemStatusInactive:
			item.Deactivate()
		}
	}

	if err := s.items.Save(ctx, item); err != nil {
		return nil, err
	}
	response := ToItemResponse(item)
	return &response, nil
}

// AdjustStock applies a signed stock delta and returns the updated item
func (s *ItemService) AdjustStock(ctx context.Context, userID string, id uuid.UUID, req AdjustStockRequest) (*ItemResponse, error) {
	item, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := item.AdjustStock(req.Delta); err != nil {
		return nil, err
	}
	if err := s.items.Save(ctx, item); err != nil {
		return nil, err
	}
	response := ToItemResponse(item)
	return &response, nil
}

// Delete removes an item owned by the user
func (s *ItemService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	item, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.items.Delete(ctx, item.ID)
}

// findOwned loads an item and hides other users' items behind NOT_FOUND
func (s *ItemService) findOwned(ctx context.Context, userID string, id uuid.UUID) (*inventory.Item, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return item, nil
}
