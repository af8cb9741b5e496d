// Package marketplace contains the application services that move catalog
// data between the local store and the connected marketplaces.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelops/backend/internal/domain/inventory"
	"github.com/channelops/backend/internal/domain/marketplace"
	"github.com/channelops/backend/internal/domain/shared"
	"github.com/channelops/backend/internal/infrastructure/telemetry"
)

// ErrDuplicateRequest indicates an idempotency key was already consumed
var ErrDuplicateRequest = errors.New("marketplace: duplicate request")

// Push field names reported in PushResult
const (
	fieldPrice  = "price"
	fieldStock  = "stock"
	fieldStatus = "status"
)

// defaultIdempotencyTTL is how long a consumed idempotency key blocks
// replays
const defaultIdempotencyTTL = 24 * time.Hour

// PushService pushes individual product field updates to one marketplace,
// classifying the outcome per field. A transport or auth failure aborts the
// push; a marketplace rejection of one field leaves the other fields'
// outcomes intact.
type PushService struct {
	items      inventory.ItemRepository
	creds      marketplace.CredentialManager
	registry   marketplace.AdapterRegistry
	activities marketplace.ActivityRecorder
	idem       shared.IdempotencyStore
	idemTTL    time.Duration
	logger     *zap.Logger
}

// NewPushService creates a new PushService. The idempotency store is
// optional; without it every push executes.
func NewPushService(
	items inventory.ItemRepository,
	creds marketplace.CredentialManager,
	registry marketplace.AdapterRegistry,
	activities marketplace.ActivityRecorder,
	idem shared.IdempotencyStore,
	logger *zap.Logger,
) *PushService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushService{
		items:      items,
		creds:      creds,
		registry:   registry,
		activities: activities,
		idem:       idem,
		idemTTL:    defaultIdempotencyTTL,
		logger:     logger,
	}
}

// PushProductUpdate pushes the populated fields of req for one product to
// one marketplace. When both price and rrp are present, rrp is sent as the
// listed price and price as the sale price.
func (s *PushService) PushProductUpdate(ctx context.Context, userID string, productID uuid.UUID, marketplaceID string, req PushUpdateRequest) (*PushResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "push.product_update",
		telemetry.AttrMarketplace.String(marketplaceID),
		telemetry.AttrUserID.String(userID),
	)
	defer span.End()

	if req.IsEmpty() {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one of price, rrp, stock, status is required")
	}
	if req.IdempotencyKey != "" && s.idem != nil {
		fresh, err := s.idem.MarkProcessed(ctx, pushIdempotencyKey(userID, productID, marketplaceID, req.IdempotencyKey), s.idemTTL)
		if err != nil {
			return nil, fmt.Errorf("marketplace: idempotency check: %w", err)
		}
		if !fresh {
			return nil, fmt.Errorf("%w: key %q", ErrDuplicateRequest, req.IdempotencyKey)
		}
	}

	item, err := s.items.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, shared.ErrNotFound
	}

	adapter, err := s.adapterFor(ctx, userID, marketplaceID)
	if err != nil {
		return nil, err
	}

	result := &PushResult{
		ProductID:   productID,
		SKU:         item.SKU,
		Marketplace: adapter.Code(),
		PushedAt:    time.Now(),
	}

	if req.Price != nil || req.RRP != nil {
		update := buildPriceUpdate(item, req)
		opResult, err := adapter.UpdatePrices(ctx, []marketplace.PriceUpdate{update})
		s.classifyField(ctx, userID, item, adapter.Code(), fieldPrice, priceMetadata(update), opResult, err, result)
	}
	if req.Stock != nil {
		opResult, err := adapter.UpdateStock(ctx, []marketplace.StockUpdate{{SKU: item.SKU, Quantity: *req.Stock}})
		s.classifyField(ctx, userID, item, adapter.Code(), fieldStock,
			map[string]string{"quantity": strconv.Itoa(*req.Stock)}, opResult, err, result)
	}
	if req.Status != nil {
		opResult, err := adapter.UpdateStatus(ctx, []marketplace.StatusUpdate{{SKU: item.SKU, Status: marketplace.ProductStatus(*req.Status)}})
		s.classifyField(ctx, userID, item, adapter.Code(), fieldStatus,
			map[string]string{"status": *req.Status}, opResult, err, result)
	}

	result.Status = marketplace.StatusOf(len(result.Successful), len(result.Failed))
	switch result.Status {
	case marketplace.SyncStatusSuccess:
		result.Message = fmt.Sprintf("pushed %d field(s) to %s", len(result.Successful), result.Marketplace)
	case marketplace.SyncStatusPartial:
		result.Message = fmt.Sprintf("pushed %d of %d field(s) to %s", len(result.Successful), len(result.Successful)+len(result.Failed), result.Marketplace)
	default:
		result.Message = fmt.Sprintf("push to %s failed", result.Marketplace)
	}
	return result, nil
}

// buildPriceUpdate maps the request's price fields onto the wire payload.
// With both present the rrp becomes the listed price and the price the sale
// price; alone, each is the listed price.
func buildPriceUpdate(item *inventory.Item, req PushUpdateRequest) marketplace.PriceUpdate {
	update := marketplace.PriceUpdate{SKU: item.SKU, Currency: item.Currency}
	switch {
	case req.Price != nil && req.RRP != nil:
		update.Price = *req.RRP
		update.SalePrice = *req.Price
	case req.Price != nil:
		update.Price = *req.Price
	default:
		update.Price = *req.RRP
	}
	return update
}

// classifyField folds one field's adapter outcome into the push result and
// records an activity entry regardless of outcome.
func (s *PushService) classifyField(
	ctx context.Context,
	userID string,
	item *inventory.Item,
	code marketplace.Code,
	field string,
	metadata map[string]string,
	opResult *marketplace.OperationResult,
	err error,
	result *PushResult,
) {
	status := marketplace.ActivityStatusSuccess
	switch {
	case err != nil:
		result.Failed = append(result.Failed, FieldFailure{Field: field, Code: failureCodeOf(err), Message: err.Error()})
		status = marketplace.ActivityStatusFailed
	case opResult != nil && !opResult.Succeeded(item.SKU):
		failure := opResult.FailureFor(item.SKU)
		ff := FieldFailure{Field: field, Code: marketplace.FailureCodeRejected}
		if failure != nil {
			ff.Code = failure.Code
			ff.Message = failure.Message
		}
		result.Failed = append(result.Failed, ff)
		status = marketplace.ActivityStatusFailed
	default:
		result.Successful = append(result.Successful, field)
	}

	if s.activities != nil {
		s.activities.Record(ctx, marketplace.Activity{
			UserID:      userID,
			Description: fmt.Sprintf("push %s for %s to %s", field, item.SKU, code),
			EntityType:  "product",
			EntityID:    item.ID.String(),
			Action:      "push_" + field,
			Status:      status,
			Metadata:    metadata,
			OccurredAt:  time.Now(),
		})
	}
}

// adapterFor returns the cached adapter for the marketplace, constructing
// and initializing one from stored credentials on first use.
func (s *PushService) adapterFor(ctx context.Context, userID, marketplaceID string) (marketplace.Adapter, error) {
	adapter, err := s.registry.Get(marketplaceID)
	if err == nil {
		return adapter, nil
	}
	if !errors.Is(err, marketplace.ErrAdapterNotInitialized) {
		return nil, err
	}

	code := marketplace.NormalizeCode(marketplaceID)
	creds, err := s.creds.GetCredentials(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	adapter, err = s.registry.Create(ctx, marketplaceID, creds)
	if err != nil {
		return nil, err
	}
	s.logger.Info("marketplace adapter initialized on demand",
		zap.String("marketplace", code.String()),
		zap.String("user_id", userID))
	return adapter, nil
}

// failureCodeOf maps transport-level errors to a failure code for display
func failureCodeOf(err error) string {
	switch {
	case errors.Is(err, marketplace.ErrAuthenticationFailed), errors.Is(err, marketplace.ErrTokenExpired):
		return "AUTH_FAILED"
	case errors.Is(err, marketplace.ErrRateLimited):
		return "RATE_LIMITED"
	case errors.Is(err, marketplace.ErrNotSupported):
		return "NOT_SUPPORTED"
	default:
		return "REQUEST_FAILED"
	}
}

func pushIdempotencyKey(userID string, productID uuid.UUID, marketplaceID, key string) string {
	return fmt.Sprintf("push:%s:%s:%s:%s", userID, productID, marketplace.NormalizeCode(marketplaceID), key)
}

func priceMetadata(update marketplace.PriceUpdate) map[string]string {
	metadata := map[string]string{"price": update.Price.String()}
	if !update.SalePrice.IsZero() {
		metadata["sale_price"] = update.SalePrice.String()
	}
	return metadata
}
