package marketplace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/channelops/backend/internal/domain/inventory"
	"github.com/channelops/backend/internal/domain/marketplace"
	"github.com/channelops/backend/internal/infrastructure/telemetry"
)

// SyncService replays local catalog state onto already-initialized
// marketplace adapters. It never constructs adapters itself; activation
// goes through InitializeMarketplace.
type SyncService struct {
	registry marketplace.AdapterRegistry
	creds    marketplace.CredentialManager
	records  marketplace.SyncRecordRepository
	health   HealthCache
	logger   *zap.Logger
}

// NewSyncService creates a new SyncService. The health cache and record
// repository are optional.
func NewSyncService(
	registry marketplace.AdapterRegistry,
	creds marketplace.CredentialManager,
	records marketplace.SyncRecordRepository,
	health HealthCache,
	logger *zap.Logger,
) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		registry: registry,
		creds:    creds,
		records:  records,
		health:   health,
		logger:   logger,
	}
}

// InitializeMarketplace activates a marketplace for a user: stored
// credentials are fetched, decrypted, and handed to the registry, which
// constructs, initializes, and caches the adapter.
func (s *SyncService) InitializeMarketplace(ctx context.Context, userID, marketplaceID string) (marketplace.Code, error) {
	code := marketplace.NormalizeCode(marketplaceID)
	creds, err := s.creds.GetCredentials(ctx, userID, code)
	if err != nil {
		return code, err
	}
	adapter, err := s.registry.Create(ctx, marketplaceID, creds)
	if err != nil {
		return code, err
	}
	s.logger.Info("marketplace activated",
		zap.String("marketplace", adapter.Code().String()),
		zap.String("user_id", userID))
	return adapter.Code(), nil
}

// SyncProduct pushes one item's stock, price, and status to the target
// marketplaces, in that order. The first failing step disqualifies that
// marketplace for the rest of the run; iteration over the remaining
// marketplaces continues.
func (s *SyncService) SyncProduct(ctx context.Context, userID string, item *inventory.Item, marketplaceIDs []string) (*SyncReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "sync.product",
		telemetry.AttrSKU.String(item.SKU),
		telemetry.AttrUserID.String(userID),
	)
	defer span.End()

	targets, err := s.resolveTargets(marketplaceIDs)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{SyncedAt: time.Now()}
	for _, adapter := range targets {
		outcome := s.syncProductTo(ctx, adapter, item)
		report.Outcomes = append(report.Outcomes, outcome)
		s.saveRecord(ctx, userID, adapter.Code(), "product", outcome)
	}
	return report, nil
}

// syncProductTo runs the stock, price, status sequence against one adapter
func (s *SyncService) syncProductTo(ctx context.Context, adapter marketplace.Adapter, item *inventory.Item) MarketplaceSyncOutcome {
	outcome := MarketplaceSyncOutcome{Marketplace: adapter.Code()}

	steps := []struct {
		name string
		call func() (*marketplace.OperationResult, error)
	}{
		{"stock", func() (*marketplace.OperationResult, error) {
			return adapter.UpdateStock(ctx, []marketplace.StockUpdate{{SKU: item.SKU, Quantity: item.StockLevel}})
		}},
		{"price", func() (*marketplace.OperationResult, error) {
			return adapter.UpdatePrices(ctx, []marketplace.PriceUpdate{priceUpdateForItem(item)})
		}},
		{"status", func() (*marketplace.OperationResult, error) {
			return adapter.UpdateStatus(ctx, []marketplace.StatusUpdate{{SKU: item.SKU, Status: marketplace.ProductStatus(item.Status)}})
		}},
	}

	for _, step := range steps {
		result, err := step.call()
		if err != nil {
			outcome.FailedCount++
			outcome.Error = fmt.Sprintf("%s: %v", step.name, err)
			s.logger.Warn("product sync step failed",
				zap.String("marketplace", adapter.Code().String()),
				zap.String("sku", item.SKU),
				zap.String("step", step.name),
				zap.Error(err))
			break
		}
		if result != nil && !result.Succeeded(item.SKU) {
			outcome.FailedCount++
			if failure := result.FailureFor(item.SKU); failure != nil {
				outcome.Error = fmt.Sprintf("%s: %s", step.name, failure.Message)
			}
			break
		}
		outcome.SuccessCount++
	}

	outcome.Status = marketplace.StatusOf(outcome.SuccessCount, outcome.FailedCount)
	return outcome
}

// priceUpdateForItem maps an item's prices onto the wire payload. An item
// with a sale price lists the RRP and discounts to the selling price.
func priceUpdateForItem(item *inventory.Item) marketplace.PriceUpdate {
	update := marketplace.PriceUpdate{SKU: item.SKU, Price: item.Price, Currency: item.Currency}
	if item.HasSalePrice() {
		update.Price = item.RRP
		update.SalePrice = item.Price
	}
	return update
}

// SyncStockLevels pushes a batch of absolute stock levels to the target
// marketplaces. Per-item rejections are counted; a batch-level error marks
// the whole marketplace failed and iteration continues.
func (s *SyncService) SyncStockLevels(ctx context.Context, userID string, updates []marketplace.StockUpdate, marketplaceIDs []string) (*SyncReport, error) {
	if len(updates) == 0 {
		return &SyncReport{SyncedAt: time.Now()}, nil
	}
	targets, err := s.resolveTargets(marketplaceIDs)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{SyncedAt: time.Now()}
	for _, adapter := range targets {
		outcome := MarketplaceSyncOutcome{Marketplace: adapter.Code()}
		result, err := adapter.UpdateStock(ctx, updates)
		switch {
		case err != nil:
			outcome.FailedCount = len(updates)
			outcome.Error = err.Error()
		case result != nil:
			outcome.SuccessCount = len(result.Successful)
			outcome.FailedCount = len(result.Failed)
		}
		outcome.Status = marketplace.StatusOf(outcome.SuccessCount, outcome.FailedCount)
		report.Outcomes = append(report.Outcomes, outcome)
		s.saveRecord(ctx, userID, adapter.Code(), "stock", outcome)
	}
	return report, nil
}

// CheckMarketplaceHealth fans TestConnection out over every active adapter.
// One marketplace failing, erroring, or panicking never hides the others'
// entries. Results are served from the health cache while fresh.
func (s *SyncService) CheckMarketplaceHealth(ctx context.Context) []HealthReport {
	if s.health != nil {
		if cached, ok := s.health.Get(); ok {
			return cached
		}
	}

	var reports []HealthReport
	for _, code := range s.registry.Active() {
		reports = append(reports, s.checkOne(ctx, code))
	}
	if s.health != nil && len(reports) > 0 {
		s.health.Set(reports)
	}
	return reports
}

// checkOne probes a single adapter, converting panics into unhealthy
// entries so a misbehaving adapter cannot take down the whole report.
func (s *SyncService) checkOne(ctx context.Context, code marketplace.Code) (report HealthReport) {
	report = HealthReport{Marketplace: code, CheckedAt: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			report.Connected = false
			report.Message = fmt.Sprintf("health check panicked: %v", r)
			s.logger.Error("marketplace health check panicked",
				zap.String("marketplace", code.String()),
				zap.Any("panic", r))
		}
	}()

	adapter, err := s.registry.Get(code.String())
	if err != nil {
		report.Message = err.Error()
		return report
	}
	status := adapter.TestConnection(ctx)
	report.Connected = status.Connected
	report.Message = status.Message
	report.CheckedAt = status.LastChecked
	return report
}

// resolveTargets maps marketplace identifiers to initialized adapters. An
// empty list means every active adapter. Unknown or uninitialized
// identifiers fail the whole call so a typo cannot silently skip a channel.
func (s *SyncService) resolveTargets(marketplaceIDs []string) ([]marketplace.Adapter, error) {
	if len(marketplaceIDs) == 0 {
		codes := s.registry.Active()
		adapters := make([]marketplace.Adapter, 0, len(codes))
		for _, code := range codes {
			adapter, err := s.registry.Get(code.String())
			if err != nil {
				continue
			}
			adapters = append(adapters, adapter)
		}
		return adapters, nil
	}

	adapters := make([]marketplace.Adapter, 0, len(marketplaceIDs))
	for _, id := range marketplaceIDs {
		adapter, err := s.registry.Get(id)
		if err != nil {
			return nil, fmt.Errorf("marketplace %q: %w", id, err)
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

// saveRecord persists a sync record, best-effort
func (s *SyncService) saveRecord(ctx context.Context, userID string, code marketplace.Code, operation string, outcome MarketplaceSyncOutcome) {
	if s.records == nil {
		return
	}
	record := &marketplace.SyncRecord{
		UserID:       userID,
		Marketplace:  code,
		Operation:    operation,
		Status:       outcome.Status,
		TotalCount:   outcome.SuccessCount + outcome.FailedCount,
		SuccessCount: outcome.SuccessCount,
		FailedCount:  outcome.FailedCount,
		Error:        outcome.Error,
		SyncedAt:     time.Now(),
	}
	if err := s.records.Save(ctx, record); err != nil {
		s.logger.Warn("failed to save sync record",
			zap.String("marketplace", code.String()),
			zap.String("operation", operation),
			zap.Error(err))
	}
}
