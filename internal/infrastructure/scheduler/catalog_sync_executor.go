package scheduler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	appmarketplace "github.com/channelops/backend/internal/application/marketplace"
	"github.com/channelops/backend/internal/domain/inventory"
	"github.com/channelops/backend/internal/domain/marketplace"
)

// ProductSyncer pushes one item to marketplaces. Satisfied by the
// application layer's SyncService.
type ProductSyncer interface {
	SyncProduct(ctx context.Context, userID string, item *inventory.Item, marketplaceIDs []string) (*appmarketplace.SyncReport, error)
}

// CatalogSyncExecutorImpl implements CatalogSyncExecutor by walking the
// user's active catalog and pushing each item through the sync service
type CatalogSyncExecutorImpl struct {
	items  inventory.ItemRepository
	syncer ProductSyncer
	logger *zap.Logger

	// onSyncCompleted is an optional hook invoked after each finished run
	onSyncCompleted func(ctx context.Context, job *CatalogSyncJob) error
}

// NewCatalogSyncExecutor creates a new catalog sync executor
func NewCatalogSyncExecutor(
	items inventory.ItemRepository,
	syncer ProductSyncer,
	logger *zap.Logger,
) *CatalogSyncExecutorImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogSyncExecutorImpl{
		items:  items,
		syncer: syncer,
		logger: logger,
	}
}

// SetOnSyncCompletedCallback sets the callback for when a run completes
func (e *CatalogSyncExecutorImpl) SetOnSyncCompletedCallback(cb func(ctx context.Context, job *CatalogSyncJob) error) {
	e.onSyncCompleted = cb
}

// Execute pushes the user's active catalog to the target marketplaces
func (e *CatalogSyncExecutorImpl) Execute(ctx context.Context, job *CatalogSyncJob) error {
	items, err := e.items.FindActiveForUser(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCatalogSyncFailed, err)
	}

	e.logger.Info("Starting catalog sync execution",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID),
		zap.Int("item_count", len(items)),
	)

	successCount := 0
	failedCount := 0

	for i := range items {
		select {
		case <-ctx.Done():
			return ErrCatalogSyncTimeout
		default:
		}

		item := &items[i]
		report, err := e.syncer.SyncProduct(ctx, job.UserID, item, job.Marketplaces)
		if err != nil {
			if errors.Is(err, marketplace.ErrAdapterNotInitialized) {
				return fmt.Errorf("%w: %v", ErrNoActiveMarketplaces, err)
			}
			e.logger.Error("Failed to sync item",
				zap.String("job_id", job.ID.String()),
				zap.String("sku", item.SKU),
				zap.Error(err),
			)
			failedCount++
			continue
		}

		if reportFailed(report) {
			failedCount++
		} else {
			successCount++
		}
	}

	job.Complete(len(items), successCount, failedCount)

	if e.onSyncCompleted != nil {
		if err := e.onSyncCompleted(ctx, job); err != nil {
			e.logger.Warn("Sync completed callback failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	}

	e.logger.Info("Catalog sync execution completed",
		zap.String("job_id", job.ID.String()),
		zap.String("status", string(job.Status)),
		zap.Int("total_items", job.TotalItems),
		zap.Int("success_count", successCount),
		zap.Int("failed_count", failedCount),
	)

	return nil
}

// reportFailed returns true when any marketplace outcome in the report
// carried a failure
func reportFailed(report *appmarketplace.SyncReport) bool {
	if report == nil {
		return true
	}
	for _, outcome := range report.Outcomes {
		if outcome.FailedCount > 0 {
			return true
		}
	}
	return false
}

// Ensure CatalogSyncExecutorImpl implements CatalogSyncExecutor
var _ CatalogSyncExecutor = (*CatalogSyncExecutorImpl)(nil)
