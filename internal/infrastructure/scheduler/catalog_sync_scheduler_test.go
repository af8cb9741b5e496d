package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appmarketplace "github.com/channelops/backend/internal/application/marketplace"
	"github.com/channelops/backend/internal/domain/inventory"
	"github.com/channelops/backend/internal/domain/marketplace"
	"github.com/channelops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeExecutor records executed jobs and runs an optional hook
type fakeExecutor struct {
	mu       sync.Mutex
	executed []*CatalogSyncJob
	run      func(job *CatalogSyncJob) error
}

func (e *fakeExecutor) Execute(ctx context.Context, job *CatalogSyncJob) error {
	e.mu.Lock()
	e.executed = append(e.executed, job)
	e.mu.Unlock()
	if e.run != nil {
		return e.run(job)
	}
	job.Complete(2, 2, 0)
	return nil
}

func (e *fakeExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.executed)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testSchedulerConfig() CatalogSyncSchedulerConfig {
	cfg := DefaultCatalogSyncSchedulerConfig()
	cfg.MaxConcurrentJobs = 2
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestCatalogSyncJob_Lifecycle(t *testing.T) {
	t.Run("complete derives status from counts", func(t *testing.T) {
		job := NewCatalogSyncJob("user-1", nil, 3)
		job.Start()
		assert.Equal(t, CatalogSyncJobStatusRunning, job.Status)
		require.NotNil(t, job.StartedAt)

		job.Complete(5, 5, 0)
		assert.Equal(t, CatalogSyncJobStatusSuccess, job.Status)

		job.Complete(5, 3, 2)
		assert.Equal(t, CatalogSyncJobStatusPartial, job.Status)

		job.Complete(5, 0, 5)
		assert.Equal(t, CatalogSyncJobStatusFailed, job.Status)
	})

	t.Run("retry backoff grows and is capped", func(t *testing.T) {
		job := NewCatalogSyncJob("user-1", nil, 5)
		job.Fail("boom")
		assert.True(t, job.ShouldRetry())

		job.ScheduleRetry(time.Minute)
		assert.Equal(t, 1, job.RetryCount)
		assert.Equal(t, CatalogSyncJobStatusPending, job.Status)
		require.NotNil(t, job.NextRetryAt)
		first := *job.NextRetryAt

		job.Fail("boom again")
		job.ScheduleRetry(time.Minute)
		assert.Equal(t, 2, job.RetryCount)
		assert.True(t, job.NextRetryAt.After(first))
	})

	t.Run("exhausted retries stop", func(t *testing.T) {
		job := NewCatalogSyncJob("user-1", nil, 1)
		job.Fail("boom")
		job.ScheduleRetry(time.Millisecond)
		job.Fail("boom")
		assert.False(t, job.ShouldRetry())
	})
}

func TestCatalogSyncScheduler_ExecutesJobs(t *testing.T) {
	executor := &fakeExecutor{}
	scheduler, err := NewCatalogSyncScheduler(testSchedulerConfig(), executor, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop(context.Background())

	require.NoError(t, scheduler.ScheduleSync("user-1", []string{"amazon"}))

	waitFor(t, time.Second, func() bool { return executor.count() == 1 })

	history := scheduler.GetJobHistory(10)
	require.Len(t, history, 1)
	assert.Equal(t, CatalogSyncJobStatusSuccess, history[0].Status)
	assert.Equal(t, "user-1", history[0].UserID)
	assert.Equal(t, []string{"amazon"}, history[0].Marketplaces)
}

func TestCatalogSyncScheduler_RetriesFailedJobs(t *testing.T) {
	var attempts int
	var mu sync.Mutex
	executor := &fakeExecutor{}
	executor.run = func(job *CatalogSyncJob) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("transient failure")
		}
		job.Complete(1, 1, 0)
		return nil
	}

	scheduler, err := NewCatalogSyncScheduler(testSchedulerConfig(), executor, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop(context.Background())

	require.NoError(t, scheduler.ScheduleSync("user-1", nil))

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts >= 2
	})

	waitFor(t, time.Second, func() bool {
		for _, job := range scheduler.GetJobHistory(10) {
			if job.Status == CatalogSyncJobStatusSuccess {
				return true
			}
		}
		return false
	})
}

func TestCatalogSyncScheduler_RejectsWhenStopped(t *testing.T) {
	scheduler, err := NewCatalogSyncScheduler(testSchedulerConfig(), &fakeExecutor{}, zap.NewNop())
	require.NoError(t, err)

	err = scheduler.ScheduleSync("user-1", nil)
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestCatalogSyncScheduler_HistoryByUser(t *testing.T) {
	executor := &fakeExecutor{}
	scheduler, err := NewCatalogSyncScheduler(testSchedulerConfig(), executor, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop(context.Background())

	require.NoError(t, scheduler.ScheduleSync("user-1", nil))
	require.NoError(t, scheduler.ScheduleSync("user-2", nil))

	waitFor(t, time.Second, func() bool { return executor.count() == 2 })

	jobs := scheduler.GetJobHistoryByUser("user-2", 10)
	require.Len(t, jobs, 1)
	assert.Equal(t, "user-2", jobs[0].UserID)
}

func TestCatalogSyncSchedulerConfig_Validate(t *testing.T) {
	cfg := DefaultCatalogSyncSchedulerConfig()
	require.NoError(t, cfg.Validate())

	cfg.MaxConcurrentJobs = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

// fakeItemSource serves a fixed active catalog
type fakeItemSource struct {
	items []inventory.Item
}

func (s *fakeItemSource) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	return nil, shared.ErrNotFound
}

func (s *fakeItemSource) FindBySKU(ctx context.Context, userID, sku string) (*inventory.Item, error) {
	return nil, shared.ErrNotFound
}

func (s *fakeItemSource) FindAllForUser(ctx context.Context, userID string, filter shared.Filter) ([]inventory.Item, error) {
	return s.items, nil
}

func (s *fakeItemSource) FindActiveForUser(ctx context.Context, userID string) ([]inventory.Item, error) {
	return s.items, nil
}

func (s *fakeItemSource) Save(ctx context.Context, item *inventory.Item) error { return nil }

func (s *fakeItemSource) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (s *fakeItemSource) CountForUser(ctx context.Context, userID string, filter shared.Filter) (int64, error) {
	return int64(len(s.items)), nil
}

// fakeSyncer fails specific SKUs
type fakeSyncer struct {
	failSKUs map[string]bool
	synced   []string
}

func (s *fakeSyncer) SyncProduct(ctx context.Context, userID string, item *inventory.Item, marketplaceIDs []string) (*appmarketplace.SyncReport, error) {
	s.synced = append(s.synced, item.SKU)
	outcome := appmarketplace.MarketplaceSyncOutcome{
		Marketplace:  marketplace.CodeAmazon,
		SuccessCount: 3,
		Status:       marketplace.SyncStatusSuccess,
	}
	if s.failSKUs[item.SKU] {
		outcome.SuccessCount = 1
		outcome.FailedCount = 1
		outcome.Status = marketplace.SyncStatusPartial
	}
	return &appmarketplace.SyncReport{
		Outcomes: []appmarketplace.MarketplaceSyncOutcome{outcome},
		SyncedAt: time.Now(),
	}, nil
}

func catalogItem(t *testing.T, sku string) inventory.Item {
	t.Helper()
	item, err := inventory.NewItem("user-1", sku, "Item "+sku, "ZAR", decimal.NewFromInt(100))
	require.NoError(t, err)
	return *item
}

func TestCatalogSyncExecutor_Execute(t *testing.T) {
	items := &fakeItemSource{items: []inventory.Item{
		catalogItem(t, "ALPHA-01"),
		catalogItem(t, "BETA-01"),
		catalogItem(t, "GAMMA-01"),
	}}
	syncer := &fakeSyncer{failSKUs: map[string]bool{"BETA-01": true}}
	executor := NewCatalogSyncExecutor(items, syncer, zap.NewNop())

	job := NewCatalogSyncJob("user-1", nil, 0)
	job.Start()
	require.NoError(t, executor.Execute(context.Background(), job))

	assert.Equal(t, []string{"ALPHA-01", "BETA-01", "GAMMA-01"}, syncer.synced)
	assert.Equal(t, 3, job.TotalItems)
	assert.Equal(t, 2, job.SuccessCount)
	assert.Equal(t, 1, job.FailedCount)
	assert.Equal(t, CatalogSyncJobStatusPartial, job.Status)
}
