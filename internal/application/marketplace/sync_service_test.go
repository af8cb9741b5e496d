package marketplace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/channelops/backend/internal/domain/marketplace"
)

// MockSyncRecordRepository is a mock implementation of marketplace.SyncRecordRepository
type MockSyncRecordRepository struct {
	mock.Mock
}

func (m *MockSyncRecordRepository) Save(ctx context.Context, record *marketplace.SyncRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSyncRecordRepository) FindRecent(ctx context.Context, userID string, limit int) ([]marketplace.SyncRecord, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]marketplace.SyncRecord), args.Error(1)
}

func (m *MockSyncRecordRepository) LastSyncedAt(ctx context.Context, userID string, code marketplace.Code) (*time.Time, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

// fakeHealthCache counts reads and writes
type fakeHealthCache struct {
	reports []HealthReport
	hits    int
	sets    int
}

func (c *fakeHealthCache) Get() ([]HealthReport, bool) {
	if c.reports == nil {
		return nil, false
	}
	c.hits++
	return c.reports, true
}

func (c *fakeHealthCache) Set(reports []HealthReport) {
	c.sets++
	c.reports = reports
}

func TestSyncService_SyncProduct(t *testing.T) {
	t.Run("pushes stock then price then status", func(t *testing.T) {
		item := testItem(t, "user-1")
		adapter := newFakeAdapter(marketplace.CodeShopify)
		service := NewSyncService(newFakeRegistry(adapter), new(MockCredentialManager), nil, nil, nil)

		report, err := service.SyncProduct(context.Background(), "user-1", item, []string{"shopify"})
		require.NoError(t, err)

		assert.Equal(t, []string{"stock", "price", "status"}, adapter.calls)
		outcome := report.StatusForCode(marketplace.CodeShopify)
		require.NotNil(t, outcome)
		assert.Equal(t, marketplace.SyncStatusSuccess, outcome.Status)
		assert.Equal(t, 3, outcome.SuccessCount)
	})

	t.Run("item with RRP lists the RRP and discounts to the price", func(t *testing.T) {
		item := testItem(t, "user-1")
		require.NoError(t, item.SetPrices(item.Price, item.Price.Add(item.Price)))

		adapter := newFakeAdapter(marketplace.CodeShopify)
		service := NewSyncService(newFakeRegistry(adapter), new(MockCredentialManager), nil, nil, nil)

		_, err := service.SyncProduct(context.Background(), "user-1", item, nil)
		require.NoError(t, err)

		require.NotNil(t, adapter.lastPrice)
		assert.True(t, adapter.lastPrice.Price.Equal(item.RRP))
		assert.True(t, adapter.lastPrice.SalePrice.Equal(item.Price))
	})

	t.Run("one marketplace failing does not stop the others", func(t *testing.T) {
		item := testItem(t, "user-1")
		broken := newFakeAdapter(marketplace.CodeAmazon)
		broken.updateStock = func(updates []marketplace.StockUpdate) (*marketplace.OperationResult, error) {
			return nil, marketplace.ErrRequestFailed
		}
		healthy := newFakeAdapter(marketplace.CodeShopify)
		service := NewSyncService(newFakeRegistry(broken, healthy), new(MockCredentialManager), nil, nil, nil)

		report, err := service.SyncProduct(context.Background(), "user-1", item, []string{"amazon", "shopify"})
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 2)

		failed := report.StatusForCode(marketplace.CodeAmazon)
		require.NotNil(t, failed)
		assert.Equal(t, marketplace.SyncStatusFailed, failed.Status)
		assert.Contains(t, failed.Error, "stock")
		// the failing step disqualifies the marketplace for the rest of the run
		assert.Equal(t, []string{"stock"}, broken.calls)

		ok := report.StatusForCode(marketplace.CodeShopify)
		require.NotNil(t, ok)
		assert.Equal(t, marketplace.SyncStatusSuccess, ok.Status)
		assert.Equal(t, []string{"stock", "price", "status"}, healthy.calls)
	})

	t.Run("mid-sequence rejection yields partial", func(t *testing.T) {
		item := testItem(t, "user-1")
		adapter := newFakeAdapter(marketplace.CodeTakealot)
		adapter.updatePrices = func(updates []marketplace.PriceUpdate) (*marketplace.OperationResult, error) {
			result := &marketplace.OperationResult{}
			result.AddFailure(updates[0].SKU, marketplace.FailureCodeRejected, "price below floor")
			return result, nil
		}
		service := NewSyncService(newFakeRegistry(adapter), new(MockCredentialManager), nil, nil, nil)

		report, err := service.SyncProduct(context.Background(), "user-1", item, []string{"takealot"})
		require.NoError(t, err)

		outcome := report.StatusForCode(marketplace.CodeTakealot)
		require.NotNil(t, outcome)
		assert.Equal(t, marketplace.SyncStatusPartial, outcome.Status)
		assert.Equal(t, 1, outcome.SuccessCount)
		assert.Equal(t, 1, outcome.FailedCount)
		assert.Equal(t, []string{"stock", "price"}, adapter.calls, "status step is skipped")
	})

	t.Run("unknown target fails the call", func(t *testing.T) {
		item := testItem(t, "user-1")
		service := NewSyncService(newFakeRegistry(), new(MockCredentialManager), nil, nil, nil)

		_, err := service.SyncProduct(context.Background(), "user-1", item, []string{"amazon"})
		assert.ErrorIs(t, err, marketplace.ErrAdapterNotInitialized)
	})

	t.Run("saves a sync record per marketplace", func(t *testing.T) {
		item := testItem(t, "user-1")
		records := new(MockSyncRecordRepository)
		records.On("Save", mock.Anything, mock.MatchedBy(func(r *marketplace.SyncRecord) bool {
			return r.UserID == "user-1" && r.Operation == "product" && r.Status == marketplace.SyncStatusSuccess
		})).Return(nil).Twice()

		service := NewSyncService(
			newFakeRegistry(newFakeAdapter(marketplace.CodeShopify), newFakeAdapter(marketplace.CodeTakealot)),
			new(MockCredentialManager), records, nil, nil)

		_, err := service.SyncProduct(context.Background(), "user-1", item, []string{"shopify", "takealot"})
		require.NoError(t, err)
		records.AssertExpectations(t)
	})
}

func TestSyncService_SyncStockLevels(t *testing.T) {
	updates := []marketplace.StockUpdate{
		{SKU: "SKU-1", Quantity: 10},
		{SKU: "SKU-2", Quantity: 0},
		{SKU: "SKU-3", Quantity: 7},
	}

	t.Run("partial batch isolation", func(t *testing.T) {
		adapter := newFakeAdapter(marketplace.CodeTakealot)
		adapter.updateStock = func(batch []marketplace.StockUpdate) (*marketplace.OperationResult, error) {
			result := &marketplace.OperationResult{}
			for _, u := range batch {
				if u.SKU == "SKU-2" {
					result.AddFailure(u.SKU, marketplace.FailureCodeRejected, "listing locked")
					continue
				}
				result.AddSuccess(u.SKU)
			}
			return result, nil
		}
		service := NewSyncService(newFakeRegistry(adapter), new(MockCredentialManager), nil, nil, nil)

		report, err := service.SyncStockLevels(context.Background(), "user-1", updates, []string{"takealot"})
		require.NoError(t, err)

		outcome := report.StatusForCode(marketplace.CodeTakealot)
		require.NotNil(t, outcome)
		assert.Equal(t, 2, outcome.SuccessCount)
		assert.Equal(t, 1, outcome.FailedCount)
		assert.Equal(t, marketplace.SyncStatusPartial, outcome.Status)
	})

	t.Run("batch-level error fails the marketplace and continues", func(t *testing.T) {
		broken := newFakeAdapter(marketplace.CodeAmazon)
		broken.updateStock = func(batch []marketplace.StockUpdate) (*marketplace.OperationResult, error) {
			return nil, errors.New("connection reset")
		}
		healthy := newFakeAdapter(marketplace.CodeShopify)
		service := NewSyncService(newFakeRegistry(broken, healthy), new(MockCredentialManager), nil, nil, nil)

		report, err := service.SyncStockLevels(context.Background(), "user-1", updates, []string{"amazon", "shopify"})
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 2)

		failed := report.StatusForCode(marketplace.CodeAmazon)
		require.NotNil(t, failed)
		assert.Equal(t, marketplace.SyncStatusFailed, failed.Status)
		assert.Equal(t, len(updates), failed.FailedCount)

		ok := report.StatusForCode(marketplace.CodeShopify)
		require.NotNil(t, ok)
		assert.Equal(t, marketplace.SyncStatusSuccess, ok.Status)
	})

	t.Run("empty update list is a no-op", func(t *testing.T) {
		service := NewSyncService(newFakeRegistry(), new(MockCredentialManager), nil, nil, nil)
		report, err := service.SyncStockLevels(context.Background(), "user-1", nil, nil)
		require.NoError(t, err)
		assert.Empty(t, report.Outcomes)
	})
}

func TestSyncService_CheckMarketplaceHealth(t *testing.T) {
	t.Run("one failing adapter never hides the others", func(t *testing.T) {
		healthy := newFakeAdapter(marketplace.CodeShopify)
		down := newFakeAdapter(marketplace.CodeTakealot)
		down.testConn = func() marketplace.ConnectionStatus {
			return marketplace.ConnectionStatus{Connected: false, Message: "invalid API key"}
		}
		panicking := newFakeAdapter(marketplace.CodeAmazon)
		panicking.testConn = func() marketplace.ConnectionStatus {
			panic("nil token source")
		}

		service := NewSyncService(newFakeRegistry(healthy, down, panicking), new(MockCredentialManager), nil, nil, nil)
		reports := service.CheckMarketplaceHealth(context.Background())
		require.Len(t, reports, 3)

		byCode := make(map[marketplace.Code]HealthReport, len(reports))
		for _, r := range reports {
			byCode[r.Marketplace] = r
		}
		assert.True(t, byCode[marketplace.CodeShopify].Connected)
		assert.False(t, byCode[marketplace.CodeTakealot].Connected)
		assert.Equal(t, "invalid API key", byCode[marketplace.CodeTakealot].Message)
		assert.False(t, byCode[marketplace.CodeAmazon].Connected)
		assert.Contains(t, byCode[marketplace.CodeAmazon].Message, "panicked")
	})

	t.Run("serves cached snapshot while fresh", func(t *testing.T) {
		adapter := newFakeAdapter(marketplace.CodeShopify)
		cache := &fakeHealthCache{}
		service := NewSyncService(newFakeRegistry(adapter), new(MockCredentialManager), nil, cache, nil)

		first := service.CheckMarketplaceHealth(context.Background())
		require.Len(t, first, 1)
		assert.Equal(t, 1, cache.sets)

		second := service.CheckMarketplaceHealth(context.Background())
		assert.Equal(t, first, second)
		assert.Equal(t, 1, cache.hits)
		assert.Equal(t, 1, cache.sets, "fan-out not repeated on cache hit")
	})
}

func TestSyncService_InitializeMarketplace(t *testing.T) {
	t.Run("activates from stored credentials", func(t *testing.T) {
		creds := new(MockCredentialManager)
		creds.On("GetCredentials", mock.Anything, "user-1", marketplace.CodeShopify).
			Return(marketplace.Credentials{AccessToken: "tok", ShopDomain: "shop.myshopify.com"}, nil)

		registry := newFakeRegistry()
		service := NewSyncService(registry, creds, nil, nil, nil)

		code, err := service.InitializeMarketplace(context.Background(), "user-1", "SHOPIFY")
		require.NoError(t, err)
		assert.Equal(t, marketplace.CodeShopify, code)
		assert.Equal(t, []marketplace.Code{marketplace.CodeShopify}, registry.created)
	})

	t.Run("missing credentials", func(t *testing.T) {
		creds := new(MockCredentialManager)
		creds.On("GetCredentials", mock.Anything, "user-1", marketplace.CodeAmazon).
			Return(marketplace.Credentials{}, marketplace.ErrCredentialsNotFound)

		service := NewSyncService(newFakeRegistry(), creds, nil, nil, nil)
		_, err := service.InitializeMarketplace(context.Background(), "user-1", "amazon_us")
		assert.ErrorIs(t, err, marketplace.ErrCredentialsNotFound)
	})
}
