// Package shipping contains the shipping carrier adapters (DHL, FedEx). Both
// satisfy the marketplace.Carrier port: the base adapter contract plus
// shipment create/track/rate/cancel operations. Product and order operations
// do not apply to carriers and report ErrNotSupported.
package shipping

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/channelops/backend/internal/domain/marketplace"
)

// maxResponseSize caps carrier API response bodies (10MB)
const maxResponseSize = 10 * 1024 * 1024

// carrierBase supplies the product and order halves of the adapter contract
// for carriers, which have neither products nor orders of their own
type carrierBase struct {
	code marketplace.Code
}

func (b *carrierBase) unsupported(op string) error {
	return fmt.Errorf("%w: %s has no %s", marketplace.ErrNotSupported, b.code, op)
}

func (b *carrierBase) GetProductBySKU(ctx context.Context, sku string) (*marketplace.Product, *marketplace.OperationResult, error) {
	return nil, nil, b.unsupported("product catalog")
}

func (b *carrierBase) GetProductByID(ctx context.Context, id string) (*marketplace.Product, *marketplace.OperationResult, error) {
	return nil, nil, b.unsupported("product catalog")
}

func (b *carrierBase) GetProducts(ctx context.Context, page, pageSize int, filter marketplace.ProductFilter) (*marketplace.ProductPage, error) {
	return nil, b.unsupported("product catalog")
}

func (b *carrierBase) UpdateStock(ctx context.Context, updates []marketplace.StockUpdate) (*marketplace.OperationResult, error) {
	return nil, b.unsupported("stock levels")
}

func (b *carrierBase) UpdatePrices(ctx context.Context, updates []marketplace.PriceUpdate) (*marketplace.OperationResult, error) {
	return nil, b.unsupported("prices")
}

func (b *carrierBase) UpdateStatus(ctx context.Context, updates []marketplace.StatusUpdate) (*marketplace.OperationResult, error) {
	return nil, b.unsupported("listing statuses")
}

func (b *carrierBase) GetOrders(ctx context.Context, query marketplace.OrderQuery) (*marketplace.OrderPage, error) {
	return nil, b.unsupported("orders")
}

func (b *carrierBase) GetRecentOrders(ctx context.Context, query marketplace.OrderQuery, limit int) ([]marketplace.Order, error) {
	return nil, b.unsupported("orders")
}

func (b *carrierBase) GetOrderByID(ctx context.Context, id string) (*marketplace.Order, error) {
	return nil, b.unsupported("orders")
}

func (b *carrierBase) AcknowledgeOrder(ctx context.Context, id string) (*marketplace.OperationResult, error) {
	return nil, b.unsupported("orders")
}

func (b *carrierBase) UpdateOrderStatus(ctx context.Context, id string, status marketplace.OrderStatus, tracking *marketplace.TrackingInfo) (*marketplace.OperationResult, error) {
	return nil, b.unsupported("orders")
}

// rateTracker derives a request budget from the standard X-RateLimit headers
// carriers send
type rateTracker struct {
	mu   sync.Mutex
	rate marketplace.RateLimitStatus
	now  func() time.Time
}

func newRateTracker(now func() time.Time) *rateTracker {
	if now == nil {
		now = time.Now
	}
	return &rateTracker{now: now}
}

func (t *rateTracker) observe(resp *http.Response) {
	remaining, err1 := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	limit, err2 := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	if err1 != nil || err2 != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rate.Remaining = remaining
	t.rate.Limit = limit
	if seconds, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Reset")); err == nil {
		t.rate.Reset = t.now().Add(time.Duration(seconds) * time.Second)
	}
}

func (t *rateTracker) status() marketplace.RateLimitStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate
}

// floatToDecimal converts a carrier float money value to a decimal
func floatToDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// readResponseBody reads a carrier response body with a size cap
func readResponseBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("shipping: read response body: %w", err)
	}
	return body, nil
}
