package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/channelops/backend/internal/domain/marketplace"
)

// takealotWarehouseExtra is the credentials extras key naming the merchant
// warehouse stock updates are written to
const takealotWarehouseExtra = "warehouse_id"

// TakealotAdapter implements the marketplace.Adapter port for the Takealot
// Seller API. Authentication is a static API key; listings use 1-based
// offset pagination, so page requests translate directly without cursor
// bookkeeping. The Seller API exposes sales per order item, so each sale
// line is projected as its own order entry.
type TakealotAdapter struct {
	config     *TakealotConfig
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	creds       marketplace.Credentials
	warehouseID int64
	initialized bool

	rateMu sync.Mutex
	rate   marketplace.RateLimitStatus
}

// NewTakealotAdapter creates a new Takealot adapter with the given
// environment configuration
func NewTakealotAdapter(config *TakealotConfig) (*TakealotAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &TakealotAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		now: time.Now,
	}, nil
}

// Code returns the marketplace code this adapter handles
func (a *TakealotAdapter) Code() marketplace.Code {
	return marketplace.CodeTakealot
}

// Initialize verifies the API key with a minimal offers listing. Idempotent:
// fresh credentials replace the previous ones.
func (a *TakealotAdapter) Initialize(ctx context.Context, creds marketplace.Credentials) error {
	if creds.APIKey == "" {
		return fmt.Errorf("%w: takealot requires an API key", marketplace.ErrMissingCredentials)
	}

	var warehouseID int64
	if raw, ok := creds.Extras[takealotWarehouseExtra]; ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: takealot warehouse_id %q is not numeric",
				marketplace.ErrMissingCredentials, raw)
		}
		warehouseID = id
	}

	a.mu.Lock()
	a.creds = creds
	a.warehouseID = warehouseID
	a.mu.Unlock()

	query := url.Values{}
	query.Set("page_number", "1")
	query.Set("page_size", "1")
	body, code, err := a.doRequest(ctx, http.MethodGet, "/v2/offers", query, nil)
	if err != nil {
		return err
	}
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return fmt.Errorf("%w: takealot rejected API key (%d)", marketplace.ErrAuthenticationFailed, code)
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: takealot offers endpoint returned %d", marketplace.ErrRequestFailed, code)
	}
	var resp takealotOffersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: takealot offers response", marketplace.ErrInvalidResponse)
	}

	a.mu.Lock()
	a.initialized = true
	a.mu.Unlock()
	return nil
}

// doRequest performs one Seller API call
func (a *TakealotAdapter) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, int, error) {
	a.mu.Lock()
	apiKey := a.creds.APIKey
	a.mu.Unlock()

	endpoint := a.config.APIBaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("takealot: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("takealot: build request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: takealot: %v", marketplace.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	a.trackRateLimit(resp)

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// trackRateLimit reads the standard X-RateLimit headers when the Seller API
// sends them
func (a *TakealotAdapter) trackRateLimit(resp *http.Response) {
	remaining, err1 := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	limit, err2 := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	if err1 != nil || err2 != nil {
		return
	}

	a.rateMu.Lock()
	defer a.rateMu.Unlock()
	a.rate.Remaining = remaining
	a.rate.Limit = limit
	if seconds, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Reset")); err == nil {
		a.rate.Reset = a.now().Add(time.Duration(seconds) * time.Second)
	}
}

// RateLimitStatus returns the adapter's current request budget
func (a *TakealotAdapter) RateLimitStatus() marketplace.RateLimitStatus {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()
	return a.rate
}

// TestConnection fetches a one-offer listing
func (a *TakealotAdapter) TestConnection(ctx context.Context) marketplace.ConnectionStatus {
	status := marketplace.ConnectionStatus{LastChecked: a.now()}

	query := url.Values{}
	query.Set("page_number", "1")
	query.Set("page_size", "1")
	_, code, err := a.doRequest(ctx, http.MethodGet, "/v2/offers", query, nil)
	if err != nil {
		status.Message = err.Error()
		return status
	}
	if code != http.StatusOK {
		status.Message = fmt.Sprintf("takealot returned %d", code)
		return status
	}

	status.Connected = true
	status.Message = "connected to takealot seller api"
	return status
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// GetProductBySKU looks up an offer by seller SKU
func (a *TakealotAdapter) GetProductBySKU(ctx context.Context, sku string) (*marketplace.Product, *marketplace.OperationResult, error) {
	return a.getOffer(ctx, sku, "/v2/offers/offer/sku/"+url.PathEscape(sku))
}

// GetProductByID looks up an offer by Takealot offer ID
func (a *TakealotAdapter) GetProductByID(ctx context.Context, id string) (*marketplace.Product, *marketplace.OperationResult, error) {
	return a.getOffer(ctx, id, "/v2/offers/offer/offer_id/"+url.PathEscape(id))
}

func (a *TakealotAdapter) getOffer(ctx context.Context, key, path string) (*marketplace.Product, *marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}

	body, code, err := a.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	if code == http.StatusNotFound {
		result.AddFailure(key, marketplace.FailureCodeProductNotFound, "offer not found on takealot")
		return nil, result, nil
	}
	if code != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: takealot offer returned %d", marketplace.ErrRequestFailed, code)
	}

	var resp takealotOfferResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("%w: takealot offer: %v", marketplace.ErrInvalidResponse, err)
	}
	offer := resp.Offer
	if offer == nil {
		// Some endpoints return the offer unwrapped
		var flat takealotOffer
		if err := json.Unmarshal(body, &flat); err != nil || flat.OfferID == 0 {
			return nil, nil, fmt.Errorf("%w: takealot offer", marketplace.ErrInvalidResponse)
		}
		offer = &flat
	}

	result.AddSuccess(offer.SKU)
	return convertTakealotOffer(offer), result, nil
}

// GetProducts lists offers with direct offset pagination
func (a *TakealotAdapter) GetProducts(ctx context.Context, page, pageSize int, filter marketplace.ProductFilter) (*marketplace.ProductPage, error) {
	if pageSize <= 0 || pageSize > takealotMaxPageSize {
		pageSize = takealotMaxPageSize
	}

	offers, total, err := a.fetchOffersPage(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]marketplace.Product, 0, len(offers))
	for i := range offers {
		product := convertTakealotOffer(&offers[i])
		if filter.Status != "" && product.Status != filter.Status {
			continue
		}
		items = append(items, *product)
	}

	return &marketplace.ProductPage{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		HasMore:  (page+1)*pageSize < total,
	}, nil
}

// fetchOffersPage fetches one page of /v2/offers. The Seller API counts
// pages from 1.
func (a *TakealotAdapter) fetchOffersPage(ctx context.Context, page, pageSize int) ([]takealotOffer, int, error) {
	query := url.Values{}
	query.Set("page_number", strconv.Itoa(page+1))
	query.Set("page_size", strconv.Itoa(pageSize))

	body, code, err := a.doRequest(ctx, http.MethodGet, "/v2/offers", query, nil)
	if err != nil {
		return nil, 0, err
	}
	if code != http.StatusOK {
		return nil, 0, fmt.Errorf("%w: takealot offers returned %d", marketplace.ErrRequestFailed, code)
	}

	var resp takealotOffersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("%w: takealot offers: %v", marketplace.ErrInvalidResponse, err)
	}
	total := len(resp.Offers)
	if resp.PageSummary != nil {
		total = resp.PageSummary.Total
	}
	return resp.Offers, total, nil
}

// convertTakealotOffer converts a Seller API offer to the canonical
// projection. Takealot's selling_price is the live price and rrp the
// recommended retail price, mapped to Price and RRP.
func convertTakealotOffer(offer *takealotOffer) *marketplace.Product {
	status := marketplace.ProductStatusInactive
	if strings.EqualFold(offer.Status, "Buyable") {
		status = marketplace.ProductStatusActive
	}

	stock := offer.StockAtTakealot
	for _, leadtime := range offer.LeadtimeStock {
		stock += leadtime.QuantityAvailable
	}

	product := &marketplace.Product{
		ID:         strconv.FormatInt(offer.OfferID, 10),
		SKU:        offer.SKU,
		Title:      offer.Title,
		Price:      floatToDecimal(offer.SellingPrice),
		RRP:        floatToDecimal(offer.RRP),
		Currency:   "ZAR",
		StockLevel: stock,
		Status:     status,
	}
	if t, err := time.Parse(time.RFC3339, offer.DateCreated); err == nil {
		product.CreatedAt = t
	}
	return product
}

// ---------------------------------------------------------------------------
// Update Operations
// ---------------------------------------------------------------------------

// patchOffer sends one PATCH to the offer endpoint and classifies the
// response into the result envelope
func (a *TakealotAdapter) patchOffer(ctx context.Context, sku string, patch *takealotOfferPatch, result *marketplace.OperationResult) error {
	body, code, err := a.doRequest(ctx, http.MethodPatch,
		"/v2/offers/offer/sku/"+url.PathEscape(sku), nil, patch)
	if err != nil {
		return err
	}

	switch {
	case code == http.StatusOK || code == http.StatusAccepted:
		result.AddSuccess(sku)
	case code == http.StatusNotFound:
		result.AddFailure(sku, marketplace.FailureCodeProductNotFound, "offer not found on takealot")
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: takealot offer patch returned %d", marketplace.ErrRequestFailed, code)
	default:
		var errResp takealotErrorResponse
		_ = json.Unmarshal(body, &errResp)
		reason := errResp.message()
		if reason == "" {
			reason = fmt.Sprintf("takealot returned %d", code)
		}
		result.AddFailure(sku, marketplace.FailureCodeRejected, reason)
	}
	return nil
}

// stockWarehouseID returns the configured merchant warehouse, falling back
// to the offer's first leadtime warehouse
func (a *TakealotAdapter) stockWarehouseID(ctx context.Context, sku string) (int64, bool, error) {
	a.mu.Lock()
	configured := a.warehouseID
	a.mu.Unlock()
	if configured != 0 {
		return configured, true, nil
	}

	body, code, err := a.doRequest(ctx, http.MethodGet,
		"/v2/offers/offer/sku/"+url.PathEscape(sku), nil, nil)
	if err != nil {
		return 0, false, err
	}
	if code == http.StatusNotFound {
		return 0, false, nil
	}
	if code != http.StatusOK {
		return 0, false, fmt.Errorf("%w: takealot offer returned %d", marketplace.ErrRequestFailed, code)
	}

	var resp takealotOfferResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Offer == nil {
		var flat takealotOffer
		if err := json.Unmarshal(body, &flat); err == nil && flat.OfferID != 0 {
			resp.Offer = &flat
		}
	}
	if resp.Offer == nil || len(resp.Offer.LeadtimeStock) == 0 {
		return 0, false, nil
	}
	return resp.Offer.LeadtimeStock[0].MerchantWarehouseID, true, nil
}

// UpdateStock patches leadtime stock quantities per SKU. Unknown SKUs and
// vendor rejections become per-item failures; the batch continues.
func (a *TakealotAdapter) UpdateStock(ctx context.Context, updates []marketplace.StockUpdate) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}

	for _, update := range updates {
		warehouseID, found, err := a.stockWarehouseID(ctx, update.SKU)
		if err != nil {
			return nil, err
		}
		if !found {
			result.AddFailure(update.SKU, marketplace.FailureCodeProductNotFound,
				"offer has no merchant warehouse for stock updates")
			continue
		}

		patch := &takealotOfferPatch{
			LeadtimeStock: []takealotLeadtimeStockPatch{
				{MerchantWarehouseID: warehouseID, Quantity: update.Quantity},
			},
		}
		if err := a.patchOffer(ctx, update.SKU, patch, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UpdatePrices patches offer prices. The regular listed price maps to rrp
// and the discounted selling price to selling_price; without a sale price
// the listed price sells.
func (a *TakealotAdapter) UpdatePrices(ctx context.Context, updates []marketplace.PriceUpdate) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}

	for _, update := range updates {
		selling := update.Price
		if update.SalePrice.IsPositive() {
			selling = update.SalePrice
		}
		sellingF, _ := selling.Float64()
		rrpF, _ := update.Price.Float64()

		patch := &takealotOfferPatch{
			SellingPrice: &sellingF,
			RRP:          &rrpF,
		}
		if err := a.patchOffer(ctx, update.SKU, patch, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UpdateStatus enables or disables offers
func (a *TakealotAdapter) UpdateStatus(ctx context.Context, updates []marketplace.StatusUpdate) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}

	for _, update := range updates {
		status := "active"
		if update.Status == marketplace.ProductStatusInactive {
			status = "disabled"
		}
		patch := &takealotOfferPatch{Status: status}
		if err := a.patchOffer(ctx, update.SKU, patch, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// GetOrders lists one page of sales
func (a *TakealotAdapter) GetOrders(ctx context.Context, query marketplace.OrderQuery) (*marketplace.OrderPage, error) {
	if query.PageSize <= 0 || query.PageSize > takealotMaxPageSize {
		query.PageSize = takealotMaxPageSize
	}

	orders, hasMore, err := a.fetchSalesPage(ctx, query, query.Page)
	if err != nil {
		return nil, err
	}
	return &marketplace.OrderPage{
		Items:    orders,
		Page:     query.Page,
		PageSize: query.PageSize,
		HasMore:  hasMore,
	}, nil
}

// GetRecentOrders accumulates sales since the query time up to limit,
// driving the rate-limit-aware pagination loop
func (a *TakealotAdapter) GetRecentOrders(ctx context.Context, query marketplace.OrderQuery, limit int) ([]marketplace.Order, error) {
	loop := &PageLoop[marketplace.Order]{
		MaxPageSize: takealotMaxPageSize,
		RateLimit:   a.RateLimitStatus,
		Now:         a.now,
		Fetch: func(ctx context.Context, page, pageSize int) ([]marketplace.Order, bool, error) {
			q := query
			q.PageSize = pageSize
			return a.fetchSalesPage(ctx, q, page)
		},
	}
	return loop.Run(ctx, limit)
}

// fetchSalesPage fetches one page of /v2/sales
func (a *TakealotAdapter) fetchSalesPage(ctx context.Context, query marketplace.OrderQuery, page int) ([]marketplace.Order, bool, error) {
	params := url.Values{}
	params.Set("page_number", strconv.Itoa(page+1))
	params.Set("page_size", strconv.Itoa(query.PageSize))
	if !query.Since.IsZero() {
		params.Set("start_date", query.Since.UTC().Format("2006-01-02 15:04:05"))
	}

	body, code, err := a.doRequest(ctx, http.MethodGet, "/v2/sales", params, nil)
	if err != nil {
		return nil, false, err
	}
	if code != http.StatusOK {
		return nil, false, fmt.Errorf("%w: takealot sales returned %d", marketplace.ErrRequestFailed, code)
	}

	var resp takealotSalesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, fmt.Errorf("%w: takealot sales: %v", marketplace.ErrInvalidResponse, err)
	}

	orders := make([]marketplace.Order, 0, len(resp.Sales))
	for i := range resp.Sales {
		order := convertTakealotSale(&resp.Sales[i])
		if query.Status != "" && order.Status != query.Status {
			continue
		}
		orders = append(orders, *order)
	}

	total := len(resp.Sales)
	if resp.PageSummary != nil {
		total = resp.PageSummary.Total
	}
	return orders, (page+1)*query.PageSize < total, nil
}

// GetOrderByID retrieves a single sale by order item ID
func (a *TakealotAdapter) GetOrderByID(ctx context.Context, id string) (*marketplace.Order, error) {
	body, code, err := a.doRequest(ctx, http.MethodGet, "/v2/sales/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	if code == http.StatusNotFound {
		return nil, fmt.Errorf("%w: takealot sale %s", marketplace.ErrOrderNotFound, id)
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("%w: takealot sale returned %d", marketplace.ErrRequestFailed, code)
	}

	var resp takealotSaleResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Sale == nil {
		return nil, fmt.Errorf("%w: takealot sale", marketplace.ErrInvalidResponse)
	}
	return convertTakealotSale(resp.Sale), nil
}

// AcknowledgeOrder verifies the sale is visible. The Seller API has no
// acknowledgement concept, so existence is the contract.
func (a *TakealotAdapter) AcknowledgeOrder(ctx context.Context, id string) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}
	if _, err := a.GetOrderByID(ctx, id); err != nil {
		if errors.Is(err, marketplace.ErrOrderNotFound) {
			result.AddFailure(id, marketplace.FailureCodeOrderNotFound, "sale not found on takealot")
			return result, nil
		}
		return nil, err
	}
	result.AddSuccess(id)
	return result, nil
}

// UpdateOrderStatus rejects all transitions per-item. Takealot runs its own
// logistics, so sellers cannot set sale statuses through the API.
func (a *TakealotAdapter) UpdateOrderStatus(ctx context.Context, id string, status marketplace.OrderStatus, tracking *marketplace.TrackingInfo) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}
	result.AddFailure(id, marketplace.FailureCodeRejected,
		"takealot manages fulfilment; sale statuses cannot be set by sellers")
	return result, nil
}

// convertTakealotSale converts a sale line to the canonical projection
func convertTakealotSale(sale *takealotSale) *marketplace.Order {
	unit := floatToDecimal(sale.SellingPrice)
	total := unit.Mul(intToDecimal(sale.Quantity))

	order := &marketplace.Order{
		ID:                 strconv.FormatInt(sale.OrderItemID, 10),
		MarketplaceOrderID: strconv.FormatInt(sale.OrderID, 10),
		Marketplace:        marketplace.CodeTakealot,
		BuyerName:          sale.Customer,
		Currency:           "ZAR",
		Subtotal:           total,
		Total:              total,
		Status:             mapTakealotSaleStatus(sale.SaleStatus),
		PaymentStatus:      marketplace.PaymentStatusPaid,
		Items: []marketplace.OrderItem{
			{
				SKU:       sale.SKU,
				Title:     sale.ProductTitle,
				Quantity:  sale.Quantity,
				UnitPrice: unit,
				Total:     total,
			},
		},
	}
	if order.Status == marketplace.OrderStatusPending {
		order.PaymentStatus = marketplace.PaymentStatusPending
	}
	if t, err := time.Parse("2006-01-02 15:04:05", sale.OrderDate); err == nil {
		order.CreatedAt = t
	}
	return order
}

// mapTakealotSaleStatus maps Seller API sale statuses to canonical order
// statuses
func mapTakealotSaleStatus(status string) marketplace.OrderStatus {
	switch {
	case strings.Contains(status, "Cancelled"):
		return marketplace.OrderStatusCancelled
	case strings.Contains(status, "Returned"):
		return marketplace.OrderStatusRefunded
	case strings.Contains(status, "Delivered"):
		return marketplace.OrderStatusDelivered
	case strings.Contains(status, "Shipped"), strings.Contains(status, "In Transit"):
		return marketplace.OrderStatusShipped
	case strings.Contains(status, "New"):
		return marketplace.OrderStatusPending
	default:
		return marketplace.OrderStatusPaid
	}
}

// Close releases the adapter's HTTP resources. Safe to call multiple times.
func (a *TakealotAdapter) Close() error {
	a.httpClient.CloseIdleConnections()
	a.mu.Lock()
	a.initialized = false
	a.mu.Unlock()
	return nil
}

// Ensure TakealotAdapter implements the adapter port
var _ marketplace.Adapter = (*TakealotAdapter)(nil)
