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

// AmazonAdapter implements the marketplace.Adapter port for the Amazon
// Selling Partner API. Authentication uses the Login-with-Amazon
// refresh-token exchange; the derived access token is cached with its expiry
// and refreshed lazily inside ensureAuthenticated.
type AmazonAdapter struct {
	config     *AmazonConfig
	httpClient *http.Client
	now        func() time.Time

	mu            sync.Mutex
	creds         marketplace.Credentials
	token         marketplace.AccessToken
	marketplaceID string
	initialized   bool

	rateMu sync.Mutex
	rate   marketplace.RateLimitStatus

	// pageMu guards the 0-based page to NextToken translation maps.
	// Cursor chains are re-derived from page 0 on out-of-order requests.
	// The maps are allocated once in the constructor and only ever cleared,
	// never reassigned, so the field references are stable.
	pageMu            sync.Mutex
	orderPageTokens   map[int]string
	listingPageTokens map[int]string
}

// NewAmazonAdapter creates a new Amazon SP-API adapter with the given
// environment configuration
func NewAmazonAdapter(config *AmazonConfig) (*AmazonAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &AmazonAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		now:               time.Now,
		orderPageTokens:   make(map[int]string),
		listingPageTokens: make(map[int]string),
	}, nil
}

// Code returns the marketplace code this adapter handles
func (a *AmazonAdapter) Code() marketplace.Code {
	return marketplace.CodeAmazon
}

// Initialize performs the LWA refresh-token exchange. Calling it again with
// fresh credentials re-authenticates and resets cached pagination state.
func (a *AmazonAdapter) Initialize(ctx context.Context, creds marketplace.Credentials) error {
	if creds.RefreshToken == "" || creds.ClientID == "" || creds.ClientSecret == "" || creds.SellerID == "" {
		return fmt.Errorf("%w: amazon requires refresh token, client id, client secret and seller id",
			marketplace.ErrMissingCredentials)
	}

	a.mu.Lock()
	a.creds = creds
	a.token = marketplace.AccessToken{}
	a.marketplaceID = a.config.MarketplaceIDForRegion(creds.Region)
	a.mu.Unlock()

	a.pageMu.Lock()
	clear(a.orderPageTokens)
	clear(a.listingPageTokens)
	a.pageMu.Unlock()

	if err := a.refreshAccessToken(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	a.initialized = true
	a.mu.Unlock()
	return nil
}

// sellerContext returns the seller id and resolved marketplace id under the
// adapter lock. Both are written by Initialize, which can race with in-flight
// calls when credentials are rotated.
func (a *AmazonAdapter) sellerContext() (sellerID, marketplaceID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.creds.SellerID, a.marketplaceID
}

// ensureAuthenticated refreshes the cached access token when it is missing
// or about to expire. The expiry check happens before any network call so a
// still-valid token costs nothing.
func (a *AmazonAdapter) ensureAuthenticated(ctx context.Context) error {
	a.mu.Lock()
	needs := a.token.NeedsRefresh(a.now())
	a.mu.Unlock()
	if !needs {
		return nil
	}
	return a.refreshAccessToken(ctx)
}

// refreshAccessToken exchanges the refresh token for a new access token
func (a *AmazonAdapter) refreshAccessToken(ctx context.Context) error {
	a.mu.Lock()
	creds := a.creds
	a.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", creds.RefreshToken)
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.AuthURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("amazon: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: amazon token exchange: %v", marketplace.ErrAuthenticationFailed, err)
	}
	defer resp.Body.Close()

	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}

	var tokenResp amazonLWATokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return fmt.Errorf("%w: amazon token response: %v", marketplace.ErrInvalidResponse, err)
	}
	if resp.StatusCode != http.StatusOK || tokenResp.AccessToken == "" {
		return fmt.Errorf("%w: amazon: %s %s", marketplace.ErrAuthenticationFailed,
			tokenResp.Error, tokenResp.ErrorDescription)
	}

	a.mu.Lock()
	a.token = marketplace.NewAccessToken(tokenResp.AccessToken, a.now(),
		time.Duration(tokenResp.ExpiresIn)*time.Second)
	a.mu.Unlock()
	return nil
}

// doRequest performs one authenticated SP-API call. A 401 triggers exactly
// one token refresh and one retry; a request rejected with 401 was never
// processed by the marketplace, so the retry cannot duplicate a write.
func (a *AmazonAdapter) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, int, error) {
	if err := a.ensureAuthenticated(ctx); err != nil {
		return nil, 0, err
	}

	body, status, err := a.doRequestOnce(ctx, method, path, query, payload)
	if err != nil {
		return nil, 0, err
	}
	if status == http.StatusUnauthorized {
		if err := a.refreshAccessToken(ctx); err != nil {
			return nil, 0, err
		}
		body, status, err = a.doRequestOnce(ctx, method, path, query, payload)
		if err != nil {
			return nil, 0, err
		}
		if status == http.StatusUnauthorized {
			return nil, 0, fmt.Errorf("%w: amazon rejected refreshed token", marketplace.ErrAuthenticationFailed)
		}
	}
	return body, status, nil
}

func (a *AmazonAdapter) doRequestOnce(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, int, error) {
	endpoint := a.config.APIBaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("amazon: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("amazon: build request: %w", err)
	}

	a.mu.Lock()
	req.Header.Set("x-amz-access-token", a.token.Token)
	a.mu.Unlock()
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: amazon: %v", marketplace.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	a.trackRateLimit(resp)

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// trackRateLimit derives a request budget from the x-amzn-RateLimit-Limit
// header, which reports a per-second rate. Amazon does not report remaining
// calls, so the adapter keeps its own countdown within a fixed window.
func (a *AmazonAdapter) trackRateLimit(resp *http.Response) {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := a.now()
	if header := resp.Header.Get("x-amzn-RateLimit-Limit"); header != "" {
		if rate, err := strconv.ParseFloat(header, 64); err == nil && rate > 0 {
			limit := int(rate * amazonRateWindowSeconds)
			if limit < 1 {
				limit = 1
			}
			a.rate.Limit = limit
		}
	}
	if a.rate.Limit == 0 {
		a.rate.Limit = amazonRateWindowSeconds
	}
	if now.After(a.rate.Reset) {
		a.rate.Reset = now.Add(amazonRateWindowSeconds * time.Second)
		a.rate.Remaining = a.rate.Limit
	}
	if a.rate.Remaining > 0 {
		a.rate.Remaining--
	}
}

// RateLimitStatus returns the adapter's current request budget
func (a *AmazonAdapter) RateLimitStatus() marketplace.RateLimitStatus {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()
	return a.rate
}

// TestConnection fetches the seller's marketplace participations. Failures
// are converted into a disconnected status, never an error.
func (a *AmazonAdapter) TestConnection(ctx context.Context) marketplace.ConnectionStatus {
	status := marketplace.ConnectionStatus{LastChecked: a.now()}

	body, code, err := a.doRequest(ctx, http.MethodGet, "/sellers/v1/marketplaceParticipations", nil, nil)
	if err != nil {
		status.Message = err.Error()
		return status
	}
	if code != http.StatusOK {
		var errList amazonErrorList
		_ = json.Unmarshal(body, &errList)
		status.Message = fmt.Sprintf("amazon returned %d: %s", code, errList.Message())
		return status
	}

	status.Connected = true
	status.Message = "connected"
	return status
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// GetProductBySKU looks up one listing by seller SKU. A 404 is a normal
// outcome reported as a PRODUCT_NOT_FOUND failure entry.
func (a *AmazonAdapter) GetProductBySKU(ctx context.Context, sku string) (*marketplace.Product, *marketplace.OperationResult, error) {
	sellerID, marketplaceID := a.sellerContext()

	query := url.Values{}
	query.Set("marketplaceIds", marketplaceID)
	query.Set("includedData", "summaries,offers,fulfillmentAvailability")

	path := fmt.Sprintf("/listings/2021-08-01/items/%s/%s", url.PathEscape(sellerID), url.PathEscape(sku))
	body, code, err := a.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, nil, err
	}

	result := &marketplace.OperationResult{}
	if code == http.StatusNotFound {
		result.AddFailure(sku, marketplace.FailureCodeProductNotFound, "listing not found on amazon")
		return nil, result, nil
	}
	if code != http.StatusOK {
		var errList amazonErrorList
		_ = json.Unmarshal(body, &errList)
		return nil, nil, fmt.Errorf("%w: amazon listings returned %d: %s",
			marketplace.ErrRequestFailed, code, errList.Message())
	}

	var item amazonListingsItemResponse
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, nil, fmt.Errorf("%w: amazon listing: %v", marketplace.ErrInvalidResponse, err)
	}

	product := a.convertListingToProduct(&item)
	result.AddSuccess(sku)
	return product, result, nil
}

// GetProductByID looks up a listing by identifier. Amazon addresses listings
// by seller SKU, so the identifier is treated as a SKU.
func (a *AmazonAdapter) GetProductByID(ctx context.Context, id string) (*marketplace.Product, *marketplace.OperationResult, error) {
	return a.GetProductBySKU(ctx, id)
}

// GetProducts lists the seller's listings. SP-API paginates with an opaque
// pageToken; 0-based page requests are translated through a page-to-token
// map, re-deriving the chain from page 0 on out-of-order requests.
func (a *AmazonAdapter) GetProducts(ctx context.Context, page, pageSize int, filter marketplace.ProductFilter) (*marketplace.ProductPage, error) {
	if pageSize <= 0 || pageSize > amazonMaxPageSize {
		pageSize = amazonMaxPageSize
	}

	// SKU-restricted listings skip pagination entirely
	if len(filter.SKUs) > 0 {
		return a.getProductsBySKUs(ctx, page, pageSize, filter.SKUs)
	}

	token, err := a.resolvePageToken(ctx, a.listingPageTokens, page, func(ctx context.Context, token string) (string, error) {
		_, next, err := a.fetchListingsPage(ctx, token, pageSize)
		return next, err
	})
	if err != nil {
		return nil, err
	}

	items, nextToken, err := a.fetchListingsPage(ctx, token, pageSize)
	if err != nil {
		return nil, err
	}
	a.storePageToken(a.listingPageTokens, page+1, nextToken)

	products := make([]marketplace.Product, 0, len(items))
	for i := range items {
		product := a.convertListingToProduct(&items[i])
		if filter.Status != "" && product.Status != filter.Status {
			continue
		}
		products = append(products, *product)
	}

	return &marketplace.ProductPage{
		Items:    products,
		Page:     page,
		PageSize: pageSize,
		HasMore:  nextToken != "",
	}, nil
}

// getProductsBySKUs serves a SKU-filtered listing by direct lookups
func (a *AmazonAdapter) getProductsBySKUs(ctx context.Context, page, pageSize int, skus []string) (*marketplace.ProductPage, error) {
	start := page * pageSize
	if start >= len(skus) {
		return &marketplace.ProductPage{Page: page, PageSize: pageSize}, nil
	}
	end := start + pageSize
	if end > len(skus) {
		end = len(skus)
	}

	products := make([]marketplace.Product, 0, end-start)
	for _, sku := range skus[start:end] {
		product, _, err := a.GetProductBySKU(ctx, sku)
		if err != nil {
			return nil, err
		}
		if product != nil {
			products = append(products, *product)
		}
	}
	return &marketplace.ProductPage{
		Items:    products,
		Page:     page,
		PageSize: pageSize,
		HasMore:  end < len(skus),
	}, nil
}

// fetchListingsPage fetches one page of the listings search endpoint
func (a *AmazonAdapter) fetchListingsPage(ctx context.Context, pageToken string, pageSize int) ([]amazonListingsItemResponse, string, error) {
	sellerID, marketplaceID := a.sellerContext()

	query := url.Values{}
	query.Set("marketplaceIds", marketplaceID)
	query.Set("includedData", "summaries,offers,fulfillmentAvailability")
	query.Set("pageSize", strconv.Itoa(pageSize))
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	path := fmt.Sprintf("/listings/2021-08-01/items/%s", url.PathEscape(sellerID))
	body, code, err := a.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, "", err
	}
	if code != http.StatusOK {
		var errList amazonErrorList
		_ = json.Unmarshal(body, &errList)
		return nil, "", fmt.Errorf("%w: amazon listings search returned %d: %s",
			marketplace.ErrRequestFailed, code, errList.Message())
	}

	var resp amazonListingsSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("%w: amazon listings search: %v", marketplace.ErrInvalidResponse, err)
	}

	nextToken := ""
	if resp.Pagination != nil {
		nextToken = resp.Pagination.NextToken
	}
	return resp.Items, nextToken, nil
}

// convertListingToProduct converts an SP-API listing to the canonical
// product projection
func (a *AmazonAdapter) convertListingToProduct(item *amazonListingsItemResponse) *marketplace.Product {
	product := &marketplace.Product{
		ID:     item.SKU,
		SKU:    item.SKU,
		Status: marketplace.ProductStatusInactive,
	}

	_, marketplaceID := a.sellerContext()
	for _, summary := range item.Summaries {
		if summary.MarketplaceID != marketplaceID && len(item.Summaries) > 1 {
			continue
		}
		product.Title = summary.ItemName
		for _, s := range summary.Status {
			if s == "BUYABLE" || s == "DISCOVERABLE" {
				product.Status = marketplace.ProductStatusActive
			}
		}
		if t, err := time.Parse(time.RFC3339, summary.CreatedDate); err == nil {
			product.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339, summary.LastUpdatedDate); err == nil {
			product.UpdatedAt = t
		}
	}

	for _, offer := range item.Offers {
		if offer.Price != nil {
			product.Price = ParseDecimal(offer.Price.Amount)
			product.Currency = offer.Price.CurrencyCode
		}
	}

	for _, avail := range item.FulfillmentAvailability {
		product.StockLevel += avail.Quantity
	}
	return product
}

// ---------------------------------------------------------------------------
// Update Operations
// ---------------------------------------------------------------------------

// UpdateStock applies stock levels one SKU at a time through the listings
// PATCH endpoint. A rejected item is recorded in Failed while the rest of
// the batch proceeds. Individual PATCH calls are not retried: a submitted
// patch may have been applied even when the response is lost.
func (a *AmazonAdapter) UpdateStock(ctx context.Context, updates []marketplace.StockUpdate) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}
	for _, update := range updates {
		patch := amazonPatch{
			Op:   "replace",
			Path: "/attributes/fulfillment_availability",
			Value: []map[string]any{{
				"fulfillment_channel_code": "DEFAULT",
				"quantity":                 update.Quantity,
			}},
		}
		if err := a.patchListing(ctx, update.SKU, patch, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UpdatePrices applies prices one SKU at a time. When a sale price is
// present it becomes the discounted schedule under the regular listed price.
func (a *AmazonAdapter) UpdatePrices(ctx context.Context, updates []marketplace.PriceUpdate) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}
	for _, update := range updates {
		currency := update.Currency
		if currency == "" {
			currency = "USD"
		}
		offer := map[string]any{
			"currency": currency,
			"our_price": []map[string]any{{
				"schedule": []map[string]any{{"value_with_tax": update.Price.InexactFloat64()}},
			}},
		}
		if update.SalePrice.IsPositive() {
			offer["discounted_price"] = []map[string]any{{
				"schedule": []map[string]any{{"value_with_tax": update.SalePrice.InexactFloat64()}},
			}}
		}
		patch := amazonPatch{
			Op:    "replace",
			Path:  "/attributes/purchasable_offer",
			Value: []map[string]any{offer},
		}
		if err := a.patchListing(ctx, update.SKU, patch, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UpdateStatus delists by zeroing fulfillment availability. Relisting
// happens implicitly through the next positive stock update, so an "active"
// request is accepted without a marketplace call.
func (a *AmazonAdapter) UpdateStatus(ctx context.Context, updates []marketplace.StatusUpdate) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}
	for _, update := range updates {
		if update.Status == marketplace.ProductStatusActive {
			result.AddSuccess(update.SKU)
			continue
		}
		patch := amazonPatch{
			Op:   "replace",
			Path: "/attributes/fulfillment_availability",
			Value: []map[string]any{{
				"fulfillment_channel_code": "DEFAULT",
				"quantity":                 0,
			}},
		}
		if err := a.patchListing(ctx, update.SKU, patch, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// patchListing submits one listings PATCH and classifies the outcome into
// the result envelope. Only transport and auth failures become errors.
func (a *AmazonAdapter) patchListing(ctx context.Context, sku string, patch amazonPatch, result *marketplace.OperationResult) error {
	sellerID, marketplaceID := a.sellerContext()

	query := url.Values{}
	query.Set("marketplaceIds", marketplaceID)

	payload := amazonPatchBody{
		ProductType: "PRODUCT",
		Patches:     []amazonPatch{patch},
	}

	path := fmt.Sprintf("/listings/2021-08-01/items/%s/%s", url.PathEscape(sellerID), url.PathEscape(sku))
	body, code, err := a.doRequest(ctx, http.MethodPatch, path, query, payload)
	if err != nil {
		return err
	}

	if code >= http.StatusInternalServerError {
		return fmt.Errorf("%w: amazon listings patch returned %d", marketplace.ErrRequestFailed, code)
	}

	var resp amazonPatchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		result.AddFailure(sku, marketplace.FailureCodeRejected,
			fmt.Sprintf("unparseable patch response (%d)", code))
		return nil
	}

	if code == http.StatusOK && resp.accepted() {
		result.AddSuccess(sku)
		return nil
	}

	reason := resp.Status
	if len(resp.Errors) > 0 {
		reason = resp.Errors[0].Message
	}
	failureCode := marketplace.FailureCodeRejected
	if code == http.StatusNotFound {
		failureCode = marketplace.FailureCodeProductNotFound
	}
	result.AddFailure(sku, failureCode, reason)
	return nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// GetOrders lists one page of orders
func (a *AmazonAdapter) GetOrders(ctx context.Context, query marketplace.OrderQuery) (*marketplace.OrderPage, error) {
	if query.PageSize <= 0 || query.PageSize > amazonMaxPageSize {
		query.PageSize = amazonMaxPageSize
	}

	orders, hasMore, err := a.fetchOrdersPage(ctx, query, query.Page)
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

// GetRecentOrders accumulates orders since the query time up to limit,
// driving the rate-limit-aware pagination loop
func (a *AmazonAdapter) GetRecentOrders(ctx context.Context, query marketplace.OrderQuery, limit int) ([]marketplace.Order, error) {
	loop := &PageLoop[marketplace.Order]{
		MaxPageSize: amazonMaxPageSize,
		RateLimit:   a.RateLimitStatus,
		Now:         a.now,
		Fetch: func(ctx context.Context, page, pageSize int) ([]marketplace.Order, bool, error) {
			q := query
			q.PageSize = pageSize
			return a.fetchOrdersPage(ctx, q, page)
		},
	}
	return loop.Run(ctx, limit)
}

// fetchOrdersPage fetches one orders page, translating the 0-based page
// number to the SP-API NextToken chain
func (a *AmazonAdapter) fetchOrdersPage(ctx context.Context, query marketplace.OrderQuery, page int) ([]marketplace.Order, bool, error) {
	token, err := a.resolvePageToken(ctx, a.orderPageTokens, page, func(ctx context.Context, token string) (string, error) {
		_, next, err := a.fetchOrdersRaw(ctx, query, token)
		return next, err
	})
	if err != nil {
		return nil, false, err
	}

	raw, nextToken, err := a.fetchOrdersRaw(ctx, query, token)
	if err != nil {
		return nil, false, err
	}
	a.storePageToken(a.orderPageTokens, page+1, nextToken)

	orders := make([]marketplace.Order, 0, len(raw))
	for i := range raw {
		order, err := a.convertOrder(ctx, &raw[i], true)
		if err != nil {
			return nil, false, err
		}
		orders = append(orders, *order)
	}
	return orders, nextToken != "", nil
}

// fetchOrdersRaw performs one GET /orders/v0/orders call
func (a *AmazonAdapter) fetchOrdersRaw(ctx context.Context, query marketplace.OrderQuery, nextToken string) ([]amazonOrder, string, error) {
	params := url.Values{}
	_, marketplaceID := a.sellerContext()
	params.Set("MarketplaceIds", marketplaceID)
	params.Set("MaxResultsPerPage", strconv.Itoa(query.PageSize))
	if nextToken != "" {
		params.Set("NextToken", nextToken)
	} else {
		since := query.Since
		if since.IsZero() {
			since = a.now().AddDate(0, 0, -30)
		}
		params.Set("CreatedAfter", since.UTC().Format(time.RFC3339))
		if query.Status != "" {
			params.Set("OrderStatuses", mapToAmazonOrderStatus(query.Status))
		}
	}

	body, code, err := a.doRequest(ctx, http.MethodGet, "/orders/v0/orders", params, nil)
	if err != nil {
		return nil, "", err
	}
	if code != http.StatusOK {
		var errList amazonErrorList
		_ = json.Unmarshal(body, &errList)
		return nil, "", fmt.Errorf("%w: amazon orders returned %d: %s",
			marketplace.ErrRequestFailed, code, errList.Message())
	}

	var resp amazonOrdersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("%w: amazon orders: %v", marketplace.ErrInvalidResponse, err)
	}
	if resp.Payload == nil {
		return nil, "", marketplace.ErrInvalidResponse
	}
	return resp.Payload.Orders, resp.Payload.NextToken, nil
}

// GetOrderByID retrieves one order with its line items
func (a *AmazonAdapter) GetOrderByID(ctx context.Context, id string) (*marketplace.Order, error) {
	path := "/orders/v0/orders/" + url.PathEscape(id)
	body, code, err := a.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if code == http.StatusNotFound {
		return nil, fmt.Errorf("%w: amazon order %s", marketplace.ErrOrderNotFound, id)
	}
	if code != http.StatusOK {
		var errList amazonErrorList
		_ = json.Unmarshal(body, &errList)
		return nil, fmt.Errorf("%w: amazon order returned %d: %s",
			marketplace.ErrRequestFailed, code, errList.Message())
	}

	var resp amazonOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: amazon order: %v", marketplace.ErrInvalidResponse, err)
	}
	if resp.Payload == nil {
		return nil, marketplace.ErrInvalidResponse
	}
	return a.convertOrder(ctx, resp.Payload, true)
}

// fetchOrderItems fetches the line items for one order
func (a *AmazonAdapter) fetchOrderItems(ctx context.Context, orderID string) ([]marketplace.OrderItem, error) {
	path := fmt.Sprintf("/orders/v0/orders/%s/orderItems", url.PathEscape(orderID))
	body, code, err := a.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		var errList amazonErrorList
		_ = json.Unmarshal(body, &errList)
		return nil, fmt.Errorf("%w: amazon order items returned %d: %s",
			marketplace.ErrRequestFailed, code, errList.Message())
	}

	var resp amazonOrderItemsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: amazon order items: %v", marketplace.ErrInvalidResponse, err)
	}
	if resp.Payload == nil {
		return nil, marketplace.ErrInvalidResponse
	}

	items := make([]marketplace.OrderItem, 0, len(resp.Payload.OrderItems))
	for _, raw := range resp.Payload.OrderItems {
		item := marketplace.OrderItem{
			SKU:      raw.SellerSKU,
			Title:    raw.Title,
			Quantity: raw.QuantityOrdered,
		}
		if raw.ItemPrice != nil {
			item.Total = ParseDecimal(raw.ItemPrice.Amount)
			if raw.QuantityOrdered > 0 {
				item.UnitPrice = item.Total.DivRound(intToDecimal(raw.QuantityOrdered), 4)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// convertOrder converts an SP-API order to the canonical projection,
// optionally fetching its line items (one extra call per order)
func (a *AmazonAdapter) convertOrder(ctx context.Context, raw *amazonOrder, withItems bool) (*marketplace.Order, error) {
	order := &marketplace.Order{
		ID:                 raw.AmazonOrderID,
		MarketplaceOrderID: raw.AmazonOrderID,
		Marketplace:        marketplace.CodeAmazon,
		Status:             mapAmazonOrderStatus(raw.OrderStatus),
	}
	if raw.OrderTotal != nil {
		order.Total = ParseDecimal(raw.OrderTotal.Amount)
		order.Currency = raw.OrderTotal.CurrencyCode
	}
	if raw.BuyerInfo != nil {
		order.BuyerName = raw.BuyerInfo.BuyerName
		order.BuyerEmail = raw.BuyerInfo.BuyerEmail
	}
	if raw.ShippingAddress != nil {
		order.ShippingAddress = marketplace.Address{
			Name:        raw.ShippingAddress.Name,
			Phone:       raw.ShippingAddress.Phone,
			Line1:       raw.ShippingAddress.AddressLine1,
			Line2:       raw.ShippingAddress.AddressLine2,
			City:        raw.ShippingAddress.City,
			Province:    raw.ShippingAddress.StateOrRegion,
			PostalCode:  raw.ShippingAddress.PostalCode,
			CountryCode: raw.ShippingAddress.CountryCode,
		}
	}
	if t, err := time.Parse(time.RFC3339, raw.PurchaseDate); err == nil {
		order.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, raw.LastUpdateDate); err == nil {
		order.UpdatedAt = t
	}
	switch order.Status {
	case marketplace.OrderStatusPending:
		order.PaymentStatus = marketplace.PaymentStatusPending
	case marketplace.OrderStatusRefunded:
		order.PaymentStatus = marketplace.PaymentStatusRefunded
	default:
		order.PaymentStatus = marketplace.PaymentStatusPaid
	}

	if withItems {
		items, err := a.fetchOrderItems(ctx, raw.AmazonOrderID)
		if err != nil {
			return nil, err
		}
		order.Items = items
		for _, item := range items {
			order.Subtotal = order.Subtotal.Add(item.Total)
		}
	}
	return order, nil
}

// AcknowledgeOrder confirms an order exists and is visible to the seller.
// SP-API has no explicit acknowledgement call for seller-fulfilled orders,
// so absence is the only rejection this can report.
func (a *AmazonAdapter) AcknowledgeOrder(ctx context.Context, id string) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}
	_, err := a.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, marketplace.ErrOrderNotFound) {
			result.AddFailure(id, marketplace.FailureCodeOrderNotFound, "order not found on amazon")
			return result, nil
		}
		return nil, err
	}
	result.AddSuccess(id)
	return result, nil
}

// UpdateOrderStatus confirms shipment for shipped orders. Other status
// transitions happen through Amazon's own workflow and are reported as
// per-item rejections rather than errors.
func (a *AmazonAdapter) UpdateOrderStatus(ctx context.Context, id string, status marketplace.OrderStatus, tracking *marketplace.TrackingInfo) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}

	if status != marketplace.OrderStatusShipped {
		result.AddFailure(id, marketplace.FailureCodeRejected,
			fmt.Sprintf("amazon does not accept status %q from sellers", status))
		return result, nil
	}
	if tracking == nil || tracking.TrackingNumber == "" {
		result.AddFailure(id, marketplace.FailureCodeInvalidInput, "tracking info required for shipped status")
		return result, nil
	}

	shipDate := tracking.ShippedAt
	if shipDate.IsZero() {
		shipDate = a.now()
	}
	_, marketplaceID := a.sellerContext()
	payload := amazonShipmentConfirmation{
		MarketplaceID: marketplaceID,
		PackageDetail: amazonPackageDetail{
			PackageReferenceID: "1",
			CarrierCode:        tracking.Carrier,
			TrackingNumber:     tracking.TrackingNumber,
			ShipDate:           shipDate.UTC().Format(time.RFC3339),
		},
	}

	path := fmt.Sprintf("/orders/v0/orders/%s/shipmentConfirmation", url.PathEscape(id))
	body, code, err := a.doRequest(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return nil, err
	}

	switch {
	case code == http.StatusNoContent || code == http.StatusOK:
		result.AddSuccess(id)
	case code >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: amazon shipment confirmation returned %d", marketplace.ErrRequestFailed, code)
	default:
		var errList amazonErrorList
		_ = json.Unmarshal(body, &errList)
		failureCode := marketplace.FailureCodeRejected
		if code == http.StatusNotFound {
			failureCode = marketplace.FailureCodeOrderNotFound
		}
		result.AddFailure(id, failureCode, errList.Message())
	}
	return result, nil
}

// Close releases the adapter's HTTP resources. Safe to call multiple times.
func (a *AmazonAdapter) Close() error {
	a.httpClient.CloseIdleConnections()
	a.mu.Lock()
	a.initialized = false
	a.mu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// Pagination Token Bookkeeping
// ---------------------------------------------------------------------------

// resolvePageToken returns the cursor for a 0-based page, walking the chain
// forward from the closest known page when the requested page has not been
// visited yet
func (a *AmazonAdapter) resolvePageToken(ctx context.Context, tokens map[int]string, page int, advance func(ctx context.Context, token string) (string, error)) (string, error) {
	if page <= 0 {
		return "", nil
	}

	a.pageMu.Lock()
	token, ok := tokens[page]
	a.pageMu.Unlock()
	if ok {
		return token, nil
	}

	// Walk forward from page 0, filling the map as we go
	current := ""
	for p := 0; p < page; p++ {
		next, err := advance(ctx, current)
		if err != nil {
			return "", err
		}
		if next == "" {
			return "", nil
		}
		a.storePageToken(tokens, p+1, next)
		current = next
	}
	return current, nil
}

func (a *AmazonAdapter) storePageToken(tokens map[int]string, page int, token string) {
	a.pageMu.Lock()
	defer a.pageMu.Unlock()
	if token == "" {
		delete(tokens, page)
		return
	}
	tokens[page] = token
}

// ---------------------------------------------------------------------------
// Status Mapping
// ---------------------------------------------------------------------------

// mapAmazonOrderStatus maps SP-API order statuses to the canonical enum
func mapAmazonOrderStatus(status string) marketplace.OrderStatus {
	switch status {
	case "Pending", "PendingAvailability":
		return marketplace.OrderStatusPending
	case "Unshipped", "PartiallyShipped":
		return marketplace.OrderStatusPaid
	case "Shipped", "InvoiceUnconfirmed":
		return marketplace.OrderStatusShipped
	case "Canceled":
		return marketplace.OrderStatusCancelled
	default:
		return marketplace.OrderStatusPending
	}
}

// mapToAmazonOrderStatus maps the canonical enum to SP-API order statuses
func mapToAmazonOrderStatus(status marketplace.OrderStatus) string {
	switch status {
	case marketplace.OrderStatusPending:
		return "Pending"
	case marketplace.OrderStatusPaid:
		return "Unshipped"
	case marketplace.OrderStatusShipped, marketplace.OrderStatusDelivered:
		return "Shipped"
	case marketplace.OrderStatusCancelled, marketplace.OrderStatusRefunded:
		return "Canceled"
	default:
		return "Unshipped"
	}
}

// Ensure AmazonAdapter implements the adapter port
var _ marketplace.Adapter = (*AmazonAdapter)(nil)
