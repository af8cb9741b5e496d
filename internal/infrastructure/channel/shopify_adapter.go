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

// variantRef caches the Shopify identifiers behind a SKU. Stock updates need
// the inventory item, price updates the variant, status updates the product.
type variantRef struct {
	VariantID       int64
	ProductID       int64
	InventoryItemID int64
}

// ShopifyAdapter implements the marketplace.Adapter port for the Shopify
// REST Admin API. Authentication is a static access token sent on every
// request; Initialize verifies it against the shop endpoint. Listing
// endpoints paginate with page_info cursors carried in Link headers,
// translated to 0-based page requests through per-resource cursor maps.
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	creds       marketplace.Credentials
	baseURL     string
	locationID  int64
	initialized bool

	rateMu sync.Mutex
	rate   marketplace.RateLimitStatus

	pageMu             sync.Mutex
	orderPageCursors   map[int]string
	productPageCursors map[int]string

	variantMu sync.Mutex
	variants  map[string]variantRef
}

// NewShopifyAdapter creates a new Shopify adapter with the given
// environment configuration
func NewShopifyAdapter(config *ShopifyConfig) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShopifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		now:                time.Now,
		orderPageCursors:   make(map[int]string),
		productPageCursors: make(map[int]string),
		variants:           make(map[string]variantRef),
	}, nil
}

// Code returns the marketplace code this adapter handles
func (a *ShopifyAdapter) Code() marketplace.Code {
	return marketplace.CodeShopify
}

// Initialize verifies the access token against the shop endpoint and caches
// the primary fulfillment location. Idempotent: fresh credentials replace
// the previous ones and reset cached cursors and variant references.
func (a *ShopifyAdapter) Initialize(ctx context.Context, creds marketplace.Credentials) error {
	if creds.AccessToken == "" || (creds.ShopDomain == "" && a.config.BaseURLOverride == "") {
		return fmt.Errorf("%w: shopify requires access token and shop domain",
			marketplace.ErrMissingCredentials)
	}

	baseURL := a.config.BaseURLOverride
	if baseURL == "" {
		baseURL = "https://" + creds.ShopDomain
	}
	baseURL = strings.TrimSuffix(baseURL, "/") + "/admin/api/" + a.config.APIVersion

	a.mu.Lock()
	a.creds = creds
	a.baseURL = baseURL
	a.locationID = 0
	a.mu.Unlock()

	a.pageMu.Lock()
	a.orderPageCursors = make(map[int]string)
	a.productPageCursors = make(map[int]string)
	a.pageMu.Unlock()

	a.variantMu.Lock()
	a.variants = make(map[string]variantRef)
	a.variantMu.Unlock()

	// Auth handshake: the shop endpoint rejects bad tokens with a 401
	body, code, _, err := a.doRequest(ctx, http.MethodGet, "/shop.json", nil, nil)
	if err != nil {
		return err
	}
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return fmt.Errorf("%w: shopify rejected access token (%d)", marketplace.ErrAuthenticationFailed, code)
	}
	if code != http.StatusOK {
		return fmt.Errorf("%w: shopify shop endpoint returned %d", marketplace.ErrRequestFailed, code)
	}
	var shopResp shopifyShopResponse
	if err := json.Unmarshal(body, &shopResp); err != nil || shopResp.Shop == nil {
		return fmt.Errorf("%w: shopify shop response", marketplace.ErrInvalidResponse)
	}

	a.mu.Lock()
	a.initialized = true
	a.mu.Unlock()
	return nil
}

// doRequest performs one Admin API call, returning the body, status code
// and the page_info cursor extracted from the Link header (if any)
func (a *ShopifyAdapter) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, int, string, error) {
	a.mu.Lock()
	baseURL := a.baseURL
	token := a.creds.AccessToken
	a.mu.Unlock()

	endpoint := baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, "", fmt.Errorf("shopify: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, "", fmt.Errorf("shopify: build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("%w: shopify: %v", marketplace.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	a.trackRateLimit(resp)

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, 0, "", err
	}
	return body, resp.StatusCode, parseNextPageInfo(resp.Header.Get("Link")), nil
}

// trackRateLimit reads the X-Shopify-Shop-Api-Call-Limit header ("32/40")
// and estimates the reset from the bucket's leak rate
func (a *ShopifyAdapter) trackRateLimit(resp *http.Response) {
	header := resp.Header.Get("X-Shopify-Shop-Api-Call-Limit")
	parts := strings.SplitN(header, "/", 2)
	if len(parts) != 2 {
		return
	}
	used, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	limit, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || limit <= 0 {
		return
	}

	a.rateMu.Lock()
	defer a.rateMu.Unlock()
	a.rate.Limit = limit
	a.rate.Remaining = limit - used
	// The bucket leaks at a fixed rate, so a full drain takes used/leakRate
	a.rate.Reset = a.now().Add(time.Duration(used/shopifyLeakRate+1) * time.Second)
}

// RateLimitStatus returns the adapter's current request budget
func (a *ShopifyAdapter) RateLimitStatus() marketplace.RateLimitStatus {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()
	return a.rate
}

// parseNextPageInfo extracts the rel="next" page_info cursor from a Link
// header, returning empty when there is no next page
func parseNextPageInfo(link string) string {
	for _, part := range strings.Split(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.IndexByte(part, '<')
		end := strings.IndexByte(part, '>')
		if start < 0 || end <= start {
			continue
		}
		parsed, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		return parsed.Query().Get("page_info")
	}
	return ""
}

// TestConnection fetches the shop resource
func (a *ShopifyAdapter) TestConnection(ctx context.Context) marketplace.ConnectionStatus {
	status := marketplace.ConnectionStatus{LastChecked: a.now()}

	body, code, _, err := a.doRequest(ctx, http.MethodGet, "/shop.json", nil, nil)
	if err != nil {
		status.Message = err.Error()
		return status
	}
	if code != http.StatusOK {
		status.Message = fmt.Sprintf("shopify returned %d", code)
		return status
	}
	var shopResp shopifyShopResponse
	if err := json.Unmarshal(body, &shopResp); err != nil || shopResp.Shop == nil {
		status.Message = "unparseable shop response"
		return status
	}

	status.Connected = true
	status.Message = fmt.Sprintf("connected to %s", shopResp.Shop.Name)
	return status
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// GetProductBySKU scans the variant listing for the SKU. The REST Admin API
// has no SKU filter, so the scan is cursor-driven and capped; resolved
// references are cached for subsequent update calls.
func (a *ShopifyAdapter) GetProductBySKU(ctx context.Context, sku string) (*marketplace.Product, *marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}

	variant, err := a.findVariantBySKU(ctx, sku)
	if err != nil {
		return nil, nil, err
	}
	if variant == nil {
		result.AddFailure(sku, marketplace.FailureCodeProductNotFound, "variant not found on shopify")
		return nil, result, nil
	}

	product := a.convertVariantToProduct(variant, "", "")
	result.AddSuccess(sku)
	return product, result, nil
}

// GetProductByID looks up a product by its Shopify product ID, projecting
// the first variant
func (a *ShopifyAdapter) GetProductByID(ctx context.Context, id string) (*marketplace.Product, *marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}

	body, code, _, err := a.doRequest(ctx, http.MethodGet, "/products/"+url.PathEscape(id)+".json", nil, nil)
	if err != nil {
		return nil, nil, err
	}
	if code == http.StatusNotFound {
		result.AddFailure(id, marketplace.FailureCodeProductNotFound, "product not found on shopify")
		return nil, result, nil
	}
	if code != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: shopify product returned %d", marketplace.ErrRequestFailed, code)
	}

	var resp shopifyProductResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Product == nil {
		return nil, nil, fmt.Errorf("%w: shopify product", marketplace.ErrInvalidResponse)
	}
	if len(resp.Product.Variants) == 0 {
		result.AddFailure(id, marketplace.FailureCodeProductNotFound, "product has no variants")
		return nil, result, nil
	}

	variant := resp.Product.Variants[0]
	a.cacheVariant(&variant)
	product := a.convertVariantToProduct(&variant, resp.Product.Title, resp.Product.Status)
	result.AddSuccess(variant.SKU)
	return product, result, nil
}

// GetProducts lists products as flattened variants, translating 0-based
// page requests to page_info cursors
func (a *ShopifyAdapter) GetProducts(ctx context.Context, page, pageSize int, filter marketplace.ProductFilter) (*marketplace.ProductPage, error) {
	if pageSize <= 0 || pageSize > shopifyMaxPageSize {
		pageSize = shopifyMaxPageSize
	}

	cursor, err := a.resolveCursor(ctx, a.productPageCursors, page, func(ctx context.Context, cursor string) (string, error) {
		_, next, err := a.fetchProductsPage(ctx, cursor, pageSize, filter)
		return next, err
	})
	if err != nil {
		return nil, err
	}

	products, nextCursor, err := a.fetchProductsPage(ctx, cursor, pageSize, filter)
	if err != nil {
		return nil, err
	}
	a.storeCursor(a.productPageCursors, page+1, nextCursor)

	items := make([]marketplace.Product, 0, len(products))
	for i := range products {
		raw := &products[i]
		for j := range raw.Variants {
			variant := &raw.Variants[j]
			a.cacheVariant(variant)
			product := a.convertVariantToProduct(variant, raw.Title, raw.Status)
			if filter.Status != "" && product.Status != filter.Status {
				continue
			}
			items = append(items, *product)
		}
	}

	return &marketplace.ProductPage{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		HasMore:  nextCursor != "",
	}, nil
}

// fetchProductsPage fetches one page of /products.json
func (a *ShopifyAdapter) fetchProductsPage(ctx context.Context, cursor string, pageSize int, filter marketplace.ProductFilter) ([]shopifyProduct, string, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(pageSize))
	if cursor != "" {
		// Shopify rejects filter params alongside page_info
		query.Set("page_info", cursor)
	} else if !filter.UpdatedSince.IsZero() {
		query.Set("updated_at_min", filter.UpdatedSince.UTC().Format(time.RFC3339))
	}

	body, code, next, err := a.doRequest(ctx, http.MethodGet, "/products.json", query, nil)
	if err != nil {
		return nil, "", err
	}
	if code != http.StatusOK {
		return nil, "", fmt.Errorf("%w: shopify products returned %d", marketplace.ErrRequestFailed, code)
	}

	var resp shopifyProductsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("%w: shopify products: %v", marketplace.ErrInvalidResponse, err)
	}
	return resp.Products, next, nil
}

// findVariantBySKU returns the cached or scanned variant reference data for
// a SKU, nil when absent
func (a *ShopifyAdapter) findVariantBySKU(ctx context.Context, sku string) (*shopifyVariant, error) {
	cursor := ""
	for page := 0; page < shopifySKUScanPageCap; page++ {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(shopifyMaxPageSize))
		if cursor != "" {
			query.Set("page_info", cursor)
		}

		body, code, next, err := a.doRequest(ctx, http.MethodGet, "/variants.json", query, nil)
		if err != nil {
			return nil, err
		}
		if code != http.StatusOK {
			return nil, fmt.Errorf("%w: shopify variants returned %d", marketplace.ErrRequestFailed, code)
		}

		var resp shopifyVariantsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: shopify variants: %v", marketplace.ErrInvalidResponse, err)
		}

		for i := range resp.Variants {
			a.cacheVariant(&resp.Variants[i])
			if resp.Variants[i].SKU == sku {
				return &resp.Variants[i], nil
			}
		}
		if next == "" {
			return nil, nil
		}
		cursor = next
	}
	return nil, nil
}

// cacheVariant remembers the identifiers behind a SKU
func (a *ShopifyAdapter) cacheVariant(variant *shopifyVariant) {
	if variant.SKU == "" {
		return
	}
	a.variantMu.Lock()
	defer a.variantMu.Unlock()
	a.variants[variant.SKU] = variantRef{
		VariantID:       variant.ID,
		ProductID:       variant.ProductID,
		InventoryItemID: variant.InventoryItemID,
	}
}

// resolveVariantRef returns the cached reference for a SKU, scanning the
// variant listing on a cache miss
func (a *ShopifyAdapter) resolveVariantRef(ctx context.Context, sku string) (variantRef, bool, error) {
	a.variantMu.Lock()
	ref, ok := a.variants[sku]
	a.variantMu.Unlock()
	if ok {
		return ref, true, nil
	}

	variant, err := a.findVariantBySKU(ctx, sku)
	if err != nil {
		return variantRef{}, false, err
	}
	if variant == nil {
		return variantRef{}, false, nil
	}
	return variantRef{
		VariantID:       variant.ID,
		ProductID:       variant.ProductID,
		InventoryItemID: variant.InventoryItemID,
	}, true, nil
}

// convertVariantToProduct converts a variant (with optional product context)
// to the canonical projection. Shopify's price is the selling price and
// compare_at_price the undiscounted reference, mapped to Price and RRP.
func (a *ShopifyAdapter) convertVariantToProduct(variant *shopifyVariant, title, productStatus string) *marketplace.Product {
	status := marketplace.ProductStatusActive
	if productStatus != "" && productStatus != "active" {
		status = marketplace.ProductStatusInactive
	}
	if title == "" {
		title = variant.Title
	}

	product := &marketplace.Product{
		ID:         strconv.FormatInt(variant.ID, 10),
		SKU:        variant.SKU,
		Title:      title,
		Price:      ParseDecimal(variant.Price),
		RRP:        ParseDecimal(variant.CompareAtPrice),
		StockLevel: variant.InventoryQuantity,
		Status:     status,
	}
	if t, err := time.Parse(time.RFC3339, variant.CreatedAt); err == nil {
		product.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, variant.UpdatedAt); err == nil {
		product.UpdatedAt = t
	}
	return product
}

// ---------------------------------------------------------------------------
// Update Operations
// ---------------------------------------------------------------------------

// primaryLocationID resolves and caches the shop's first active location,
// required by the inventory levels endpoint
func (a *ShopifyAdapter) primaryLocationID(ctx context.Context) (int64, error) {
	a.mu.Lock()
	cached := a.locationID
	a.mu.Unlock()
	if cached != 0 {
		return cached, nil
	}

	body, code, _, err := a.doRequest(ctx, http.MethodGet, "/locations.json", nil, nil)
	if err != nil {
		return 0, err
	}
	if code != http.StatusOK {
		return 0, fmt.Errorf("%w: shopify locations returned %d", marketplace.ErrRequestFailed, code)
	}

	var resp shopifyLocationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: shopify locations: %v", marketplace.ErrInvalidResponse, err)
	}
	for _, location := range resp.Locations {
		if location.Active {
			a.mu.Lock()
			a.locationID = location.ID
			a.mu.Unlock()
			return location.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: shopify shop has no active location", marketplace.ErrInvalidResponse)
}

// UpdateStock sets absolute inventory levels per SKU through the inventory
// levels endpoint. Unknown SKUs and vendor rejections become per-item
// failures; the batch continues.
func (a *ShopifyAdapter) UpdateStock(ctx context.Context, updates []marketplace.StockUpdate) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}

	locationID, err := a.primaryLocationID(ctx)
	if err != nil {
		return nil, err
	}

	for _, update := range updates {
		ref, found, err := a.resolveVariantRef(ctx, update.SKU)
		if err != nil {
			return nil, err
		}
		if !found {
			result.AddFailure(update.SKU, marketplace.FailureCodeProductNotFound, "variant not found on shopify")
			continue
		}

		payload := shopifyInventoryLevelRequest{
			LocationID:      locationID,
			InventoryItemID: ref.InventoryItemID,
			Available:       update.Quantity,
		}
		body, code, _, err := a.doRequest(ctx, http.MethodPost, "/inventory_levels/set.json", nil, payload)
		if err != nil {
			return nil, err
		}
		a.classifyMutation(update.SKU, code, body, result)
	}
	return result, nil
}

// UpdatePrices updates variant prices. The regular listed price maps to
// compare_at_price and the discounted selling price to price; without a
// sale price the listed price is the selling price.
func (a *ShopifyAdapter) UpdatePrices(ctx context.Context, updates []marketplace.PriceUpdate) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}

	for _, update := range updates {
		ref, found, err := a.resolveVariantRef(ctx, update.SKU)
		if err != nil {
			return nil, err
		}
		if !found {
			result.AddFailure(update.SKU, marketplace.FailureCodeProductNotFound, "variant not found on shopify")
			continue
		}

		variant := map[string]any{"id": ref.VariantID}
		if update.SalePrice.IsPositive() {
			variant["price"] = update.SalePrice.StringFixed(2)
			variant["compare_at_price"] = update.Price.StringFixed(2)
		} else {
			variant["price"] = update.Price.StringFixed(2)
			variant["compare_at_price"] = nil
		}

		path := fmt.Sprintf("/variants/%d.json", ref.VariantID)
		body, code, _, err := a.doRequest(ctx, http.MethodPut, path, nil, map[string]any{"variant": variant})
		if err != nil {
			return nil, err
		}
		a.classifyMutation(update.SKU, code, body, result)
	}
	return result, nil
}

// UpdateStatus flips the owning product between active and draft
func (a *ShopifyAdapter) UpdateStatus(ctx context.Context, updates []marketplace.StatusUpdate) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}

	for _, update := range updates {
		ref, found, err := a.resolveVariantRef(ctx, update.SKU)
		if err != nil {
			return nil, err
		}
		if !found {
			result.AddFailure(update.SKU, marketplace.FailureCodeProductNotFound, "variant not found on shopify")
			continue
		}

		shopifyStatus := "active"
		if update.Status == marketplace.ProductStatusInactive {
			shopifyStatus = "draft"
		}
		payload := map[string]any{"product": map[string]any{"id": ref.ProductID, "status": shopifyStatus}}

		path := fmt.Sprintf("/products/%d.json", ref.ProductID)
		body, code, _, err := a.doRequest(ctx, http.MethodPut, path, nil, payload)
		if err != nil {
			return nil, err
		}
		a.classifyMutation(update.SKU, code, body, result)
	}
	return result, nil
}

// classifyMutation sorts one mutation response into the result envelope.
// 5xx responses are deliberately treated as per-item failures rather than
// batch errors here: the remaining SKUs may still succeed.
func (a *ShopifyAdapter) classifyMutation(sku string, code int, body []byte, result *marketplace.OperationResult) {
	if code == http.StatusOK || code == http.StatusCreated {
		result.AddSuccess(sku)
		return
	}

	var errResp shopifyErrorResponse
	_ = json.Unmarshal(body, &errResp)
	reason := fmt.Sprintf("shopify returned %d", code)
	if errResp.Errors != nil {
		reason = fmt.Sprintf("%v", errResp.Errors)
	}
	failureCode := marketplace.FailureCodeRejected
	if code == http.StatusNotFound {
		failureCode = marketplace.FailureCodeProductNotFound
	}
	result.AddFailure(sku, failureCode, reason)
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// GetOrders lists one page of orders
func (a *ShopifyAdapter) GetOrders(ctx context.Context, query marketplace.OrderQuery) (*marketplace.OrderPage, error) {
	if query.PageSize <= 0 || query.PageSize > shopifyMaxPageSize {
		query.PageSize = shopifyMaxPageSize
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
func (a *ShopifyAdapter) GetRecentOrders(ctx context.Context, query marketplace.OrderQuery, limit int) ([]marketplace.Order, error) {
	loop := &PageLoop[marketplace.Order]{
		MaxPageSize: shopifyMaxPageSize,
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

// fetchOrdersPage fetches one orders page through the cursor map
func (a *ShopifyAdapter) fetchOrdersPage(ctx context.Context, query marketplace.OrderQuery, page int) ([]marketplace.Order, bool, error) {
	cursor, err := a.resolveCursor(ctx, a.orderPageCursors, page, func(ctx context.Context, cursor string) (string, error) {
		_, next, err := a.fetchOrdersRaw(ctx, query, cursor)
		return next, err
	})
	if err != nil {
		return nil, false, err
	}

	raw, nextCursor, err := a.fetchOrdersRaw(ctx, query, cursor)
	if err != nil {
		return nil, false, err
	}
	a.storeCursor(a.orderPageCursors, page+1, nextCursor)

	orders := make([]marketplace.Order, 0, len(raw))
	for i := range raw {
		orders = append(orders, *convertShopifyOrder(&raw[i]))
	}
	return orders, nextCursor != "", nil
}

// fetchOrdersRaw performs one GET /orders.json call
func (a *ShopifyAdapter) fetchOrdersRaw(ctx context.Context, query marketplace.OrderQuery, cursor string) ([]shopifyOrder, string, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(query.PageSize))
	if cursor != "" {
		params.Set("page_info", cursor)
	} else {
		params.Set("status", "any")
		if !query.Since.IsZero() {
			params.Set("created_at_min", query.Since.UTC().Format(time.RFC3339))
		}
	}

	body, code, next, err := a.doRequest(ctx, http.MethodGet, "/orders.json", params, nil)
	if err != nil {
		return nil, "", err
	}
	if code != http.StatusOK {
		return nil, "", fmt.Errorf("%w: shopify orders returned %d", marketplace.ErrRequestFailed, code)
	}

	var resp shopifyOrdersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("%w: shopify orders: %v", marketplace.ErrInvalidResponse, err)
	}
	return resp.Orders, next, nil
}

// GetOrderByID retrieves a single order
func (a *ShopifyAdapter) GetOrderByID(ctx context.Context, id string) (*marketplace.Order, error) {
	body, code, _, err := a.doRequest(ctx, http.MethodGet, "/orders/"+url.PathEscape(id)+".json", nil, nil)
	if err != nil {
		return nil, err
	}
	if code == http.StatusNotFound {
		return nil, fmt.Errorf("%w: shopify order %s", marketplace.ErrOrderNotFound, id)
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("%w: shopify order returned %d", marketplace.ErrRequestFailed, code)
	}

	var resp shopifyOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Order == nil {
		return nil, fmt.Errorf("%w: shopify order", marketplace.ErrInvalidResponse)
	}
	return convertShopifyOrder(resp.Order), nil
}

// AcknowledgeOrder verifies the order is visible. Shopify has no
// acknowledgement concept, so existence is the contract.
func (a *ShopifyAdapter) AcknowledgeOrder(ctx context.Context, id string) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}
	if _, err := a.GetOrderByID(ctx, id); err != nil {
		if errors.Is(err, marketplace.ErrOrderNotFound) {
			result.AddFailure(id, marketplace.FailureCodeOrderNotFound, "order not found on shopify")
			return result, nil
		}
		return nil, err
	}
	result.AddSuccess(id)
	return result, nil
}

// UpdateOrderStatus creates a fulfillment for shipped orders and cancels
// cancelled ones; other transitions are rejected per-item
func (a *ShopifyAdapter) UpdateOrderStatus(ctx context.Context, id string, status marketplace.OrderStatus, tracking *marketplace.TrackingInfo) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}

	switch status {
	case marketplace.OrderStatusShipped:
		locationID, err := a.primaryLocationID(ctx)
		if err != nil {
			return nil, err
		}
		payload := shopifyFulfillmentRequest{
			Fulfillment: shopifyFulfillment{
				LocationID:     locationID,
				NotifyCustomer: true,
			},
		}
		if tracking != nil {
			payload.Fulfillment.TrackingNumber = tracking.TrackingNumber
			payload.Fulfillment.TrackingCompany = tracking.Carrier
		}
		path := fmt.Sprintf("/orders/%s/fulfillments.json", url.PathEscape(id))
		body, code, _, err := a.doRequest(ctx, http.MethodPost, path, nil, payload)
		if err != nil {
			return nil, err
		}
		a.classifyOrderMutation(id, code, body, result)

	case marketplace.OrderStatusCancelled:
		path := fmt.Sprintf("/orders/%s/cancel.json", url.PathEscape(id))
		body, code, _, err := a.doRequest(ctx, http.MethodPost, path, nil, nil)
		if err != nil {
			return nil, err
		}
		a.classifyOrderMutation(id, code, body, result)

	default:
		result.AddFailure(id, marketplace.FailureCodeRejected,
			fmt.Sprintf("shopify does not accept status %q from sellers", status))
	}
	return result, nil
}

// classifyOrderMutation sorts an order mutation response into the envelope
func (a *ShopifyAdapter) classifyOrderMutation(id string, code int, body []byte, result *marketplace.OperationResult) {
	if code == http.StatusOK || code == http.StatusCreated {
		result.AddSuccess(id)
		return
	}
	var errResp shopifyErrorResponse
	_ = json.Unmarshal(body, &errResp)
	reason := fmt.Sprintf("shopify returned %d", code)
	if errResp.Errors != nil {
		reason = fmt.Sprintf("%v", errResp.Errors)
	}
	failureCode := marketplace.FailureCodeRejected
	if code == http.StatusNotFound {
		failureCode = marketplace.FailureCodeOrderNotFound
	}
	result.AddFailure(id, failureCode, reason)
}

// convertShopifyOrder converts an Admin API order to the canonical
// projection
func convertShopifyOrder(raw *shopifyOrder) *marketplace.Order {
	order := &marketplace.Order{
		ID:                 strconv.FormatInt(raw.ID, 10),
		MarketplaceOrderID: raw.Name,
		Marketplace:        marketplace.CodeShopify,
		BuyerEmail:         raw.Email,
		Currency:           raw.Currency,
		Subtotal:           ParseDecimal(raw.SubtotalPrice),
		Total:              ParseDecimal(raw.TotalPrice),
		Status:             mapShopifyOrderStatus(raw),
		PaymentStatus:      mapShopifyPaymentStatus(raw.FinancialStatus),
	}
	if raw.TotalShipping != nil && raw.TotalShipping.ShopMoney != nil {
		order.ShippingTotal = ParseDecimal(raw.TotalShipping.ShopMoney.Amount)
	}
	if raw.Customer != nil {
		order.BuyerName = strings.TrimSpace(raw.Customer.FirstName + " " + raw.Customer.LastName)
		if order.BuyerEmail == "" {
			order.BuyerEmail = raw.Customer.Email
		}
	}
	if raw.ShippingAddress != nil {
		order.ShippingAddress = marketplace.Address{
			Name:        raw.ShippingAddress.Name,
			Phone:       raw.ShippingAddress.Phone,
			Line1:       raw.ShippingAddress.Address1,
			Line2:       raw.ShippingAddress.Address2,
			City:        raw.ShippingAddress.City,
			Province:    raw.ShippingAddress.Province,
			PostalCode:  raw.ShippingAddress.Zip,
			CountryCode: raw.ShippingAddress.CountryCode,
		}
	}
	for _, line := range raw.LineItems {
		unit := ParseDecimal(line.Price)
		order.Items = append(order.Items, marketplace.OrderItem{
			SKU:       line.SKU,
			Title:     line.Title,
			Quantity:  line.Quantity,
			UnitPrice: unit,
			Total:     unit.Mul(intToDecimal(line.Quantity)),
		})
	}
	if t, err := time.Parse(time.RFC3339, raw.CreatedAt); err == nil {
		order.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, raw.UpdatedAt); err == nil {
		order.UpdatedAt = t
	}
	return order
}

// mapShopifyOrderStatus derives the canonical order status
func mapShopifyOrderStatus(raw *shopifyOrder) marketplace.OrderStatus {
	if raw.CancelledAt != "" {
		return marketplace.OrderStatusCancelled
	}
	switch raw.FinancialStatus {
	case "refunded", "partially_refunded":
		return marketplace.OrderStatusRefunded
	case "pending", "authorized", "":
		return marketplace.OrderStatusPending
	}
	switch raw.FulfillmentStatus {
	case "fulfilled":
		return marketplace.OrderStatusShipped
	default:
		return marketplace.OrderStatusPaid
	}
}

// mapShopifyPaymentStatus derives the canonical payment status
func mapShopifyPaymentStatus(financial string) marketplace.PaymentStatus {
	switch financial {
	case "paid", "partially_paid", "partially_refunded":
		return marketplace.PaymentStatusPaid
	case "refunded":
		return marketplace.PaymentStatusRefunded
	default:
		return marketplace.PaymentStatusPending
	}
}

// ---------------------------------------------------------------------------
// Cursor Bookkeeping
// ---------------------------------------------------------------------------

// resolveCursor returns the page_info cursor for a 0-based page, walking
// the chain forward from page 0 when the page has not been visited
func (a *ShopifyAdapter) resolveCursor(ctx context.Context, cursors map[int]string, page int, advance func(ctx context.Context, cursor string) (string, error)) (string, error) {
	if page <= 0 {
		return "", nil
	}

	a.pageMu.Lock()
	cursor, ok := cursors[page]
	a.pageMu.Unlock()
	if ok {
		return cursor, nil
	}

	current := ""
	for p := 0; p < page; p++ {
		next, err := advance(ctx, current)
		if err != nil {
			return "", err
		}
		if next == "" {
			return "", nil
		}
		a.storeCursor(cursors, p+1, next)
		current = next
	}
	return current, nil
}

func (a *ShopifyAdapter) storeCursor(cursors map[int]string, page int, cursor string) {
	a.pageMu.Lock()
	defer a.pageMu.Unlock()
	if cursor == "" {
		delete(cursors, page)
		return
	}
	cursors[page] = cursor
}

// Close releases the adapter's HTTP resources. Safe to call multiple times.
func (a *ShopifyAdapter) Close() error {
	a.httpClient.CloseIdleConnections()
	a.mu.Lock()
	a.initialized = false
	a.mu.Unlock()
	return nil
}

// Ensure ShopifyAdapter implements the adapter port
var _ marketplace.Adapter = (*ShopifyAdapter)(nil)
