package channel

// Wire types for the Shopify REST Admin API

// shopifyShopResponse is the GET /shop.json response
type shopifyShopResponse struct {
	Shop *shopifyShop `json:"shop"`
}

type shopifyShop struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Currency string `json:"currency"`
}

// shopifyErrorResponse is the Admin API error envelope. Errors may be a
// string or an object, so it is kept raw and stringified.
type shopifyErrorResponse struct {
	Errors any `json:"errors"`
}

// shopifyProductsResponse is the GET /products.json response
type shopifyProductsResponse struct {
	Products []shopifyProduct `json:"products"`
}

// shopifyProductResponse is the GET/PUT /products/{id}.json envelope
type shopifyProductResponse struct {
	Product *shopifyProduct `json:"product"`
}

type shopifyProduct struct {
	ID        int64            `json:"id"`
	Title     string           `json:"title"`
	Status    string           `json:"status"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
	Variants  []shopifyVariant `json:"variants"`
}

// shopifyVariantsResponse is the GET /variants.json response
type shopifyVariantsResponse struct {
	Variants []shopifyVariant `json:"variants"`
}

// shopifyVariantResponse is the PUT /variants/{id}.json envelope
type shopifyVariantResponse struct {
	Variant *shopifyVariant `json:"variant"`
}

type shopifyVariant struct {
	ID                int64  `json:"id"`
	ProductID         int64  `json:"product_id"`
	SKU               string `json:"sku"`
	Title             string `json:"title"`
	Price             string `json:"price"`
	CompareAtPrice    string `json:"compare_at_price"`
	InventoryItemID   int64  `json:"inventory_item_id"`
	InventoryQuantity int    `json:"inventory_quantity"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// shopifyLocationsResponse is the GET /locations.json response
type shopifyLocationsResponse struct {
	Locations []shopifyLocation `json:"locations"`
}

type shopifyLocation struct {
	ID     int64 `json:"id"`
	Active bool  `json:"active"`
}

// shopifyInventoryLevelRequest is the POST /inventory_levels/set.json body
type shopifyInventoryLevelRequest struct {
	LocationID      int64 `json:"location_id"`
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       int   `json:"available"`
}

// shopifyOrdersResponse is the GET /orders.json response
type shopifyOrdersResponse struct {
	Orders []shopifyOrder `json:"orders"`
}

// shopifyOrderResponse is the GET /orders/{id}.json envelope
type shopifyOrderResponse struct {
	Order *shopifyOrder `json:"order"`
}

type shopifyOrder struct {
	ID                int64               `json:"id"`
	Name              string              `json:"name"`
	Email             string              `json:"email"`
	CreatedAt         string              `json:"created_at"`
	UpdatedAt         string              `json:"updated_at"`
	CancelledAt       string              `json:"cancelled_at"`
	FinancialStatus   string              `json:"financial_status"`
	FulfillmentStatus string              `json:"fulfillment_status"`
	Currency          string              `json:"currency"`
	SubtotalPrice     string              `json:"subtotal_price"`
	TotalShipping     *shopifyPriceSet    `json:"total_shipping_price_set"`
	TotalPrice        string              `json:"total_price"`
	Customer          *shopifyCustomer    `json:"customer"`
	ShippingAddress   *shopifyAddress     `json:"shipping_address"`
	LineItems         []shopifyLineItem   `json:"line_items"`
}

type shopifyPriceSet struct {
	ShopMoney *shopifyMoney `json:"shop_money"`
}

type shopifyMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

type shopifyCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type shopifyAddress struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	CountryCode string `json:"country_code"`
}

type shopifyLineItem struct {
	SKU      string `json:"sku"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// shopifyFulfillmentRequest is the POST fulfillments body
type shopifyFulfillmentRequest struct {
	Fulfillment shopifyFulfillment `json:"fulfillment"`
}

type shopifyFulfillment struct {
	LocationID      int64    `json:"location_id,omitempty"`
	TrackingNumber  string   `json:"tracking_number,omitempty"`
	TrackingCompany string   `json:"tracking_company,omitempty"`
	NotifyCustomer  bool     `json:"notify_customer"`
}
