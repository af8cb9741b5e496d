package channel

// Wire types for the Amazon SP-API. Responses are parsed into these explicit
// shapes at the adapter boundary and converted immediately to the canonical
// domain projections; untyped vendor JSON never leaves this package.

// amazonLWATokenResponse is the LWA refresh-token exchange response
type amazonLWATokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// amazonErrorList is the standard SP-API error envelope
type amazonErrorList struct {
	Errors []amazonError `json:"errors"`
}

// amazonError is one SP-API error entry
type amazonError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// Message returns the first error message, or empty
func (e *amazonErrorList) Message() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Message
}

// Code returns the first error code, or empty
func (e *amazonErrorList) Code() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Code
}

// ---------------------------------------------------------------------------
// Orders API (/orders/v0)
// ---------------------------------------------------------------------------

// amazonOrdersResponse is the GET /orders/v0/orders response
type amazonOrdersResponse struct {
	Payload *amazonOrdersPayload `json:"payload"`
	Errors  []amazonError        `json:"errors"`
}

type amazonOrdersPayload struct {
	Orders    []amazonOrder `json:"Orders"`
	NextToken string        `json:"NextToken"`
}

// amazonOrderResponse is the GET /orders/v0/orders/{orderId} response
type amazonOrderResponse struct {
	Payload *amazonOrder  `json:"payload"`
	Errors  []amazonError `json:"errors"`
}

// amazonOrder is one SP-API order
type amazonOrder struct {
	AmazonOrderID    string            `json:"AmazonOrderId"`
	PurchaseDate     string            `json:"PurchaseDate"`
	LastUpdateDate   string            `json:"LastUpdateDate"`
	OrderStatus      string            `json:"OrderStatus"`
	OrderTotal       *amazonMoney      `json:"OrderTotal"`
	BuyerInfo        *amazonBuyerInfo  `json:"BuyerInfo"`
	ShippingAddress  *amazonAddress    `json:"ShippingAddress"`
	PaymentMethod    string            `json:"PaymentMethod"`
	MarketplaceID    string            `json:"MarketplaceId"`
	ShipmentStatus   string            `json:"EasyShipShipmentStatus"`
	NumberOfItemsShipped   int         `json:"NumberOfItemsShipped"`
	NumberOfItemsUnshipped int         `json:"NumberOfItemsUnshipped"`
}

type amazonMoney struct {
	CurrencyCode string `json:"CurrencyCode"`
	Amount       string `json:"Amount"`
}

type amazonBuyerInfo struct {
	BuyerEmail string `json:"BuyerEmail"`
	BuyerName  string `json:"BuyerName"`
}

type amazonAddress struct {
	Name          string `json:"Name"`
	AddressLine1  string `json:"AddressLine1"`
	AddressLine2  string `json:"AddressLine2"`
	City          string `json:"City"`
	StateOrRegion string `json:"StateOrRegion"`
	PostalCode    string `json:"PostalCode"`
	CountryCode   string `json:"CountryCode"`
	Phone         string `json:"Phone"`
}

// amazonOrderItemsResponse is the GET /orders/v0/orders/{orderId}/orderItems response
type amazonOrderItemsResponse struct {
	Payload *amazonOrderItemsPayload `json:"payload"`
	Errors  []amazonError            `json:"errors"`
}

type amazonOrderItemsPayload struct {
	OrderItems []amazonOrderItem `json:"OrderItems"`
	NextToken  string            `json:"NextToken"`
}

type amazonOrderItem struct {
	SellerSKU       string       `json:"SellerSKU"`
	Title           string       `json:"Title"`
	QuantityOrdered int          `json:"QuantityOrdered"`
	ItemPrice       *amazonMoney `json:"ItemPrice"`
}

// ---------------------------------------------------------------------------
// Listings API (/listings/2021-08-01)
// ---------------------------------------------------------------------------

// amazonListingsItemResponse is the GET listings item response
type amazonListingsItemResponse struct {
	SKU       string                      `json:"sku"`
	Summaries []amazonListingSummary      `json:"summaries"`
	Offers    []amazonListingOffer        `json:"offers"`
	FulfillmentAvailability []amazonFulfillmentAvailability `json:"fulfillmentAvailability"`
	Errors    []amazonError               `json:"errors"`
}

type amazonListingSummary struct {
	MarketplaceID   string `json:"marketplaceId"`
	ASIN            string `json:"asin"`
	ProductType     string `json:"productType"`
	ItemName        string `json:"itemName"`
	Status          []string `json:"status"`
	CreatedDate     string `json:"createdDate"`
	LastUpdatedDate string `json:"lastUpdatedDate"`
}

type amazonListingOffer struct {
	MarketplaceID string       `json:"marketplaceId"`
	OfferType     string       `json:"offerType"`
	Price         *amazonMoney `json:"price"`
}

type amazonFulfillmentAvailability struct {
	FulfillmentChannelCode string `json:"fulfillmentChannelCode"`
	Quantity               int    `json:"quantity"`
}

// amazonListingsSearchResponse is the GET listings items search response
type amazonListingsSearchResponse struct {
	NumberOfResults int                          `json:"numberOfResults"`
	Pagination      *amazonPagination            `json:"pagination"`
	Items           []amazonListingsItemResponse `json:"items"`
	Errors          []amazonError                `json:"errors"`
}

type amazonPagination struct {
	NextToken string `json:"nextToken"`
}

// amazonPatchBody is the PATCH listings item request body
type amazonPatchBody struct {
	ProductType string        `json:"productType"`
	Patches     []amazonPatch `json:"patches"`
}

type amazonPatch struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// amazonPatchResponse is the PATCH listings item response
type amazonPatchResponse struct {
	SKU    string        `json:"sku"`
	Status string        `json:"status"`
	Errors []amazonError `json:"errors"`
}

// accepted reports whether the patch submission was accepted
func (r *amazonPatchResponse) accepted() bool {
	return r.Status == "ACCEPTED" || r.Status == "VALID"
}

// amazonShipmentConfirmation is the POST shipmentConfirmation request body
type amazonShipmentConfirmation struct {
	PackageDetail amazonPackageDetail `json:"packageDetail"`
	MarketplaceID string              `json:"marketplaceId"`
}

type amazonPackageDetail struct {
	PackageReferenceID string `json:"packageReferenceId"`
	CarrierCode        string `json:"carrierCode"`
	TrackingNumber     string `json:"trackingNumber"`
	ShipDate           string `json:"shipDate"`
}
