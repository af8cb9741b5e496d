package channel

// Wire types for the Takealot Seller API (v2)

// takealotErrorResponse is the Seller API error envelope
type takealotErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func (e *takealotErrorResponse) message() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Error
}

// takealotOffersResponse is the GET /v2/offers response
type takealotOffersResponse struct {
	Offers      []takealotOffer      `json:"offers"`
	PageSummary *takealotPageSummary `json:"page_summary"`
}

// takealotOfferResponse is the single-offer lookup envelope
type takealotOfferResponse struct {
	Offer *takealotOffer `json:"offer"`
}

type takealotOffer struct {
	OfferID            int64                   `json:"offer_id"`
	SKU                string                  `json:"sku"`
	Barcode            string                  `json:"barcode"`
	Title              string                  `json:"title"`
	SellingPrice       float64                 `json:"selling_price"`
	RRP                float64                 `json:"rrp"`
	Status             string                  `json:"status"`
	StockAtTakealot    int                     `json:"stock_at_takealot_total"`
	LeadtimeStock      []takealotLeadtimeStock `json:"leadtime_stock"`
	DateCreated        string                  `json:"date_created"`
	OfferURL           string                  `json:"offer_url"`
}

type takealotLeadtimeStock struct {
	MerchantWarehouseID int64 `json:"merchant_warehouse_id"`
	QuantityAvailable   int   `json:"quantity_available"`
}

type takealotPageSummary struct {
	Total    int `json:"total"`
	PageNumber int `json:"page_number"`
	PageSize int `json:"page_size"`
}

// takealotOfferPatch is the PATCH /v2/offers/offer body. Only the fields
// being changed are set; the Seller API leaves omitted fields untouched.
type takealotOfferPatch struct {
	SellingPrice  *float64                     `json:"selling_price,omitempty"`
	RRP           *float64                     `json:"rrp,omitempty"`
	LeadtimeStock []takealotLeadtimeStockPatch `json:"leadtime_stock,omitempty"`
	Status        string                       `json:"status,omitempty"`
}

type takealotLeadtimeStockPatch struct {
	MerchantWarehouseID int64 `json:"merchant_warehouse_id"`
	Quantity            int   `json:"quantity"`
}

// takealotSalesResponse is the GET /v2/sales response
type takealotSalesResponse struct {
	Sales       []takealotSale       `json:"sales"`
	PageSummary *takealotPageSummary `json:"page_summary"`
}

// takealotSaleResponse is the single-sale lookup envelope
type takealotSaleResponse struct {
	Sale *takealotSale `json:"sale"`
}

type takealotSale struct {
	OrderID      int64   `json:"order_id"`
	OrderItemID  int64   `json:"order_item_id"`
	SKU          string  `json:"sku"`
	ProductTitle string  `json:"product_title"`
	Quantity     int     `json:"quantity"`
	SellingPrice float64 `json:"selling_price"`
	SaleStatus   string  `json:"sale_status"`
	Customer     string  `json:"customer"`
	DC           string  `json:"dc"`
	OrderDate    string  `json:"order_date"`
}
