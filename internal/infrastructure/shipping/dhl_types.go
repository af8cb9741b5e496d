package shipping

// Wire types for the DHL Express (MyDHL) API

// dhlErrorResponse is the MyDHL error envelope
type dhlErrorResponse struct {
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
}

func (e *dhlErrorResponse) text() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Title
}

// dhlShipmentRequest is the POST /shipments body
type dhlShipmentRequest struct {
	PlannedShippingDateAndTime string                 `json:"plannedShippingDateAndTime"`
	Pickup                     dhlPickup              `json:"pickup"`
	ProductCode                string                 `json:"productCode"`
	Accounts                   []dhlAccount           `json:"accounts"`
	CustomerDetails            dhlCustomerDetails     `json:"customerDetails"`
	Content                    dhlShipmentContent     `json:"content"`
	CustomerReferences         []dhlCustomerReference `json:"customerReferences,omitempty"`
}

type dhlPickup struct {
	IsRequested bool `json:"isRequested"`
}

type dhlAccount struct {
	TypeCode string `json:"typeCode"`
	Number   string `json:"number"`
}

type dhlCustomerDetails struct {
	ShipperDetails  dhlParty `json:"shipperDetails"`
	ReceiverDetails dhlParty `json:"receiverDetails"`
}

type dhlParty struct {
	PostalAddress      dhlPostalAddress      `json:"postalAddress"`
	ContactInformation dhlContactInformation `json:"contactInformation"`
}

type dhlPostalAddress struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	CityName     string `json:"cityName"`
	PostalCode   string `json:"postalCode"`
	ProvinceCode string `json:"provinceCode,omitempty"`
	CountryCode  string `json:"countryCode"`
}

type dhlContactInformation struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
}

type dhlShipmentContent struct {
	Packages            []dhlPackage `json:"packages"`
	IsCustomsDeclarable bool         `json:"isCustomsDeclarable"`
	Description         string       `json:"description"`
	UnitOfMeasurement   string       `json:"unitOfMeasurement"`
}

type dhlPackage struct {
	Weight     float64       `json:"weight"`
	Dimensions dhlDimensions `json:"dimensions"`
}

type dhlDimensions struct {
	Length int `json:"length"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type dhlCustomerReference struct {
	Value string `json:"value"`
}

// dhlShipmentResponse is the POST /shipments response
type dhlShipmentResponse struct {
	ShipmentTrackingNumber string        `json:"shipmentTrackingNumber"`
	TrackingURL            string        `json:"trackingUrl"`
	Documents              []dhlDocument `json:"documents"`
}

type dhlDocument struct {
	TypeCode    string `json:"typeCode"`
	ImageFormat string `json:"imageFormat"`
	Content     string `json:"content"`
	URL         string `json:"url"`
}

// dhlTrackingResponse is the GET /shipments/{trackingNumber}/tracking response
type dhlTrackingResponse struct {
	Shipments []dhlTrackedShipment `json:"shipments"`
}

type dhlTrackedShipment struct {
	ShipmentTrackingNumber string             `json:"shipmentTrackingNumber"`
	Status                 string             `json:"status"`
	Events                 []dhlTrackingEvent `json:"events"`
}

type dhlTrackingEvent struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	TypeCode    string `json:"typeCode"`
	Description string `json:"description"`
	ServiceArea []struct {
		Description string `json:"description"`
	} `json:"serviceArea"`
}

// dhlRatesRequest is the POST /rates body
type dhlRatesRequest struct {
	CustomerDetails dhlRateCustomerDetails `json:"customerDetails"`
	Accounts        []dhlAccount           `json:"accounts"`
	Packages        []dhlPackage           `json:"packages"`
	PlannedShippingDateAndTime string      `json:"plannedShippingDateAndTime"`
	IsCustomsDeclarable        bool        `json:"isCustomsDeclarable"`
	UnitOfMeasurement          string      `json:"unitOfMeasurement"`
}

type dhlRateCustomerDetails struct {
	ShipperDetails  dhlRateAddress `json:"shipperDetails"`
	ReceiverDetails dhlRateAddress `json:"receiverDetails"`
}

type dhlRateAddress struct {
	CityName    string `json:"cityName"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
}

// dhlRatesResponse is the POST /rates response
type dhlRatesResponse struct {
	Products []dhlRateProduct `json:"products"`
}

type dhlRateProduct struct {
	ProductName          string                  `json:"productName"`
	ProductCode          string                  `json:"productCode"`
	TotalPrice           []dhlRatePrice          `json:"totalPrice"`
	DeliveryCapabilities *dhlDeliveryCapabilities `json:"deliveryCapabilities"`
}

type dhlRatePrice struct {
	CurrencyType  string  `json:"currencyType"`
	PriceCurrency string  `json:"priceCurrency"`
	Price         float64 `json:"price"`
}

type dhlDeliveryCapabilities struct {
	TotalTransitDays int `json:"totalTransitDays"`
}
