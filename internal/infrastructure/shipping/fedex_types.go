package shipping

// Wire types for the FedEx REST APIs (ship, track, rate)

// fedexErrorResponse is the FedEx error envelope
type fedexErrorResponse struct {
	Errors []fedexError `json:"errors"`
}

type fedexError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *fedexErrorResponse) text() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Message
}

// ---------------------------------------------------------------------------
// Ship API (/ship/v1)
// ---------------------------------------------------------------------------

// fedexShipRequest is the POST /ship/v1/shipments body
type fedexShipRequest struct {
	LabelResponseOptions string              `json:"labelResponseOptions"`
	RequestedShipment    fedexShipment       `json:"requestedShipment"`
	AccountNumber        fedexAccountNumber  `json:"accountNumber"`
}

type fedexAccountNumber struct {
	Value string `json:"value"`
}

type fedexShipment struct {
	Shipper                   fedexParty             `json:"shipper"`
	Recipients                []fedexParty           `json:"recipients"`
	ServiceType               string                 `json:"serviceType"`
	PackagingType             string                 `json:"packagingType"`
	PickupType                string                 `json:"pickupType"`
	ShippingChargesPayment    fedexPayment           `json:"shippingChargesPayment"`
	LabelSpecification        fedexLabelSpec         `json:"labelSpecification"`
	RequestedPackageLineItems []fedexPackageLineItem `json:"requestedPackageLineItems"`
	CustomerReferences        []fedexReference       `json:"customerReferences,omitempty"`
}

type fedexParty struct {
	Contact fedexContact `json:"contact"`
	Address fedexAddress `json:"address"`
}

type fedexContact struct {
	PersonName  string `json:"personName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type fedexAddress struct {
	StreetLines         []string `json:"streetLines"`
	City                string   `json:"city"`
	StateOrProvinceCode string   `json:"stateOrProvinceCode,omitempty"`
	PostalCode          string   `json:"postalCode"`
	CountryCode         string   `json:"countryCode"`
}

type fedexPayment struct {
	PaymentType string `json:"paymentType"`
}

type fedexLabelSpec struct {
	ImageType string `json:"imageType"`
	LabelStockType string `json:"labelStockType"`
}

type fedexPackageLineItem struct {
	Weight     fedexWeight     `json:"weight"`
	Dimensions *fedexDimensions `json:"dimensions,omitempty"`
}

type fedexWeight struct {
	Units string  `json:"units"`
	Value float64 `json:"value"`
}

type fedexDimensions struct {
	Length int    `json:"length"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Units  string `json:"units"`
}

type fedexReference struct {
	CustomerReferenceType string `json:"customerReferenceType"`
	Value                 string `json:"value"`
}

// fedexShipResponse is the POST /ship/v1/shipments response
type fedexShipResponse struct {
	Output *fedexShipOutput `json:"output"`
	Errors []fedexError     `json:"errors"`
}

type fedexShipOutput struct {
	TransactionShipments []fedexTransactionShipment `json:"transactionShipments"`
}

type fedexTransactionShipment struct {
	MasterTrackingNumber string               `json:"masterTrackingNumber"`
	PieceResponses       []fedexPieceResponse `json:"pieceResponses"`
}

type fedexPieceResponse struct {
	TrackingNumber   string                 `json:"trackingNumber"`
	PackageDocuments []fedexPackageDocument `json:"packageDocuments"`
}

type fedexPackageDocument struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	DocType     string `json:"docType"`
}

// fedexCancelRequest is the PUT /ship/v1/shipments/cancel body
type fedexCancelRequest struct {
	AccountNumber  fedexAccountNumber `json:"accountNumber"`
	TrackingNumber string             `json:"trackingNumber"`
}

// fedexCancelResponse is the PUT /ship/v1/shipments/cancel response
type fedexCancelResponse struct {
	Output *fedexCancelOutput `json:"output"`
	Errors []fedexError       `json:"errors"`
}

type fedexCancelOutput struct {
	CancelledShipment bool   `json:"cancelledShipment"`
	SuccessMessage    string `json:"successMessage"`
}

// ---------------------------------------------------------------------------
// Track API (/track/v1)
// ---------------------------------------------------------------------------

// fedexTrackRequest is the POST /track/v1/trackingnumbers body
type fedexTrackRequest struct {
	IncludeDetailedScans bool                `json:"includeDetailedScans"`
	TrackingInfo         []fedexTrackingInfo `json:"trackingInfo"`
}

type fedexTrackingInfo struct {
	TrackingNumberInfo fedexTrackingNumberInfo `json:"trackingNumberInfo"`
}

type fedexTrackingNumberInfo struct {
	TrackingNumber string `json:"trackingNumber"`
}

// fedexTrackResponse is the POST /track/v1/trackingnumbers response
type fedexTrackResponse struct {
	Output *fedexTrackOutput `json:"output"`
	Errors []fedexError      `json:"errors"`
}

type fedexTrackOutput struct {
	CompleteTrackResults []fedexCompleteTrackResult `json:"completeTrackResults"`
}

type fedexCompleteTrackResult struct {
	TrackingNumber string             `json:"trackingNumber"`
	TrackResults   []fedexTrackResult `json:"trackResults"`
}

type fedexTrackResult struct {
	LatestStatusDetail *fedexStatusDetail `json:"latestStatusDetail"`
	ScanEvents         []fedexScanEvent   `json:"scanEvents"`
	Error              *fedexError        `json:"error"`
}

type fedexStatusDetail struct {
	Code        string `json:"code"`
	DerivedCode string `json:"derivedCode"`
	Description string `json:"description"`
}

type fedexScanEvent struct {
	Date              string             `json:"date"`
	EventDescription  string             `json:"eventDescription"`
	DerivedStatusCode string             `json:"derivedStatusCode"`
	ScanLocation      *fedexScanLocation `json:"scanLocation"`
}

type fedexScanLocation struct {
	City        string `json:"city"`
	CountryCode string `json:"countryCode"`
}

// ---------------------------------------------------------------------------
// Rate API (/rate/v1)
// ---------------------------------------------------------------------------

// fedexRateRequest is the POST /rate/v1/rates/quotes body
type fedexRateRequest struct {
	AccountNumber     fedexAccountNumber     `json:"accountNumber"`
	RequestedShipment fedexRateShipment      `json:"requestedShipment"`
}

type fedexRateShipment struct {
	Shipper                   fedexRateParty         `json:"shipper"`
	Recipient                 fedexRateParty         `json:"recipient"`
	PickupType                string                 `json:"pickupType"`
	RateRequestType           []string               `json:"rateRequestType"`
	RequestedPackageLineItems []fedexPackageLineItem `json:"requestedPackageLineItems"`
}

type fedexRateParty struct {
	Address fedexAddress `json:"address"`
}

// fedexRateResponse is the POST /rate/v1/rates/quotes response
type fedexRateResponse struct {
	Output *fedexRateOutput `json:"output"`
	Errors []fedexError     `json:"errors"`
}

type fedexRateOutput struct {
	RateReplyDetails []fedexRateReplyDetail `json:"rateReplyDetails"`
}

type fedexRateReplyDetail struct {
	ServiceType          string                     `json:"serviceType"`
	ServiceName          string                     `json:"serviceName"`
	RatedShipmentDetails []fedexRatedShipmentDetail `json:"ratedShipmentDetails"`
	Commit               *fedexCommit               `json:"commit"`
}

type fedexRatedShipmentDetail struct {
	TotalNetCharge float64 `json:"totalNetCharge"`
	Currency       string  `json:"currency"`
}

type fedexCommit struct {
	TransitDays *fedexTransitDays `json:"transitDays"`
}

type fedexTransitDays struct {
	MinimumTransitTime string `json:"minimumTransitTime"`
}
