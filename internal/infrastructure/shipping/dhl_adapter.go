package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/channelops/backend/internal/domain/marketplace"
)

// DHLAdapter implements the marketplace.Carrier port for the DHL Express
// (MyDHL) API. Authentication is an OAuth2 client-credentials exchange; the
// token source caches and refreshes tokens transparently.
type DHLAdapter struct {
	carrierBase

	config     *DHLConfig
	httpClient *http.Client
	now        func() time.Time
	rates      *rateTracker

	mu            sync.Mutex
	accountNumber string
	tokenSource   oauth2.TokenSource
	initialized   bool
}

// NewDHLAdapter creates a new DHL adapter with the given environment
// configuration
func NewDHLAdapter(config *DHLConfig) (*DHLAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	now := time.Now
	return &DHLAdapter{
		carrierBase: carrierBase{code: marketplace.CodeDHL},
		config:      config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		now:   now,
		rates: newRateTracker(now),
	}, nil
}

// Code returns the carrier code this adapter handles
func (a *DHLAdapter) Code() marketplace.Code {
	return marketplace.CodeDHL
}

// Initialize builds the client-credentials token source and performs the
// first exchange as the auth handshake. Idempotent: fresh credentials
// replace the previous token source.
func (a *DHLAdapter) Initialize(ctx context.Context, creds marketplace.Credentials) error {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.AccountNumber == "" {
		return fmt.Errorf("%w: dhl requires client id, client secret and account number",
			marketplace.ErrMissingCredentials)
	}

	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     a.config.TokenURL,
	}
	// The token source outlives the Initialize call, so it is bound to the
	// adapter's own HTTP client rather than the caller's context
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, a.httpClient)
	source := cc.TokenSource(tokenCtx)

	if _, err := source.Token(); err != nil {
		return fmt.Errorf("%w: dhl token exchange: %v", marketplace.ErrAuthenticationFailed, err)
	}

	a.mu.Lock()
	a.accountNumber = creds.AccountNumber
	a.tokenSource = oauth2.ReuseTokenSource(nil, source)
	a.initialized = true
	a.mu.Unlock()
	return nil
}

// doRequest performs one authenticated MyDHL call
func (a *DHLAdapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	a.mu.Lock()
	source := a.tokenSource
	a.mu.Unlock()
	if source == nil {
		return nil, 0, fmt.Errorf("%w: dhl", marketplace.ErrAdapterNotInitialized)
	}

	token, err := source.Token()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: dhl token: %v", marketplace.ErrAuthenticationFailed, err)
	}

	var reqBody *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("dhl: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("dhl: build request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: dhl: %v", marketplace.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	a.rates.observe(resp)

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// RateLimitStatus returns the adapter's current request budget
func (a *DHLAdapter) RateLimitStatus() marketplace.RateLimitStatus {
	return a.rates.status()
}

// TestConnection verifies a token can still be obtained. The token source
// serves cached tokens, so a healthy connection costs nothing.
func (a *DHLAdapter) TestConnection(ctx context.Context) marketplace.ConnectionStatus {
	status := marketplace.ConnectionStatus{LastChecked: a.now()}

	a.mu.Lock()
	source := a.tokenSource
	a.mu.Unlock()
	if source == nil {
		status.Message = "dhl adapter not initialized"
		return status
	}
	if _, err := source.Token(); err != nil {
		status.Message = fmt.Sprintf("dhl token exchange failed: %v", err)
		return status
	}

	status.Connected = true
	status.Message = "connected"
	return status
}

// ---------------------------------------------------------------------------
// Shipment Operations
// ---------------------------------------------------------------------------

// CreateShipment books a shipment and returns the tracking number and label.
// Not retry-safe: DHL books a second shipment for a repeated request.
func (a *DHLAdapter) CreateShipment(ctx context.Context, req marketplace.ShipmentRequest) (*marketplace.Shipment, error) {
	a.mu.Lock()
	account := a.accountNumber
	a.mu.Unlock()

	serviceCode := req.ServiceCode
	if serviceCode == "" {
		serviceCode = "P"
	}

	payload := dhlShipmentRequest{
		PlannedShippingDateAndTime: a.now().UTC().Format("2006-01-02T15:04:05 GMT-00:00"),
		Pickup:                     dhlPickup{IsRequested: false},
		ProductCode:                serviceCode,
		Accounts:                   []dhlAccount{{TypeCode: "shipper", Number: account}},
		CustomerDetails: dhlCustomerDetails{
			ShipperDetails:  convertToDHLParty(req.From),
			ReceiverDetails: convertToDHLParty(req.To),
		},
		Content: dhlShipmentContent{
			Packages:            convertToDHLPackages(req.Parcels),
			IsCustomsDeclarable: false,
			Description:         "merchandise",
			UnitOfMeasurement:   "metric",
		},
	}
	if req.Reference != "" {
		payload.CustomerReferences = []dhlCustomerReference{{Value: req.Reference}}
	}

	body, code, err := a.doRequest(ctx, http.MethodPost, "/shipments", payload)
	if err != nil {
		return nil, err
	}
	if code != http.StatusCreated && code != http.StatusOK {
		var errResp dhlErrorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, fmt.Errorf("%w: dhl shipment returned %d: %s",
			marketplace.ErrRequestFailed, code, errResp.text())
	}

	var resp dhlShipmentResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.ShipmentTrackingNumber == "" {
		return nil, fmt.Errorf("%w: dhl shipment response", marketplace.ErrInvalidResponse)
	}

	shipment := &marketplace.Shipment{
		ID:             resp.ShipmentTrackingNumber,
		TrackingNumber: resp.ShipmentTrackingNumber,
		Carrier:        marketplace.CodeDHL,
		Status:         marketplace.ShipmentStatusCreated,
		CreatedAt:      a.now(),
	}
	for _, doc := range resp.Documents {
		if doc.TypeCode == "label" {
			shipment.LabelURL = doc.URL
			break
		}
	}
	return shipment, nil
}

// TrackShipment returns the current state and event history of a shipment
func (a *DHLAdapter) TrackShipment(ctx context.Context, trackingNumber string) (*marketplace.Shipment, error) {
	path := "/shipments/" + url.PathEscape(trackingNumber) + "/tracking"
	body, code, err := a.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if code == http.StatusNotFound {
		return nil, fmt.Errorf("%w: dhl shipment %s", marketplace.ErrShipmentNotFound, trackingNumber)
	}
	if code != http.StatusOK {
		var errResp dhlErrorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, fmt.Errorf("%w: dhl tracking returned %d: %s",
			marketplace.ErrRequestFailed, code, errResp.text())
	}

	var resp dhlTrackingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: dhl tracking: %v", marketplace.ErrInvalidResponse, err)
	}
	if len(resp.Shipments) == 0 {
		return nil, fmt.Errorf("%w: dhl shipment %s", marketplace.ErrShipmentNotFound, trackingNumber)
	}

	tracked := resp.Shipments[0]
	shipment := &marketplace.Shipment{
		ID:             tracked.ShipmentTrackingNumber,
		TrackingNumber: tracked.ShipmentTrackingNumber,
		Carrier:        marketplace.CodeDHL,
		Status:         mapDHLStatus(tracked.Status),
	}
	for _, raw := range tracked.Events {
		event := marketplace.TrackingEvent{
			Description: raw.Description,
			Status:      mapDHLEventCode(raw.TypeCode),
		}
		if len(raw.ServiceArea) > 0 {
			event.Location = raw.ServiceArea[0].Description
		}
		if t, err := time.Parse("2006-01-02 15:04:05", raw.Date+" "+raw.Time); err == nil {
			event.Timestamp = t
		}
		shipment.Events = append(shipment.Events, event)
	}
	return shipment, nil
}

// GetRates quotes available DHL products for a prospective shipment
func (a *DHLAdapter) GetRates(ctx context.Context, req marketplace.ShipmentRequest) ([]marketplace.RateQuote, error) {
	a.mu.Lock()
	account := a.accountNumber
	a.mu.Unlock()

	payload := dhlRatesRequest{
		CustomerDetails: dhlRateCustomerDetails{
			ShipperDetails: dhlRateAddress{
				CityName:    req.From.City,
				PostalCode:  req.From.PostalCode,
				CountryCode: req.From.CountryCode,
			},
			ReceiverDetails: dhlRateAddress{
				CityName:    req.To.City,
				PostalCode:  req.To.PostalCode,
				CountryCode: req.To.CountryCode,
			},
		},
		Accounts:                   []dhlAccount{{TypeCode: "shipper", Number: account}},
		Packages:                   convertToDHLPackages(req.Parcels),
		PlannedShippingDateAndTime: a.now().UTC().Format("2006-01-02T15:04:05 GMT-00:00"),
		UnitOfMeasurement:          "metric",
	}

	body, code, err := a.doRequest(ctx, http.MethodPost, "/rates", payload)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		var errResp dhlErrorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, fmt.Errorf("%w: dhl rates returned %d: %s",
			marketplace.ErrRequestFailed, code, errResp.text())
	}

	var resp dhlRatesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: dhl rates: %v", marketplace.ErrInvalidResponse, err)
	}

	quotes := make([]marketplace.RateQuote, 0, len(resp.Products))
	for _, product := range resp.Products {
		quote := marketplace.RateQuote{
			ServiceCode: product.ProductCode,
			ServiceName: product.ProductName,
		}
		for _, price := range product.TotalPrice {
			if price.CurrencyType == "" || strings.EqualFold(price.CurrencyType, "BILLC") {
				quote.Price = floatToDecimal(price.Price)
				quote.Currency = price.PriceCurrency
				break
			}
		}
		if product.DeliveryCapabilities != nil {
			quote.EstimatedDays = product.DeliveryCapabilities.TotalTransitDays
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// CancelShipment requests cancellation of an uncollected shipment.
// Carrier-side rejection is reported in the result, not thrown.
func (a *DHLAdapter) CancelShipment(ctx context.Context, id string) (*marketplace.OperationResult, error) {
	result := &marketplace.OperationResult{}

	body, code, err := a.doRequest(ctx, http.MethodDelete, "/shipments/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	switch {
	case code == http.StatusOK || code == http.StatusNoContent:
		result.AddSuccess(id)
	case code == http.StatusNotFound:
		result.AddFailure(id, marketplace.FailureCodeShipmentNotFound, "shipment not found on dhl")
	case code >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: dhl cancel returned %d", marketplace.ErrRequestFailed, code)
	default:
		var errResp dhlErrorResponse
		_ = json.Unmarshal(body, &errResp)
		reason := errResp.text()
		if reason == "" {
			reason = fmt.Sprintf("dhl returned %d", code)
		}
		result.AddFailure(id, marketplace.FailureCodeRejected, reason)
	}
	return result, nil
}

// Close releases the adapter's HTTP resources. Safe to call multiple times.
func (a *DHLAdapter) Close() error {
	a.httpClient.CloseIdleConnections()
	a.mu.Lock()
	a.tokenSource = nil
	a.initialized = false
	a.mu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func convertToDHLParty(addr marketplace.Address) dhlParty {
	return dhlParty{
		PostalAddress: dhlPostalAddress{
			AddressLine1: addr.Line1,
			AddressLine2: addr.Line2,
			CityName:     addr.City,
			PostalCode:   addr.PostalCode,
			ProvinceCode: addr.Province,
			CountryCode:  addr.CountryCode,
		},
		ContactInformation: dhlContactInformation{
			FullName: addr.Name,
			Phone:    addr.Phone,
		},
	}
}

func convertToDHLPackages(parcels []marketplace.Parcel) []dhlPackage {
	packages := make([]dhlPackage, 0, len(parcels))
	for _, parcel := range parcels {
		packages = append(packages, dhlPackage{
			Weight: parcel.WeightKG.InexactFloat64(),
			Dimensions: dhlDimensions{
				Length: parcel.LengthCM,
				Width:  parcel.WidthCM,
				Height: parcel.HeightCM,
			},
		})
	}
	return packages
}

// mapDHLStatus maps a shipment-level status to the canonical enum
func mapDHLStatus(status string) marketplace.ShipmentStatus {
	switch strings.ToLower(status) {
	case "delivered", "success":
		return marketplace.ShipmentStatusDelivered
	case "transit", "in transit":
		return marketplace.ShipmentStatusInTransit
	case "failure", "exception":
		return marketplace.ShipmentStatusException
	case "cancelled":
		return marketplace.ShipmentStatusCancelled
	default:
		return marketplace.ShipmentStatusCreated
	}
}

// mapDHLEventCode maps MyDHL event type codes to the canonical enum
func mapDHLEventCode(code string) marketplace.ShipmentStatus {
	switch code {
	case "OK":
		return marketplace.ShipmentStatusDelivered
	case "PU", "SC":
		return marketplace.ShipmentStatusCreated
	case "CA":
		return marketplace.ShipmentStatusCancelled
	case "OH", "RT", "CM":
		return marketplace.ShipmentStatusException
	default:
		return marketplace.ShipmentStatusInTransit
	}
}

// Ensure DHLAdapter implements the carrier port
var _ marketplace.Carrier = (*DHLAdapter)(nil)
