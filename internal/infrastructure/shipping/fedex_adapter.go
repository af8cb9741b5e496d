package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/channelops/backend/internal/domain/marketplace"
)

// FedExAdapter implements the marketplace.Carrier port for the FedEx REST
// APIs (ship, track, rate). Authentication is an OAuth2 client-credentials
// exchange against the token endpoint under the same API host.
type FedExAdapter struct {
	carrierBase

	config     *FedExConfig
	httpClient *http.Client
	now        func() time.Time
	rates      *rateTracker

	mu            sync.Mutex
	accountNumber string
	tokenSource   oauth2.TokenSource
	initialized   bool
}

// NewFedExAdapter creates a new FedEx adapter with the given environment
// configuration
func NewFedExAdapter(config *FedExConfig) (*FedExAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	now := time.Now
	return &FedExAdapter{
		carrierBase: carrierBase{code: marketplace.CodeFedEx},
		config:      config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		now:   now,
		rates: newRateTracker(now),
	}, nil
}

// Code returns the carrier code this adapter handles
func (a *FedExAdapter) Code() marketplace.Code {
	return marketplace.CodeFedEx
}

// Initialize builds the client-credentials token source and performs the
// first exchange as the auth handshake. Idempotent: fresh credentials
// replace the previous token source.
func (a *FedExAdapter) Initialize(ctx context.Context, creds marketplace.Credentials) error {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.AccountNumber == "" {
		return fmt.Errorf("%w: fedex requires client id, client secret and account number",
			marketplace.ErrMissingCredentials)
	}

	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     a.config.TokenURL(),
	}
	// The token source outlives the Initialize call, so it is bound to the
	// adapter's own HTTP client rather than the caller's context
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, a.httpClient)
	source := cc.TokenSource(tokenCtx)

	if _, err := source.Token(); err != nil {
		return fmt.Errorf("%w: fedex token exchange: %v", marketplace.ErrAuthenticationFailed, err)
	}

	a.mu.Lock()
	a.accountNumber = creds.AccountNumber
	a.tokenSource = oauth2.ReuseTokenSource(nil, source)
	a.initialized = true
	a.mu.Unlock()
	return nil
}

// doRequest performs one authenticated FedEx call
func (a *FedExAdapter) doRequest(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	a.mu.Lock()
	source := a.tokenSource
	a.mu.Unlock()
	if source == nil {
		return nil, 0, fmt.Errorf("%w: fedex", marketplace.ErrAdapterNotInitialized)
	}

	token, err := source.Token()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: fedex token: %v", marketplace.ErrAuthenticationFailed, err)
	}

	var reqBody *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("fedex: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.config.APIBaseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("fedex: build request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: fedex: %v", marketplace.ErrRequestFailed, err)
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
func (a *FedExAdapter) RateLimitStatus() marketplace.RateLimitStatus {
	return a.rates.status()
}

// TestConnection verifies a token can still be obtained
func (a *FedExAdapter) TestConnection(ctx context.Context) marketplace.ConnectionStatus {
	status := marketplace.ConnectionStatus{LastChecked: a.now()}

	a.mu.Lock()
	source := a.tokenSource
	a.mu.Unlock()
	if source == nil {
		status.Message = "fedex adapter not initialized"
		return status
	}
	if _, err := source.Token(); err != nil {
		status.Message = fmt.Sprintf("fedex token exchange failed: %v", err)
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
// Not retry-safe: FedEx books a second shipment for a repeated request.
func (a *FedExAdapter) CreateShipment(ctx context.Context, req marketplace.ShipmentRequest) (*marketplace.Shipment, error) {
	a.mu.Lock()
	account := a.accountNumber
	a.mu.Unlock()

	serviceType := req.ServiceCode
	if serviceType == "" {
		serviceType = "FEDEX_GROUND"
	}

	payload := fedexShipRequest{
		LabelResponseOptions: "URL_ONLY",
		AccountNumber:        fedexAccountNumber{Value: account},
		RequestedShipment: fedexShipment{
			Shipper:                convertToFedExParty(req.From),
			Recipients:             []fedexParty{convertToFedExParty(req.To)},
			ServiceType:            serviceType,
			PackagingType:          "YOUR_PACKAGING",
			PickupType:             "USE_SCHEDULED_PICKUP",
			ShippingChargesPayment: fedexPayment{PaymentType: "SENDER"},
			LabelSpecification: fedexLabelSpec{
				ImageType:      "PDF",
				LabelStockType: "PAPER_85X11_TOP_HALF_LABEL",
			},
			RequestedPackageLineItems: convertToFedExPackages(req.Parcels),
		},
	}
	if req.Reference != "" {
		payload.RequestedShipment.CustomerReferences = []fedexReference{
			{CustomerReferenceType: "CUSTOMER_REFERENCE", Value: req.Reference},
		}
	}

	body, code, err := a.doRequest(ctx, http.MethodPost, "/ship/v1/shipments", payload)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		var errResp fedexErrorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, fmt.Errorf("%w: fedex shipment returned %d: %s",
			marketplace.ErrRequestFailed, code, errResp.text())
	}

	var resp fedexShipResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: fedex shipment: %v", marketplace.ErrInvalidResponse, err)
	}
	if resp.Output == nil || len(resp.Output.TransactionShipments) == 0 {
		return nil, fmt.Errorf("%w: fedex shipment response", marketplace.ErrInvalidResponse)
	}

	booked := resp.Output.TransactionShipments[0]
	shipment := &marketplace.Shipment{
		ID:             booked.MasterTrackingNumber,
		TrackingNumber: booked.MasterTrackingNumber,
		Carrier:        marketplace.CodeFedEx,
		Status:         marketplace.ShipmentStatusCreated,
		CreatedAt:      a.now(),
	}
	for _, piece := range booked.PieceResponses {
		for _, doc := range piece.PackageDocuments {
			if doc.URL != "" {
				shipment.LabelURL = doc.URL
				break
			}
		}
		if shipment.LabelURL != "" {
			break
		}
	}
	return shipment, nil
}

// TrackShipment returns the current state and event history of a shipment.
// The track endpoint answers 200 even for unknown numbers, reporting the
// miss inside the result body.
func (a *FedExAdapter) TrackShipment(ctx context.Context, trackingNumber string) (*marketplace.Shipment, error) {
	payload := fedexTrackRequest{
		IncludeDetailedScans: true,
		TrackingInfo: []fedexTrackingInfo{
			{TrackingNumberInfo: fedexTrackingNumberInfo{TrackingNumber: trackingNumber}},
		},
	}

	body, code, err := a.doRequest(ctx, http.MethodPost, "/track/v1/trackingnumbers", payload)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		var errResp fedexErrorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, fmt.Errorf("%w: fedex tracking returned %d: %s",
			marketplace.ErrRequestFailed, code, errResp.text())
	}

	var resp fedexTrackResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: fedex tracking: %v", marketplace.ErrInvalidResponse, err)
	}
	if resp.Output == nil || len(resp.Output.CompleteTrackResults) == 0 ||
		len(resp.Output.CompleteTrackResults[0].TrackResults) == 0 {
		return nil, fmt.Errorf("%w: fedex shipment %s", marketplace.ErrShipmentNotFound, trackingNumber)
	}

	tracked := resp.Output.CompleteTrackResults[0].TrackResults[0]
	if tracked.Error != nil {
		return nil, fmt.Errorf("%w: fedex shipment %s: %s",
			marketplace.ErrShipmentNotFound, trackingNumber, tracked.Error.Message)
	}

	shipment := &marketplace.Shipment{
		ID:             trackingNumber,
		TrackingNumber: trackingNumber,
		Carrier:        marketplace.CodeFedEx,
		Status:         marketplace.ShipmentStatusCreated,
	}
	if tracked.LatestStatusDetail != nil {
		shipment.Status = mapFedExStatusCode(tracked.LatestStatusDetail.DerivedCode)
	}
	for _, raw := range tracked.ScanEvents {
		event := marketplace.TrackingEvent{
			Description: raw.EventDescription,
			Status:      mapFedExStatusCode(raw.DerivedStatusCode),
		}
		if raw.ScanLocation != nil {
			event.Location = raw.ScanLocation.City
		}
		if t, err := time.Parse(time.RFC3339, raw.Date); err == nil {
			event.Timestamp = t
		}
		shipment.Events = append(shipment.Events, event)
	}
	return shipment, nil
}

// GetRates quotes available FedEx services for a prospective shipment
func (a *FedExAdapter) GetRates(ctx context.Context, req marketplace.ShipmentRequest) ([]marketplace.RateQuote, error) {
	a.mu.Lock()
	account := a.accountNumber
	a.mu.Unlock()

	payload := fedexRateRequest{
		AccountNumber: fedexAccountNumber{Value: account},
		RequestedShipment: fedexRateShipment{
			Shipper:                   fedexRateParty{Address: convertToFedExAddress(req.From)},
			Recipient:                 fedexRateParty{Address: convertToFedExAddress(req.To)},
			PickupType:                "USE_SCHEDULED_PICKUP",
			RateRequestType:           []string{"ACCOUNT"},
			RequestedPackageLineItems: convertToFedExPackages(req.Parcels),
		},
	}

	body, code, err := a.doRequest(ctx, http.MethodPost, "/rate/v1/rates/quotes", payload)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		var errResp fedexErrorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, fmt.Errorf("%w: fedex rates returned %d: %s",
			marketplace.ErrRequestFailed, code, errResp.text())
	}

	var resp fedexRateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: fedex rates: %v", marketplace.ErrInvalidResponse, err)
	}
	if resp.Output == nil {
		return nil, fmt.Errorf("%w: fedex rates response", marketplace.ErrInvalidResponse)
	}

	quotes := make([]marketplace.RateQuote, 0, len(resp.Output.RateReplyDetails))
	for _, detail := range resp.Output.RateReplyDetails {
		quote := marketplace.RateQuote{
			ServiceCode: detail.ServiceType,
			ServiceName: detail.ServiceName,
		}
		if len(detail.RatedShipmentDetails) > 0 {
			quote.Price = floatToDecimal(detail.RatedShipmentDetails[0].TotalNetCharge)
			quote.Currency = detail.RatedShipmentDetails[0].Currency
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// CancelShipment cancels a shipment that has not been collected.
// Carrier-side rejection is reported in the result, not thrown.
func (a *FedExAdapter) CancelShipment(ctx context.Context, id string) (*marketplace.OperationResult, error) {
	a.mu.Lock()
	account := a.accountNumber
	a.mu.Unlock()

	result := &marketplace.OperationResult{}
	payload := fedexCancelRequest{
		AccountNumber:  fedexAccountNumber{Value: account},
		TrackingNumber: id,
	}

	body, code, err := a.doRequest(ctx, http.MethodPut, "/ship/v1/shipments/cancel", payload)
	if err != nil {
		return nil, err
	}
	if code >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: fedex cancel returned %d", marketplace.ErrRequestFailed, code)
	}

	var resp fedexCancelResponse
	_ = json.Unmarshal(body, &resp)

	switch {
	case code == http.StatusOK && resp.Output != nil && resp.Output.CancelledShipment:
		result.AddSuccess(id)
	case code == http.StatusNotFound:
		result.AddFailure(id, marketplace.FailureCodeShipmentNotFound, "shipment not found on fedex")
	default:
		reason := (&fedexErrorResponse{Errors: resp.Errors}).text()
		if reason == "" {
			reason = fmt.Sprintf("fedex returned %d", code)
		}
		result.AddFailure(id, marketplace.FailureCodeRejected, reason)
	}
	return result, nil
}

// Close releases the adapter's HTTP resources. Safe to call multiple times.
func (a *FedExAdapter) Close() error {
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

func convertToFedExParty(addr marketplace.Address) fedexParty {
	return fedexParty{
		Contact: fedexContact{
			PersonName:  addr.Name,
			PhoneNumber: addr.Phone,
		},
		Address: convertToFedExAddress(addr),
	}
}

func convertToFedExAddress(addr marketplace.Address) fedexAddress {
	lines := []string{addr.Line1}
	if addr.Line2 != "" {
		lines = append(lines, addr.Line2)
	}
	return fedexAddress{
		StreetLines:         lines,
		City:                addr.City,
		StateOrProvinceCode: addr.Province,
		PostalCode:          addr.PostalCode,
		CountryCode:         addr.CountryCode,
	}
}

func convertToFedExPackages(parcels []marketplace.Parcel) []fedexPackageLineItem {
	items := make([]fedexPackageLineItem, 0, len(parcels))
	for _, parcel := range parcels {
		item := fedexPackageLineItem{
			Weight: fedexWeight{Units: "KG", Value: parcel.WeightKG.InexactFloat64()},
		}
		if parcel.LengthCM > 0 {
			item.Dimensions = &fedexDimensions{
				Length: parcel.LengthCM,
				Width:  parcel.WidthCM,
				Height: parcel.HeightCM,
				Units:  "CM",
			}
		}
		items = append(items, item)
	}
	return items
}

// mapFedExStatusCode maps FedEx derived status codes to the canonical enum
func mapFedExStatusCode(code string) marketplace.ShipmentStatus {
	switch strings.ToUpper(code) {
	case "DL":
		return marketplace.ShipmentStatusDelivered
	case "IT", "OD", "PU", "AR", "DP":
		return marketplace.ShipmentStatusInTransit
	case "DE", "SE":
		return marketplace.ShipmentStatusException
	case "CA":
		return marketplace.ShipmentStatusCancelled
	default:
		return marketplace.ShipmentStatusCreated
	}
}

// Ensure FedExAdapter implements the carrier port
var _ marketplace.Carrier = (*FedExAdapter)(nil)
