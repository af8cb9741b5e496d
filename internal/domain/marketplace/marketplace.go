package marketplace

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Marketplace Errors
// ---------------------------------------------------------------------------

var (
	// Adapter lifecycle errors
	ErrNotSupported          = errors.New("marketplace: marketplace not supported")
	ErrAdapterNotInitialized = errors.New("marketplace: adapter not initialized")
	ErrAuthenticationFailed  = errors.New("marketplace: authentication failed")
	ErrTokenExpired          = errors.New("marketplace: access token expired")
	ErrMissingCredentials    = errors.New("marketplace: required credential fields missing")

	// Transport errors
	ErrRequestFailed   = errors.New("marketplace: marketplace request failed")
	ErrInvalidResponse = errors.New("marketplace: invalid marketplace response")
	ErrRateLimited     = errors.New("marketplace: marketplace rate limited")

	// Lookup errors
	ErrProductNotFound     = errors.New("marketplace: product not found")
	ErrOrderNotFound       = errors.New("marketplace: order not found")
	ErrCredentialsNotFound = errors.New("marketplace: credentials not found")
	ErrShipmentNotFound    = errors.New("marketplace: shipment not found")
)

// ---------------------------------------------------------------------------
// Code identifies a supported marketplace or shipping carrier
// ---------------------------------------------------------------------------

// Code identifies a supported marketplace or shipping carrier
type Code string

const (
	// CodeAmazon represents the Amazon SP-API marketplace
	CodeAmazon Code = "amazon"
	// CodeShopify represents the Shopify Admin API marketplace
	CodeShopify Code = "shopify"
	// CodeTakealot represents the Takealot seller marketplace
	CodeTakealot Code = "takealot"
	// CodeDHL represents the DHL Express shipping carrier
	CodeDHL Code = "dhl"
	// CodeFedEx represents the FedEx shipping carrier
	CodeFedEx Code = "fedex"
)

// IsValid returns true if the code is a known marketplace or carrier
func (c Code) IsValid() bool {
	switch c {
	case CodeAmazon, CodeShopify, CodeTakealot, CodeDHL, CodeFedEx:
		return true
	default:
		return false
	}
}

// String returns the string representation of Code
func (c Code) String() string {
	return string(c)
}

// IsCarrier returns true if the code identifies a shipping carrier rather
// than a product marketplace
func (c Code) IsCarrier() bool {
	return c == CodeDHL || c == CodeFedEx
}

// NormalizeCode converts a marketplace identifier variant to its canonical
// code. Identifiers are case-insensitive and regional suffixes are stripped,
// so "amazon_us", "AMAZON_DE" and "Amazon" all normalize to CodeAmazon.
// Unknown identifiers normalize to a lower-cased Code that fails IsValid.
func NormalizeCode(id string) Code {
	normalized := strings.ToLower(strings.TrimSpace(id))
	if idx := strings.IndexByte(normalized, '_'); idx > 0 {
		if prefix := Code(normalized[:idx]); prefix.IsValid() {
			return prefix
		}
	}
	return Code(normalized)
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Credentials is the opaque bag of auth fields for one marketplace account.
// It is passed by value into adapters at initialization time and never
// persisted by the adapter itself; adapters may cache a derived access token.
type Credentials struct {
	// APIKey is the vendor-issued API key (Takealot, DHL)
	APIKey string
	// APISecret is the vendor-issued API secret (DHL, FedEx)
	APISecret string
	// AccessToken is a pre-issued access token (Shopify)
	AccessToken string
	// RefreshToken is the long-lived refresh token (Amazon LWA)
	RefreshToken string
	// ClientID is the OAuth client identifier (Amazon, FedEx)
	ClientID string
	// ClientSecret is the OAuth client secret (Amazon, FedEx)
	ClientSecret string
	// SellerID is the marketplace seller identifier (Amazon)
	SellerID string
	// ShopDomain is the shop hostname (Shopify, e.g. "acme.myshopify.com")
	ShopDomain string
	// AccountNumber is the carrier account number (DHL, FedEx)
	AccountNumber string
	// Region is the marketplace region hint (e.g. "us", "de")
	Region string
	// Extras carries vendor-specific extra fields
	Extras map[string]string
}

// IsZero returns true if no credential field is populated
func (c Credentials) IsZero() bool {
	return c.APIKey == "" && c.APISecret == "" && c.AccessToken == "" &&
		c.RefreshToken == "" && c.ClientID == "" && c.ClientSecret == "" &&
		c.SellerID == "" && c.ShopDomain == "" && c.AccountNumber == "" &&
		len(c.Extras) == 0
}

// CredentialManager stores and retrieves per-user, per-marketplace
// credentials. Implementations encrypt the credential bag at rest and
// decrypt just-in-time for adapter construction.
type CredentialManager interface {
	// GetCredentials returns the decrypted credentials for a user and
	// marketplace, or ErrCredentialsNotFound if absent
	GetCredentials(ctx context.Context, userID string, code Code) (Credentials, error)

	// StoreCredentials encrypts and persists credentials, replacing any
	// existing entry for the same user and marketplace
	StoreCredentials(ctx context.Context, userID string, code Code, creds Credentials) error

	// DeleteCredentials removes stored credentials
	DeleteCredentials(ctx context.Context, userID string, code Code) error
}

// ---------------------------------------------------------------------------
// Connection / Rate-Limit Introspection
// ---------------------------------------------------------------------------

// ConnectionStatus reports the outcome of a connection test
type ConnectionStatus struct {
	// Connected is true if the marketplace responded to a cheap read call
	Connected bool
	// Message is a human-readable status or failure description
	Message string
	// LastChecked is when the test was performed
	LastChecked time.Time
}

// RateLimitStatus reports the adapter's view of its remaining request budget
type RateLimitStatus struct {
	// Remaining is the number of requests left in the current window
	Remaining int
	// Limit is the total request budget per window
	Limit int
	// Reset is when the budget replenishes
	Reset time.Time
}
