package channel

import "errors"

const (
	// ShopifyAPIVersion is the pinned REST Admin API version
	ShopifyAPIVersion = "2024-01"
	// shopifyMaxPageSize is the REST Admin API page size ceiling
	shopifyMaxPageSize = 250
	// shopifyLeakRate is the REST bucket leak rate in requests per second,
	// used to estimate when the call budget replenishes
	shopifyLeakRate = 2
	// shopifySKUScanPageCap bounds the variant scan for a SKU lookup. The
	// REST Admin API has no SKU filter, so lookups walk the variant listing.
	shopifySKUScanPageCap = 20
)

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingVersion = errors.New("shopify: API version is required")
)

// ShopifyConfig holds environment-level configuration for the Shopify
// Admin API adapter. The shop domain and access token arrive through
// marketplace.Credentials at initialization time.
type ShopifyConfig struct {
	// APIVersion is the Admin API version segment
	APIVersion string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// BaseURLOverride replaces the https://{shop} base URL, for tests
	BaseURLOverride string
}

// NewShopifyConfig creates a Shopify configuration with defaults
func NewShopifyConfig() *ShopifyConfig {
	return &ShopifyConfig{
		APIVersion:     ShopifyAPIVersion,
		TimeoutSeconds: 30,
	}
}

// Validate validates the configuration and applies defaults
func (c *ShopifyConfig) Validate() error {
	if c.APIVersion == "" {
		return ErrShopifyConfigMissingVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
