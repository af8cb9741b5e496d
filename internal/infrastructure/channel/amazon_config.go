package channel

import "errors"

// Amazon SP-API endpoints
const (
	// AmazonLWATokenURL is the Login-with-Amazon token endpoint used for the
	// refresh-token exchange
	AmazonLWATokenURL = "https://api.amazon.com/auth/o2/token"
	// AmazonNorthAmericaAPIURL is the SP-API endpoint for the NA region
	AmazonNorthAmericaAPIURL = "https://sellingpartnerapi-na.amazon.com"
	// AmazonEuropeAPIURL is the SP-API endpoint for the EU region
	AmazonEuropeAPIURL = "https://sellingpartnerapi-eu.amazon.com"

	// amazonMaxPageSize is the SP-API MaxResultsPerPage ceiling
	amazonMaxPageSize = 100
	// amazonRateWindowSeconds is the window used to derive a request budget
	// from the x-amzn-RateLimit-Limit header (a per-second rate)
	amazonRateWindowSeconds = 60
)

// amazonMarketplaceIDs maps region hints to SP-API marketplace identifiers
var amazonMarketplaceIDs = map[string]string{
	"us": "ATVPDKIKX0DER",
	"ca": "A2EUQ1WTGCTBG2",
	"mx": "A1AM78C64UM0Y8",
	"uk": "A1F83G8C2ARO7P",
	"de": "A1PA6795UKMFR9",
	"fr": "A13V1IB3VIYZZH",
	"it": "APJ6JRA9NG5V4",
	"es": "A1RKKUPIHCS9HS",
}

// Errors for Amazon configuration
var (
	ErrAmazonConfigMissingEndpoint = errors.New("amazon: API endpoint is required")
	ErrAmazonConfigMissingAuthURL  = errors.New("amazon: LWA token URL is required")
)

// AmazonConfig holds environment-level configuration for the Amazon SP-API
// adapter. Per-seller auth material arrives through marketplace.Credentials
// at initialization time, never here.
type AmazonConfig struct {
	// APIBaseURL is the SP-API endpoint for the seller's region
	APIBaseURL string
	// AuthURL is the LWA token endpoint
	AuthURL string
	// DefaultMarketplaceID is used when the credentials carry no region hint
	DefaultMarketplaceID string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// NewAmazonConfig creates an Amazon configuration with production defaults
func NewAmazonConfig() *AmazonConfig {
	return &AmazonConfig{
		APIBaseURL:           AmazonNorthAmericaAPIURL,
		AuthURL:              AmazonLWATokenURL,
		DefaultMarketplaceID: amazonMarketplaceIDs["us"],
		TimeoutSeconds:       30,
	}
}

// Validate validates the configuration and applies defaults
func (c *AmazonConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrAmazonConfigMissingEndpoint
	}
	if c.AuthURL == "" {
		return ErrAmazonConfigMissingAuthURL
	}
	if c.DefaultMarketplaceID == "" {
		c.DefaultMarketplaceID = amazonMarketplaceIDs["us"]
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// MarketplaceIDForRegion resolves a region hint to an SP-API marketplace ID,
// falling back to the configured default
func (c *AmazonConfig) MarketplaceIDForRegion(region string) string {
	if id, ok := amazonMarketplaceIDs[region]; ok {
		return id
	}
	return c.DefaultMarketplaceID
}
