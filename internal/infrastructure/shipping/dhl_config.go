package shipping

import "errors"

const (
	// DHLAPIBaseURL is the DHL Express (MyDHL) API endpoint
	DHLAPIBaseURL = "https://express.api.dhl.com/mydhlapi"
	// DHLTokenURL is the DHL OAuth2 client-credentials token endpoint
	DHLTokenURL = "https://express.api.dhl.com/mydhlapi/auth/token"
)

// Errors for DHL configuration
var (
	ErrDHLConfigMissingEndpoint = errors.New("dhl: API endpoint is required")
	ErrDHLConfigMissingTokenURL = errors.New("dhl: token URL is required")
)

// DHLConfig holds environment-level configuration for the DHL Express
// adapter. Per-account auth material arrives through marketplace.Credentials
// at initialization time.
type DHLConfig struct {
	// APIBaseURL is the MyDHL API endpoint
	APIBaseURL string
	// TokenURL is the OAuth2 token endpoint
	TokenURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// NewDHLConfig creates a DHL configuration with production defaults
func NewDHLConfig() *DHLConfig {
	return &DHLConfig{
		APIBaseURL:     DHLAPIBaseURL,
		TokenURL:       DHLTokenURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the configuration and applies defaults
func (c *DHLConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrDHLConfigMissingEndpoint
	}
	if c.TokenURL == "" {
		return ErrDHLConfigMissingTokenURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
