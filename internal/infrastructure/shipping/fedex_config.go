package shipping

import "errors"

const (
	// FedExAPIBaseURL is the FedEx production API endpoint
	FedExAPIBaseURL = "https://apis.fedex.com"
	// FedExSandboxAPIBaseURL is the FedEx sandbox endpoint
	FedExSandboxAPIBaseURL = "https://apis-sandbox.fedex.com"
)

// Errors for FedEx configuration
var (
	ErrFedExConfigMissingEndpoint = errors.New("fedex: API endpoint is required")
)

// FedExConfig holds environment-level configuration for the FedEx adapter.
// Per-account auth material arrives through marketplace.Credentials at
// initialization time. The token endpoint lives under the API base URL.
type FedExConfig struct {
	// APIBaseURL is the FedEx API endpoint
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// NewFedExConfig creates a FedEx configuration with production defaults
func NewFedExConfig() *FedExConfig {
	return &FedExConfig{
		APIBaseURL:     FedExAPIBaseURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the configuration and applies defaults
func (c *FedExConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrFedExConfigMissingEndpoint
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// TokenURL returns the OAuth2 token endpoint under the API base URL
func (c *FedExConfig) TokenURL() string {
	return c.APIBaseURL + "/oauth/token"
}
