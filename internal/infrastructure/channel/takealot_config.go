package channel

import "errors"

const (
	// TakealotAPIBaseURL is the Takealot Seller API endpoint
	TakealotAPIBaseURL = "https://seller-api.takealot.com"
	// takealotMaxPageSize is the Seller API page size ceiling
	takealotMaxPageSize = 100
)

// Errors for Takealot configuration
var (
	ErrTakealotConfigMissingURL = errors.New("takealot: API base URL is required")
)

// TakealotConfig holds environment-level configuration for the Takealot
// Seller API adapter. The seller's API key arrives through
// marketplace.Credentials at initialization time.
type TakealotConfig struct {
	// APIBaseURL is the Seller API base URL
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// NewTakealotConfig creates a Takealot configuration with defaults
func NewTakealotConfig() *TakealotConfig {
	return &TakealotConfig{
		APIBaseURL:     TakealotAPIBaseURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the configuration and applies defaults
func (c *TakealotConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrTakealotConfigMissingURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
