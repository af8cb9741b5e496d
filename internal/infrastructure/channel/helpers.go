package channel

import (
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
)

// maxResponseSize is the maximum allowed response size from a marketplace
// API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ParseDecimal parses a vendor money string, returning zero for empty or
// malformed values. Vendor APIs routinely omit price fields, so absence is
// not an error at this level.
func ParseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// intToDecimal converts an int quantity to a decimal
func intToDecimal(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// floatToDecimal converts a vendor float money value to a decimal
func floatToDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// readResponseBody reads an HTTP response body with a size cap
func readResponseBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("channel: read response body: %w", err)
	}
	return body, nil
}
