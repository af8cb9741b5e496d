package marketplace

import "time"

// tokenRefreshSkew is subtracted from the expiry when deciding whether a
// cached token is still usable, so a token is refreshed slightly before it
// actually expires rather than failing mid-request.
const tokenRefreshSkew = 60 * time.Second

// AccessToken is a cached vendor access token with its expiry.
// Adapters hold it as an explicit value so the check-then-refresh logic in
// ensureAuthenticated can be tested with an injected clock.
type AccessToken struct {
	// Token is the bearer token value
	Token string
	// ExpiresAt is when the token expires
	ExpiresAt time.Time
}

// NeedsRefresh returns true if the token is empty or expires within the
// refresh skew of now
func (t AccessToken) NeedsRefresh(now time.Time) bool {
	if t.Token == "" {
		return true
	}
	return !now.Add(tokenRefreshSkew).Before(t.ExpiresAt)
}

// NewAccessToken creates an access token expiring after the given lifetime
func NewAccessToken(token string, now time.Time, lifetime time.Duration) AccessToken {
	return AccessToken{
		Token:     token,
		ExpiresAt: now.Add(lifetime),
	}
}
