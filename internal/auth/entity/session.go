package entity

import "time"

// ServiceAuth is the vendor credential set held by the token broker. A new value
// replaces the old one wholesale on every exchange.
type ServiceAuth struct {
	AccessToken  string    `json:"accessToken" db:"access_token"`
	RefreshToken string    `json:"refreshToken" db:"refresh_token"`
	TokenType    string    `json:"tokenType" db:"token_type"`
	AccountID    string    `json:"accountId" db:"account_id"`
	ExpiresAt    time.Time `json:"expiresAt" db:"expires_at"`
}

// Valid reports whether the access token is still usable at now.
func (a ServiceAuth) Valid(now time.Time) bool {
	return a.AccessToken != "" && now.Before(a.ExpiresAt)
}

// ExpiresIn returns whole seconds left until expiry, never negative.
func (a ServiceAuth) ExpiresIn(now time.Time) int64 {
	d := a.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
