package models

import (
	"time"
)

// Session holds the bearer tokens issued by the intake API. ExpiresAt is read
// from the access token's exp claim and is zero when the token has none.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
