package models

import (
	"time"
)

const PlatformReddit = "reddit"

// Account is a connected Reddit identity. AccessToken and RefreshToken are
// stored encrypted.
type Account struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	Platform       string    `db:"platform" json:"platform"`
	AccountID      string    `db:"account_id" json:"account_id"`
	AccountName    string    `db:"account_name" json:"account_name"`
	AccessToken    string    `db:"access_token" json:"-"`
	RefreshToken   string    `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"token_expires_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// TokenExpired reports whether the access token is past (or within skew of)
// its recorded expiry.
func (a *Account) TokenExpired(now time.Time, skew time.Duration) bool {
	if a.TokenExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(a.TokenExpiresAt)
}
