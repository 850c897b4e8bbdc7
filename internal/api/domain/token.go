package domain

import "time"

// TokenPair is what a successful login or refresh returns: a short-lived
// stateless access token and a longer-lived revocable refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken models the stored refresh token record. Only a SHA-256
// fingerprint of the token is persisted, never the token itself.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the stored token is past its expiry at the given
// instant. An expired row is logically dead even before the sweep removes it.
func (t RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
