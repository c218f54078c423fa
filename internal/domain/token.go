package domain

import "time"

// Principal kind constants. Tokens and refresh token rows carry the kind so a
// customer session can never be replayed against the admin surface.
const (
	KindUser  = "user"
	KindAdmin = "admin"
)

// RefreshToken represents a stored refresh token for a session. Only the
// SHA-256 hash of the opaque token is persisted.
type RefreshToken struct {
	ID          int64     `json:"id"`
	PrincipalID int64     `json:"principal_id"`
	Kind        string    `json:"kind"`
	TokenHash   string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsExpired reports whether the stored token has passed its expiry.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
