// Package download holds the entitlement side of a purchase: grants issued on
// payment, the capability tokens that redeem them, and the gate that checks
// expiry and counts redemptions.
package download

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("download grant not found")
	ErrExpired  = errors.New("download grant expired")
)

// Grant entitles one user to one product until ExpiresAt. The token is the
// sole redemption credential; it deliberately carries no user identity.
// Grants are never deleted, expired ones stay around for abuse analysis.
type Grant struct {
	ID            int64     `json:"id" db:"download_id"`
	UserID        int64     `json:"userId" db:"user_id"`
	ProductID     int64     `json:"productId" db:"product_id"`
	Token         string    `json:"-" db:"token"`
	ExpiresAt     time.Time `json:"expiresAt" db:"expires_at"`
	DownloadCount int       `json:"downloadCount" db:"download_count"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

func (g Grant) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// tokenBytes gives 256 bits of entropy, enough that collisions and guessing
// are out of the question without any uniqueness round-trip to the store.
const tokenBytes = 32

// NewToken draws a fresh capability token: 64 hex characters.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
