package backend

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the client reads from a backend access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ParseTokenClaims reads token without verifying its signature. The backend
// verifies tokens on every call; this is only used to recover the identity
// and expiry of a stored session.
func ParseTokenClaims(token string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.Email == "" {
		return Claims{}, fmt.Errorf("token has no email claim")
	}
	return claims, nil
}

// Expired reports whether the token's exp claim is in the past relative to now.
func (c Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}
