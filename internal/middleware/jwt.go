package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/stashly/stashly/internal/backend"
)

// Locals set by JWTAuth.
const (
	LocalEmail       = "email"
	LocalAccessToken = "access_token"
)

var errInvalidToken = errors.New("invalid token")

// JWTAuth validates the savings backend access token and stores the caller's
// email and raw token in Locals. With an empty secret the signature is not
// checked and only expiry is enforced; the backend still verifies the token
// on every forwarded call.
func JWTAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])

		claims, err := verify(token, secret, time.Now())
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(LocalEmail, claims.Email)
		c.Locals(LocalAccessToken, token)
		return c.Next()
	}
}

func verify(token string, secret []byte, now time.Time) (backend.Claims, error) {
	if len(secret) == 0 {
		claims, err := backend.ParseTokenClaims(token)
		if err != nil {
			return backend.Claims{}, err
		}
		if claims.Expired(now) {
			return backend.Claims{}, errInvalidToken
		}
		return claims, nil
	}

	var claims backend.Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil || !parsed.Valid || claims.Email == "" {
		return backend.Claims{}, errInvalidToken
	}
	return claims, nil
}
