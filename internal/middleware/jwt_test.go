package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/stashly/stashly/internal/backend"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, email string, exp time.Time) string {
	t.Helper()
	claims := backend.Claims{
		Email:            email,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func jwtApp(secret string) *fiber.App {
	app := fiber.New()
	app.Use(JWTAuth([]byte(secret)))
	app.Get("/me", func(c *fiber.Ctx) error {
		email, _ := c.Locals(LocalEmail).(string)
		return c.SendString(email)
	})
	return app
}

func TestJWTAuth(t *testing.T) {
	future := time.Now().Add(time.Hour)
	cases := []struct {
		name   string
		secret string
		header string
		status int
	}{
		{"missing header", "s3cret", "", fiber.StatusUnauthorized},
		{"not bearer", "s3cret", "Basic abc", fiber.StatusUnauthorized},
		{"valid", "s3cret", "Bearer " + signToken(t, "s3cret", jwt.SigningMethodHS256, "saver@example.com", future), fiber.StatusOK},
		{"lowercase scheme", "s3cret", "bearer " + signToken(t, "s3cret", jwt.SigningMethodHS256, "saver@example.com", future), fiber.StatusOK},
		{"wrong secret", "s3cret", "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, "saver@example.com", future), fiber.StatusUnauthorized},
		{"wrong alg", "s3cret", "Bearer " + signToken(t, "s3cret", jwt.SigningMethodHS512, "saver@example.com", future), fiber.StatusUnauthorized},
		{"expired", "s3cret", "Bearer " + signToken(t, "s3cret", jwt.SigningMethodHS256, "saver@example.com", time.Now().Add(-time.Minute)), fiber.StatusUnauthorized},
		{"no email", "s3cret", "Bearer " + signToken(t, "s3cret", jwt.SigningMethodHS256, "", future), fiber.StatusUnauthorized},
		{"unverified dev mode", "", "Bearer " + signToken(t, "anything", jwt.SigningMethodHS256, "saver@example.com", future), fiber.StatusOK},
		{"unverified expired", "", "Bearer " + signToken(t, "anything", jwt.SigningMethodHS256, "saver@example.com", time.Now().Add(-time.Minute)), fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}
			resp, err := jwtApp(tc.secret).Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d got %d", tc.status, resp.StatusCode)
			}
		})
	}
}
