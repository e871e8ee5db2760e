package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	localsUsername = "username"
	localsClaims   = "claims"
)

var ErrNoClaims = errors.New("no claims in context")

// AuthMiddleware rejects requests without a valid bearer token.
// Missing token: 401. Any verification failure: 403.
func AuthMiddleware(tokens *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization token",
			})
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"error": "token expired",
					"code":  "TOKEN_EXPIRED",
				})
			}
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		c.Locals(localsUsername, claims.Username)
		c.Locals(localsClaims, claims)

		return c.Next()
	}
}

// GetClaimsFromContext returns the claims stored by AuthMiddleware.
func GetClaimsFromContext(c *fiber.Ctx) (*Claims, error) {
	claims, ok := c.Locals(localsClaims).(*Claims)
	if !ok || claims == nil {
		return nil, ErrNoClaims
	}
	return claims, nil
}

// Username returns the authenticated caller, or "" outside AuthMiddleware.
func Username(c *fiber.Ctx) string {
	username, _ := c.Locals(localsUsername).(string)
	return username
}

// bearerToken extracts the token from "Bearer <token>"; the scheme is case-insensitive.
func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
