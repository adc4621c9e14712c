package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/onnyvergiean/basic-banking-system/internal/core/security"
)

// ClaimsKey is where Protected stores the verified JWT claims on the request
// context.
const ClaimsKey = "claims"

// Protected rejects requests without a valid Bearer token.
func Protected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c)
		}

		claims, err := security.ParseJWT(secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			return unauthorized(c)
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status":  "error",
		"code":    fiber.StatusUnauthorized,
		"message": "you're not authorized!",
	})
}

// UserClaims returns the claims stored by Protected, nil when the route is
// public.
func UserClaims(c *fiber.Ctx) *security.Claims {
	claims, _ := c.Locals(ClaimsKey).(*security.Claims)
	return claims
}
