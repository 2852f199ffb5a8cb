package middleware

import (
	"context"
	"strings"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
)

// IdentityResolver maps a bearer token to an internal user id.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (uint, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// AuthRequired resolves the bearer token through the identity resolver and
// stores the internal user id in c.Locals("userID") and the request context.
func AuthRequired(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authorization header required"))
		}

		token, ok := BearerToken(authHeader)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid authorization header format"))
		}

		return authenticate(c, resolver, token)
	}
}

// WebSocketAuthRequired accepts the token from the "token" query parameter
// (browsers cannot set headers on websocket upgrades) or the Authorization header.
func WebSocketAuthRequired(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			var ok bool
			token, ok = BearerToken(c.Get("Authorization"))
			if !ok {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthenticatedError("Token required"))
			}
		}
		return authenticate(c, resolver, token)
	}
}

func authenticate(c *fiber.Ctx, resolver IdentityResolver, token string) error {
	userID, err := resolver.Resolve(c.UserContext(), token)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	c.Locals("userID", userID)
	c.SetUserContext(WithUserID(c.UserContext(), userID))
	return c.Next()
}
