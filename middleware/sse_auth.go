// coach-gamification-system/middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"coach-gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware validates `token` from query params via AuthServiceClient.
// EventSource cannot set headers, so SSE streams authenticate out of band.
//
// Usage:
//
//	app.Get("/user/notifications/stream", middleware.SSEAuthMiddleware(authClient), notificationService.StreamUserNotificationsSSE)
func SSEAuthMiddleware(authClient *services.AuthServiceClient) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("token")))
		if accessToken == "" {
			log.Printf("[SSEAuth] ❌ Missing token query param for %s", c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token in query",
			})
		}

		resp, err := authClient.ValidateToken(accessToken)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for token (prefix: %.10s...): %v", accessToken, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals("user_id", resp.UserID)
		c.Locals("user_roles", resp.Roles)

		log.Printf("[SSEAuth] ✅ Authenticated user %s", resp.UserID)
		return c.Next()
	}
}
