// handlers/gamification_routes.go
package handlers

import (
	"errors"
	"strconv"

	"coach-gamification-system/middleware"
	"coach-gamification-system/services"
	"coach-gamification-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SetupGamificationRoutes wires the inbound surface: point awards, the user
// summary every widget reads, badge progress and the notification outbox.
// The gateway forwards paths like /api/v1/gamification/s/user/summary -> /s/user/summary.
func SetupGamificationRoutes(app *fiber.App, ledger *services.LedgerService, summary *services.SummaryService, badges *services.BadgeEngine, stats *services.StatsService, notifications *services.NotificationService, authClient *services.AuthServiceClient) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	// Award points to the authenticated user for a platform event. Duplicate
	// reason keys are a no-op, not an error — the caller learns it from
	// "applied" and must not show a second celebration.
	securedGroup.Post("/points/award", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			ReasonKey string `json:"reason_key" validate:"required,max=255"`
			Amount    int64  `json:"amount" validate:"required,min=1"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Amount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "amount must be positive (use the correction endpoint for adjustments)",
			})
		}

		applied, total, err := ledger.Award(userID, req.Amount, req.ReasonKey)
		if err != nil {
			return awardErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{
			"applied":     applied,
			"total_score": total,
		})
	})

	// Stat events that carry no points of their own (streak days, social
	// actions) but feed badge criteria.
	securedGroup.Post("/stats/activity", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := stats.RecordActivityLogged(userID, utils.NowUTC()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record activity",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"recorded": true})
	})

	securedGroup.Post("/stats/social", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := stats.RecordSocialAction(userID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record social action",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"recorded": true})
	})

	securedGroup.Get("/user/summary", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		out, err := summary.GetUserSummary(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build summary",
				"cause": err.Error(),
			})
		}
		return c.JSON(out)
	})

	securedGroup.Get("/user/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		views, err := badges.ListForUser(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badges",
				"cause": err.Error(),
			})
		}
		return c.JSON(views)
	})

	securedGroup.Get("/user/notifications", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		rows, err := notifications.ListForUser(userID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get notifications",
				"cause": err.Error(),
			})
		}
		return c.JSON(rows)
	})

	securedGroup.Patch("/user/notifications/:id/viewed", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := notifications.MarkViewed(userID, c.Params("id")); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "notification not found",
			})
		}
		return c.JSON(fiber.Map{"viewed": true})
	})

	// SSE stream authenticates via query token (EventSource cannot set headers)
	app.Get("/user/notifications/stream",
		middleware.SSEAuthMiddleware(authClient),
		notifications.StreamUserNotificationsSSE)

	// Service-to-service award: other backend services (content, scheduling)
	// award points on behalf of a user.
	app.Post("/internal/points/award", func(c *fiber.Ctx) error {
		type Req struct {
			UserID    string `json:"user_id" validate:"required,uuid"`
			ReasonKey string `json:"reason_key" validate:"required,max=255"`
			Amount    int64  `json:"amount" validate:"required,min=1"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.Amount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "amount must be positive",
			})
		}

		applied, total, err := ledger.Award(req.UserID, req.Amount, req.ReasonKey)
		if err != nil {
			return awardErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{
			"applied":     applied,
			"total_score": total,
		})
	})
}

// SetupAdminRoutes wires role-gated administrative operations.
func SetupAdminRoutes(app *fiber.App, ledger *services.LedgerService, badges *services.BadgeEngine, rollover *services.RolloverService) {
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	// Corrections are first-class ledger events, never mutations: each one
	// gets its own audit id and a negative or positive amount.
	adminGroup.Post("/points/correct", func(c *fiber.Ctx) error {
		type Req struct {
			UserID  string `json:"user_id" validate:"required,uuid"`
			Amount  int64  `json:"amount" validate:"required"`
			AuditID string `json:"audit_id"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.AuditID == "" {
			req.AuditID = uuid.NewString()
		}

		total, err := ledger.Correct(req.UserID, req.Amount, req.AuditID)
		if err != nil {
			return awardErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{
			"audit_id":    req.AuditID,
			"total_score": total,
		})
	})

	adminGroup.Post("/badges/:slug/icon", func(c *fiber.Ctx) error {
		slugParam := c.Params("slug")
		fileHeader, err := c.FormFile("icon")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "icon file required",
				"cause": err.Error(),
			})
		}

		key := "badges/" + slugParam + "-" + uuid.NewString() + utils.FileExt(fileHeader.Filename)
		url, err := utils.UploadFileToR2(fileHeader, key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to upload icon",
				"cause": err.Error(),
			})
		}
		if err := badges.SetIconURL(slugParam, url); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "badge not found",
			})
		}
		return c.JSON(fiber.Map{"icon_url": url})
	})

	// Manual settlement trigger for operators; the scheduler does the same
	// thing on its own every minute. A period still inside its window cannot
	// be settled early.
	adminGroup.Post("/settle/:periodID", func(c *fiber.Ctx) error {
		if err := rollover.Settle(c.Params("periodID")); err != nil {
			switch {
			case errors.Is(err, services.ErrPeriodNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "league period not found",
				})
			case errors.Is(err, services.ErrPeriodNotDue):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "league period has not ended yet",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "settlement failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"settled": true})
	})
}

func awardErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidReasonKey):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid reason key",
		})
	case errors.Is(err, services.ErrUnknownUser):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown user",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "award failed",
			"cause": err.Error(),
		})
	}
}
