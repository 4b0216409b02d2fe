// handlers/leaderboard.go
package handlers

import (
	"errors"
	"strconv"

	"coach-gamification-system/middleware"
	"coach-gamification-system/models"
	"coach-gamification-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const leaderboardPageSize = 20

// SetupLeaderboardRoutes wires the league leaderboard read path. Rank and
// zone always come from the single ranker — no slicing or threshold logic in
// this layer.
func SetupLeaderboardRoutes(app *fiber.App, db *gorm.DB, levels *services.LevelResolver, league *services.LeagueService, ranker *services.RankerService) {
	group := app.Group("/s", middleware.UserContextMiddleware())

	group.Get("/leaderboard/:levelSlug", func(c *fiber.Ctx) error {
		level, err := levels.BySlug(c.Params("levelSlug"))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "unknown level",
			})
		}

		page, _ := strconv.Atoi(c.Query("page", "1"))
		if page < 1 {
			page = 1
		}

		var period models.LeaguePeriod
		err = db.Where("level_number = ? AND status IN ?", level.Number,
			[]string{models.PeriodStatusOpen, models.PeriodStatusSettling}).
			Order("start_time DESC").
			First(&period).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{
				"level":   level.Slug,
				"entries": []models.RankedEntry{},
				"page":    page,
			})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to find league period",
				"cause": err.Error(),
			})
		}

		entries, err := ranker.Rank(period.ID)
		if err != nil {
			// Settling or unreadable pool: show the last stable ranking
			// instead of erroring the display path.
			entries, err = ranker.LastKnownRanking(level.Number)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to rank leaderboard",
					"cause": err.Error(),
				})
			}
		}

		total := len(entries)
		start := (page - 1) * leaderboardPageSize
		if start > total {
			start = total
		}
		end := start + leaderboardPageSize
		if end > total {
			end = total
		}
		pageEntries := entries[start:end]

		// Join display fields from the profile mirror
		userIDs := make([]string, 0, len(pageEntries))
		for _, e := range pageEntries {
			userIDs = append(userIDs, e.ExternalUserID)
		}
		profiles := map[string]models.MemberProfile{}
		if len(userIDs) > 0 {
			var rows []models.MemberProfile
			if err := db.Where("external_user_id IN ?", userIDs).Find(&rows).Error; err == nil {
				for _, p := range rows {
					profiles[p.ExternalUserID] = p
				}
			}
		}

		out := make([]fiber.Map, 0, len(pageEntries))
		for _, e := range pageEntries {
			row := fiber.Map{
				"rank":        e.Rank,
				"user_id":     e.ExternalUserID,
				"score_delta": e.ScoreDelta,
				"zone":        e.Zone,
			}
			if p, ok := profiles[e.ExternalUserID]; ok {
				row["username"] = p.Username
				row["display_name"] = p.DisplayName
				row["avatar_url"] = p.AvatarURL
			}
			out = append(out, row)
		}

		return c.JSON(fiber.Map{
			"level":       level.Slug,
			"period_id":   period.ID,
			"period_ends": period.EndTime,
			"status":      period.Status,
			"page":        page,
			"page_size":   leaderboardPageSize,
			"total":       total,
			"entries":     out,
		})
	})
}
