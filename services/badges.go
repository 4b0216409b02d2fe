package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"coach-gamification-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BadgeEngine evaluates declarative unlock criteria against user stats and
// tracks partial progress. A criterion is a threshold over one named stat;
// adding a badge is a catalog row, never an engine change.
type BadgeEngine struct {
	DB     *gorm.DB
	Notify *NotificationService
}

func NewBadgeEngine(db *gorm.DB, notify *NotificationService) *BadgeEngine {
	return &BadgeEngine{DB: db, Notify: notify}
}

// LoadBadgeCatalog reads the badge definitions from the JSON file at path,
// falling back to models.DefaultBadges when path is empty.
func LoadBadgeCatalog(path string) ([]models.BadgeType, error) {
	if path == "" {
		return models.DefaultBadges, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read badge config %s: %w", path, err)
	}
	var badges []models.BadgeType
	if err := json.Unmarshal(data, &badges); err != nil {
		return nil, fmt.Errorf("failed to parse badge config %s: %w", path, err)
	}
	return badges, nil
}

// SeedCatalog upserts the badge catalog at startup. Criterion fields update
// in place so config changes take effect; earned progress rows are untouched.
func (e *BadgeEngine) SeedCatalog(catalog []models.BadgeType) error {
	for _, b := range catalog {
		if b.Slug == "" || b.Stat == "" || b.MaxProgress < 1 {
			return fmt.Errorf("badge config: %q needs slug, stat and max_progress >= 1", b.Name)
		}
		if err := e.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "description", "tier", "category", "stat", "max_progress",
			}),
		}).Create(&b).Error; err != nil {
			return fmt.Errorf("failed to seed badge %s: %w", b.Slug, err)
		}
	}
	log.Printf("✅ Badge catalog seeded (%d badge(s))", len(catalog))
	return nil
}

// ClampProgress limits a raw stat value to a badge's progress range.
func ClampProgress(value, maxProgress int64) int64 {
	if value < 0 {
		return 0
	}
	if value > maxProgress {
		return maxProgress
	}
	return value
}

// EvaluateCriterion decides the next progress state for one badge, given the
// stat's new value and the current progress row. Pure. An earned badge is
// permanent: its recorded progress is returned untouched no matter how far
// the stat has fallen since, and it can never re-earn.
func EvaluateCriterion(badge models.BadgeType, value int64, alreadyEarned bool, priorProgress int64) (progress int64, earnNow bool) {
	if alreadyEarned {
		return priorProgress, false
	}
	progress = ClampProgress(value, badge.MaxProgress)
	return progress, progress >= badge.MaxProgress
}

// OnStatChange re-evaluates every badge whose criterion references stat.
// Earned badges are permanent: their rows are skipped entirely, so a later
// stat decrease (e.g. a score correction) can never claw one back.
func (e *BadgeEngine) OnStatChange(userID string, stat string, newValue int64) error {
	var badges []models.BadgeType
	if err := e.DB.Where("stat = ?", stat).Find(&badges).Error; err != nil {
		return fmt.Errorf("failed to load badges for stat %s: %w", stat, err)
	}

	for _, badge := range badges {
		if err := e.evaluate(userID, badge, newValue); err != nil {
			return err
		}
	}
	return nil
}

func (e *BadgeEngine) evaluate(userID string, badge models.BadgeType, value int64) error {
	row := models.UserBadgeProgress{
		ExternalUserID: userID,
		BadgeSlug:      badge.Slug,
	}
	if err := e.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "badge_slug"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to upsert progress for %s/%s: %w", userID, badge.Slug, err)
	}
	if err := e.DB.Where("external_user_id = ? AND badge_slug = ?", userID, badge.Slug).
		First(&row).Error; err != nil {
		return fmt.Errorf("failed to load progress for %s/%s: %w", userID, badge.Slug, err)
	}

	progress, earnNow := EvaluateCriterion(badge, value, row.EarnedAt != nil, row.Progress)
	if row.EarnedAt != nil {
		return nil
	}

	// The earned_at IS NULL guard makes both the progress write and the earn
	// transition no-ops for badges earned concurrently since the read above.
	res := e.DB.Model(&models.UserBadgeProgress{}).
		Where("external_user_id = ? AND badge_slug = ? AND earned_at IS NULL", userID, badge.Slug).
		Update("progress", progress)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 || !earnNow {
		return nil
	}

	now := time.Now().UTC()
	res = e.DB.Model(&models.UserBadgeProgress{}).
		Where("external_user_id = ? AND badge_slug = ? AND earned_at IS NULL", userID, badge.Slug).
		Update("earned_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil // raced with another earner; first write stands
	}

	log.Printf("🎖️ Badge earned: %s → %s", badge.Slug, userID)
	if e.Notify != nil {
		dedup := fmt.Sprintf("badge:%s:%s", userID, badge.Slug)
		if _, err := e.Notify.Emit(userID, models.NotificationBadgeEarned, dedup, badgeEarnedPayload(userID, badge.Slug, now)); err != nil {
			log.Printf("⚠️ [BADGES] Notification for %s/%s failed: %v", userID, badge.Slug, err)
		}
	}
	return nil
}

func badgeEarnedPayload(userID, slug string, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"user_id":    userID,
		"badge_slug": slug,
		"earned_at":  at,
	}
}

// ListForUser returns the user's progress across the whole catalog, easiest
// badges first.
func (e *BadgeEngine) ListForUser(userID string) ([]BadgeProgressView, error) {
	var badges []models.BadgeType
	if err := e.DB.Order("max_progress ASC").Find(&badges).Error; err != nil {
		return nil, err
	}

	var rows []models.UserBadgeProgress
	if err := e.DB.Where("external_user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	bySlug := make(map[string]models.UserBadgeProgress, len(rows))
	for _, r := range rows {
		bySlug[r.BadgeSlug] = r
	}

	views := make([]BadgeProgressView, 0, len(badges))
	for _, b := range badges {
		v := BadgeProgressView{
			Slug:        b.Slug,
			Name:        b.Name,
			Description: b.Description,
			IconURL:     b.IconURL,
			Tier:        b.Tier,
			Category:    b.Category,
			MaxProgress: b.MaxProgress,
		}
		if r, ok := bySlug[b.Slug]; ok {
			v.Progress = r.Progress
			v.EarnedAt = r.EarnedAt
		}
		if b.MaxProgress > 0 {
			v.Percent = float64(v.Progress) / float64(b.MaxProgress) * 100
		}
		views = append(views, v)
	}
	return views, nil
}

// BadgeProgressView joins the catalog with a user's progress for display.
type BadgeProgressView struct {
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IconURL     string     `json:"icon_url,omitempty"`
	Tier        string     `json:"tier"`
	Category    string     `json:"category"`
	Progress    int64      `json:"progress"`
	MaxProgress int64      `json:"max_progress"`
	Percent     float64    `json:"percent"`
	EarnedAt    *time.Time `json:"earned_at,omitempty"`
}

// SetIconURL stores the uploaded icon location for a badge.
func (e *BadgeEngine) SetIconURL(badgeSlug, iconURL string) error {
	res := e.DB.Model(&models.BadgeType{}).
		Where("slug = ?", badgeSlug).
		Update("icon_url", iconURL)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

