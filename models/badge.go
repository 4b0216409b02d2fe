package models

import (
	"time"
)

// BadgeType: static config (seeded to DB at startup, overridable via JSON)
type BadgeType struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"` // e.g., "100-club", "week-streak"
	Name        string `gorm:"not null" json:"name"`             // "100 Club", "Week Streak"
	Description string `json:"description"`
	IconURL     string `gorm:"type:text" json:"icon_url"`                            // R2 URL to SVG/png
	Tier        string `gorm:"type:varchar(16);default:'bronze'" json:"tier"`        // bronze, silver, gold, platinum
	Category    string `gorm:"type:varchar(32);default:'progress'" json:"category"`  // progress, streak, social, league

	// Declarative unlock criterion: earned when the named stat reaches
	// MaxProgress. New badges are config rows, not engine changes.
	Stat        string `gorm:"not null" json:"stat"` // e.g., "total_score", "streak_days"
	MaxProgress int64  `gorm:"not null" json:"max_progress"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserBadgeProgress tracks partial progress toward one badge. EarnedAt, once
// set, is never cleared — badges are permanent even if the stat later drops
// (e.g., a score correction cannot revoke the 100 Club).
type UserBadgeProgress struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"not null;uniqueIndex:idx_user_badge_progress,priority:1" json:"external_user_id"`
	BadgeSlug      string `gorm:"not null;uniqueIndex:idx_user_badge_progress,priority:2" json:"badge_slug"`

	Progress int64      `gorm:"default:0" json:"progress"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DefaultBadges is the built-in catalog. Overridable via BADGES_CONFIG_PATH.
var DefaultBadges = []BadgeType{
	{
		Slug:        "first-points",
		Name:        "First Steps",
		Description: "Earned your first points",
		Tier:        "bronze",
		Category:    "progress",
		Stat:        "total_score",
		MaxProgress: 1,
	},
	{
		Slug:        "100-club",
		Name:        "100 Club",
		Description: "Reached 100 total points",
		Tier:        "bronze",
		Category:    "progress",
		Stat:        "total_score",
		MaxProgress: 100,
	},
	{
		Slug:        "1000-club",
		Name:        "1000 Club",
		Description: "Reached 1,000 total points",
		Tier:        "silver",
		Category:    "progress",
		Stat:        "total_score",
		MaxProgress: 1000,
	},
	{
		Slug:        "point-hoarder",
		Name:        "Point Hoarder",
		Description: "Reached 10,000 total points",
		Tier:        "gold",
		Category:    "progress",
		Stat:        "total_score",
		MaxProgress: 10000,
	},
	{
		Slug:        "week-streak",
		Name:        "Week Streak",
		Description: "Logged activity 7 days in a row",
		Tier:        "silver",
		Category:    "streak",
		Stat:        "streak_days",
		MaxProgress: 7,
	},
	{
		Slug:        "iron-month",
		Name:        "Iron Month",
		Description: "Logged activity 30 days in a row",
		Tier:        "gold",
		Category:    "streak",
		Stat:        "streak_days",
		MaxProgress: 30,
	},
	{
		Slug:        "social-butterfly",
		Name:        "Social Butterfly",
		Description: "Shared or commented 25 times",
		Tier:        "bronze",
		Category:    "social",
		Stat:        "social_actions",
		MaxProgress: 25,
	},
	{
		Slug:        "league-champion",
		Name:        "League Champion",
		Description: "Won a weekly league",
		Tier:        "platinum",
		Category:    "league",
		Stat:        "leagues_won",
		MaxProgress: 1,
	},
}
