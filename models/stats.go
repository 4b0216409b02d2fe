package models

import (
	"time"

	"gorm.io/gorm"
)

// UserStats tracks denormalized per-user counters the badge criteria read
// (denormalized for performance — total_score is also recoverable from the
// score ledger, the rest from upstream activity history).
type UserStats struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`

	TotalScore       int64 `json:"total_score" gorm:"default:0"`
	ActivitiesLogged int64 `json:"activities_logged" gorm:"default:0"`
	SocialActions    int64 `json:"social_actions" gorm:"default:0"`
	LeaguesWon       int64 `json:"leagues_won" gorm:"default:0"`

	// Streak bookkeeping: consecutive days with at least one logged activity
	StreakDays     int64      `json:"streak_days" gorm:"default:0"`
	BestStreakDays int64      `json:"best_streak_days" gorm:"default:0"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
