package models

import (
	"time"
)

// LeaguePeriod status lifecycle. Periods are never reopened.
const (
	PeriodStatusOpen     = "open"
	PeriodStatusSettling = "settling"
	PeriodStatusClosed   = "closed"
)

// Zone classification of a rank at period end.
const (
	ZonePromotion  = "promotion"
	ZoneNeutral    = "neutral"
	ZoneRelegation = "relegation"
)

// LeaguePeriod is one weekly competitive cycle within a level. At most one
// period is open per level at any time; the unique index on
// (level_number, start_time) makes concurrent creation a race that exactly
// one caller wins, the rest re-fetch.
type LeaguePeriod struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	LevelNumber int       `gorm:"not null;uniqueIndex:idx_league_periods_level_start,priority:1" json:"level_number"`
	StartTime   time.Time `gorm:"not null;uniqueIndex:idx_league_periods_level_start,priority:2" json:"start_time"`
	EndTime     time.Time `gorm:"not null;index" json:"end_time"` // exclusive
	Status      string    `gorm:"type:varchar(16);default:'open';index" json:"status"`

	SettledAt *time.Time `json:"settled_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// LeagueMembership is created lazily the first time a user scores while their
// level's period is open. ScoreDelta only grows through atomic increments;
// when a user levels up mid-period their old row simply stops receiving
// deltas — they have left that competitive pool.
type LeagueMembership struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	LeaguePeriodID string `gorm:"not null;uniqueIndex:idx_league_memberships_period_user,priority:1" json:"league_period_id"`
	ExternalUserID string `gorm:"not null;uniqueIndex:idx_league_memberships_period_user,priority:2" json:"external_user_id"`

	ScoreAtStart  int64     `gorm:"default:0" json:"score_at_start"`
	ScoreDelta    int64     `gorm:"default:0" json:"score_delta"`
	FirstScoredAt time.Time `gorm:"not null" json:"first_scored_at"` // tie-break: earliest period activity wins

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// LeagueOutcome durably records the final rank and zone per member once a
// period settles. Writes are OnConflict-DoNothing so re-running a settlement
// produces no double effects.
type LeagueOutcome struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	LeaguePeriodID string `gorm:"not null;uniqueIndex:idx_league_outcomes_period_user,priority:1" json:"league_period_id"`
	ExternalUserID string `gorm:"not null;uniqueIndex:idx_league_outcomes_period_user,priority:2;index" json:"external_user_id"`

	Rank       int    `gorm:"not null" json:"rank"`
	ScoreDelta int64  `gorm:"not null" json:"score_delta"`
	Zone       string `gorm:"type:varchar(16);not null" json:"zone"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// RankedEntry is derived, never persisted outside the settlement window.
// Always recomputed wholesale from membership rows.
type RankedEntry struct {
	Rank           int    `json:"rank"`
	ExternalUserID string `json:"external_user_id"`
	ScoreDelta     int64  `json:"score_delta"`
	Zone           string `json:"zone"`
}
