package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"coach-gamification-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsService maintains the denormalized counters badge criteria read.
type StatsService struct {
	DB     *gorm.DB
	Badges *BadgeEngine
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{DB: db}
}

// EnsureStats ensures a UserStats row exists (idempotent).
func (s *StatsService) EnsureStats(userID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := s.DB.Where("external_user_id = ?", userID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.UserStats{ExternalUserID: userID}
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}},
			DoNothing: true,
		}).Create(&stats).Error; err != nil {
			return nil, err
		}
		if err := s.DB.Where("external_user_id = ?", userID).First(&stats).Error; err != nil {
			return nil, err
		}
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// SetTotalScore records the ledger total in the stats row. The ledger is the
// source of truth; this is display/criteria plumbing only.
func (s *StatsService) SetTotalScore(userID string, total int64) error {
	if _, err := s.EnsureStats(userID); err != nil {
		return err
	}
	return s.DB.Model(&models.UserStats{}).
		Where("external_user_id = ?", userID).
		Update("total_score", total).Error
}

// NextStreak computes the streak value after an activity at now, given the
// previous activity time. Same UTC day keeps the streak, the following day
// extends it, anything else resets to 1.
func NextStreak(last *time.Time, now time.Time, current int64) int64 {
	if last == nil {
		return 1
	}
	prev := last.UTC().Truncate(24 * time.Hour)
	day := now.UTC().Truncate(24 * time.Hour)
	switch day.Sub(prev) {
	case 0:
		if current < 1 {
			return 1
		}
		return current
	case 24 * time.Hour:
		return current + 1
	default:
		return 1
	}
}

// RecordActivityLogged bumps the activity counter and the daily streak, then
// fans the changed stats into the badge engine.
func (s *StatsService) RecordActivityLogged(userID string, at time.Time) error {
	stats, err := s.EnsureStats(userID)
	if err != nil {
		return err
	}

	streak := NextStreak(stats.LastActivityAt, at, stats.StreakDays)
	best := stats.BestStreakDays
	if streak > best {
		best = streak
	}
	at = at.UTC()

	if err := s.DB.Model(&models.UserStats{}).
		Where("external_user_id = ?", userID).
		Updates(map[string]interface{}{
			"activities_logged": gorm.Expr("activities_logged + 1"),
			"streak_days":       streak,
			"best_streak_days":  best,
			"last_activity_at":  at,
		}).Error; err != nil {
		return fmt.Errorf("failed to record activity for %s: %w", userID, err)
	}

	if s.Badges != nil {
		if err := s.Badges.OnStatChange(userID, "activities_logged", stats.ActivitiesLogged+1); err != nil {
			log.Printf("⚠️ [STATS] Badge evaluation (activities) for %s failed: %v", userID, err)
		}
		if err := s.Badges.OnStatChange(userID, "streak_days", streak); err != nil {
			log.Printf("⚠️ [STATS] Badge evaluation (streak) for %s failed: %v", userID, err)
		}
	}
	return nil
}

// RecordSocialAction bumps the social counter (shares, comments, likes).
func (s *StatsService) RecordSocialAction(userID string) error {
	stats, err := s.EnsureStats(userID)
	if err != nil {
		return err
	}
	if err := s.DB.Model(&models.UserStats{}).
		Where("external_user_id = ?", userID).
		UpdateColumn("social_actions", gorm.Expr("social_actions + 1")).Error; err != nil {
		return err
	}
	if s.Badges != nil {
		if err := s.Badges.OnStatChange(userID, "social_actions", stats.SocialActions+1); err != nil {
			log.Printf("⚠️ [STATS] Badge evaluation (social) for %s failed: %v", userID, err)
		}
	}
	return nil
}

// RecordLeagueWin bumps the league win counter after a settlement awards
// first place. Idempotency is handled by the caller (the win bonus ledger
// event is the at-most-once gate).
func (s *StatsService) RecordLeagueWin(userID string) error {
	stats, err := s.EnsureStats(userID)
	if err != nil {
		return err
	}
	if err := s.DB.Model(&models.UserStats{}).
		Where("external_user_id = ?", userID).
		UpdateColumn("leagues_won", gorm.Expr("leagues_won + 1")).Error; err != nil {
		return err
	}
	if s.Badges != nil {
		if err := s.Badges.OnStatChange(userID, "leagues_won", stats.LeaguesWon+1); err != nil {
			log.Printf("⚠️ [STATS] Badge evaluation (league win) for %s failed: %v", userID, err)
		}
	}
	return nil
}

// Get returns the stats row, creating it lazily.
func (s *StatsService) Get(userID string) (*models.UserStats, error) {
	return s.EnsureStats(userID)
}
