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

// DefaultPeriodDuration is one competitive week.
const DefaultPeriodDuration = 7 * 24 * time.Hour

// LeagueService owns league periods and membership rows. Membership is
// per-user, so no cross-user locking is ever needed: creation races on a
// unique index and delta updates are single-row atomic increments.
type LeagueService struct {
	DB             *gorm.DB
	Levels         *LevelResolver
	PeriodDuration time.Duration
}

func NewLeagueService(db *gorm.DB, levels *LevelResolver, period time.Duration) *LeagueService {
	if period <= 0 {
		period = DefaultPeriodDuration
	}
	return &LeagueService{DB: db, Levels: levels, PeriodDuration: period}
}

// PeriodBounds aligns t to its period window. Weekly periods start Monday
// 00:00 UTC; other durations tile forward from the Unix epoch. Aligned
// windows mean every level's period rolls over together and a recreated
// period lands on the identical start time.
func PeriodBounds(t time.Time, duration time.Duration) (start, end time.Time) {
	t = t.UTC()
	if duration == DefaultPeriodDuration {
		daysSinceMonday := (int(t.Weekday()) + 6) % 7
		start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, -daysSinceMonday)
	} else {
		elapsed := t.Unix() % int64(duration/time.Second)
		start = time.Unix(t.Unix()-elapsed, 0).UTC()
	}
	return start, start.Add(duration)
}

// GetOrCreateOpenPeriod returns the open period for a level, creating one
// aligned to the current window if none exists (e.g. first-ever user reaching
// that level). Concurrent creators race on (level_number, start_time); the
// loser's insert is a no-op and both re-fetch the same row.
func (s *LeagueService) GetOrCreateOpenPeriod(levelNumber int) (*models.LeaguePeriod, error) {
	if _, err := s.Levels.ByNumber(levelNumber); err != nil {
		return nil, err
	}

	var period models.LeaguePeriod
	err := s.DB.Where("level_number = ? AND status = ?", levelNumber, models.PeriodStatusOpen).
		First(&period).Error
	if err == nil {
		return &period, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find open period for level %d: %w", levelNumber, err)
	}

	start, end := PeriodBounds(time.Now(), s.PeriodDuration)
	fresh := models.LeaguePeriod{
		LevelNumber: levelNumber,
		StartTime:   start,
		EndTime:     end,
		Status:      models.PeriodStatusOpen,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "level_number"}, {Name: "start_time"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return nil, fmt.Errorf("failed to create period for level %d: %w", levelNumber, err)
	}

	if err := s.DB.Where("level_number = ? AND status = ?", levelNumber, models.PeriodStatusOpen).
		First(&period).Error; err != nil {
		return nil, fmt.Errorf("failed to re-fetch open period for level %d: %w", levelNumber, err)
	}
	return &period, nil
}

// RecordActivity attributes a score delta to the user's membership in the
// given level's open period, creating the row lazily on first activity.
// Concurrent activity from the same user is additive: the delta update is an
// atomic in-database increment, never read-modify-write in Go.
func (s *LeagueService) RecordActivity(userID string, levelNumber int, delta int64) error {
	if delta <= 0 {
		return nil
	}
	period, err := s.GetOrCreateOpenPeriod(levelNumber)
	if err != nil {
		return err
	}

	// The ledger has already applied this delta to the cached total, so the
	// score at period entry is the current total minus it.
	var startTotal int64
	var totalRow models.ScoreTotal
	err = s.DB.Where("external_user_id = ?", userID).First(&totalRow).Error
	switch {
	case err == nil:
		startTotal = totalRow.Total
	case errors.Is(err, gorm.ErrRecordNotFound):
		startTotal = delta
	default:
		return fmt.Errorf("failed to read score for membership seed: %w", err)
	}

	membership := models.LeagueMembership{
		LeaguePeriodID: period.ID,
		ExternalUserID: userID,
		ScoreAtStart:   startTotal - delta,
		// ScoreDelta starts at zero; the increment below applies the delta
		// whether this insert won or an existing row was found.
		ScoreDelta:     0,
		FirstScoredAt:  time.Now().UTC(),
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "league_period_id"}, {Name: "external_user_id"}},
		DoNothing: true,
	}).Create(&membership).Error; err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}

	if err := s.DB.Model(&models.LeagueMembership{}).
		Where("league_period_id = ? AND external_user_id = ?", period.ID, userID).
		UpdateColumn("score_delta", gorm.Expr("score_delta + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to increment membership delta: %w", err)
	}
	return nil
}

// MembershipSnapshot reads all membership rows for a period in a single
// transaction, giving the ranker a consistent view.
func (s *LeagueService) MembershipSnapshot(periodID string) ([]models.LeagueMembership, error) {
	var rows []models.LeagueMembership
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Where("league_period_id = ?", periodID).Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot memberships for period %s: %w", periodID, err)
	}
	return rows, nil
}

// CurrentMembership finds the user's row in their current level's open
// period, if any. Returns nil without error when the user has not scored
// this period.
func (s *LeagueService) CurrentMembership(userID string, levelNumber int) (*models.LeaguePeriod, *models.LeagueMembership, error) {
	var period models.LeaguePeriod
	err := s.DB.Where("level_number = ? AND status = ?", levelNumber, models.PeriodStatusOpen).
		First(&period).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var membership models.LeagueMembership
	err = s.DB.Where("league_period_id = ? AND external_user_id = ?", period.ID, userID).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &period, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return &period, &membership, nil
}

// LastOutcome returns the user's recorded outcome from the most recently
// settled period of the given level, if any.
func (s *LeagueService) LastOutcome(userID string, levelNumber int) (*models.LeagueOutcome, error) {
	var outcome models.LeagueOutcome
	err := s.DB.
		Joins("JOIN league_periods ON league_periods.id = league_outcomes.league_period_id").
		Where("league_outcomes.external_user_id = ? AND league_periods.level_number = ?", userID, levelNumber).
		Order("league_periods.start_time DESC").
		First(&outcome).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// SweepExpired lists periods due for settlement: past end_time and not yet
// closed (a crashed settlement leaves a period in settling — it is retried).
func (s *LeagueService) SweepExpired(now time.Time) ([]models.LeaguePeriod, error) {
	var due []models.LeaguePeriod
	err := s.DB.Where("end_time <= ? AND status IN ?", now.UTC(),
		[]string{models.PeriodStatusOpen, models.PeriodStatusSettling}).
		Find(&due).Error
	if err != nil {
		return nil, err
	}
	if len(due) > 0 {
		log.Printf("[LEAGUE] %d period(s) due for settlement", len(due))
	}
	return due, nil
}
