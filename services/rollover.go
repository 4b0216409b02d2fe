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

// LeagueWinBonus is granted to the rank-1 finisher of every settled period.
// The award goes through the ledger with a period-scoped reason key, which is
// what makes the winner side effects exactly-once across settlement retries.
const LeagueWinBonus = 100

// RolloverService settles expired league periods: open → settling → closed,
// recording zone outcomes durably and opening the next period. Every step is
// safe to re-run — the ranking is recomputed from immutable membership deltas
// and all writes are insert-or-noop.
type RolloverService struct {
	DB     *gorm.DB
	Levels *LevelResolver
	League *LeagueService
	Ranker *RankerService
	Ledger *LedgerService
	Stats  *StatsService
	Notify *NotificationService
}

func NewRolloverService(db *gorm.DB, levels *LevelResolver, league *LeagueService, ranker *RankerService, ledger *LedgerService, stats *StatsService, notify *NotificationService) *RolloverService {
	return &RolloverService{DB: db, Levels: levels, League: league, Ranker: ranker, Ledger: ledger, Stats: stats, Notify: notify}
}

// SettleDue settles every period past its end time. Called by the scheduler
// tick; failures are logged and retried on the next tick.
func (s *RolloverService) SettleDue(now time.Time) {
	due, err := s.League.SweepExpired(now)
	if err != nil {
		log.Printf("❌ [ROLLOVER] Sweep failed: %v", err)
		return
	}
	for _, period := range due {
		if err := s.Settle(period.ID); err != nil {
			log.Printf("❌ [ROLLOVER] Settlement of period %s (level %d) failed, will retry: %v",
				period.ID, period.LevelNumber, err)
		}
	}
}

// BuildSettlement derives the durable settlement rows from a ranked snapshot:
// one outcome row and one notification dedup key per member. Pure — a re-run
// over the same snapshot yields identical rows and keys, so every write
// collapses onto its insert-or-noop conflict target.
func BuildSettlement(periodID string, entries []models.RankedEntry) ([]models.LeagueOutcome, []string) {
	outcomes := make([]models.LeagueOutcome, len(entries))
	dedups := make([]string, len(entries))
	for i, e := range entries {
		outcomes[i] = models.LeagueOutcome{
			LeaguePeriodID: periodID,
			ExternalUserID: e.ExternalUserID,
			Rank:           e.Rank,
			ScoreDelta:     e.ScoreDelta,
			Zone:           e.Zone,
		}
		dedups[i] = fmt.Sprintf("settle:%s:%s", periodID, e.ExternalUserID)
	}
	return outcomes, dedups
}

// periodDue reports whether a period's window has fully elapsed. Closing a
// period mid-window would collide with PeriodBounds, which still maps the
// current time into that same window: the successor insert hits the
// (level_number, start_time) unique index of the just-closed row and the
// level is left with no open period until the next boundary.
func periodDue(period models.LeaguePeriod, now time.Time) bool {
	return !now.Before(period.EndTime)
}

// Settle runs one settlement. An advisory transaction lock keyed on the
// period id keeps concurrent schedulers from settling the same period at
// once — a double run would be harmless (idempotent) but wasteful.
func (s *RolloverService) Settle(periodID string) error {
	var period models.LeaguePeriod
	if err := s.DB.Where("id = ?", periodID).First(&period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPeriodNotFound
		}
		return fmt.Errorf("failed to load period %s: %w", periodID, err)
	}
	if !periodDue(period, time.Now().UTC()) {
		return ErrPeriodNotDue
	}

	// Visible settling state first: live leaderboard reads refuse a settling
	// period and degrade to the last recorded outcomes.
	if err := s.DB.Model(&models.LeaguePeriod{}).
		Where("id = ? AND status = ?", periodID, models.PeriodStatusOpen).
		Update("status", models.PeriodStatusSettling).Error; err != nil {
		return fmt.Errorf("failed to mark period %s settling: %w", periodID, err)
	}

	var winner string
	var levelNumber int
	settled := false

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var locked bool
		if err := tx.Raw("SELECT pg_try_advisory_xact_lock(hashtext(?))", periodID).
			Scan(&locked).Error; err != nil {
			return fmt.Errorf("advisory lock query failed: %w", err)
		}
		if !locked {
			log.Printf("[ROLLOVER] Period %s is being settled elsewhere, skipping", periodID)
			return nil
		}

		var period models.LeaguePeriod
		if err := tx.Where("id = ?", periodID).First(&period).Error; err != nil {
			return fmt.Errorf("failed to load period %s: %w", periodID, err)
		}
		if period.Status == models.PeriodStatusClosed {
			return nil // already settled; re-run is a no-op
		}
		levelNumber = period.LevelNumber

		level, err := s.Levels.ByNumber(period.LevelNumber)
		if err != nil {
			return err
		}
		var snapshot []models.LeagueMembership
		if err := tx.Where("league_period_id = ?", period.ID).Find(&snapshot).Error; err != nil {
			return fmt.Errorf("failed to snapshot memberships: %w", err)
		}
		topmost := level.Number == s.Levels.Topmost().Number
		bottommost := level.Number == s.Levels.Bottommost().Number
		entries := RankMemberships(snapshot, level, topmost, bottommost)

		outcomes, dedups := BuildSettlement(period.ID, entries)
		for i := range outcomes {
			o := &outcomes[i]
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "league_period_id"}, {Name: "external_user_id"}},
				DoNothing: true,
			}).Create(o).Error; err != nil {
				return fmt.Errorf("failed to record outcome for %s: %w", o.ExternalUserID, err)
			}

			if _, err := s.Notify.EmitTx(tx, o.ExternalUserID, models.NotificationLeagueSettled, dedups[i], map[string]interface{}{
				"user_id":      o.ExternalUserID,
				"level_number": period.LevelNumber,
				"rank":         o.Rank,
				"zone":         o.Zone,
			}); err != nil {
				return fmt.Errorf("failed to emit settlement notification: %w", err)
			}
		}

		if len(entries) > 0 {
			winner = entries[0].ExternalUserID
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.LeaguePeriod{}).
			Where("id = ?", period.ID).
			Updates(map[string]interface{}{
				"status":     models.PeriodStatusClosed,
				"settled_at": now,
			}).Error; err != nil {
			return fmt.Errorf("failed to close period %s: %w", period.ID, err)
		}

		settled = true
		log.Printf("✅ [ROLLOVER] Period %s (level %d) settled: %d member(s), winner=%s",
			period.ID, period.LevelNumber, len(entries), winner)
		return nil
	})
	if err != nil {
		return err
	}
	if !settled {
		return nil
	}

	// Promotion/relegation never mutates a user's level here: level is always
	// re-derived from total score. The zone outcome is bookkeeping the
	// surrounding platform reads for notifications and cosmetics.

	// Open the next cycle for this pool.
	if _, err := s.League.GetOrCreateOpenPeriod(levelNumber); err != nil {
		log.Printf("⚠️ [ROLLOVER] Failed to open next period for level %d: %v", levelNumber, err)
	}

	// Winner bonus rides the ledger's idempotency: re-settling the same
	// period can never double-award it.
	if winner != "" {
		applied, _, err := s.Ledger.Award(winner, LeagueWinBonus, fmt.Sprintf("league_won:%s", periodID))
		if err != nil {
			log.Printf("⚠️ [ROLLOVER] Winner bonus for %s failed: %v", winner, err)
		} else if applied {
			if err := s.Stats.RecordLeagueWin(winner); err != nil {
				log.Printf("⚠️ [ROLLOVER] League win stat for %s failed: %v", winner, err)
			}
		}
	}

	return nil
}
