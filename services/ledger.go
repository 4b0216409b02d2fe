package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode"

	"coach-gamification-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CorrectionNamespace prefixes reason keys of administrative corrections.
// Every correction carries a fresh audit id, so corrections never collide on
// the idempotency index with regular awards or with each other.
const CorrectionNamespace = "correction"

const maxReasonKeyLen = 255

// LedgerService is the source of truth for scores: an append-only event log
// plus a self-healing cached total per user.
type LedgerService struct {
	DB     *gorm.DB
	Levels *LevelResolver
	League *LeagueService
	Stats  *StatsService
	Badges *BadgeEngine
}

func NewLedgerService(db *gorm.DB, levels *LevelResolver, league *LeagueService, stats *StatsService, badges *BadgeEngine) *LedgerService {
	return &LedgerService{DB: db, Levels: levels, League: league, Stats: stats, Badges: badges}
}

// ValidateReasonKey rejects malformed keys before anything touches storage.
// Keys are "namespace:detail", e.g. "read_blog:post_42".
func ValidateReasonKey(key string) error {
	if key == "" || len(key) > maxReasonKeyLen {
		return ErrInvalidReasonKey
	}
	idx := strings.IndexByte(key, ':')
	if idx <= 0 || idx == len(key)-1 {
		return ErrInvalidReasonKey
	}
	for _, r := range key {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r > unicode.MaxASCII {
			return ErrInvalidReasonKey
		}
	}
	return nil
}

// Award appends one score event for (userID, reasonKey) and returns the new
// total. If an event with the same key already exists the call is a no-op:
// applied=false, total unchanged. The insert races on the unique index, so
// the guarantee holds under concurrent calls — no retry loop needed, the
// desired outcome on conflict is simply "do nothing".
func (s *LedgerService) Award(userID string, amount int64, reasonKey string) (applied bool, newTotal int64, err error) {
	if err := ValidateReasonKey(reasonKey); err != nil {
		return false, 0, err
	}

	// This engine never creates users.
	var member models.MemberProfile
	if err := s.DB.Where("external_user_id = ?", userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, 0, ErrUnknownUser
		}
		return false, 0, fmt.Errorf("failed to look up member %s: %w", userID, err)
	}

	prevTotal, err := s.GetTotal(userID)
	if err != nil {
		return false, 0, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		event := models.ScoreEvent{
			ExternalUserID: userID,
			ReasonKey:      reasonKey,
			Amount:         amount,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "reason_key"}},
			DoNothing: true,
		}).Create(&event)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			applied = false
			newTotal = prevTotal
			return nil
		}
		applied = true

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"total": gorm.Expr("score_totals.total + ?", amount)}),
		}).Create(&models.ScoreTotal{ExternalUserID: userID, Total: amount}).Error; err != nil {
			return err
		}

		var total models.ScoreTotal
		if err := tx.Where("external_user_id = ?", userID).First(&total).Error; err != nil {
			return err
		}
		newTotal = total.Total
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to award %d to %s: %w", amount, userID, err)
	}
	if !applied {
		log.Printf("[LEDGER] Duplicate award ignored: user=%s reason=%s", userID, reasonKey)
		return false, newTotal, nil
	}

	log.Printf("🏅 [LEDGER] Awarded %d to %s (reason=%s, total=%d)", amount, userID, reasonKey, newTotal)

	// Positive awards count toward the league pool the user was competing in
	// while earning them. Corrections never touch league standings.
	if amount > 0 {
		level := s.Levels.Resolve(prevTotal)
		if err := s.League.RecordActivity(userID, level.Number, amount); err != nil {
			log.Printf("⚠️ [LEDGER] League activity for %s failed: %v", userID, err)
		}
	}

	if err := s.Stats.SetTotalScore(userID, newTotal); err != nil {
		log.Printf("⚠️ [LEDGER] Stats update for %s failed: %v", userID, err)
	}
	if err := s.Badges.OnStatChange(userID, "total_score", newTotal); err != nil {
		log.Printf("⚠️ [LEDGER] Badge evaluation for %s failed: %v", userID, err)
	}

	return true, newTotal, nil
}

// Correct appends an administrative correction (positive or negative). The
// audit id namespaces the key so distinct corrections never collide.
func (s *LedgerService) Correct(userID string, amount int64, auditID string) (int64, error) {
	if auditID == "" {
		return 0, ErrInvalidReasonKey
	}
	applied, total, err := s.Award(userID, amount, CorrectionNamespace+":"+auditID)
	if err != nil {
		return 0, err
	}
	if !applied {
		return total, fmt.Errorf("correction %s already applied", auditID)
	}
	return total, nil
}

// GetTotal returns the cached total, self-healing by replaying the ledger
// when the cache row is missing.
func (s *LedgerService) GetTotal(userID string) (int64, error) {
	var total models.ScoreTotal
	err := s.DB.Where("external_user_id = ?", userID).First(&total).Error
	if err == nil {
		return total.Total, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to read score total for %s: %w", userID, err)
	}
	return s.RecomputeTotal(userID)
}

// RecomputeTotal replays SUM(amount) over the event log and rewrites the
// cache. The ledger is authoritative; the cache never is.
func (s *LedgerService) RecomputeTotal(userID string) (int64, error) {
	var sum int64
	if err := s.DB.Model(&models.ScoreEvent{}).
		Where("external_user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("failed to replay ledger for %s: %w", userID, err)
	}

	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"total": sum}),
	}).Create(&models.ScoreTotal{ExternalUserID: userID, Total: sum}).Error; err != nil {
		return 0, fmt.Errorf("failed to rewrite score total for %s: %w", userID, err)
	}
	return sum, nil
}

// ReconcileTotals rewrites every cached total that disagrees with the event
// sum. Award maintains the cache in the same transaction as the event, so
// drift only comes from out-of-band edits or bugs; the nightly pass keeps
// those from persisting. Run by the scheduler.
func (s *LedgerService) ReconcileTotals() error {
	var drifted []string
	if err := s.DB.Raw(`
		SELECT t.external_user_id
		FROM score_totals t
		LEFT JOIN score_events e ON e.external_user_id = t.external_user_id
		GROUP BY t.external_user_id, t.total
		HAVING t.total <> COALESCE(SUM(e.amount), 0)`).
		Scan(&drifted).Error; err != nil {
		return err
	}
	for _, userID := range drifted {
		if _, err := s.RecomputeTotal(userID); err != nil {
			log.Printf("⚠️ [LEDGER] Reconcile failed for %s: %v", userID, err)
		}
	}
	if len(drifted) > 0 {
		log.Printf("✅ [LEDGER] Reconciled %d drifted total(s)", len(drifted))
	}
	return nil
}
