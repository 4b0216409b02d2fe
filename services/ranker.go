package services

import (
	"errors"
	"fmt"
	"sort"

	"coach-gamification-system/models"

	"gorm.io/gorm"
)

// RankerService computes ranked leaderboards with promotion/relegation zones.
// The ordering and zone policy live in pure functions over a membership
// snapshot, so display reads and settlement share one implementation and
// repeated calls on the same snapshot are deterministic.
type RankerService struct {
	DB     *gorm.DB
	Levels *LevelResolver
	League *LeagueService
}

func NewRankerService(db *gorm.DB, levels *LevelResolver, league *LeagueService) *RankerService {
	return &RankerService{DB: db, Levels: levels, League: league}
}

// RankMemberships orders a membership snapshot and assigns zones. Pure: the
// input is not mutated and no storage is touched.
//
// Ordering: score delta descending, then earliest first activity in the
// period (rewards earlier engagement), then user id ascending for a total,
// deterministic order.
func RankMemberships(memberships []models.LeagueMembership, level models.Level, topmost, bottommost bool) []models.RankedEntry {
	rows := make([]models.LeagueMembership, len(memberships))
	copy(rows, memberships)

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ScoreDelta != rows[j].ScoreDelta {
			return rows[i].ScoreDelta > rows[j].ScoreDelta
		}
		if !rows[i].FirstScoredAt.Equal(rows[j].FirstScoredAt) {
			return rows[i].FirstScoredAt.Before(rows[j].FirstScoredAt)
		}
		return rows[i].ExternalUserID < rows[j].ExternalUserID
	})

	entries := make([]models.RankedEntry, len(rows))
	for i, m := range rows {
		entries[i] = models.RankedEntry{
			Rank:           i + 1,
			ExternalUserID: m.ExternalUserID,
			ScoreDelta:     m.ScoreDelta,
			Zone:           models.ZoneNeutral,
		}
	}
	assignZones(entries, level, topmost, bottommost)
	return entries
}

// assignZones marks the top promotionCount entries for promotion and the
// bottom relegationCount for relegation. The topmost level promotes nobody,
// the bottommost relegates nobody, and a pool no bigger than
// promotion+relegation relegates nobody either — relegating most of a tiny
// pool would empty the league.
func assignZones(entries []models.RankedEntry, level models.Level, topmost, bottommost bool) {
	n := len(entries)

	if !topmost {
		for i := 0; i < level.PromotionCount && i < n; i++ {
			entries[i].Zone = models.ZonePromotion
		}
	}

	if bottommost || n <= level.PromotionCount+level.RelegationCount {
		return
	}
	for i := n - level.RelegationCount; i < n; i++ {
		entries[i].Zone = models.ZoneRelegation
	}
}

// Rank loads a consistent membership snapshot for the period and ranks it.
// Live display must not observe a half-settled period: a period in settling
// is refused and callers fall back to the recorded outcome rows.
func (s *RankerService) Rank(periodID string) ([]models.RankedEntry, error) {
	var period models.LeaguePeriod
	if err := s.DB.Where("id = ?", periodID).First(&period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, fmt.Errorf("failed to load period %s: %w", periodID, err)
	}
	if period.Status == models.PeriodStatusSettling {
		return nil, ErrPeriodSettling
	}
	return s.rankPeriod(&period)
}

// RankForSettlement ranks a period regardless of status. Only the settlement
// path (which holds the period's advisory lock) may use it.
func (s *RankerService) RankForSettlement(period *models.LeaguePeriod) ([]models.RankedEntry, error) {
	return s.rankPeriod(period)
}

func (s *RankerService) rankPeriod(period *models.LeaguePeriod) ([]models.RankedEntry, error) {
	level, err := s.Levels.ByNumber(period.LevelNumber)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.League.MembershipSnapshot(period.ID)
	if err != nil {
		return nil, err
	}
	topmost := level.Number == s.Levels.Topmost().Number
	bottommost := level.Number == s.Levels.Bottommost().Number
	return RankMemberships(snapshot, level, topmost, bottommost), nil
}

// LastKnownRanking rebuilds a ranking from the outcome rows of the most
// recently settled period for a level. Display degrades to this when the live
// pool is settling or unreadable. Outcome rows are written by the transaction
// that closes a period, so a settling period has none of its own yet — the
// last stable ranking is always the previous closed cycle's.
func (s *RankerService) LastKnownRanking(levelNumber int) ([]models.RankedEntry, error) {
	var period models.LeaguePeriod
	err := s.DB.Where("level_number = ? AND status = ?", levelNumber, models.PeriodStatusClosed).
		Order("start_time DESC").
		First(&period).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []models.RankedEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var outcomes []models.LeagueOutcome
	if err := s.DB.Where("league_period_id = ?", period.ID).
		Order("rank ASC").
		Find(&outcomes).Error; err != nil {
		return nil, err
	}
	return entriesFromOutcomes(outcomes), nil
}

// entriesFromOutcomes converts recorded outcome rows back into display
// entries, preserving their settled rank order.
func entriesFromOutcomes(outcomes []models.LeagueOutcome) []models.RankedEntry {
	entries := make([]models.RankedEntry, len(outcomes))
	for i, o := range outcomes {
		entries[i] = models.RankedEntry{
			Rank:           o.Rank,
			ExternalUserID: o.ExternalUserID,
			ScoreDelta:     o.ScoreDelta,
			Zone:           o.Zone,
		}
	}
	return entries
}
