package services

import (
	"errors"
	"log"
	"time"
)

// SummaryService composes the read surface every dashboard widget consumes:
// a single consistent view of score, level, league standing and badges.
// Presentation code holds no gamification rules of its own.
type SummaryService struct {
	Ledger *LedgerService
	Levels *LevelResolver
	League *LeagueService
	Ranker *RankerService
	Badges *BadgeEngine
}

func NewSummaryService(ledger *LedgerService, levels *LevelResolver, league *LeagueService, ranker *RankerService, badges *BadgeEngine) *SummaryService {
	return &SummaryService{Ledger: ledger, Levels: levels, League: league, Ranker: ranker, Badges: badges}
}

// LevelView is the display shape of a resolved level.
type LevelView struct {
	Number    int    `json:"number"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	MinScore  int64  `json:"min_score"`
	MaxScore  int64  `json:"max_score"` // 0 = open-ended
	ToNext    int64  `json:"to_next"`   // points until the next band; 0 at the top
}

// LeagueView is the user's standing in their current period.
type LeagueView struct {
	PeriodID  string     `json:"period_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    string     `json:"status"`
	Rank      int        `json:"rank,omitempty"` // 0 = not ranked yet this period
	Zone      string     `json:"zone,omitempty"`
	PoolSize  int        `json:"pool_size"`
	LastZone  string     `json:"last_zone,omitempty"` // outcome of the previous period
}

// Summary bundles everything a profile widget needs in one read.
type Summary struct {
	ExternalUserID string              `json:"external_user_id"`
	TotalScore     int64               `json:"total_score"`
	Level          LevelView           `json:"level"`
	League         *LeagueView         `json:"league,omitempty"`
	Badges         []BadgeProgressView `json:"badges"`
}

// GetUserSummary assembles the gamification summary for one user. League rank
// falls back to the last recorded outcome when the live pool cannot be
// ranked — the display path never errors on a settling period.
func (s *SummaryService) GetUserSummary(userID string) (*Summary, error) {
	total, err := s.Ledger.GetTotal(userID)
	if err != nil {
		return nil, err
	}
	level := s.Levels.Resolve(total)

	view := LevelView{
		Number:   level.Number,
		Name:     level.Name,
		Slug:     level.Slug,
		MinScore: level.MinScore,
		MaxScore: level.MaxScore,
	}
	if level.MaxScore > 0 {
		view.ToNext = level.MaxScore - total
	}

	summary := &Summary{
		ExternalUserID: userID,
		TotalScore:     total,
		Level:          view,
	}

	period, _, err := s.League.CurrentMembership(userID, level.Number)
	if err != nil {
		log.Printf("⚠️ [SUMMARY] League lookup for %s failed: %v", userID, err)
	} else if period != nil {
		lv := &LeagueView{
			PeriodID:  period.ID,
			StartTime: period.StartTime,
			EndTime:   period.EndTime,
			Status:    period.Status,
		}

		entries, rankErr := s.Ranker.Rank(period.ID)
		if rankErr != nil && !errors.Is(rankErr, ErrPeriodSettling) {
			log.Printf("⚠️ [SUMMARY] Ranking for %s failed, degrading: %v", period.ID, rankErr)
		}
		if rankErr != nil {
			entries, _ = s.Ranker.LastKnownRanking(level.Number)
		}
		lv.PoolSize = len(entries)
		for _, e := range entries {
			if e.ExternalUserID == userID {
				lv.Rank = e.Rank
				lv.Zone = e.Zone
				break
			}
		}

		if outcome, err := s.League.LastOutcome(userID, level.Number); err == nil && outcome != nil {
			lv.LastZone = outcome.Zone
		}
		summary.League = lv
	}

	badges, err := s.Badges.ListForUser(userID)
	if err != nil {
		return nil, err
	}
	summary.Badges = badges

	return summary, nil
}
