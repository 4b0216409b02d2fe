package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"coach-gamification-system/models"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LevelResolver maps a total score to its Level. The band list is immutable
// after construction, so Resolve is pure and safe for concurrent use.
type LevelResolver struct {
	levels []models.Level // ordered by Number, bands contiguous
}

// NewLevelResolver validates the band configuration once. Any violation is a
// configuration error the caller should treat as fatal at startup — Resolve
// itself has no failure modes.
func NewLevelResolver(levels []models.Level) (*LevelResolver, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("level config: at least one level required")
	}

	sorted := make([]models.Level, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	titler := cases.Title(language.English)
	for i := range sorted {
		l := &sorted[i]
		if l.Number != i+1 {
			return nil, fmt.Errorf("level config: numbers must be 1..n without gaps, got %d at position %d", l.Number, i)
		}
		if l.Name == "" {
			return nil, fmt.Errorf("level config: level %d has no name", l.Number)
		}
		if l.Slug == "" {
			l.Slug = slug.Make(l.Name)
		}
		l.Name = titler.String(strings.ToLower(l.Name))
		if l.PromotionCount < 0 || l.RelegationCount < 0 {
			return nil, fmt.Errorf("level config: level %d has negative zone count", l.Number)
		}

		if i == 0 {
			if l.MinScore != 0 {
				return nil, fmt.Errorf("level config: first band must start at 0, got %d", l.MinScore)
			}
		} else if l.MinScore != sorted[i-1].MaxScore {
			return nil, fmt.Errorf("level config: band %d must start where band %d ends (%d != %d)",
				l.Number, l.Number-1, l.MinScore, sorted[i-1].MaxScore)
		}

		if i == len(sorted)-1 {
			if l.MaxScore != 0 {
				return nil, fmt.Errorf("level config: last band must be open-ended (max_score 0), got %d", l.MaxScore)
			}
		} else if l.MaxScore <= l.MinScore {
			return nil, fmt.Errorf("level config: band %d is empty or inverted [%d, %d)", l.Number, l.MinScore, l.MaxScore)
		}
	}

	for i := range sorted {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[i].Slug == sorted[j].Slug {
				return nil, fmt.Errorf("level config: duplicate slug %q", sorted[i].Slug)
			}
		}
	}

	return &LevelResolver{levels: sorted}, nil
}

// Resolve returns the single level whose band contains score. Negative scores
// (possible after corrections) clamp to the first band.
func (r *LevelResolver) Resolve(score int64) models.Level {
	if score < 0 {
		score = 0
	}
	// First level whose band ends above score; the last band never ends.
	i := sort.Search(len(r.levels), func(i int) bool {
		l := r.levels[i]
		return l.MaxScore == 0 || score < l.MaxScore
	})
	return r.levels[i]
}

// Levels returns the ordered band list (read-only by convention).
func (r *LevelResolver) Levels() []models.Level {
	return r.levels
}

// BySlug looks up a level by its URL slug.
func (r *LevelResolver) BySlug(s string) (models.Level, error) {
	for _, l := range r.levels {
		if l.Slug == s {
			return l, nil
		}
	}
	return models.Level{}, ErrUnknownLevel
}

// ByNumber looks up a level by tier number.
func (r *LevelResolver) ByNumber(n int) (models.Level, error) {
	if n < 1 || n > len(r.levels) {
		return models.Level{}, ErrUnknownLevel
	}
	return r.levels[n-1], nil
}

// Topmost and Bottommost bound the promotion/relegation policy: the top level
// has no promotion zone, the bottom level no relegation zone.
func (r *LevelResolver) Topmost() models.Level    { return r.levels[len(r.levels)-1] }
func (r *LevelResolver) Bottommost() models.Level { return r.levels[0] }

// LoadLevels reads the band table from the JSON file at path, falling back to
// models.DefaultLevels when path is empty.
func LoadLevels(path string) ([]models.Level, error) {
	if path == "" {
		return models.DefaultLevels, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read level config %s: %w", path, err)
	}
	var levels []models.Level
	if err := json.Unmarshal(data, &levels); err != nil {
		return nil, fmt.Errorf("failed to parse level config %s: %w", path, err)
	}
	return levels, nil
}
