package services

import (
	"testing"

	"coach-gamification-system/models"
)

func testBands() []models.Level {
	return []models.Level{
		{Number: 1, Name: "Starter", MinScore: 0, MaxScore: 100, PromotionCount: 5, RelegationCount: 5},
		{Number: 2, Name: "Climber", MinScore: 100, MaxScore: 500, PromotionCount: 5, RelegationCount: 5},
		{Number: 3, Name: "Elite", MinScore: 500, MaxScore: 0, PromotionCount: 5, RelegationCount: 5},
	}
}

func TestNewLevelResolver_ValidBands(t *testing.T) {
	r, err := NewLevelResolver(testBands())
	if err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	if got := len(r.Levels()); got != 3 {
		t.Fatalf("expected 3 levels, got %d", got)
	}
	if r.Bottommost().Number != 1 || r.Topmost().Number != 3 {
		t.Fatalf("unexpected bounds: bottom=%d top=%d", r.Bottommost().Number, r.Topmost().Number)
	}
}

func TestNewLevelResolver_DerivesSlugs(t *testing.T) {
	r, err := NewLevelResolver(testBands())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l, err := r.BySlug("climber")
	if err != nil {
		t.Fatalf("expected slug lookup to succeed: %v", err)
	}
	if l.Number != 2 {
		t.Fatalf("expected level 2, got %d", l.Number)
	}
}

func TestNewLevelResolver_RejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name   string
		mutate func([]models.Level) []models.Level
	}{
		{"empty", func([]models.Level) []models.Level { return nil }},
		{"first band not at zero", func(ls []models.Level) []models.Level {
			ls[0].MinScore = 10
			return ls
		}},
		{"gap between bands", func(ls []models.Level) []models.Level {
			ls[1].MinScore = 150
			return ls
		}},
		{"overlapping bands", func(ls []models.Level) []models.Level {
			ls[1].MinScore = 50
			return ls
		}},
		{"last band bounded", func(ls []models.Level) []models.Level {
			ls[2].MaxScore = 1000
			return ls
		}},
		{"duplicate number", func(ls []models.Level) []models.Level {
			ls[1].Number = 1
			return ls
		}},
		{"missing name", func(ls []models.Level) []models.Level {
			ls[0].Name = ""
			return ls
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewLevelResolver(tc.mutate(testBands())); err == nil {
				t.Fatalf("expected config error")
			}
		})
	}
}

func TestResolve_BandBoundaries(t *testing.T) {
	r, err := NewLevelResolver(testBands())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		score int64
		want  int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{499, 2},
		{500, 3},
		{1_000_000, 3},
		{-20, 1}, // corrections can push totals negative; clamp to the first band
	}
	for _, tc := range cases {
		if got := r.Resolve(tc.score).Number; got != tc.want {
			t.Fatalf("Resolve(%d) = level %d, want %d", tc.score, got, tc.want)
		}
	}
}

func TestResolve_EveryScoreMapsToExactlyOneLevel(t *testing.T) {
	r, err := NewLevelResolver(testBands())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for s := int64(0); s < 2000; s++ {
		l := r.Resolve(s)
		if s < l.MinScore {
			t.Fatalf("score %d resolved below band [%d, %d)", s, l.MinScore, l.MaxScore)
		}
		if l.MaxScore != 0 && s >= l.MaxScore {
			t.Fatalf("score %d resolved above band [%d, %d)", s, l.MinScore, l.MaxScore)
		}
	}
}

func TestDefaultLevels_AreValid(t *testing.T) {
	if _, err := NewLevelResolver(models.DefaultLevels); err != nil {
		t.Fatalf("default level table must validate: %v", err)
	}
}
