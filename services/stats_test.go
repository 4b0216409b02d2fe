package services

import (
	"testing"
	"time"
)

func TestNextStreak_FirstActivityStartsAtOne(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if got := NextStreak(nil, now, 0); got != 1 {
		t.Fatalf("NextStreak(nil) = %d, want 1", got)
	}
}

func TestNextStreak_SameDayKeepsStreak(t *testing.T) {
	morning := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC)
	if got := NextStreak(&morning, evening, 4); got != 4 {
		t.Fatalf("same-day streak = %d, want 4", got)
	}
}

func TestNextStreak_NextDayExtends(t *testing.T) {
	yesterday := time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)
	if got := NextStreak(&yesterday, today, 4); got != 5 {
		t.Fatalf("next-day streak = %d, want 5", got)
	}
}

func TestNextStreak_MissedDayResets(t *testing.T) {
	monday := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	wednesday := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	if got := NextStreak(&monday, wednesday, 9); got != 1 {
		t.Fatalf("streak after a gap = %d, want 1", got)
	}
}
