package services

import (
	"testing"
	"time"
)

func TestPeriodBounds_WeeklyAlignsToMonday(t *testing.T) {
	// Thursday afternoon
	at := time.Date(2026, 3, 5, 15, 30, 0, 0, time.UTC)
	start, end := PeriodBounds(at, DefaultPeriodDuration)

	wantStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // Monday
	if !start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantStart.AddDate(0, 0, 7)) {
		t.Fatalf("end = %v, want one week after start", end)
	}
}

func TestPeriodBounds_MondayIsItsOwnStart(t *testing.T) {
	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	start, _ := PeriodBounds(at, DefaultPeriodDuration)
	if !start.Equal(at) {
		t.Fatalf("start = %v, want %v", start, at)
	}
}

func TestPeriodBounds_SundayBelongsToPrecedingWeek(t *testing.T) {
	at := time.Date(2026, 3, 8, 23, 59, 59, 0, time.UTC) // Sunday night
	start, end := PeriodBounds(at, DefaultPeriodDuration)

	wantStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", start, wantStart)
	}
	if !at.Before(end) {
		t.Fatalf("Sunday night must fall inside the window ending %v", end)
	}
}

func TestPeriodBounds_EndIsExclusiveNextStart(t *testing.T) {
	at := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	_, end := PeriodBounds(at, DefaultPeriodDuration)

	nextStart, _ := PeriodBounds(end, DefaultPeriodDuration)
	if !nextStart.Equal(end) {
		t.Fatalf("next window must begin exactly at the previous end: %v != %v", nextStart, end)
	}
}

func TestPeriodBounds_CustomDurationTiles(t *testing.T) {
	duration := 48 * time.Hour
	at := time.Date(2026, 3, 5, 7, 45, 0, 0, time.UTC)
	start, end := PeriodBounds(at, duration)

	if start.After(at) || !at.Before(end) {
		t.Fatalf("t must fall in [start, end): %v not in [%v, %v)", at, start, end)
	}
	if end.Sub(start) != duration {
		t.Fatalf("window length = %v, want %v", end.Sub(start), duration)
	}
	// Identical input always lands in the identical window
	start2, _ := PeriodBounds(at.Add(time.Minute), duration)
	if !start2.Equal(start) {
		t.Fatalf("nearby time resolved to a different window: %v != %v", start2, start)
	}
}
