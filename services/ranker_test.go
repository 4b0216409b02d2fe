package services

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"coach-gamification-system/models"
)

func membership(user string, delta int64, firstScored time.Time) models.LeagueMembership {
	return models.LeagueMembership{
		LeaguePeriodID: "period-1",
		ExternalUserID: user,
		ScoreDelta:     delta,
		FirstScoredAt:  firstScored,
	}
}

func midLevel() models.Level {
	return models.Level{Number: 2, Name: "Silver", PromotionCount: 5, RelegationCount: 5}
}

func poolOf(n int) []models.LeagueMembership {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	pool := make([]models.LeagueMembership, 0, n)
	for i := 0; i < n; i++ {
		// user-01 has the highest delta, descending from there
		pool = append(pool, membership(
			fmt.Sprintf("user-%02d", i+1),
			int64((n-i)*10),
			base.Add(time.Duration(i)*time.Minute),
		))
	}
	return pool
}

func TestRankMemberships_OrdersByDeltaDesc(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	pool := []models.LeagueMembership{
		membership("u-low", 10, now),
		membership("u-high", 90, now),
		membership("u-mid", 40, now),
	}

	entries := RankMemberships(pool, midLevel(), false, false)

	wantOrder := []string{"u-high", "u-mid", "u-low"}
	for i, want := range wantOrder {
		if entries[i].ExternalUserID != want {
			t.Fatalf("rank %d = %s, want %s", i+1, entries[i].ExternalUserID, want)
		}
		if entries[i].Rank != i+1 {
			t.Fatalf("expected 1-based rank %d, got %d", i+1, entries[i].Rank)
		}
	}
}

func TestRankMemberships_TieBreaksOnFirstActivityThenUserID(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	pool := []models.LeagueMembership{
		membership("u-late", 50, now.Add(time.Hour)),
		membership("u-early", 50, now),
		// same delta and same first activity: user id ascending decides
		membership("u-b", 30, now),
		membership("u-a", 30, now),
	}

	entries := RankMemberships(pool, midLevel(), false, false)

	wantOrder := []string{"u-early", "u-late", "u-a", "u-b"}
	for i, want := range wantOrder {
		if entries[i].ExternalUserID != want {
			t.Fatalf("rank %d = %s, want %s", i+1, entries[i].ExternalUserID, want)
		}
	}
}

func TestRankMemberships_Deterministic(t *testing.T) {
	pool := poolOf(12)
	first := RankMemberships(pool, midLevel(), false, false)
	for i := 0; i < 5; i++ {
		again := RankMemberships(pool, midLevel(), false, false)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced a different ranking", i)
		}
	}
}

func TestRankMemberships_DoesNotMutateInput(t *testing.T) {
	pool := poolOf(6)
	snapshot := make([]models.LeagueMembership, len(pool))
	copy(snapshot, pool)

	RankMemberships(pool, midLevel(), false, false)

	if !reflect.DeepEqual(pool, snapshot) {
		t.Fatalf("input snapshot was mutated")
	}
}

func TestRankMemberships_ZonesWithFullPool(t *testing.T) {
	// 12 members, promotion 5, relegation 5: ranks 1–5 promote, 6–7 neutral,
	// 8–12 relegate.
	entries := RankMemberships(poolOf(12), midLevel(), false, false)

	for _, e := range entries {
		var want string
		switch {
		case e.Rank <= 5:
			want = models.ZonePromotion
		case e.Rank <= 7:
			want = models.ZoneNeutral
		default:
			want = models.ZoneRelegation
		}
		if e.Zone != want {
			t.Fatalf("rank %d zone = %s, want %s", e.Rank, e.Zone, want)
		}
	}
}

func TestRankMemberships_SmallPoolSkipsRelegation(t *testing.T) {
	// 8 members ≤ promotion+relegation: nobody relegates.
	entries := RankMemberships(poolOf(8), midLevel(), false, false)

	for _, e := range entries {
		if e.Zone == models.ZoneRelegation {
			t.Fatalf("rank %d relegated from a pool of 8", e.Rank)
		}
		if e.Rank <= 5 && e.Zone != models.ZonePromotion {
			t.Fatalf("rank %d should still promote, got %s", e.Rank, e.Zone)
		}
	}
}

func TestRankMemberships_TopmostLevelHasNoPromotion(t *testing.T) {
	entries := RankMemberships(poolOf(12), midLevel(), true, false)

	for _, e := range entries {
		if e.Zone == models.ZonePromotion {
			t.Fatalf("rank %d promoted out of the topmost level", e.Rank)
		}
	}
	if entries[len(entries)-1].Zone != models.ZoneRelegation {
		t.Fatalf("topmost level should still relegate its bottom")
	}
}

func TestRankMemberships_BottommostLevelHasNoRelegation(t *testing.T) {
	entries := RankMemberships(poolOf(12), midLevel(), false, true)

	for _, e := range entries {
		if e.Zone == models.ZoneRelegation {
			t.Fatalf("rank %d relegated from the bottommost level", e.Rank)
		}
	}
	if entries[0].Zone != models.ZonePromotion {
		t.Fatalf("bottommost level should still promote its top")
	}
}

func TestRankMemberships_PromotionZoneNeverExceedsPool(t *testing.T) {
	entries := RankMemberships(poolOf(3), midLevel(), false, false)

	promoted := 0
	for _, e := range entries {
		if e.Zone == models.ZonePromotion {
			promoted++
		}
	}
	if promoted != 3 {
		t.Fatalf("expected all 3 members in promotion zone, got %d", promoted)
	}
}

func TestRankMemberships_EmptyPool(t *testing.T) {
	entries := RankMemberships(nil, midLevel(), false, false)
	if len(entries) != 0 {
		t.Fatalf("expected empty ranking, got %d entries", len(entries))
	}
}

func TestEntriesFromOutcomes_RebuildsSettledRanking(t *testing.T) {
	outcomes := []models.LeagueOutcome{
		{LeaguePeriodID: "closed-period", ExternalUserID: "user-a", Rank: 1, ScoreDelta: 300, Zone: models.ZonePromotion},
		{LeaguePeriodID: "closed-period", ExternalUserID: "user-b", Rank: 2, ScoreDelta: 120, Zone: models.ZoneNeutral},
		{LeaguePeriodID: "closed-period", ExternalUserID: "user-c", Rank: 3, ScoreDelta: 10, Zone: models.ZoneRelegation},
	}

	entries := entriesFromOutcomes(outcomes)

	if len(entries) != len(outcomes) {
		t.Fatalf("got %d entries, want %d", len(entries), len(outcomes))
	}
	for i, o := range outcomes {
		e := entries[i]
		if e.Rank != o.Rank || e.ExternalUserID != o.ExternalUserID ||
			e.ScoreDelta != o.ScoreDelta || e.Zone != o.Zone {
			t.Fatalf("entry %d = %+v does not match outcome %+v", i, e, o)
		}
	}
}

func TestEntriesFromOutcomes_NoOutcomesYieldsEmptyRanking(t *testing.T) {
	if entries := entriesFromOutcomes(nil); len(entries) != 0 {
		t.Fatalf("expected empty ranking, got %d entries", len(entries))
	}
}
