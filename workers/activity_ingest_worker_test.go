package workers

import (
	"testing"

	"coach-gamification-system/services"
)

func TestReasonKeyFor_PlainKinds(t *testing.T) {
	got := ReasonKeyFor("workout_completed", "w-42")
	if got != "workout_completed:w-42" {
		t.Fatalf("got %q", got)
	}
}

func TestReasonKeyFor_NormalizesUpstreamKinds(t *testing.T) {
	cases := []struct {
		kind, id, want string
	}{
		{"Meal Logged", "m-1", "meal_logged:m-1"},
		{"entraînement", "w-2", "entrainement:w-2"},
		{"blog:read", "p-3", "blog_read:p-3"},
		{"", "x-4", "activity:x-4"},
	}
	for _, tc := range cases {
		if got := ReasonKeyFor(tc.kind, tc.id); got != tc.want {
			t.Fatalf("ReasonKeyFor(%q, %q) = %q, want %q", tc.kind, tc.id, got, tc.want)
		}
	}
}

func TestReasonKeyFor_ProducesValidLedgerKeys(t *testing.T) {
	kinds := []string{"meal_logged", "Shared Recipe", "übung", "blog:read"}
	for _, kind := range kinds {
		key := ReasonKeyFor(kind, "id-123")
		if err := services.ValidateReasonKey(key); err != nil {
			t.Fatalf("key %q from kind %q fails ledger validation: %v", key, kind, err)
		}
	}
}
