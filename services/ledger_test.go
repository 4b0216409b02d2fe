package services

import (
	"strings"
	"testing"
)

func TestValidateReasonKey_AcceptsWellFormedKeys(t *testing.T) {
	valid := []string{
		"read_blog:post_42",
		"workout_completed:w-9f3a",
		"correction:7d1c2e",
		"league_won:period-abc",
	}
	for _, key := range valid {
		if err := ValidateReasonKey(key); err != nil {
			t.Fatalf("ValidateReasonKey(%q) = %v, want nil", key, err)
		}
	}
}

func TestValidateReasonKey_RejectsMalformedKeys(t *testing.T) {
	invalid := []string{
		"",
		"no_namespace",
		":leading_colon",
		"trailing_colon:",
		"has space:x",
		"has\ttab:x",
		"unicode:café",
		"ctrl:\x01byte",
		"long:" + strings.Repeat("a", 300),
	}
	for _, key := range invalid {
		if err := ValidateReasonKey(key); err == nil {
			t.Fatalf("ValidateReasonKey(%q) = nil, want error", key)
		}
	}
}
