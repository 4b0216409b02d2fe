package models

// Level: static config (loaded from JSON or the defaults below). Levels are
// an ordered list of contiguous score bands covering [0, ∞); the last band is
// open-ended (MaxScore = 0 means no upper bound). A user's level is always
// derived from their total score — it is never stored.
type Level struct {
	Number          int    `json:"number"`            // 1-based tier
	Name            string `json:"name"`              // "Bronze", "Silver", ...
	Slug            string `json:"slug"`              // derived from Name if empty
	MinScore        int64  `json:"min_score"`         // inclusive
	MaxScore        int64  `json:"max_score"`         // exclusive; 0 = open-ended
	PromotionCount  int    `json:"promotion_count"`   // zone size at period end
	RelegationCount int    `json:"relegation_count"`
}

// DefaultLevels mirrors the coaching platform's progression tiers.
// Overridable via LEVELS_CONFIG_PATH.
var DefaultLevels = []Level{
	{Number: 1, Name: "Bronze", MinScore: 0, MaxScore: 500, PromotionCount: 5, RelegationCount: 5},
	{Number: 2, Name: "Silver", MinScore: 500, MaxScore: 1500, PromotionCount: 5, RelegationCount: 5},
	{Number: 3, Name: "Gold", MinScore: 1500, MaxScore: 4000, PromotionCount: 5, RelegationCount: 5},
	{Number: 4, Name: "Platinum", MinScore: 4000, MaxScore: 10000, PromotionCount: 5, RelegationCount: 5},
	{Number: 5, Name: "Diamond", MinScore: 10000, MaxScore: 0, PromotionCount: 5, RelegationCount: 5},
}
