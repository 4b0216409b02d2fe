package models

import (
	"time"
)

// ScoreEvent is one append-only point award. Rows are never updated or
// deleted; corrections are new events with a negative amount under the
// "correction:" namespace. The composite unique index on
// (external_user_id, reason_key) is the idempotency guarantee: concurrent
// awards with the same key race on the insert and the loser is a no-op.
type ScoreEvent struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"not null;uniqueIndex:idx_score_events_user_reason,priority:1" json:"external_user_id"`
	ReasonKey      string `gorm:"not null;uniqueIndex:idx_score_events_user_reason,priority:2" json:"reason_key"` // e.g., "read_blog:post_42"
	Amount         int64  `gorm:"not null" json:"amount"`                                                         // negative for admin corrections

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// ScoreTotal caches SUM(amount) over a user's score events for read
// performance. Never authoritative ahead of the ledger: a missing row is
// replayed from the events on read, and a nightly job rewrites any row that
// has drifted from the event sum.
type ScoreTotal struct {
	ExternalUserID string    `gorm:"primaryKey" json:"external_user_id"`
	Total          int64     `gorm:"default:0" json:"total"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
