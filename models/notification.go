package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationKind distinguishes outbound event payloads
type NotificationKind string

const (
	NotificationBadgeEarned   NotificationKind = "badge_earned"
	NotificationLeagueSettled NotificationKind = "league_settled"
)

// Notification is the outbox row the surrounding platform consumes (list
// endpoint + SSE stream). Settlement and badge awards write these inside the
// same flow that produced them; the unique Dedup key keeps idempotent re-runs
// from emitting duplicates.
type Notification struct {
	ID             string           `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string           `gorm:"index;not null" json:"external_user_id"`
	Kind           NotificationKind `gorm:"type:varchar(32);not null" json:"kind"`
	Dedup          string           `gorm:"uniqueIndex;not null" json:"-"` // e.g., "badge:<user>:<slug>", "settle:<period>:<user>"
	Payload        string           `gorm:"type:jsonb" json:"payload"`     // kind-specific JSON body
	Viewed         bool             `gorm:"default:false;index" json:"viewed"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
