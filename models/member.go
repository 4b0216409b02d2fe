package models

import (
	"time"

	"gorm.io/gorm"
)

// MemberProfile is a local snapshot of user data needed for leaderboards and
// summaries. Owned and managed solely by the gamification service.
// Populated via sync worker from the Profile Service's user table — this
// service never creates or deletes users, only mirrors them.
type MemberProfile struct {
	ID             string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"` // The profile service's UUID
	Username       string  `gorm:"index;not null" json:"username"`
	DisplayName    string  `json:"display_name"`
	AvatarURL      *string `json:"avatar_url,omitempty"`
	AccountStatus  string  `gorm:"type:varchar(16);default:'active'" json:"account_status"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Soft delete mirrors deactivation upstream; scores/badges survive it.
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
