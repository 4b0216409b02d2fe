package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"coach-gamification-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationService is the outbound surface toward the rest of the
// platform: badge earns and settlement outcomes land here as outbox rows and
// are consumed via the list endpoint or the SSE stream.
type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Emit writes one notification, deduplicated on the dedup key so idempotent
// re-runs (settlement retries, badge re-evaluation) never emit twice.
// Returns whether this call created the row.
func (s *NotificationService) Emit(userID string, kind models.NotificationKind, dedup string, payload interface{}) (bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	n := models.Notification{
		ExternalUserID: userID,
		Kind:           kind,
		Dedup:          dedup,
		Payload:        string(body),
	}
	res := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup"}},
		DoNothing: true,
	}).Create(&n)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// EmitTx is Emit inside an existing transaction.
func (s *NotificationService) EmitTx(tx *gorm.DB, userID string, kind models.NotificationKind, dedup string, payload interface{}) (bool, error) {
	return (&NotificationService{DB: tx}).Emit(userID, kind, dedup, payload)
}

// ListForUser returns the newest notifications first.
func (s *NotificationService) ListForUser(userID string, limit int) ([]models.Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var rows []models.Notification
	err := s.DB.Where("external_user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkViewed flags a notification as seen by its owner.
func (s *NotificationService) MarkViewed(userID, notificationID string) error {
	res := s.DB.Model(&models.Notification{}).
		Where("id = ? AND external_user_id = ?", notificationID, userID).
		Update("viewed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// StreamUserNotificationsSSE streams new notifications for the authenticated
// user as server-sent events.
func (s *NotificationService) StreamUserNotificationsSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxCreatedAt time.Time

		// Initialize cursor
		var latest models.Notification
		if err := s.DB.
			Where("external_user_id = ?", userID).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			lastMaxCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for user %s: %v", userID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var fresh []models.Notification
				err := s.DB.
					Where("external_user_id = ?", userID).
					Where("created_at > ?", lastMaxCreatedAt).
					Order("created_at ASC").
					Find(&fresh).Error
				if err != nil {
					log.Printf("SSE query error for user %s: %v", userID, err)
					continue
				}
				if len(fresh) == 0 {
					continue
				}
				lastMaxCreatedAt = fresh[len(fresh)-1].CreatedAt

				for _, n := range fresh {
					payload, _ := json.Marshal(n)
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Kind, payload)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
