// workers/activity_ingest_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"coach-gamification-system/services"

	"github.com/gosimple/unidecode"
)

// ActivityEvent is one coaching-platform activity (meal logged, workout
// completed, blog read, share) fetched from the activity feed.
type ActivityEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	Points     int64     `json:"points"`
	Social     bool      `json:"social"`
	OccurredAt time.Time `json:"occurred_at"`
}

// GetActivitiesResponse is the top-level structure of the feed response.
type GetActivitiesResponse struct {
	Activities []ActivityEvent `json:"activities"`
}

// ActivityIngestClient polls the platform's activity feed and turns each
// activity into an idempotent point award. Replaying a batch is harmless:
// the reason key carries the activity id, so the ledger drops duplicates.
type ActivityIngestClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Ledger     *services.LedgerService
	Stats      *services.StatsService
}

func NewActivityIngestClient(ledger *services.LedgerService, stats *services.StatsService) *ActivityIngestClient {
	baseURL := os.Getenv("ACTIVITY_FEED_URL")
	if baseURL == "" {
		log.Fatal("ACTIVITY_FEED_URL environment variable is required")
	}
	token := os.Getenv("GAMIFICATION_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("GAMIFICATION_SERVICE_TOKEN environment variable is required for activity ingest")
	}

	return &ActivityIngestClient{
		BaseURL: baseURL,
		Token:   token,
		Ledger:  ledger,
		Stats:   stats,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetChangedActivities fetches feed entries since the cursor.
func (c *ActivityIngestClient) GetChangedActivities(ctx context.Context, since time.Time) ([]ActivityEvent, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/activities", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("activity feed request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("activity feed non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response GetActivitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode activity feed response: %w", err)
	}
	return response.Activities, nil
}

// ReasonKeyFor builds the ledger idempotency key for one activity. Upstream
// kinds can carry arbitrary unicode; the key must be plain ASCII, so it is
// transliterated and squashed before use.
func ReasonKeyFor(kind, activityID string) string {
	k := unidecode.Unidecode(kind)
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.NewReplacer(" ", "_", ":", "_").Replace(k)
	if k == "" {
		k = "activity"
	}
	return k + ":" + activityID
}

// Ingest awards points and bumps stats for one activity. Safe to call with
// the same activity any number of times.
func (c *ActivityIngestClient) Ingest(a ActivityEvent) error {
	if a.Points <= 0 {
		a.Points = 1
	}
	applied, _, err := c.Ledger.Award(a.UserID, a.Points, ReasonKeyFor(a.Kind, a.ID))
	if err != nil {
		return err
	}
	if !applied {
		return nil // replayed batch; already counted
	}

	if a.Social {
		return c.Stats.RecordSocialAction(a.UserID)
	}
	return c.Stats.RecordActivityLogged(a.UserID, a.OccurredAt)
}

// PollActivities runs the ingest loop until ctx is cancelled.
func PollActivities(ctx context.Context, client *ActivityIngestClient, interval time.Duration) {
	log.Println("🔁 Starting Activity Ingest Worker (activity feed → score ledger)…")

	// Backfill from the beginning of time; idempotent awards make this safe.
	cursor := time.Unix(0, 0)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			activities, err := client.GetChangedActivities(ctx, cursor)
			if err != nil {
				log.Printf("❌ [INGEST] Fetch failed: %v", err)
				continue
			}
			var ingested int
			for _, a := range activities {
				if err := client.Ingest(a); err != nil {
					log.Printf("⚠️ [INGEST] Activity %s for %s failed: %v", a.ID, a.UserID, err)
					continue
				}
				ingested++
				if a.OccurredAt.After(cursor) {
					cursor = a.OccurredAt
				}
			}
			if len(activities) > 0 {
				log.Printf("✅ [INGEST] Processed %d/%d activities (cursor=%s)",
					ingested, len(activities), cursor.Format(time.RFC3339))
			}
		case <-ctx.Done():
			log.Println("⏹️ Activity Ingest Worker stopped")
			return
		}
	}
}
