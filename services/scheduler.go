// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartRolloverScheduler sweeps for expired league periods every minute and
// reconciles drifted score totals nightly. Settlement is idempotent, so a
// tick overlapping a slow settlement is safe; the per-period advisory lock
// keeps it from being wasteful.
func (s *RolloverService) StartRolloverScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			s.SettleDue(time.Now())
		}),
	)

	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(func() {
			if err := s.Ledger.ReconcileTotals(); err != nil {
				log.Printf("[Scheduler] Total reconciliation failed: %v", err)
			}
		}),
	)
}
