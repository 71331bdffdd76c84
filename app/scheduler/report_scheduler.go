// Package scheduler runs the background jobs of the service
package scheduler

import (
	"context"
	"time"

	businessflow "github.com/amirphl/fast-ads/business_flow"
	"github.com/amirphl/fast-ads/config"
	"github.com/amirphl/fast-ads/logger"
)

// runTimeout bounds one aggregation run
const runTimeout = 30 * time.Minute

// ReportScheduler rolls up the previous local day once per day at the configured hour
type ReportScheduler struct {
	reports      businessflow.ReportFlow
	location     *time.Location
	runHour      int
	backfillDays int
	log          *logger.Logger
	now          func() time.Time
}

func NewReportScheduler(reports businessflow.ReportFlow, cfg config.ReportsConfig, location *time.Location, log *logger.Logger) *ReportScheduler {
	if location == nil {
		location = time.UTC
	}
	return &ReportScheduler{
		reports:      reports,
		location:     location,
		runHour:      cfg.RunHour,
		backfillDays: cfg.BackfillDays,
		log:          log,
		now:          time.Now,
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function.
// The stop function waits for a running aggregation to return.
func (s *ReportScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)

		if s.backfillDays > 0 {
			s.backfill(ctx)
		}

		for {
			now := s.now()
			next := s.nextRun(now)
			s.log.Info("Next report aggregation scheduled", "at", next.Format(time.RFC3339))

			timer := time.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.runOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// nextRun is the first run hour strictly after now, in the reports time zone
func (s *ReportScheduler) nextRun(now time.Time) time.Time {
	local := now.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.runHour, 0, 0, 0, s.location)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.runHour, 0, 0, 0, s.location)
	}
	return next
}

// runOnce aggregates the local day before now
func (s *ReportScheduler) runOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	local := s.now().In(s.location)
	yesterday := time.Date(local.Year(), local.Month(), local.Day()-1, 12, 0, 0, 0, s.location)

	started := time.Now()
	rows, err := s.reports.AggregateDay(ctx, yesterday)
	if err != nil {
		s.log.Error("Daily report aggregation failed", "day", yesterday.Format(time.DateOnly), "error", err.Error())
		return
	}
	s.log.Info("Daily report aggregation finished",
		"day", yesterday.Format(time.DateOnly),
		"rows", rows,
		"elapsed_ms", time.Since(started).Milliseconds())
}

// backfill re-aggregates the last backfillDays complete days
func (s *ReportScheduler) backfill(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	local := s.now().In(s.location)
	to := time.Date(local.Year(), local.Month(), local.Day()-1, 12, 0, 0, 0, s.location)
	from := to.AddDate(0, 0, -(s.backfillDays - 1))

	rows, err := s.reports.AggregateRange(ctx, from, to)
	if err != nil {
		s.log.Error("Report backfill failed",
			"from", from.Format(time.DateOnly),
			"to", to.Format(time.DateOnly),
			"error", err.Error())
		return
	}
	s.log.Info("Report backfill finished",
		"from", from.Format(time.DateOnly),
		"to", to.Format(time.DateOnly),
		"rows", rows)
}
