package scheduler

import (
	"context"
	"time"

	"offspring_lifecycle/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// OverdueReporter is the slice of the milestone service the sweep needs.
type OverdueReporter interface {
	OverdueMilestones(ctx context.Context, asOf time.Time) ([]app.OverdueMilestone, error)
}

// OverdueScheduler periodically reports groups whose expected milestones have passed.
// It only logs; no group is ever transitioned by the clock.
type OverdueScheduler struct {
	cronEngine *cron.Cron
	reporter   OverdueReporter
	logger     logrus.FieldLogger
	cronSpec   string
	nowFn      func() time.Time
}

func NewOverdueScheduler(
	reporter OverdueReporter,
	logger logrus.FieldLogger,
	cronSpec string, // e.g., "0 7 * * *" (7:00 AM daily)
) *OverdueScheduler {
	return &OverdueScheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		reporter:   reporter,
		logger:     logger,
		cronSpec:   cronSpec,
		nowFn:      time.Now,
	}
}

// Start registers the sweep job and starts the cron engine.
func (s *OverdueScheduler) Start() error {
	s.logger.Info("Starting overdue milestone scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for overdue milestone sweep.")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.WithError(err).Error("Error during overdue milestone sweep")
		}
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Overdue milestone scheduler started.")
	return nil
}

// Sweep runs one report pass and logs each overdue group.
func (s *OverdueScheduler) Sweep(ctx context.Context) (int, error) {
	overdue, err := s.reporter.OverdueMilestones(ctx, s.nowFn())
	if err != nil {
		return 0, err
	}
	for _, o := range overdue {
		s.logger.WithFields(logrus.Fields{
			"group_id":     o.GroupID,
			"tenant_id":    o.TenantID,
			"status":       o.Status,
			"field":        o.Field,
			"expected_on":  o.ExpectedOn.Format("2006-01-02"),
			"days_overdue": o.DaysOverdue,
		}).Warn("Milestone overdue")
	}
	s.logger.WithField("count", len(overdue)).Info("Overdue milestone sweep finished.")
	return len(overdue), nil
}

func (s *OverdueScheduler) Stop() {
	s.logger.Info("Stopping overdue milestone scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Overdue milestone scheduler gracefully stopped.")
}
