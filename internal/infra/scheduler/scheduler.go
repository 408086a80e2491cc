package scheduler

import (
	"context"
	"fmt"
	"time"

	"utility_billing_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// MonthlyGenerator is the part of the billing service the scheduler drives.
type MonthlyGenerator interface {
	RunMonthlyGeneration(ctx context.Context) (app.GenerationReport, error)
}

type BillScheduler struct {
	cronEngine      *cron.Cron
	generator       MonthlyGenerator
	logger          *logrus.Entry
	cronSpecMonthly string
}

func NewBillScheduler(
	generator MonthlyGenerator,
	logger *logrus.Entry,
	cronSpecMonthly string, // e.g., "0 4 1 * *" (04:00 UTC on the 1st)
) *BillScheduler {
	return &BillScheduler{
		cronEngine:      cron.New(cron.WithLocation(time.UTC)),
		generator:       generator,
		logger:          logger.WithField("component", "scheduler"),
		cronSpecMonthly: cronSpecMonthly,
	}
}

// Start registers the monthly job and starts the cron engine.
func (s *BillScheduler) Start() error {
	s.logger.Info("Starting bill scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecMonthly, func() {
		s.logger.Info("Cron job triggered for monthly bill generation.")
		s.RunNow()
	})
	if err != nil {
		return fmt.Errorf("could not add monthly bill generation cron job %q: %w", s.cronSpecMonthly, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpecMonthly).Info("Bill scheduler started.")
	return nil
}

// RunNow executes the monthly generation synchronously. A started run is not cut short:
// every provider gets its turn.
func (s *BillScheduler) RunNow() {
	report, err := s.generator.RunMonthlyGeneration(context.Background())
	if err != nil {
		s.logger.WithError(err).Error("Monthly bill generation failed")
		return
	}
	if report.Failed > 0 {
		s.logger.WithFields(logrus.Fields{
			"month":  report.Month.String(),
			"failed": report.Failed,
		}).Warn("Monthly bill generation finished with failures")
	}
}

// Next returns the next scheduled run, zero before Start.
func (s *BillScheduler) Next() time.Time {
	entries := s.cronEngine.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *BillScheduler) Stop() {
	s.logger.Info("Stopping bill scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Bill scheduler gracefully stopped.")
}
