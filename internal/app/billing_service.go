package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"utility_billing_bot/internal/domain/bill"
	"utility_billing_bot/internal/domain/provider"
	"utility_billing_bot/internal/domain/schedule"
	idb "utility_billing_bot/internal/infra/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Application-level errors for the billing service
var ErrProviderNotFound = fmt.Errorf("provider not found")
var ErrBillNotFound = fmt.Errorf("bill not found")
var ErrInvalidYearMonth = fmt.Errorf("invalid year-month format, expected YYYY-MM")

// DefaultReconcileHorizonMonths bounds how far ahead bills are removed after a schedule change.
const DefaultReconcileHorizonMonths = 120

type BillingOptions struct {
	ReconcileHorizonMonths int
	// StrictDueDayMatch makes the "bill already exists" check compare against the
	// computed due day instead of the first day of the month.
	StrictDueDayMatch bool
}

// ProviderInput carries the operator-editable provider fields.
type ProviderInput struct {
	Name          string
	Frequency     provider.Frequency
	Comment       sql.NullString
	DueDay        int
	DefaultAmount decimal.NullDecimal
}

// GenerationReport summarizes one run of the monthly generation.
type GenerationReport struct {
	Month     schedule.YearMonth
	Providers int
	Created   int
	Skipped   int
	Failed    int
}

type BillingService struct {
	providerRepo provider.Repository
	billRepo     bill.Repository
	tx           Transactor
	clock        Clock
	logger       *logrus.Entry
	opts         BillingOptions
}

func NewBillingService(
	pr provider.Repository,
	br bill.Repository,
	tx Transactor,
	clock Clock,
	logger *logrus.Entry,
	opts BillingOptions,
) *BillingService {
	if opts.ReconcileHorizonMonths <= 0 {
		opts.ReconcileHorizonMonths = DefaultReconcileHorizonMonths
	}
	return &BillingService{
		providerRepo: pr,
		billRepo:     br,
		tx:           tx,
		clock:        clock,
		logger:       logger.WithField("component", "billing_service"),
		opts:         opts,
	}
}

func (s *BillingService) currentMonth() schedule.YearMonth {
	return schedule.YearMonthOf(s.clock.Now())
}

// ListProviders returns every persisted provider.
func (s *BillingService) ListProviders(ctx context.Context) ([]*provider.Provider, error) {
	providers, err := s.providerRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

// CreateProvider persists a new provider and materializes its bill for the current month.
func (s *BillingService) CreateProvider(ctx context.Context, in ProviderInput) (*provider.Provider, error) {
	now := s.clock.Now().UTC()
	p := &provider.Provider{
		ID:            uuid.New(),
		Name:          in.Name,
		Frequency:     in.Frequency,
		Comment:       in.Comment,
		DueDay:        in.DueDay,
		DefaultAmount: provider.NormalizeAmount(in.DefaultAmount),
		CreatedAt:     now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.providerRepo.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to create provider in repository: %w", err)
		}
		_, err := s.materializeOneMonth(ctx, p, schedule.YearMonthOf(now))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"provider_id": p.ID,
		"frequency":   p.Frequency,
		"due_day":     p.DueDay,
	}).Info("Provider created")
	return p, nil
}

// UpdateProvider replaces the editable fields of a provider. When the frequency or due day
// changes, the provider's bills from the current month onward are regenerated.
func (s *BillingService) UpdateProvider(ctx context.Context, id uuid.UUID, in ProviderInput) (*provider.Provider, error) {
	var updated *provider.Provider
	var rescheduled bool

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.providerRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, idb.ErrProviderNotFound) {
				return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
			}
			return fmt.Errorf("failed to get provider: %w", err)
		}

		candidate := *existing
		candidate.Name = in.Name
		candidate.Frequency = in.Frequency
		candidate.Comment = in.Comment
		candidate.DueDay = in.DueDay
		candidate.DefaultAmount = provider.NormalizeAmount(in.DefaultAmount)
		if err := candidate.Validate(); err != nil {
			return err
		}

		rescheduled = existing.ScheduleDiffers(&candidate)
		if err := s.providerRepo.Update(ctx, &candidate); err != nil {
			if errors.Is(err, idb.ErrProviderNotFound) {
				return fmt.Errorf("%w: %s", ErrProviderNotFound, id)
			}
			return fmt.Errorf("failed to update provider in repository: %w", err)
		}
		updated = &candidate

		if rescheduled {
			return s.reconcile(ctx, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"provider_id": updated.ID,
		"rescheduled": rescheduled,
	}).Info("Provider updated")
	return updated, nil
}

// reconcile drops the provider's bills due from the start of the current month onward
// and regenerates the current month. Earlier bills are kept as history.
func (s *BillingService) reconcile(ctx context.Context, p *provider.Provider) error {
	month := s.currentMonth()
	from := month.Start()
	to := from.AddDate(0, s.opts.ReconcileHorizonMonths, 0)

	deleted, err := s.billRepo.DeleteByProviderAndDueDateBetween(ctx, p.ID, from, to)
	if err != nil {
		return fmt.Errorf("failed to delete bills for rescheduled provider: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"provider_id": p.ID,
		"deleted":     deleted,
		"from":        from.Format("2006-01-02"),
	}).Debug("Removed bills of rescheduled provider")

	_, err = s.materializeOneMonth(ctx, p, month)
	return err
}

// materializeOneMonth persists the provider's bill for target unless one already covers it
// or the provider owes nothing that month. It reports whether a bill was created.
func (s *BillingService) materializeOneMonth(ctx context.Context, p *provider.Provider, target schedule.YearMonth) (bool, error) {
	existing, err := s.billRepo.ListByProviderAndDueDateBetween(ctx, p.ID, target.Start(), target.End())
	if err != nil {
		return false, fmt.Errorf("failed to list existing bills for provider %s: %w", p.ID, err)
	}

	dueDate := schedule.DueDateFor(p, target)
	// A bill due on the first of the month marks the month as covered. This does not
	// recognize bills due on any other day; StrictDueDayMatch checks the due day instead.
	marker := target.Start()
	if s.opts.StrictDueDayMatch {
		marker = dueDate
	}
	for _, b := range existing {
		if b.DueOn(marker) {
			return false, nil
		}
	}

	if !schedule.IsEligible(p, target) {
		return false, nil
	}

	now := s.clock.Now().UTC()
	b := &bill.Bill{
		ID:         uuid.New(),
		ProviderID: uuid.NullUUID{UUID: p.ID, Valid: true},
		Status:     bill.StatusNotArrived,
		DueDate:    sql.NullTime{Time: dueDate, Valid: true},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.billRepo.Create(ctx, b); err != nil {
		return false, fmt.Errorf("failed to create bill for provider %s: %w", p.ID, err)
	}
	return true, nil
}

// RunMonthlyGeneration materializes the current month's bill for every provider.
// Each provider is handled in its own transaction and a failure is logged without
// stopping the rest of the batch.
func (s *BillingService) RunMonthlyGeneration(ctx context.Context) (GenerationReport, error) {
	month := s.currentMonth()
	report := GenerationReport{Month: month}

	providers, err := s.providerRepo.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list providers: %w", err)
	}
	report.Providers = len(providers)

	for _, p := range providers {
		var created bool
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			created, err = s.materializeOneMonth(ctx, p, month)
			return err
		})
		switch {
		case err != nil:
			report.Failed++
			s.logger.WithError(err).WithFields(logrus.Fields{
				"provider_id": p.ID,
				"month":       month.String(),
			}).Error("Failed to generate monthly bill")
		case created:
			report.Created++
		default:
			report.Skipped++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"month":     month.String(),
		"providers": report.Providers,
		"created":   report.Created,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	}).Info("Monthly bill generation finished")
	return report, nil
}

// GetBill returns a persisted bill.
func (s *BillingService) GetBill(ctx context.Context, id uuid.UUID) (*bill.Bill, error) {
	b, err := s.billRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, idb.ErrBillNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBillNotFound, id)
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return b, nil
}

// UpdateBill sets the amount (when given) and status of a bill. An unknown id does not fail:
// a new bill with a fresh id, no provider and no due date is stored instead.
func (s *BillingService) UpdateBill(ctx context.Context, id uuid.UUID, amount decimal.NullDecimal, status bill.Status) (*bill.Bill, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", bill.ErrInvalidStatus, status)
	}
	if err := bill.ValidateAmount(amount); err != nil {
		return nil, err
	}
	amount = provider.NormalizeAmount(amount)
	now := s.clock.Now().UTC()

	var result *bill.Bill
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.billRepo.GetByID(ctx, id)
		if err != nil && !errors.Is(err, idb.ErrBillNotFound) {
			return fmt.Errorf("failed to get bill: %w", err)
		}

		if existing != nil {
			if amount.Valid {
				existing.Amount = amount
			}
			existing.Status = status
			existing.UpdatedAt = now
			if err := s.billRepo.Update(ctx, existing); err != nil {
				return fmt.Errorf("failed to update bill in repository: %w", err)
			}
			result = existing
			return nil
		}

		shell := &bill.Bill{
			ID:        uuid.New(),
			Amount:    amount,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.billRepo.Create(ctx, shell); err != nil {
			return fmt.Errorf("failed to create bill in repository: %w", err)
		}
		s.logger.WithFields(logrus.Fields{
			"requested_id": id,
			"bill_id":      shell.ID,
		}).Warn("Bill to update not found, stored a new bill without provider")
		result = shell
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListBillsForMonth returns the persisted bills due in yearMonth ("YYYY-MM"). Months after
// the current one are projected on the fly and every bill comes back as DRAFT.
func (s *BillingService) ListBillsForMonth(ctx context.Context, yearMonth string) ([]*bill.Bill, error) {
	target, err := schedule.ParseYearMonth(yearMonth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYearMonth, err)
	}

	now := s.clock.Now()
	if target.After(schedule.YearMonthOf(now)) {
		providers, err := s.providerRepo.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list providers: %w", err)
		}
		bills := schedule.ProjectMonth(providers, target, now)
		for _, b := range bills {
			b.Status = bill.StatusDraft
		}
		return bills, nil
	}

	bills, err := s.billRepo.ListByDueDateBetween(ctx, target.Start(), target.End())
	if err != nil {
		return nil, fmt.Errorf("failed to list bills for %s: %w", target, err)
	}
	return bills, nil
}

// ListUnpaidDue returns persisted bills due up to today that are not paid yet, oldest first.
func (s *BillingService) ListUnpaidDue(ctx context.Context) ([]*bill.Bill, error) {
	now := s.clock.Now().UTC()
	endOfToday := schedule.YearMonthOf(now).Day(now.Day()).Add(24*time.Hour - time.Second)

	bills, err := s.billRepo.ListDueOnOrBefore(ctx, endOfToday)
	if err != nil {
		return nil, fmt.Errorf("failed to list due bills: %w", err)
	}
	unpaid := make([]*bill.Bill, 0, len(bills))
	for _, b := range bills {
		if b.Status != bill.StatusPaid {
			unpaid = append(unpaid, b)
		}
	}
	sort.SliceStable(unpaid, func(i, j int) bool {
		return unpaid[i].DueDate.Time.Before(unpaid[j].DueDate.Time)
	})
	return unpaid, nil
}
