package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"utility_billing_bot/internal/app"
	"utility_billing_bot/internal/domain/bill"
	"utility_billing_bot/internal/domain/provider"
	"utility_billing_bot/internal/domain/schedule"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	callbackPaid    = "bill_paid_"
	callbackOverdue = "bill_overdue_"
)

// OperatorService is the part of app.BillingService the operator chat drives.
type OperatorService interface {
	ListProviders(ctx context.Context) ([]*provider.Provider, error)
	CreateProvider(ctx context.Context, in app.ProviderInput) (*provider.Provider, error)
	UpdateProvider(ctx context.Context, id uuid.UUID, in app.ProviderInput) (*provider.Provider, error)
	GetBill(ctx context.Context, id uuid.UUID) (*bill.Bill, error)
	UpdateBill(ctx context.Context, id uuid.UUID, amount decimal.NullDecimal, status bill.Status) (*bill.Bill, error)
	ListBillsForMonth(ctx context.Context, yearMonth string) ([]*bill.Bill, error)
	ListUnpaidDue(ctx context.Context) ([]*bill.Bill, error)
	RunMonthlyGeneration(ctx context.Context) (app.GenerationReport, error)
}

// Operator turns chat commands into billing operations and renders the replies.
type Operator struct {
	svc    OperatorService
	clock  app.Clock
	logger *logrus.Entry
	// manualGeneration enables /generate. Only safe when the monthly run is idempotent,
	// i.e. with strict due-day matching.
	manualGeneration bool
}

func NewOperator(svc OperatorService, clock app.Clock, logger *logrus.Entry, manualGeneration bool) *Operator {
	return &Operator{svc: svc, clock: clock, logger: logger, manualGeneration: manualGeneration}
}

// ManualGeneration reports whether /generate is served.
func (o *Operator) ManualGeneration() bool {
	return o.manualGeneration
}

// Providers renders the provider list.
func (o *Operator) Providers(ctx context.Context) string {
	providers, err := o.svc.ListProviders(ctx)
	if err != nil {
		o.logger.WithError(err).Error("Failed to list providers")
		return "Could not load providers, please try again later."
	}
	if len(providers) == 0 {
		return "No providers yet. Add one with /add_provider."
	}

	var sb strings.Builder
	sb.WriteString("--- Providers ---\n")
	for _, p := range providers {
		sb.WriteString(formatProvider(p))
		sb.WriteString("\n")
	}
	return sb.String()
}

// AddProvider handles: /add_provider <name> <frequency> <dueDay> [defaultAmount]
func (o *Operator) AddProvider(ctx context.Context, args []string) string {
	if len(args) < 3 || len(args) > 4 {
		return "Usage: /add_provider <name> <frequency> <dueDay> [defaultAmount]"
	}
	in, err := parseProviderInput(args[0], args[1], args[2])
	if err != nil {
		return "Error: " + err.Error()
	}
	if len(args) == 4 {
		amount, err := parseAmount(args[3])
		if err != nil {
			return "Error: " + err.Error()
		}
		in.DefaultAmount = amount
	}

	p, err := o.svc.CreateProvider(ctx, in)
	if err != nil {
		return o.replyForError(err, "create provider")
	}
	o.logger.WithField("provider_id", p.ID).Info("Provider created from chat")
	return "Provider added:\n" + formatProvider(p)
}

// EditProvider handles: /edit_provider <id> <name> <frequency> <dueDay>
// The comment and default amount of the provider are kept.
func (o *Operator) EditProvider(ctx context.Context, args []string) string {
	if len(args) != 4 {
		return "Usage: /edit_provider <id> <name> <frequency> <dueDay>"
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return "Error: provider id must be a UUID."
	}
	in, err := parseProviderInput(args[1], args[2], args[3])
	if err != nil {
		return "Error: " + err.Error()
	}

	providers, err := o.svc.ListProviders(ctx)
	if err != nil {
		return o.replyForError(err, "load provider")
	}
	for _, existing := range providers {
		if existing.ID == id {
			in.Comment = existing.Comment
			in.DefaultAmount = existing.DefaultAmount
			break
		}
	}

	p, err := o.svc.UpdateProvider(ctx, id, in)
	if err != nil {
		return o.replyForError(err, "update provider")
	}
	o.logger.WithField("provider_id", p.ID).Info("Provider updated from chat")
	return "Provider updated:\n" + formatProvider(p)
}

// Bills handles: /bills [YYYY-MM]. Bills of past and current months get status buttons;
// projected months are shown read-only.
func (o *Operator) Bills(ctx context.Context, args []string) (string, *telebot.ReplyMarkup) {
	now := o.clock.Now()
	target := schedule.YearMonthOf(now)
	if len(args) > 0 {
		parsed, err := schedule.ParseYearMonth(args[0])
		if err != nil {
			return "Error: month must look like 2024-03.", nil
		}
		target = parsed
	}

	bills, err := o.svc.ListBillsForMonth(ctx, target.String())
	if err != nil {
		return o.replyForError(err, "list bills"), nil
	}
	if len(bills) == 0 {
		return fmt.Sprintf("No bills for %s.", target), nil
	}
	names := o.providerNames(ctx)
	projected := target.After(schedule.YearMonthOf(now))

	var sb strings.Builder
	title := "Bills"
	if projected {
		title = "Projected bills"
	}
	sb.WriteString(fmt.Sprintf("--- %s for %s ---\n", title, target))
	for _, b := range bills {
		sb.WriteString(formatBill(b, names))
		sb.WriteString("\n")
	}
	if projected {
		return sb.String(), nil
	}

	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	var rows []telebot.Row
	for _, b := range bills {
		if b.Status == bill.StatusPaid {
			continue
		}
		label := providerLabel(b, names)
		rows = append(rows, markup.Row(
			markup.Data("Paid: "+label, callbackPaid+b.ID.String()),
			markup.Data("Overdue: "+label, callbackOverdue+b.ID.String()),
		))
	}
	if len(rows) == 0 {
		return sb.String(), nil
	}
	markup.Inline(rows...)
	return sb.String(), markup
}

// SetAmount handles: /set_amount <billId> <amount>. The status is left as it is and an
// unknown bill is reported, not created.
func (o *Operator) SetAmount(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return "Usage: /set_amount <billId> <amount>"
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return "Error: bill id must be a UUID."
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return "Error: " + err.Error()
	}

	current, err := o.svc.GetBill(ctx, id)
	if err != nil {
		return o.replyForError(err, "load bill")
	}
	updated, err := o.svc.UpdateBill(ctx, id, amount, current.Status)
	if err != nil {
		return o.replyForError(err, "update bill")
	}
	return "Bill updated:\n" + formatBill(updated, o.providerNames(ctx))
}

// Overdue lists bills due up to today that are not paid.
func (o *Operator) Overdue(ctx context.Context) string {
	bills, err := o.svc.ListUnpaidDue(ctx)
	if err != nil {
		return o.replyForError(err, "list due bills")
	}
	if len(bills) == 0 {
		return "Nothing is due. All bills are paid."
	}
	names := o.providerNames(ctx)
	var sb strings.Builder
	sb.WriteString("--- Unpaid bills due ---\n")
	for _, b := range bills {
		sb.WriteString(formatBill(b, names))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Generate runs the monthly generation on demand.
func (o *Operator) Generate(ctx context.Context) string {
	if !o.manualGeneration {
		return "Manual generation is off: without STRICT_DUE_DAY_MATCH a second run would add duplicate bills."
	}
	report, err := o.svc.RunMonthlyGeneration(ctx)
	if err != nil {
		return o.replyForError(err, "generate bills")
	}
	return fmt.Sprintf("Generation for %s: %d providers, %d created, %d skipped, %d failed.",
		report.Month, report.Providers, report.Created, report.Skipped, report.Failed)
}

// HandleCallback applies an inline button press and returns the toast text.
func (o *Operator) HandleCallback(ctx context.Context, data string) string {
	id, status, err := parseCallback(data)
	if err != nil {
		o.logger.WithError(err).WithField("data", data).Warn("Unhandled callback")
		return "Unknown action."
	}
	if _, err := o.svc.UpdateBill(ctx, id, decimal.NullDecimal{}, status); err != nil {
		o.logger.WithError(err).WithField("bill_id", id).Error("Failed to update bill from callback")
		return "Something went wrong."
	}
	return fmt.Sprintf("Marked as %s.", status)
}

func (o *Operator) providerNames(ctx context.Context) map[uuid.UUID]string {
	names := map[uuid.UUID]string{}
	providers, err := o.svc.ListProviders(ctx)
	if err != nil {
		o.logger.WithError(err).Warn("Failed to load provider names")
		return names
	}
	for _, p := range providers {
		names[p.ID] = p.Name
	}
	return names
}

func (o *Operator) replyForError(err error, action string) string {
	switch {
	case errors.Is(err, app.ErrProviderNotFound):
		return "Error: provider not found."
	case errors.Is(err, app.ErrBillNotFound):
		return "Error: bill not found."
	case errors.Is(err, provider.ErrInvalidProvider),
		errors.Is(err, bill.ErrInvalidAmount),
		errors.Is(err, bill.ErrInvalidStatus),
		errors.Is(err, app.ErrInvalidYearMonth):
		return "Error: " + err.Error()
	default:
		o.logger.WithError(err).WithField("action", action).Error("Operator command failed")
		return fmt.Sprintf("Could not %s, please try again later.", action)
	}
}

// parseProviderInput reads the name, frequency and due day tokens. Underscores in the
// name stand for spaces since command arguments are split on whitespace.
func parseProviderInput(name, frequency, dueDay string) (app.ProviderInput, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return app.ProviderInput{}, fmt.Errorf("name must not be empty")
	}
	freq, ok := provider.ParseFrequency(frequency)
	if !ok {
		return app.ProviderInput{}, fmt.Errorf("frequency must be one of %v", provider.Frequencies())
	}
	day, err := strconv.Atoi(dueDay)
	if err != nil || day < provider.MinDueDay || day > provider.MaxDueDay {
		return app.ProviderInput{}, fmt.Errorf("due day must be a number between %d and %d", provider.MinDueDay, provider.MaxDueDay)
	}
	return app.ProviderInput{Name: name, Frequency: freq, DueDay: day}, nil
}

func parseAmount(s string) (decimal.NullDecimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("amount %q is not a number", s)
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("amount must not be negative")
	}
	return decimal.NewNullDecimal(d), nil
}

// parseCallback accepts bill_paid_<uuid> and bill_overdue_<uuid>. telebot prefixes
// inline button data with \f, which is stripped first.
func parseCallback(data string) (uuid.UUID, bill.Status, error) {
	data = strings.TrimPrefix(data, "\f")
	var (
		rawID  string
		status bill.Status
	)
	switch {
	case strings.HasPrefix(data, callbackPaid):
		rawID, status = strings.TrimPrefix(data, callbackPaid), bill.StatusPaid
	case strings.HasPrefix(data, callbackOverdue):
		rawID, status = strings.TrimPrefix(data, callbackOverdue), bill.StatusOverdue
	default:
		return uuid.Nil, "", fmt.Errorf("unknown callback %q", data)
	}
	// Data buttons may carry a "|payload" suffix.
	rawID, _, _ = strings.Cut(rawID, "|")
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid bill id in callback: %w", err)
	}
	return id, status, nil
}

func formatProvider(p *provider.Provider) string {
	line := fmt.Sprintf("%s | %s | day %d | id %s", p.Name, p.Frequency, p.DueDay, p.ID)
	if p.DefaultAmount.Valid {
		line += " | default " + p.DefaultAmount.Decimal.StringFixed(2)
	}
	if p.Comment.Valid && p.Comment.String != "" {
		line += " | " + p.Comment.String
	}
	return line
}

func formatBill(b *bill.Bill, names map[uuid.UUID]string) string {
	due := "no due date"
	if b.DueDate.Valid {
		due = b.DueDate.Time.Format("2006-01-02")
	}
	amount := "amount n/a"
	if b.Amount.Valid {
		amount = b.Amount.Decimal.StringFixed(2)
	}
	return fmt.Sprintf("%s %s %s %s | id %s", due, providerLabel(b, names), amount, b.Status, b.ID)
}

func providerLabel(b *bill.Bill, names map[uuid.UUID]string) string {
	if !b.ProviderID.Valid {
		return "(no provider)"
	}
	if name, ok := names[b.ProviderID.UUID]; ok {
		return name
	}
	return "(unknown provider)"
}
