package telegram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"utility_billing_bot/internal/app"
	"utility_billing_bot/internal/domain/bill"
	"utility_billing_bot/internal/domain/provider"
	"utility_billing_bot/internal/domain/schedule"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOperatorService struct {
	mock.Mock
}

func (m *mockOperatorService) ListProviders(ctx context.Context) ([]*provider.Provider, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*provider.Provider), args.Error(1)
}

func (m *mockOperatorService) CreateProvider(ctx context.Context, in app.ProviderInput) (*provider.Provider, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Provider), args.Error(1)
}

func (m *mockOperatorService) UpdateProvider(ctx context.Context, id uuid.UUID, in app.ProviderInput) (*provider.Provider, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Provider), args.Error(1)
}

func (m *mockOperatorService) GetBill(ctx context.Context, id uuid.UUID) (*bill.Bill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bill.Bill), args.Error(1)
}

func (m *mockOperatorService) UpdateBill(ctx context.Context, id uuid.UUID, amount decimal.NullDecimal, status bill.Status) (*bill.Bill, error) {
	args := m.Called(ctx, id, amount, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bill.Bill), args.Error(1)
}

func (m *mockOperatorService) ListBillsForMonth(ctx context.Context, yearMonth string) ([]*bill.Bill, error) {
	args := m.Called(ctx, yearMonth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bill.Bill), args.Error(1)
}

func (m *mockOperatorService) ListUnpaidDue(ctx context.Context) ([]*bill.Bill, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bill.Bill), args.Error(1)
}

func (m *mockOperatorService) RunMonthlyGeneration(ctx context.Context) (app.GenerationReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(app.GenerationReport), args.Error(1)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var (
	testNow    = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	waterID    = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	water      = &provider.Provider{ID: waterID, Name: "Water", Frequency: provider.FrequencyMonthly, DueDay: 15, CreatedAt: testNow}
	ctxMatcher = mock.Anything
)

func newOperator(t *testing.T) (*Operator, *mockOperatorService) {
	return newOperatorWithGeneration(t, false)
}

func newOperatorWithGeneration(t *testing.T, manualGeneration bool) (*Operator, *mockOperatorService) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	svc := new(mockOperatorService)
	t.Cleanup(func() { svc.AssertExpectations(t) })
	return NewOperator(svc, fixedClock{now: testNow}, logrus.NewEntry(l), manualGeneration), svc
}

func dueBill(status bill.Status) *bill.Bill {
	return &bill.Bill{
		ID:         uuid.New(),
		ProviderID: uuid.NullUUID{UUID: waterID, Valid: true},
		Status:     status,
		DueDate:    sql.NullTime{Time: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Valid: true},
	}
}

func TestParseProviderInput(t *testing.T) {
	in, err := parseProviderInput("City_Water", "bi_monthly", "28")
	require.NoError(t, err)
	assert.Equal(t, "City Water", in.Name)
	assert.Equal(t, provider.FrequencyBiMonthly, in.Frequency)
	assert.Equal(t, 28, in.DueDay)

	_, err = parseProviderInput("Gas", "WEEKLY", "3")
	assert.Error(t, err)
	_, err = parseProviderInput("Gas", "MONTHLY", "29")
	assert.Error(t, err)
	_, err = parseProviderInput("Gas", "MONTHLY", "x")
	assert.Error(t, err)
	_, err = parseProviderInput("_", "MONTHLY", "3")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	a, err := parseAmount("12,50")
	require.NoError(t, err)
	assert.True(t, a.Decimal.Equal(decimal.RequireFromString("12.5")))

	_, err = parseAmount("-1")
	assert.Error(t, err)
	_, err = parseAmount("abc")
	assert.Error(t, err)
}

func TestParseCallback(t *testing.T) {
	id := uuid.New()

	got, status, err := parseCallback("\f" + callbackPaid + id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, bill.StatusPaid, status)

	got, status, err = parseCallback(callbackOverdue + id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, bill.StatusOverdue, status)

	_, _, err = parseCallback("bill_lost_" + id.String())
	assert.Error(t, err)
	_, _, err = parseCallback(callbackPaid + "nope")
	assert.Error(t, err)
}

func TestOperator_AddProvider(t *testing.T) {
	op, svc := newOperator(t)
	svc.On("CreateProvider", ctxMatcher, mock.MatchedBy(func(in app.ProviderInput) bool {
		return in.Name == "Water" && in.Frequency == provider.FrequencyMonthly && in.DueDay == 15 &&
			in.DefaultAmount.Valid && in.DefaultAmount.Decimal.Equal(decimal.RequireFromString("42"))
	})).Return(water, nil)

	reply := op.AddProvider(context.Background(), []string{"Water", "monthly", "15", "42"})

	assert.Contains(t, reply, "Provider added")
	assert.Contains(t, reply, waterID.String())
}

func TestOperator_AddProvider_Usage(t *testing.T) {
	op, _ := newOperator(t)

	assert.Contains(t, op.AddProvider(context.Background(), []string{"Water"}), "Usage")
	assert.Contains(t, op.AddProvider(context.Background(), []string{"Water", "DAILY", "1"}), "Error")
}

func TestOperator_EditProvider_KeepsCommentAndDefault(t *testing.T) {
	op, svc := newOperator(t)
	existing := *water
	existing.Comment = sql.NullString{String: "meter 7", Valid: true}
	existing.DefaultAmount = decimal.NewNullDecimal(decimal.RequireFromString("30"))
	svc.On("ListProviders", ctxMatcher).Return([]*provider.Provider{&existing}, nil)
	svc.On("UpdateProvider", ctxMatcher, waterID, mock.MatchedBy(func(in app.ProviderInput) bool {
		return in.DueDay == 20 && in.Comment.String == "meter 7" && in.DefaultAmount.Valid
	})).Return(&existing, nil)

	reply := op.EditProvider(context.Background(), []string{waterID.String(), "Water", "MONTHLY", "20"})

	assert.Contains(t, reply, "Provider updated")
}

func TestOperator_EditProvider_NotFound(t *testing.T) {
	op, svc := newOperator(t)
	id := uuid.New()
	svc.On("ListProviders", ctxMatcher).Return([]*provider.Provider{}, nil)
	svc.On("UpdateProvider", ctxMatcher, id, mock.Anything).
		Return(nil, fmt.Errorf("%w: %s", app.ErrProviderNotFound, id))

	reply := op.EditProvider(context.Background(), []string{id.String(), "Gas", "MONTHLY", "2"})

	assert.Equal(t, "Error: provider not found.", reply)
}

func TestOperator_Bills_CurrentMonthHasButtons(t *testing.T) {
	op, svc := newOperator(t)
	pending := dueBill(bill.StatusPending)
	paid := dueBill(bill.StatusPaid)
	svc.On("ListBillsForMonth", ctxMatcher, "2024-03").Return([]*bill.Bill{pending, paid}, nil)
	svc.On("ListProviders", ctxMatcher).Return([]*provider.Provider{water}, nil)

	text, markup := op.Bills(context.Background(), nil)

	assert.Contains(t, text, "Bills for 2024-03")
	assert.Contains(t, text, "2024-03-15 Water")
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 1, "paid bills get no buttons")
	row := markup.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, callbackPaid+pending.ID.String(), row[0].Unique)
	assert.Equal(t, callbackOverdue+pending.ID.String(), row[1].Unique)
}

func TestOperator_Bills_ProjectedMonthIsReadOnly(t *testing.T) {
	op, svc := newOperator(t)
	projected := dueBill(bill.StatusDraft)
	svc.On("ListBillsForMonth", ctxMatcher, "2024-05").Return([]*bill.Bill{projected}, nil)
	svc.On("ListProviders", ctxMatcher).Return([]*provider.Provider{water}, nil)

	text, markup := op.Bills(context.Background(), []string{"2024-05"})

	assert.Contains(t, text, "Projected bills for 2024-05")
	assert.Nil(t, markup)
}

func TestOperator_Bills_BadMonth(t *testing.T) {
	op, _ := newOperator(t)

	text, markup := op.Bills(context.Background(), []string{"March"})

	assert.Contains(t, text, "Error")
	assert.Nil(t, markup)
}

func TestOperator_SetAmount_KeepsStatus(t *testing.T) {
	op, svc := newOperator(t)
	b := dueBill(bill.StatusNotArrived)
	updated := *b
	updated.Amount = decimal.NewNullDecimal(decimal.RequireFromString("55.1"))
	svc.On("GetBill", ctxMatcher, b.ID).Return(b, nil)
	svc.On("UpdateBill", ctxMatcher, b.ID, mock.MatchedBy(func(a decimal.NullDecimal) bool {
		return a.Valid && a.Decimal.Equal(decimal.RequireFromString("55.1"))
	}), bill.StatusNotArrived).Return(&updated, nil)
	svc.On("ListProviders", ctxMatcher).Return([]*provider.Provider{water}, nil)

	reply := op.SetAmount(context.Background(), []string{b.ID.String(), "55.1"})

	assert.Contains(t, reply, "55.10")
	assert.Contains(t, reply, string(bill.StatusNotArrived))
}

func TestOperator_SetAmount_UnknownBill(t *testing.T) {
	op, svc := newOperator(t)
	id := uuid.New()
	svc.On("GetBill", ctxMatcher, id).Return(nil, fmt.Errorf("%w: %s", app.ErrBillNotFound, id))

	reply := op.SetAmount(context.Background(), []string{id.String(), "10"})

	assert.Equal(t, "Error: bill not found.", reply)
}

func TestOperator_Overdue(t *testing.T) {
	op, svc := newOperator(t)
	svc.On("ListUnpaidDue", ctxMatcher).Return([]*bill.Bill{dueBill(bill.StatusPending)}, nil)
	svc.On("ListProviders", ctxMatcher).Return([]*provider.Provider{water}, nil)

	assert.Contains(t, op.Overdue(context.Background()), "Water")
}

func TestOperator_Generate_OffWithoutStrictMatching(t *testing.T) {
	op, svc := newOperator(t)

	assert.False(t, op.ManualGeneration())
	reply := op.Generate(context.Background())
	op.Generate(context.Background())

	assert.Contains(t, reply, "Manual generation is off")
	svc.AssertNotCalled(t, "RunMonthlyGeneration", mock.Anything)
}

func TestOperator_Generate(t *testing.T) {
	op, svc := newOperatorWithGeneration(t, true)
	svc.On("RunMonthlyGeneration", ctxMatcher).Return(app.GenerationReport{
		Month: schedule.YearMonth{Year: 2024, Month: time.March}, Providers: 3, Created: 2, Skipped: 1,
	}, nil)

	assert.Equal(t, "Generation for 2024-03: 3 providers, 2 created, 1 skipped, 0 failed.",
		op.Generate(context.Background()))
}

func TestOperator_HandleCallback(t *testing.T) {
	op, svc := newOperator(t)
	id := uuid.New()
	svc.On("UpdateBill", ctxMatcher, id, decimal.NullDecimal{}, bill.StatusPaid).
		Return(&bill.Bill{ID: id, Status: bill.StatusPaid}, nil)

	assert.Equal(t, "Marked as PAID.", op.HandleCallback(context.Background(), "\f"+callbackPaid+id.String()))
	assert.Equal(t, "Unknown action.", op.HandleCallback(context.Background(), "ans_yes_1"))
}

func TestOperator_StorageErrorsAreHidden(t *testing.T) {
	op, svc := newOperator(t)
	svc.On("ListProviders", ctxMatcher).Return(nil, errors.New("connection reset"))

	assert.Equal(t, "Could not load providers, please try again later.", op.Providers(context.Background()))
}
