package app

import (
	"context"
	"io"
	"sort"
	"time"

	"utility_billing_bot/internal/domain/bill"
	"utility_billing_bot/internal/domain/provider"
	idb "utility_billing_bot/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type memProviderRepo struct {
	providers map[uuid.UUID]provider.Provider
	listErr   error
}

func newMemProviderRepo() *memProviderRepo {
	return &memProviderRepo{providers: map[uuid.UUID]provider.Provider{}}
}

func (r *memProviderRepo) Create(_ context.Context, p *provider.Provider) error {
	r.providers[p.ID] = *p
	return nil
}

func (r *memProviderRepo) GetByID(_ context.Context, id uuid.UUID) (*provider.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, idb.ErrProviderNotFound
	}
	return &p, nil
}

func (r *memProviderRepo) Update(_ context.Context, p *provider.Provider) error {
	existing, ok := r.providers[p.ID]
	if !ok {
		return idb.ErrProviderNotFound
	}
	existing.Name = p.Name
	existing.Frequency = p.Frequency
	existing.Comment = p.Comment
	existing.DueDay = p.DueDay
	existing.DefaultAmount = p.DefaultAmount
	r.providers[p.ID] = existing
	return nil
}

func (r *memProviderRepo) ListAll(_ context.Context) ([]*provider.Provider, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*provider.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

type memBillRepo struct {
	bills map[uuid.UUID]bill.Bill
	// createErr fails Create for bills of the given provider.
	createErr map[uuid.UUID]error
}

func newMemBillRepo() *memBillRepo {
	return &memBillRepo{bills: map[uuid.UUID]bill.Bill{}, createErr: map[uuid.UUID]error{}}
}

func (r *memBillRepo) Create(_ context.Context, b *bill.Bill) error {
	if err, ok := r.createErr[b.ProviderID.UUID]; ok && b.ProviderID.Valid {
		return err
	}
	r.bills[b.ID] = *b
	return nil
}

func (r *memBillRepo) GetByID(_ context.Context, id uuid.UUID) (*bill.Bill, error) {
	b, ok := r.bills[id]
	if !ok {
		return nil, idb.ErrBillNotFound
	}
	return &b, nil
}

func (r *memBillRepo) Update(_ context.Context, b *bill.Bill) error {
	if _, ok := r.bills[b.ID]; !ok {
		return idb.ErrBillNotFound
	}
	r.bills[b.ID] = *b
	return nil
}

func (r *memBillRepo) filter(keep func(b *bill.Bill) bool) []*bill.Bill {
	out := make([]*bill.Bill, 0)
	for _, b := range r.bills {
		b := b
		if keep(&b) {
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Time.Before(out[j].DueDate.Time) })
	return out
}

func dueBetween(b *bill.Bill, from, to time.Time) bool {
	return b.DueDate.Valid && !b.DueDate.Time.Before(from) && !b.DueDate.Time.After(to)
}

func (r *memBillRepo) ListByDueDateBetween(_ context.Context, from, to time.Time) ([]*bill.Bill, error) {
	return r.filter(func(b *bill.Bill) bool { return dueBetween(b, from, to) }), nil
}

func (r *memBillRepo) ListByProviderAndDueDateBetween(_ context.Context, providerID uuid.UUID, from, to time.Time) ([]*bill.Bill, error) {
	return r.filter(func(b *bill.Bill) bool {
		return b.ProviderID.Valid && b.ProviderID.UUID == providerID && dueBetween(b, from, to)
	}), nil
}

func (r *memBillRepo) ListDueOnOrBefore(_ context.Context, t time.Time) ([]*bill.Bill, error) {
	return r.filter(func(b *bill.Bill) bool { return b.DueDate.Valid && !b.DueDate.Time.After(t) }), nil
}

func (r *memBillRepo) DeleteByProviderAndDueDateBetween(_ context.Context, providerID uuid.UUID, from, to time.Time) (int64, error) {
	var n int64
	for id, b := range r.bills {
		b := b
		if b.ProviderID.Valid && b.ProviderID.UUID == providerID && dueBetween(&b, from, to) {
			delete(r.bills, id)
			n++
		}
	}
	return n, nil
}

func (r *memBillRepo) forProvider(providerID uuid.UUID) []*bill.Bill {
	return r.filter(func(b *bill.Bill) bool { return b.ProviderID.Valid && b.ProviderID.UUID == providerID })
}

// snapshotTx restores both repositories when fn fails, like a rolled back transaction.
type snapshotTx struct {
	providers *memProviderRepo
	bills     *memBillRepo
	calls     int
}

func (t *snapshotTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	providers := make(map[uuid.UUID]provider.Provider, len(t.providers.providers))
	for k, v := range t.providers.providers {
		providers[k] = v
	}
	bills := make(map[uuid.UUID]bill.Bill, len(t.bills.bills))
	for k, v := range t.bills.bills {
		bills[k] = v
	}

	if err := fn(ctx); err != nil {
		t.providers.providers = providers
		t.bills.bills = bills
		return err
	}
	return nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fixture struct {
	svc       *BillingService
	providers *memProviderRepo
	bills     *memBillRepo
	tx        *snapshotTx
}

func newFixture(now time.Time, opts BillingOptions) *fixture {
	pr := newMemProviderRepo()
	br := newMemBillRepo()
	tx := &snapshotTx{providers: pr, bills: br}
	return &fixture{
		svc:       NewBillingService(pr, br, tx, fixedClock{now: now}, quietLogger(), opts),
		providers: pr,
		bills:     br,
		tx:        tx,
	}
}

// seedProvider stores a provider directly, bypassing bill materialization.
func (f *fixture) seedProvider(freq provider.Frequency, dueDay int, createdAt time.Time) *provider.Provider {
	p := &provider.Provider{
		ID:        uuid.New(),
		Name:      "Provider " + string(freq),
		Frequency: freq,
		DueDay:    dueDay,
		CreatedAt: createdAt,
	}
	f.providers.providers[p.ID] = *p
	return p
}
