// Package schedule decides which months a provider owes a bill for and
// projects the bills of a month without touching storage.
package schedule

import (
	"crypto/md5"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"utility_billing_bot/internal/domain/bill"
	"utility_billing_bot/internal/domain/provider"

	"github.com/google/uuid"
)

// IsEligible reports whether p owes a bill in target. A provider never owes a bill
// for a month before the one it was created in.
func IsEligible(p *provider.Provider, target YearMonth) bool {
	created := YearMonthOf(p.CreatedAt)
	if target.Before(created) {
		return false
	}

	switch p.Frequency {
	case provider.FrequencyMonthly:
		return true
	case provider.FrequencyBiMonthly:
		return target.MonthsSince(created)%2 == 0
	case provider.FrequencyYearly:
		return target.Month == created.Month
	default:
		return false
	}
}

// DueDateFor is the provider's due day in target, clipped to the month length, at 00:00 UTC.
func DueDateFor(p *provider.Provider, target YearMonth) time.Time {
	return target.Day(p.DueDay)
}

// ProjectedBillID derives a stable id from the provider and month, so projecting
// the same month twice yields the same ids.
func ProjectedBillID(providerID uuid.UUID, target YearMonth) uuid.UUID {
	name := fmt.Sprintf("%s-%d-%d", providerID, target.Year, int(target.Month))
	// Version 3 over the bare name with no namespace, so ids match the ones the
	// earlier billing service handed out for the same provider and month.
	id := uuid.UUID(md5.Sum([]byte(name)))
	id[6] = (id[6] & 0x0f) | 0x30
	id[8] = (id[8] & 0x3f) | 0x80
	return id
}

// ProjectMonth builds the non-persisted bills of target for every eligible provider,
// ordered by due date and then by provider id.
func ProjectMonth(providers []*provider.Provider, target YearMonth, now time.Time) []*bill.Bill {
	now = now.UTC()
	bills := make([]*bill.Bill, 0, len(providers))
	for _, p := range providers {
		if !IsEligible(p, target) {
			continue
		}
		bills = append(bills, &bill.Bill{
			ID:         ProjectedBillID(p.ID, target),
			ProviderID: uuid.NullUUID{UUID: p.ID, Valid: true},
			Amount:     p.DefaultAmount,
			Status:     bill.StatusNotArrived,
			DueDate:    sql.NullTime{Time: DueDateFor(p, target), Valid: true},
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	sort.SliceStable(bills, func(i, j int) bool {
		di, dj := bills[i].DueDate.Time, bills[j].DueDate.Time
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return bills[i].ProviderID.UUID.String() < bills[j].ProviderID.UUID.String()
	})
	return bills
}
