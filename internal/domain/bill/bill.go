package bill

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = fmt.Errorf("bill amount must not be negative")

// Bill is one billing obligation of a provider in a specific month.
// Corresponds to the 'bills' table.
type Bill struct {
	ID         uuid.UUID
	ProviderID uuid.NullUUID       // Reference only; null for shells created by an update of an unknown id
	Amount     decimal.NullDecimal // Null until the operator fills it in
	Status     Status
	DueDate    sql.NullTime // UTC, start of day
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateAmount rejects negative amounts; a null amount is always fine.
func ValidateAmount(amount decimal.NullDecimal) error {
	if amount.Valid && amount.Decimal.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// DueOn reports whether the bill's due date falls on the given calendar day.
func (b *Bill) DueOn(day time.Time) bool {
	if !b.DueDate.Valid {
		return false
	}
	y1, m1, d1 := b.DueDate.Time.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
