package provider

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinDueDay = 1
	// MaxDueDay is capped below 29 so every month has the day.
	MaxDueDay = 28

	MaxCommentLength = 1024
	// AmountScale is the number of fractional digits kept for amounts (NUMERIC(19,4)).
	AmountScale = 4
)

var ErrInvalidProvider = fmt.Errorf("invalid provider")

// Provider is an entity issuing recurring utility bills.
// Corresponds to the 'utility_providers' table.
type Provider struct {
	ID            uuid.UUID
	Name          string
	Frequency     Frequency
	Comment       sql.NullString      // Optional free text
	DueDay        int                 // 1..28
	DefaultAmount decimal.NullDecimal // Used for projected bills, null when unknown
	CreatedAt     time.Time           // UTC, never changes after creation
}

// Validate checks the provider invariants. It does not look at ID or CreatedAt,
// which are assigned by the application layer.
func (p *Provider) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidProvider)
	}
	if !p.Frequency.IsValid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidProvider, p.Frequency)
	}
	if p.DueDay < MinDueDay || p.DueDay > MaxDueDay {
		return fmt.Errorf("%w: due day %d is outside [%d,%d]", ErrInvalidProvider, p.DueDay, MinDueDay, MaxDueDay)
	}
	if p.Comment.Valid && len(p.Comment.String) > MaxCommentLength {
		return fmt.Errorf("%w: comment is longer than %d characters", ErrInvalidProvider, MaxCommentLength)
	}
	if p.DefaultAmount.Valid && p.DefaultAmount.Decimal.IsNegative() {
		return fmt.Errorf("%w: default amount must not be negative", ErrInvalidProvider)
	}
	return nil
}

// ScheduleDiffers reports whether other bills on a different cadence or due day.
func (p *Provider) ScheduleDiffers(other *Provider) bool {
	return p.Frequency != other.Frequency || p.DueDay != other.DueDay
}

// NormalizeAmount rounds an amount to the stored precision.
func NormalizeAmount(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(d.Decimal.Round(AmountScale))
}
