package bill

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines operations for persisted bills. Date ranges are inclusive on both ends.
type Repository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	Update(ctx context.Context, b *Bill) error // Amount, Status, UpdatedAt
	ListByDueDateBetween(ctx context.Context, from, to time.Time) ([]*Bill, error)
	ListByProviderAndDueDateBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*Bill, error)
	ListDueOnOrBefore(ctx context.Context, t time.Time) ([]*Bill, error)
	// DeleteByProviderAndDueDateBetween removes the provider's bills in the range and returns how many were removed.
	DeleteByProviderAndDueDateBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) (int64, error)
}
