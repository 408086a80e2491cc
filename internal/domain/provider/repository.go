package provider

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the operations for persisting and retrieving providers.
type Repository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	Update(ctx context.Context, p *Provider) error // Name, Frequency, Comment, DueDay, DefaultAmount; never CreatedAt
	ListAll(ctx context.Context) ([]*Provider, error)
}
