package httpapi

import (
	"database/sql"
	"time"

	"utility_billing_bot/internal/app"
	"utility_billing_bot/internal/domain/bill"
	"utility_billing_bot/internal/domain/provider"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProviderRequest is the body of provider create and update calls.
type ProviderRequest struct {
	Name          string           `json:"name" binding:"required,max=255"`
	Frequency     string           `json:"frequency" binding:"required,frequency"`
	Comment       *string          `json:"comment" binding:"omitempty,max=1024"`
	DueDay        int              `json:"dueDay" binding:"required,min=1,max=28"`
	DefaultAmount *decimal.Decimal `json:"defaultAmount"`
}

func (r ProviderRequest) toInput() app.ProviderInput {
	in := app.ProviderInput{
		Name:      r.Name,
		Frequency: provider.Frequency(r.Frequency),
		DueDay:    r.DueDay,
	}
	if r.Comment != nil {
		in.Comment = sql.NullString{String: *r.Comment, Valid: true}
	}
	if r.DefaultAmount != nil {
		in.DefaultAmount = decimal.NewNullDecimal(*r.DefaultAmount)
	}
	return in
}

// BillUpdateRequest is the body of a bill update. A missing amount keeps the stored one.
type BillUpdateRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Status string           `json:"status" binding:"required,billstatus"`
}

func (r BillUpdateRequest) amount() decimal.NullDecimal {
	if r.Amount == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*r.Amount)
}

type ProviderResponse struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	Frequency     provider.Frequency  `json:"frequency"`
	Comment       *string             `json:"comment"`
	DueDay        int                 `json:"dueDay"`
	DefaultAmount decimal.NullDecimal `json:"defaultAmount"`
	CreatedAt     time.Time           `json:"createdAt"`
}

func toProviderResponse(p *provider.Provider) ProviderResponse {
	resp := ProviderResponse{
		ID:            p.ID,
		Name:          p.Name,
		Frequency:     p.Frequency,
		DueDay:        p.DueDay,
		DefaultAmount: p.DefaultAmount,
		CreatedAt:     p.CreatedAt,
	}
	if p.Comment.Valid {
		comment := p.Comment.String
		resp.Comment = &comment
	}
	return resp
}

type BillResponse struct {
	ID         uuid.UUID           `json:"id"`
	ProviderID *uuid.UUID          `json:"providerId"`
	Amount     decimal.NullDecimal `json:"amount"`
	Status     bill.Status         `json:"status"`
	DueDate    *time.Time          `json:"dueDate"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

func toBillResponse(b *bill.Bill) BillResponse {
	resp := BillResponse{
		ID:        b.ID,
		Amount:    b.Amount,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.ProviderID.Valid {
		id := b.ProviderID.UUID
		resp.ProviderID = &id
	}
	if b.DueDate.Valid {
		due := b.DueDate.Time
		resp.DueDate = &due
	}
	return resp
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details []ValidationError `json:"details,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
