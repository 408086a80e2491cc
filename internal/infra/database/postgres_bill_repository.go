package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"utility_billing_bot/internal/domain/bill"

	"github.com/google/uuid"
)

var ErrBillNotFound = fmt.Errorf("bill not found")

const billColumns = `id, provider_id, amount, status, due_date, created_at, updated_at`

type PostgresBillRepository struct {
	db *sql.DB
}

func NewPostgresBillRepository(db *sql.DB) *PostgresBillRepository {
	return &PostgresBillRepository{db: db}
}

func (r *PostgresBillRepository) Create(ctx context.Context, b *bill.Bill) error {
	query := `INSERT INTO bills (id, provider_id, amount, status, due_date, created_at, updated_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		b.ID, b.ProviderID, b.Amount, b.Status, b.DueDate, b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("error creating bill: %w", err)
	}
	return nil
}

func (r *PostgresBillRepository) GetByID(ctx context.Context, id uuid.UUID) (*bill.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1`

	b, err := scanBill(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("error getting bill by ID: %w", err)
	}
	return b, nil
}

func (r *PostgresBillRepository) Update(ctx context.Context, b *bill.Bill) error {
	query := `UPDATE bills SET amount = $1, status = $2, updated_at = $3 WHERE id = $4`

	res, err := conn(ctx, r.db).ExecContext(ctx, query, b.Amount, b.Status, b.UpdatedAt.UTC(), b.ID)
	if err != nil {
		return fmt.Errorf("error updating bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (r *PostgresBillRepository) ListByDueDateBetween(ctx context.Context, from, to time.Time) ([]*bill.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills
               WHERE due_date BETWEEN $1 AND $2 ORDER BY due_date, id`
	return r.list(ctx, "by due date", query, from.UTC(), to.UTC())
}

func (r *PostgresBillRepository) ListByProviderAndDueDateBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*bill.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills
               WHERE provider_id = $1 AND due_date BETWEEN $2 AND $3 ORDER BY due_date, id`
	return r.list(ctx, "by provider and due date", query, providerID, from.UTC(), to.UTC())
}

func (r *PostgresBillRepository) ListDueOnOrBefore(ctx context.Context, t time.Time) ([]*bill.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills
               WHERE due_date <= $1 ORDER BY due_date, id`
	return r.list(ctx, "due on or before", query, t.UTC())
}

func (r *PostgresBillRepository) DeleteByProviderAndDueDateBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) (int64, error) {
	query := `DELETE FROM bills WHERE provider_id = $1 AND due_date BETWEEN $2 AND $3`

	res, err := conn(ctx, r.db).ExecContext(ctx, query, providerID, from.UTC(), to.UTC())
	if err != nil {
		return 0, fmt.Errorf("error deleting bills: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n, nil
}

func (r *PostgresBillRepository) list(ctx context.Context, what, query string, args ...any) ([]*bill.Bill, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing bills %s: %w", what, err)
	}
	defer rows.Close()

	bills := make([]*bill.Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning bill row: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bill rows: %w", err)
	}
	return bills, nil
}

func scanBill(row rowScanner) (*bill.Bill, error) {
	b := &bill.Bill{}
	if err := row.Scan(&b.ID, &b.ProviderID, &b.Amount, &b.Status, &b.DueDate, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if b.DueDate.Valid {
		b.DueDate.Time = b.DueDate.Time.UTC()
	}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}
