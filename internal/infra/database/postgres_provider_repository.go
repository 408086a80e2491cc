package database

import (
	"context"
	"database/sql"
	"fmt"

	"utility_billing_bot/internal/domain/provider"

	"github.com/google/uuid"
)

// Custom errors
var ErrProviderNotFound = fmt.Errorf("provider not found")

const providerColumns = `id, name, frequency, comment, due_day, default_amount, created_at`

type PostgresProviderRepository struct {
	db *sql.DB
}

func NewPostgresProviderRepository(db *sql.DB) *PostgresProviderRepository {
	return &PostgresProviderRepository{db: db}
}

func (r *PostgresProviderRepository) Create(ctx context.Context, p *provider.Provider) error {
	query := `INSERT INTO utility_providers (id, name, frequency, comment, due_day, default_amount, created_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.Name, p.Frequency, p.Comment, p.DueDay, p.DefaultAmount, p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("error creating provider: %w", err)
	}
	return nil
}

func (r *PostgresProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*provider.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM utility_providers WHERE id = $1`

	p, err := scanProvider(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("error getting provider by ID: %w", err)
	}
	return p, nil
}

// Update writes the editable fields. created_at is never touched.
func (r *PostgresProviderRepository) Update(ctx context.Context, p *provider.Provider) error {
	query := `UPDATE utility_providers
               SET name = $1, frequency = $2, comment = $3, due_day = $4, default_amount = $5
               WHERE id = $6`

	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.Name, p.Frequency, p.Comment, p.DueDay, p.DefaultAmount, p.ID)
	if err != nil {
		return fmt.Errorf("error updating provider: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrProviderNotFound
	}
	return nil
}

func (r *PostgresProviderRepository) ListAll(ctx context.Context) ([]*provider.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM utility_providers ORDER BY created_at, id`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing providers: %w", err)
	}
	defer rows.Close()

	providers := make([]*provider.Provider, 0)
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating providers: %w", err)
	}
	return providers, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (*provider.Provider, error) {
	p := &provider.Provider{}
	if err := row.Scan(&p.ID, &p.Name, &p.Frequency, &p.Comment, &p.DueDay, &p.DefaultAmount, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}
