package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables on startup when they are missing.
// provider_id and due_date of bills are nullable: bills stored by an update of an
// unknown bill id carry neither.
const schema = `
CREATE TABLE IF NOT EXISTS utility_providers (
    id UUID PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    frequency VARCHAR(20) NOT NULL,
    comment VARCHAR(1024),
    due_day INTEGER NOT NULL CHECK (due_day BETWEEN 1 AND 28),
    default_amount NUMERIC(19,4) CHECK (default_amount >= 0),
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS bills (
    id UUID PRIMARY KEY,
    provider_id UUID REFERENCES utility_providers(id),
    amount NUMERIC(19,4),
    status VARCHAR(20) NOT NULL,
    due_date TIMESTAMP,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bill_due_date ON bills(due_date);
CREATE INDEX IF NOT EXISTS idx_bill_provider_id ON bills(provider_id);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
