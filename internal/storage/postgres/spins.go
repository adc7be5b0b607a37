package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/slot/internal/storage"
)

// SpinRepository records completed spins in the slot_spins table.
type SpinRepository struct {
	db *pgxpool.Pool
}

// NewSpinRepository creates a SpinRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSpinRepository(db *pgxpool.Pool) *SpinRepository {
	return &SpinRepository{db: db}
}

// Append implements storage.Journal. A zero At is stamped by the database.
func (r *SpinRepository) Append(ctx context.Context, rec storage.SpinRecord) error {
	var err error
	if rec.At.IsZero() {
		_, err = r.db.Exec(ctx,
			`INSERT INTO slot_spins (id, win, symbol, balance_before, balance_after)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.Win, rec.Symbol, rec.BalanceBefore, rec.BalanceAfter,
		)
	} else {
		_, err = r.db.Exec(ctx,
			`INSERT INTO slot_spins (id, win, symbol, balance_before, balance_after, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.Win, rec.Symbol, rec.BalanceBefore, rec.BalanceAfter, rec.At,
		)
	}
	if err != nil {
		return fmt.Errorf("inserting spin %s: %w", rec.ID, err)
	}
	return nil
}

// Recent implements storage.Journal.
//
// Postcondition: Returns at most limit records ordered newest first.
func (r *SpinRepository) Recent(ctx context.Context, limit int) ([]storage.SpinRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, win, symbol, balance_before, balance_after, created_at
		 FROM slot_spins ORDER BY created_at DESC, id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying spins: %w", err)
	}
	defer rows.Close()

	var out []storage.SpinRecord
	for rows.Next() {
		var rec storage.SpinRecord
		if err := rows.Scan(&rec.ID, &rec.Win, &rec.Symbol, &rec.BalanceBefore, &rec.BalanceAfter, &rec.At); err != nil {
			return nil, fmt.Errorf("scanning spin: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating spins: %w", err)
	}
	return out, nil
}
