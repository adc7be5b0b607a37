package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/slot/internal/storage"
)

// KVStore persists values in the slot_kv table.
type KVStore struct {
	db    *pgxpool.Pool
	close func()
}

// NewKVStore creates a KVStore backed by the given pool. Closing the store
// closes nothing; the caller owns db.
//
// Precondition: db must be a valid, open connection pool with migrations applied.
func NewKVStore(db *pgxpool.Pool) *KVStore {
	return &KVStore{db: db, close: func() {}}
}

// OpenKVStore creates a KVStore that owns p and closes it on Close.
func OpenKVStore(p *Pool) *KVStore {
	return &KVStore{db: p.DB(), close: p.Close}
}

// Get implements storage.Store.
//
// Postcondition: Returns the stored value or storage.ErrNotFound.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx,
		`SELECT value FROM slot_kv WHERE key = $1`,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("querying key %q: %w", key, err)
	}
	return value, nil
}

// Set implements storage.Store with an upsert.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO slot_kv (key, value)
		 VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("upserting key %q: %w", key, err)
	}
	return nil
}

// Close implements storage.Store.
func (s *KVStore) Close() error {
	s.close()
	return nil
}
