// Package postgres keeps the slot balance and spin journal in PostgreSQL
// through pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/slot/internal/config"
)

// ApplicationName is reported to the server so slot connections can be told
// apart in pg_stat_activity.
const ApplicationName = "slot"

// Pool is the shared connection pool behind the balance store and journal.
type Pool struct {
	db *pgxpool.Pool
}

// NewPool connects to the database described by cfg and verifies it answers.
//
// Precondition: cfg.Validate has succeeded for a postgres backend.
// Postcondition: Returns a pool that answered a ping, or a non-nil error and
// no open connections.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database dsn: %w", err)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}

	db, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("opening pool for %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("reaching %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	return &Pool{db: db}, nil
}

// ErrSchemaMissing is returned by Health when the migrations have not been
// applied.
var ErrSchemaMissing = errors.New("postgres: slot schema missing, run cmd/migrate")

// Health pings the database and checks that the slot tables exist, giving up
// after timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var ready bool
	err := p.db.QueryRow(ctx,
		`SELECT to_regclass('slot_kv') IS NOT NULL AND to_regclass('slot_spins') IS NOT NULL`,
	).Scan(&ready)
	if err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if !ready {
		return ErrSchemaMissing
	}
	return nil
}

// Close closes every connection. The pool is unusable afterwards.
func (p *Pool) Close() { p.db.Close() }

// DB exposes the pgx pool to the repositories in this package.
func (p *Pool) DB() *pgxpool.Pool { return p.db }
