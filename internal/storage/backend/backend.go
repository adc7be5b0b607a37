// Package backend opens the configured storage backend.
package backend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/slot/internal/config"
	"github.com/cory-johannsen/slot/internal/storage"
	"github.com/cory-johannsen/slot/internal/storage/file"
	"github.com/cory-johannsen/slot/internal/storage/memory"
	"github.com/cory-johannsen/slot/internal/storage/postgres"
	"github.com/cory-johannsen/slot/internal/storage/redis"
)

// journalLimit bounds the in-process journal used by backends without one.
const journalLimit = 100

// Backend bundles the balance store and the spin journal.
type Backend struct {
	Store   storage.Store
	Journal storage.Journal
	Name    string

	health  func(ctx context.Context, timeout time.Duration) error
	timeout time.Duration
}

// Close releases the store.
func (b *Backend) Close() error { return b.Store.Close() }

// Health checks that a networked backend is reachable within the storage
// timeout. Local backends are always healthy.
func (b *Backend) Health(ctx context.Context) error {
	if b.health == nil {
		return nil
	}
	if err := b.health(ctx, b.timeout); err != nil {
		return fmt.Errorf("%s unhealthy: %w", b.Name, err)
	}
	return nil
}

// Open connects to the backend named by cfg.Storage.Backend. Every store
// operation is bounded by cfg.Storage.Timeout.
//
// Precondition: cfg must have passed Validate.
// Postcondition: Returns a ready Backend or a non-nil error.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Backend, error) {
	b := &Backend{Name: cfg.Storage.Backend, timeout: cfg.Storage.Timeout}
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		b.Store = memory.New()
		b.Journal = memory.NewJournal(journalLimit)
	case config.BackendFile:
		b.Store = file.New(cfg.Storage.Path)
		b.Journal = memory.NewJournal(journalLimit)
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		b.Store = postgres.OpenKVStore(pool)
		b.Journal = postgres.NewSpinRepository(pool.DB())
		b.health = pool.Health
	case config.BackendRedis:
		s, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		b.Store = s
		b.Journal = memory.NewJournal(journalLimit)
		b.health = s.Health
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	b.Store = WithTimeout(b.Store, cfg.Storage.Timeout)
	if err := b.Health(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}

	logger.Info("storage opened",
		zap.String("backend", b.Name),
		zap.Duration("timeout", cfg.Storage.Timeout),
	)
	return b, nil
}

type timeoutStore struct {
	storage.Store
	timeout time.Duration
}

// WithTimeout bounds every Get and Set of s by d. A non-positive d returns s.
func WithTimeout(s storage.Store, d time.Duration) storage.Store {
	if d <= 0 {
		return s
	}
	return timeoutStore{Store: s, timeout: d}
}

func (t timeoutStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Store.Get(ctx, key)
}

func (t timeoutStore) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Store.Set(ctx, key, value)
}
