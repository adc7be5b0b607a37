// Package ledger owns the player's credit balance: affordability checks,
// debit-on-spin, credit-on-win, persistence and the animated credit ramp.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/slot/internal/storage"
)

const (
	// DefaultKey is the storage key holding the balance.
	DefaultKey = "slot_balance"
	// DefaultBalance is used when no valid balance has been stored.
	DefaultBalance int64 = 90000
	// DefaultRampSteps is the number of visible increments in a credit ramp.
	DefaultRampSteps = 25
	// DefaultRampTick is the delay between ramp increments.
	DefaultRampTick = 40 * time.Millisecond
)

// ErrNegativeAmount is returned when a debit or credit amount is below zero.
var ErrNegativeAmount = errors.New("ledger: amount must not be negative")

// Ledger is the authoritative balance. All methods are safe for concurrent use.
//
// Invariant: 0 <= Balance() <= math.MaxInt64.
type Ledger struct {
	mu        sync.Mutex
	balance   int64
	store     storage.Store
	key       string
	fallback  int64
	rampSteps int
	rampTick  time.Duration
	logger    *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithKey sets the storage key.
func WithKey(key string) Option { return func(l *Ledger) { l.key = key } }

// WithDefaultBalance sets the balance used when nothing valid is stored.
func WithDefaultBalance(b int64) Option { return func(l *Ledger) { l.fallback = b } }

// WithRamp sets the number of steps and the tick of CreditAnimated.
func WithRamp(steps int, tick time.Duration) Option {
	return func(l *Ledger) {
		l.rampSteps = steps
		l.rampTick = tick
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option { return func(l *Ledger) { l.logger = logger } }

// New creates a Ledger backed by store. The balance starts at the default
// until Load is called.
//
// Precondition: store must be non-nil.
func New(store storage.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		key:       DefaultKey,
		fallback:  DefaultBalance,
		rampSteps: DefaultRampSteps,
		rampTick:  DefaultRampTick,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.rampSteps < 1 {
		l.rampSteps = 1
	}
	l.balance = l.fallback
	return l
}

// Load reads the stored balance. A missing, unreadable, non-numeric or
// negative value falls back to the default balance.
//
// Postcondition: Balance() returns the loaded or default value.
func (l *Ledger) Load(ctx context.Context) int64 {
	raw, err := l.store.Get(ctx, l.key)
	value, perr := parse(raw, err)

	l.mu.Lock()
	defer l.mu.Unlock()
	if perr != nil {
		if errors.Is(perr, storage.ErrNotFound) {
			l.logger.Info("no stored balance, using default",
				zap.String("key", l.key),
				zap.Int64("balance", l.fallback),
			)
		} else {
			l.logger.Warn("stored balance unusable, using default",
				zap.String("key", l.key),
				zap.Int64("balance", l.fallback),
				zap.Error(perr),
			)
		}
		l.balance = l.fallback
		return l.balance
	}
	l.balance = value
	l.logger.Info("balance loaded", zap.String("key", l.key), zap.Int64("balance", value))
	return l.balance
}

func parse(raw string, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing stored balance %q: %w", raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("stored balance %d is negative", v)
	}
	return v, nil
}

// Balance returns the current balance.
func (l *Ledger) Balance() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// CanAfford reports whether the balance covers cost.
func (l *Ledger) CanAfford(cost int64) bool {
	return l.Balance() >= cost
}

// Debit subtracts cost if the balance covers it. It is a no-op returning
// false otherwise. The new balance is persisted even if ctx is cancelled; a
// persistence error is returned but the in-memory debit stands.
//
// Precondition: cost >= 0.
// Postcondition: ok implies Balance() decreased by exactly cost.
func (l *Ledger) Debit(ctx context.Context, cost int64) (ok bool, err error) {
	if cost < 0 {
		return false, ErrNegativeAmount
	}
	l.mu.Lock()
	if l.balance < cost {
		l.mu.Unlock()
		return false, nil
	}
	l.balance -= cost
	value := l.balance
	l.mu.Unlock()
	return true, l.persist(ctx, value)
}

// Credit adds amount, saturating at math.MaxInt64, and persists the result.
//
// Precondition: amount >= 0.
func (l *Ledger) Credit(ctx context.Context, amount int64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	l.balance = SaturatingAdd(l.balance, amount)
	value := l.balance
	l.mu.Unlock()
	return l.persist(ctx, value)
}

// Persist writes the current balance to the store.
func (l *Ledger) Persist(ctx context.Context) error {
	return l.persist(ctx, l.Balance())
}

// persist writes value even when ctx is already cancelled, so a balance
// change made in memory always reaches the store. The store's own timeout
// still bounds the write.
func (l *Ledger) persist(ctx context.Context, value int64) error {
	if err := l.store.Set(context.WithoutCancel(ctx), l.key, strconv.FormatInt(value, 10)); err != nil {
		return fmt.Errorf("persisting balance: %w", err)
	}
	return nil
}

// CreditAnimated credits amount immediately and then replays the increase
// through display as a Ramp from start, one value per tick. If ctx is
// cancelled mid-ramp the final value is displayed at once.
//
// A persistence failure does not stop the ramp; it is returned once the ramp
// completes.
//
// Precondition: amount >= 0; display must be non-nil.
// Postcondition: display's last call receives exactly start+amount (saturated).
func (l *Ledger) CreditAnimated(ctx context.Context, start, amount int64, display func(int64)) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	persistErr := l.Credit(ctx, amount)
	if persistErr != nil {
		l.logger.Warn("credit not persisted", zap.Error(persistErr))
	}

	values := Ramp(start, amount, l.rampSteps)
	ticker := time.NewTicker(l.rampTick)
	defer ticker.Stop()
	for _, v := range values {
		select {
		case <-ctx.Done():
			display(values[len(values)-1])
			return ctx.Err()
		case <-ticker.C:
			display(v)
		}
	}
	return persistErr
}

// Ramp returns the displayed values of a credit animation from start to
// start+amount in steps increments. The per-step increment is
// max(1, amount/steps); values are clamped at the target and the last one
// snaps to it.
//
// Precondition: amount >= 0; steps >= 1.
// Postcondition: len == steps; values are non-decreasing, never exceed the
// target, and the last equals the target.
func Ramp(start, amount int64, steps int) []int64 {
	if steps < 1 {
		steps = 1
	}
	end := SaturatingAdd(start, amount)
	step := max(int64(1), (end-start)/int64(steps))
	out := make([]int64, steps)
	current := start
	for i := range out {
		current = min(end, SaturatingAdd(current, step))
		out[i] = current
	}
	out[steps-1] = end
	return out
}

// SaturatingAdd returns a+b clamped to math.MaxInt64.
//
// Precondition: a >= 0 and b >= 0.
func SaturatingAdd(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}
