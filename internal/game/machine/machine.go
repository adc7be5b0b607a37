// Package machine sequences a spin: re-entrancy and affordability checks,
// debit, reel animation, outcome resolution, credit-on-win and the feedback
// effects a presentation layer observes.
package machine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/slot/internal/game/grid"
	"github.com/cory-johannsen/slot/internal/game/ledger"
	"github.com/cory-johannsen/slot/internal/game/outcome"
	"github.com/cory-johannsen/slot/internal/game/reel"
	"github.com/cory-johannsen/slot/internal/storage"
)

// Status messages shown after a spin resolves.
const (
	WinMessage  = "🎉 YOU WIN!"
	LoseMessage = "Coba lagi!"
)

var (
	// ErrSpinInProgress is returned when Spin is called while a spin runs.
	ErrSpinInProgress = errors.New("spin already in progress")
	// ErrInsufficientBalance is returned when the balance does not cover the spin cost.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// State is the spin session state.
type State int32

const (
	Idle State = iota
	Spinning
	Resolved
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Spinning:
		return "spinning"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Cue identifies a sound cue.
type Cue int

const (
	CueSpin Cue = iota
	CueWin
)

// String returns "spin" or "win".
func (c Cue) String() string {
	if c == CueWin {
		return "win"
	}
	return "spin"
}

// Flags are the visual effect flags. They persist until the next spin starts.
type Flags struct {
	Highlight bool
	Shake     bool
}

// Config fixes the machine's dimensions and economics.
type Config struct {
	Reels     int
	Rows      int
	SpinCost  int64
	WinReward int64
}

// DefaultConfig returns a 6×5 machine costing 10000 per spin and paying 50000.
func DefaultConfig() Config {
	return Config{Reels: 6, Rows: 5, SpinCost: 10000, WinReward: 50000}
}

// Validate reports every violated constraint in one error.
func (c Config) Validate() error {
	var errs []error
	if c.Reels < 1 {
		errs = append(errs, fmt.Errorf("reels must be >= 1, got %d", c.Reels))
	}
	if c.Rows < 1 {
		errs = append(errs, fmt.Errorf("rows must be >= 1, got %d", c.Rows))
	}
	if c.SpinCost < 0 {
		errs = append(errs, fmt.Errorf("spin cost must not be negative, got %d", c.SpinCost))
	}
	if c.WinReward < 0 {
		errs = append(errs, fmt.Errorf("win reward must not be negative, got %d", c.WinReward))
	}
	return errors.Join(errs...)
}

// Result describes a completed spin.
type Result struct {
	SpinID        uuid.UUID
	Win           bool
	Method        outcome.Method
	Symbol        int
	SymbolID      string
	Cells         [][]int
	BalanceBefore int64
	BalanceAfter  int64
	Elapsed       time.Duration
}

// Observer receives state changes as a spin progresses. GridChanged may be
// called from several goroutines at once while reels animate.
type Observer interface {
	GridChanged(cells [][]int)
	BalanceChanged(balance int64)
	MessageChanged(message string)
	FlagsChanged(flags Flags)
	SpinStateChanged(state State)
	PlayCue(cue Cue)
	Celebrate(symbol int)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) GridChanged([][]int)    {}
func (NopObserver) BalanceChanged(int64)   {}
func (NopObserver) MessageChanged(string)  {}
func (NopObserver) FlagsChanged(Flags)     {}
func (NopObserver) SpinStateChanged(State) {}
func (NopObserver) PlayCue(Cue)            {}
func (NopObserver) Celebrate(int)          {}

// Recorder receives spin telemetry.
type Recorder interface {
	RecordSpin(win bool, symbol string, elapsed time.Duration)
	RecordRejected(reason string)
	RecordBalance(balance int64)
}

type nopRecorder struct{}

func (nopRecorder) RecordSpin(bool, string, time.Duration) {}
func (nopRecorder) RecordRejected(string)                  {}
func (nopRecorder) RecordBalance(int64)                    {}

// Option configures a Machine.
type Option func(*Machine)

// WithObserver sets the initial observer. A nil observer is ignored.
func WithObserver(o Observer) Option {
	return func(m *Machine) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithRecorder sets the telemetry recorder.
func WithRecorder(r Recorder) Option { return func(m *Machine) { m.recorder = r } }

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option { return func(m *Machine) { m.logger = logger } }

// WithJournal records every completed spin in j.
func WithJournal(j storage.Journal) Option { return func(m *Machine) { m.journal = j } }

// Machine owns the grid and the spin session state.
type Machine struct {
	cfg      Config
	grid     *grid.Grid
	ledger   *ledger.Ledger
	engine   *outcome.Engine
	animator *reel.Animator
	recorder Recorder
	journal  storage.Journal
	logger   *zap.Logger
	state    atomic.Int32

	mu       sync.RWMutex
	observer Observer
	message  string
	flags    Flags
	display  int64
}

// New creates an idle Machine with a grid of cfg.Reels × cfg.Rows showing
// the first symbol.
//
// Precondition: l, e and a must be non-nil.
// Postcondition: State() == Idle; the displayed balance equals l.Balance().
func New(cfg Config, l *ledger.Ledger, e *outcome.Engine, a *reel.Animator, opts ...Option) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine config: %w", err)
	}
	g, err := grid.New(cfg.Reels, cfg.Rows)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		cfg:      cfg,
		grid:     g,
		ledger:   l,
		engine:   e,
		animator: a,
		observer: NopObserver{},
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
		display:  l.Balance(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.recorder.RecordBalance(m.display)
	return m, nil
}

// SetObserver replaces the observer. A nil observer disables notifications.
func (m *Machine) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = o
}

func (m *Machine) obs() Observer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.observer
}

// Config returns the machine configuration.
func (m *Machine) Config() Config { return m.cfg }

// State returns the current spin session state.
func (m *Machine) State() State { return State(m.state.Load()) }

// CanSpin reports whether a spin would be accepted right now.
func (m *Machine) CanSpin() bool {
	return m.State() == Idle && m.ledger.CanAfford(m.cfg.SpinCost)
}

// Cells returns a copy of the grid.
func (m *Machine) Cells() [][]int { return m.grid.Snapshot() }

// Message returns the status message.
func (m *Machine) Message() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.message
}

// Flags returns the visual effect flags.
func (m *Machine) Flags() Flags {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags
}

// DisplayBalance returns the balance as currently shown. It trails the
// ledger while a credit ramp plays.
func (m *Machine) DisplayBalance() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.display
}

// Spin runs one complete spin and returns its result. It blocks until the
// reels have stopped and any credit ramp has finished.
//
// ErrSpinInProgress and ErrInsufficientBalance are returned without any side
// effect. Once started, a spin runs to completion: cancelling ctx only cuts
// the animation and the credit ramp short.
//
// Postcondition: on success the ledger balance equals
// BalanceBefore - SpinCost (+ WinReward on a win) and State() == Idle.
func (m *Machine) Spin(ctx context.Context) (Result, error) {
	if !m.state.CompareAndSwap(int32(Idle), int32(Spinning)) {
		m.recorder.RecordRejected("in_progress")
		return Result{}, ErrSpinInProgress
	}

	start := time.Now()
	before := m.ledger.Balance()
	ok, err := m.ledger.Debit(ctx, m.cfg.SpinCost)
	if !ok {
		m.state.Store(int32(Idle))
		if err != nil {
			return Result{}, err
		}
		m.recorder.RecordRejected("insufficient_balance")
		return Result{}, ErrInsufficientBalance
	}
	defer m.setState(Idle)

	res := Result{SpinID: uuid.New(), BalanceBefore: before}
	logger := m.logger.With(zap.String("spin_id", res.SpinID.String()))
	if err != nil {
		logger.Warn("debit not persisted", zap.Error(err))
	}
	afterDebit := m.ledger.Balance()

	m.setMessage("")
	m.setFlags(Flags{})
	m.obs().SpinStateChanged(Spinning)
	m.showBalance(afterDebit)
	m.obs().PlayCue(CueSpin)
	logger.Info("spin started",
		zap.Int64("balance_before", before),
		zap.Int64("cost", m.cfg.SpinCost),
	)

	if err := m.animator.Animate(ctx, m.grid, func(int) {
		m.obs().GridChanged(m.grid.Snapshot())
	}); err != nil {
		logger.Warn("reel animation interrupted", zap.Error(err))
	}

	out := m.engine.Resolve(m.cfg.Reels, m.cfg.Rows)
	if err := m.grid.Replace(out.Cells); err != nil {
		// Resolve always produces the configured dimensions.
		logger.Error("replacing grid", zap.Error(err))
	}
	res.Win = out.Win
	res.Method = out.Method
	res.Symbol = out.Symbol
	res.Cells = out.Cells
	m.obs().GridChanged(m.grid.Snapshot())
	m.setState(Resolved)

	if out.Win {
		res.SymbolID = m.engine.Registry().At(out.Symbol).ID
		m.obs().PlayCue(CueWin)
		m.setMessage(WinMessage)
		m.setFlags(Flags{Highlight: true})
		m.obs().Celebrate(out.Symbol)
		if err := m.ledger.CreditAnimated(ctx, afterDebit, m.cfg.WinReward, m.showBalance); err != nil {
			logger.Warn("credit ramp", zap.Error(err))
		}
	} else {
		m.setMessage(LoseMessage)
		m.setFlags(Flags{Shake: true})
	}

	res.BalanceAfter = m.ledger.Balance()
	res.Elapsed = time.Since(start)
	m.recorder.RecordSpin(res.Win, res.SymbolID, res.Elapsed)
	if m.journal != nil {
		rec := storage.SpinRecord{
			ID:            res.SpinID,
			Win:           res.Win,
			Symbol:        res.SymbolID,
			BalanceBefore: res.BalanceBefore,
			BalanceAfter:  res.BalanceAfter,
			At:            start,
		}
		if err := m.journal.Append(context.WithoutCancel(ctx), rec); err != nil {
			logger.Warn("spin not journaled", zap.Error(err))
		}
	}
	logger.Info("spin resolved",
		zap.Bool("win", res.Win),
		zap.Stringer("method", res.Method),
		zap.String("symbol", res.SymbolID),
		zap.Int64("balance_after", res.BalanceAfter),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func (m *Machine) setState(s State) {
	if State(m.state.Swap(int32(s))) == s {
		return
	}
	m.obs().SpinStateChanged(s)
}

func (m *Machine) setMessage(msg string) {
	m.mu.Lock()
	m.message = msg
	o := m.observer
	m.mu.Unlock()
	o.MessageChanged(msg)
}

func (m *Machine) setFlags(f Flags) {
	m.mu.Lock()
	m.flags = f
	o := m.observer
	m.mu.Unlock()
	o.FlagsChanged(f)
}

func (m *Machine) showBalance(v int64) {
	m.mu.Lock()
	m.display = v
	o := m.observer
	m.mu.Unlock()
	m.recorder.RecordBalance(v)
	o.BalanceChanged(v)
}
