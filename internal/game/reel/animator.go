// Package reel drives the spinning-reel illusion: each column flickers with
// random symbols for a window that grows with its index before settling.
package reel

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/slot/internal/game/dice"
	"github.com/cory-johannsen/slot/internal/game/grid"
	"github.com/cory-johannsen/slot/internal/game/symbol"
)

// Timing holds the animation cadence.
type Timing struct {
	// Stagger is the delay before each column starts spinning.
	Stagger time.Duration
	// Tick is the interval between column redraws.
	Tick time.Duration
	// Window is how long column 0 spins.
	Window time.Duration
	// WindowStep is added to the window for each subsequent column.
	WindowStep time.Duration
}

// DefaultTiming returns 150ms stagger, 80ms ticks and a 600ms + 180ms·i window.
func DefaultTiming() Timing {
	return Timing{
		Stagger:    150 * time.Millisecond,
		Tick:       80 * time.Millisecond,
		Window:     600 * time.Millisecond,
		WindowStep: 180 * time.Millisecond,
	}
}

// WindowFor returns how long column col spins.
//
// Precondition: col >= 0.
func (t Timing) WindowFor(col int) time.Duration {
	return t.Window + time.Duration(col)*t.WindowStep
}

// Validate checks that every duration is usable by a ticker or timer.
func (t Timing) Validate() error {
	if t.Tick <= 0 {
		return errors.New("animation tick must be > 0")
	}
	if t.Stagger < 0 || t.Window < 0 || t.WindowStep < 0 {
		return errors.New("animation stagger, window and window step must not be negative")
	}
	return nil
}

// Animator owns the per-column spin tasks of a single animation.
type Animator struct {
	reg    *symbol.Registry
	src    dice.Source
	timing Timing
	logger *zap.Logger
}

// NewAnimator creates an Animator drawing noise symbols from src.
//
// Precondition: reg, src and logger must be non-nil; timing.Validate() == nil.
func NewAnimator(reg *symbol.Registry, src dice.Source, timing Timing, logger *zap.Logger) *Animator {
	return &Animator{reg: reg, src: src, timing: timing, logger: logger}
}

// Timing returns the animator's cadence.
func (a *Animator) Timing() Timing { return a.timing }

// Animate spins every column of g in order and blocks until all columns have
// stopped. Column i starts after its stagger delay; it then redraws on every
// tick until its own window elapses. Earlier columns keep spinning while later
// ones start. onFrame, if non-nil, is called after each column redraw and may
// be invoked from several goroutines at once.
//
// Animate does not decide final content: the grid is left showing noise.
//
// Postcondition: Every per-column task has stopped when Animate returns.
// Returns ctx.Err() if ctx was cancelled before all columns started.
func (a *Animator) Animate(ctx context.Context, g *grid.Grid, onFrame func(col int)) error {
	start := time.Now()
	var eg errgroup.Group
	var err error
	started := 0
	for col := 0; col < g.Reels(); col++ {
		if err = sleep(ctx, a.timing.Stagger); err != nil {
			break
		}
		colCtx, cancel := context.WithTimeout(ctx, a.timing.WindowFor(col))
		eg.Go(func() error {
			defer cancel()
			a.spinColumn(colCtx, g, col, onFrame)
			return nil
		})
		started++
	}
	_ = eg.Wait()

	a.logger.Debug("reel animation finished",
		zap.Int("columns", started),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	return err
}

// spinColumn redraws one column on every tick until ctx is done.
func (a *Animator) spinColumn(ctx context.Context, g *grid.Grid, col int, onFrame func(int)) {
	ticker := time.NewTicker(a.timing.Tick)
	defer ticker.Stop()

	frames := 0
	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("reel stopped",
				zap.Int("column", col),
				zap.Int("frames", frames),
			)
			return
		case <-ticker.C:
			if err := g.SetColumn(col, a.reg.DrawN(a.src, g.Rows())); err != nil {
				a.logger.Error("redrawing reel", zap.Int("column", col), zap.Error(err))
				return
			}
			frames++
			if onFrame != nil {
				onFrame(col)
			}
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
