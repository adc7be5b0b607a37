// Package shell is the text presentation of the slot machine. A Shell draws
// the machine on a Terminal, redraws it on every machine notification, and
// turns input lines into spins.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/slot/internal/frontend/audio"
	"github.com/cory-johannsen/slot/internal/frontend/confetti"
	"github.com/cory-johannsen/slot/internal/frontend/telnet"
	"github.com/cory-johannsen/slot/internal/game/dice"
	"github.com/cory-johannsen/slot/internal/game/machine"
	"github.com/cory-johannsen/slot/internal/storage"
)

// Terminal is a line-oriented input with a byte output. Writes must be safe
// for concurrent use.
type Terminal interface {
	ReadLine() (string, error)
	io.Writer
}

// HistoryLimit is the number of spins the history command lists.
const HistoryLimit = 5

var helpText = []string{
	"Commands:",
	"  spin, s or Enter  spin the reels",
	"  history           show the last spins",
	"  help              show this text",
	"  quit              leave the machine",
}

var shakeOffsets = []int{2, 0, 2, 0, 1, 0}

// Option configures a Shell.
type Option func(*Shell)

// WithPlayer sets the sound cue player.
func WithPlayer(p audio.Player) Option { return func(s *Shell) { s.player = p } }

// WithJournal enables the history command.
func WithJournal(j storage.Journal) Option { return func(s *Shell) { s.journal = j } }

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option { return func(s *Shell) { s.logger = logger } }

// WithConfetti sets the burst shape, the character area it is drawn on and
// the randomness its particles are launched with.
func WithConfetti(o confetti.Options, cols, rows int, src dice.Source) Option {
	return func(s *Shell) {
		s.burst = o
		s.cols, s.rows = cols, rows
		s.src = src
	}
}

// WithSpinContext runs spins on ctx rather than on the session's context.
// Shells that share a machine use it so that one player leaving does not cut
// short a spin the others are watching.
func WithSpinContext(ctx context.Context) Option { return func(s *Shell) { s.spinCtx = ctx } }

// WithFrameInterval sets the delay between effect frames.
func WithFrameInterval(d time.Duration) Option { return func(s *Shell) { s.frame = d } }

// Shell drives one player's terminal. It implements machine.Observer and
// receives notifications through a Hub while Run is active.
type Shell struct {
	machine  *machine.Machine
	hub      *Hub
	term     Terminal
	renderer *Renderer
	player   audio.Player
	journal  storage.Journal
	logger   *zap.Logger

	burst      confetti.Options
	cols, rows int
	src        dice.Source
	frame      time.Duration
	spinCtx    context.Context

	wg   sync.WaitGroup
	mu   sync.Mutex
	ctx  context.Context
	view View
}

var _ machine.Observer = (*Shell)(nil)

// New creates a Shell for term.
//
// Precondition: m, hub, term and r must be non-nil; hub must be m's observer.
func New(m *machine.Machine, hub *Hub, term Terminal, r *Renderer, opts ...Option) *Shell {
	s := &Shell{
		machine:  m,
		hub:      hub,
		term:     term,
		renderer: r,
		player:   audio.Nop{},
		logger:   zap.NewNop(),
		burst:    confetti.DefaultOptions(),
		cols:     40,
		rows:     8,
		src:      dice.NewCryptoSource(),
		frame:    20 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run draws the machine and serves input until the player quits, the input
// ends, or ctx is cancelled. A spin that is under way when Run returns is
// finished first; without WithSpinContext, cancelling ctx also shortens its
// animation. A nil error means the session ended normally.
func (s *Shell) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.ctx = ctx
	s.view = s.current()
	s.mu.Unlock()

	detach := s.hub.Attach(s)
	defer func() {
		detach()
		cancel()
		s.wg.Wait()
		_, _ = io.WriteString(s.term, "\r\n")
	}()
	s.update(func(*View) {})

	lines := make(chan string)
	readErr := make(chan error, 1)
	// ReadLine cannot be interrupted; the reader exits on its next line.
	go func() {
		for {
			line, err := s.term.ReadLine()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case line := <-lines:
			if s.handle(ctx, line) {
				return nil
			}
		}
	}
}

// handle executes one input line and reports whether the player quit.
func (s *Shell) handle(ctx context.Context, line string) (quit bool) {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch cmd {
	case "", "spin", "s":
		s.setNote()
		s.spin(ctx)
	case "quit", "q", "exit":
		return true
	case "help", "?":
		s.setNote(helpText...)
	case "history", "h":
		s.history(ctx)
	default:
		s.setNote(fmt.Sprintf("Unknown command %q. Type help for commands.", cmd))
	}
	return false
}

func (s *Shell) spin(ctx context.Context) {
	if s.spinCtx != nil {
		ctx = s.spinCtx
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, err := s.machine.Spin(ctx)
		switch {
		case err == nil:
		case errors.Is(err, machine.ErrSpinInProgress), errors.Is(err, machine.ErrInsufficientBalance):
			s.logger.Debug("spin ignored", zap.Error(err))
		default:
			s.logger.Warn("spin failed", zap.Error(err))
		}
	}()
}

func (s *Shell) history(ctx context.Context) {
	if s.journal == nil {
		s.setNote("History is not available.")
		return
	}
	recs, err := s.journal.Recent(ctx, HistoryLimit)
	if err != nil {
		s.logger.Warn("reading spin history", zap.Error(err))
		s.setNote("History is not available.")
		return
	}
	if len(recs) == 0 {
		s.setNote("No spins yet.")
		return
	}
	note := make([]string, 0, len(recs)+1)
	note = append(note, "Last spins:")
	for _, rec := range recs {
		result := "lose"
		if rec.Win {
			result = "WIN " + rec.Symbol
		}
		note = append(note, fmt.Sprintf("  %s  %-12s %s -> %s",
			rec.At.Local().Format(time.TimeOnly),
			result,
			s.renderer.Amount(rec.BalanceBefore),
			s.renderer.Amount(rec.BalanceAfter),
		))
	}
	s.setNote(note...)
}

func (s *Shell) current() View {
	return View{
		Balance: s.machine.DisplayBalance(),
		Cells:   s.machine.Cells(),
		State:   s.machine.State(),
		CanSpin: s.machine.CanSpin(),
		Message: s.machine.Message(),
		Flags:   s.machine.Flags(),
	}
}

// update applies f to the view and redraws the screen.
func (s *Shell) update(f func(*View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.view)
	s.view.CanSpin = s.machine.CanSpin()
	screen := telnet.Redraw + s.renderer.Render(s.view) + "\r\n" + Prompt
	if _, err := io.WriteString(s.term, screen); err != nil {
		s.logger.Debug("redraw failed", zap.Error(err))
	}
}

func (s *Shell) setNote(lines ...string) {
	s.update(func(v *View) { v.Note = lines })
}

// animate runs f on its own goroutine until it returns or Run ends.
func (s *Shell) animate(f func(ctx context.Context)) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f(ctx)
	}()
}

func (s *Shell) shake(ctx context.Context) {
	ticker := time.NewTicker(s.frame * 3)
	defer ticker.Stop()
	defer s.update(func(v *View) { v.Shake = 0 })
	for _, off := range shakeOffsets {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.update(func(v *View) { v.Shake = off })
		}
	}
}

func (s *Shell) celebrate(ctx context.Context) {
	ps := confetti.Burst(s.src, s.burst)
	ticker := time.NewTicker(s.frame)
	defer ticker.Stop()
	defer s.update(func(v *View) { v.Confetti = nil })
	for len(ps) > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		ps = confetti.Step(ps, s.burst)
		frame := confetti.Frame(ps, s.burst, s.cols, s.rows, s.renderer.Color())
		s.update(func(v *View) { v.Confetti = frame })
	}
}

func (s *Shell) GridChanged(cells [][]int) {
	s.update(func(v *View) { v.Cells = cells })
}

func (s *Shell) BalanceChanged(balance int64) {
	s.update(func(v *View) { v.Balance = balance })
}

func (s *Shell) MessageChanged(msg string) {
	s.update(func(v *View) { v.Message = msg })
}

func (s *Shell) FlagsChanged(flags machine.Flags) {
	s.update(func(v *View) { v.Flags = flags })
	if flags.Shake {
		s.animate(s.shake)
	}
}

func (s *Shell) SpinStateChanged(state machine.State) {
	s.update(func(v *View) { v.State = state })
}

// PlayCue plays through the terminal so a bell never lands inside a redraw.
func (s *Shell) PlayCue(cue machine.Cue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Play(cue, s.term)
}

func (s *Shell) Celebrate(int) {
	s.animate(s.celebrate)
}
