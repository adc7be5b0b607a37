package shell

import (
	"bufio"
	"context"
	"io"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/slot/internal/frontend/telnet"
	"github.com/cory-johannsen/slot/internal/game/machine"
)

// Stdio is a Terminal over a reader and a writer, normally os.Stdin and
// os.Stdout.
type Stdio struct {
	in  *bufio.Scanner
	mu  sync.Mutex
	out io.Writer
}

// NewStdio wraps in and out.
func NewStdio(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{in: bufio.NewScanner(in), out: out}
}

// ReadLine returns the next input line, or io.EOF when input ends.
func (t *Stdio) ReadLine() (string, error) {
	if t.in.Scan() {
		return t.in.Text(), nil
	}
	if err := t.in.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Write writes p to the output.
func (t *Stdio) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.Write(p)
}

// Sessions serves a Shell on every Telnet connection. It implements
// telnet.SessionHandler.
type Sessions struct {
	machine  *machine.Machine
	hub      *Hub
	renderer *Renderer
	logger   *zap.Logger
	opts     []Option
}

var _ telnet.SessionHandler = (*Sessions)(nil)

// NewSessions returns a handler building each player's Shell with opts.
//
// Precondition: m, hub, r and logger must be non-nil.
func NewSessions(m *machine.Machine, hub *Hub, r *Renderer, logger *zap.Logger, opts ...Option) *Sessions {
	return &Sessions{machine: m, hub: hub, renderer: r, logger: logger, opts: opts}
}

// HandleSession runs a Shell on conn until the player leaves.
func (h *Sessions) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	logger := h.logger.With(zap.String("remote_addr", conn.RemoteAddr().String()))
	logger.Info("player seated", zap.Int64("balance", h.machine.DisplayBalance()))
	opts := append(slices.Clip(h.opts), WithLogger(logger))
	return New(h.machine, h.hub, conn, h.renderer, opts...).Run(ctx)
}
