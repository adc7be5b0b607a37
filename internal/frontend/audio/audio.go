// Package audio plays the spin and win sound cues. Playback is best effort:
// a missing sound file or a failed write never reaches the caller.
package audio

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/slot/internal/config"
	"github.com/cory-johannsen/slot/internal/game/machine"
)

// Player plays a cue to a terminal.
type Player interface {
	Play(cue machine.Cue, out io.Writer)
}

// Nop plays nothing.
type Nop struct{}

// Play does nothing.
func (Nop) Play(machine.Cue, io.Writer) {}

// Bell is the BEL control character terminals ring on.
const Bell = "\a"

// BellPlayer resolves each cue to its sound file and rings the terminal bell
// in its place, since a text terminal cannot play the file itself. A cue
// whose file is missing is logged once and then played silently.
type BellPlayer struct {
	files  map[machine.Cue]string
	bell   bool
	logger *zap.Logger

	mu     sync.Mutex
	probed map[machine.Cue]bool
	ok     map[machine.Cue]bool
}

// NewBellPlayer builds a player from the assets configuration.
//
// Precondition: logger must be non-nil.
func NewBellPlayer(cfg config.AssetsConfig, logger *zap.Logger) *BellPlayer {
	files := make(map[machine.Cue]string, 2)
	if cfg.SpinSound != "" {
		files[machine.CueSpin] = filepath.Join(cfg.Dir, cfg.SpinSound)
	}
	if cfg.WinSound != "" {
		files[machine.CueWin] = filepath.Join(cfg.Dir, cfg.WinSound)
	}
	return &BellPlayer{
		files:  files,
		bell:   cfg.Bell,
		logger: logger,
		probed: make(map[machine.Cue]bool, 2),
		ok:     make(map[machine.Cue]bool, 2),
	}
}

// Play rings the bell for cue when its sound file exists and the bell is
// enabled.
func (p *BellPlayer) Play(cue machine.Cue, out io.Writer) {
	if !p.available(cue) || !p.bell || out == nil {
		return
	}
	if _, err := io.WriteString(out, Bell); err != nil {
		p.logger.Debug("sound cue not played", zap.Stringer("cue", cue), zap.Error(err))
	}
}

// available checks the cue's file on first use and caches the answer.
func (p *BellPlayer) available(cue machine.Cue) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.probed[cue] {
		return p.ok[cue]
	}
	p.probed[cue] = true

	path, configured := p.files[cue]
	if !configured {
		p.logger.Warn("no sound configured for cue", zap.Stringer("cue", cue))
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		p.logger.Warn("sound file unavailable",
			zap.Stringer("cue", cue),
			zap.String("path", path),
			zap.Error(err),
		)
		return false
	}
	p.ok[cue] = true
	return true
}
