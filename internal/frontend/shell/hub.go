package shell

import (
	"sync"

	"github.com/cory-johannsen/slot/internal/game/machine"
)

// Hub fans machine notifications out to every attached observer, so several
// Telnet players can watch the same machine.
type Hub struct {
	mu        sync.RWMutex
	observers map[*attachment]struct{}
}

type attachment struct{ machine.Observer }

var _ machine.Observer = (*Hub)(nil)

// NewHub returns a Hub with no observers.
func NewHub() *Hub {
	return &Hub{observers: make(map[*attachment]struct{})}
}

// Attach adds o and returns a function that removes it. Once the returned
// function has returned, o receives no further notifications.
func (h *Hub) Attach(o machine.Observer) (detach func()) {
	a := &attachment{o}
	h.mu.Lock()
	h.observers[a] = struct{}{}
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.observers, a)
		h.mu.Unlock()
	}
}

// Len returns the number of attached observers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

func (h *Hub) each(f func(machine.Observer)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for a := range h.observers {
		f(a.Observer)
	}
}

func (h *Hub) GridChanged(cells [][]int) {
	h.each(func(o machine.Observer) { o.GridChanged(cells) })
}

func (h *Hub) BalanceChanged(balance int64) {
	h.each(func(o machine.Observer) { o.BalanceChanged(balance) })
}

func (h *Hub) MessageChanged(msg string) {
	h.each(func(o machine.Observer) { o.MessageChanged(msg) })
}

func (h *Hub) FlagsChanged(flags machine.Flags) {
	h.each(func(o machine.Observer) { o.FlagsChanged(flags) })
}

func (h *Hub) SpinStateChanged(state machine.State) {
	h.each(func(o machine.Observer) { o.SpinStateChanged(state) })
}

func (h *Hub) PlayCue(cue machine.Cue) {
	h.each(func(o machine.Observer) { o.PlayCue(cue) })
}

func (h *Hub) Celebrate(sym int) {
	h.each(func(o machine.Observer) { o.Celebrate(sym) })
}
