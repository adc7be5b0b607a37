package shell_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/slot/internal/frontend/shell"
	"github.com/cory-johannsen/slot/internal/game/machine"
)

type countingObserver struct {
	machine.NopObserver
	balances atomic.Int32
	celebs   atomic.Int32
}

func (c *countingObserver) BalanceChanged(int64) { c.balances.Add(1) }
func (c *countingObserver) Celebrate(int)        { c.celebs.Add(1) }

func TestHub_FanOutAndDetach(t *testing.T) {
	hub := shell.NewHub()
	a, b := &countingObserver{}, &countingObserver{}
	detachA := hub.Attach(a)
	hub.Attach(b)
	assert.Equal(t, 2, hub.Len())

	hub.BalanceChanged(1)
	hub.Celebrate(2)
	detachA()
	hub.BalanceChanged(2)
	hub.GridChanged(nil)
	hub.MessageChanged("")
	hub.FlagsChanged(machine.Flags{})
	hub.SpinStateChanged(machine.Idle)
	hub.PlayCue(machine.CueSpin)

	assert.Equal(t, int32(1), a.balances.Load())
	assert.Equal(t, int32(2), b.balances.Load())
	assert.Equal(t, int32(1), a.celebs.Load())
	assert.Equal(t, 1, hub.Len())
}

func TestHub_SameObserverTwice(t *testing.T) {
	hub := shell.NewHub()
	o := &countingObserver{}
	d1 := hub.Attach(o)
	hub.Attach(o)
	hub.BalanceChanged(1)
	d1()
	hub.BalanceChanged(1)
	assert.Equal(t, int32(3), o.balances.Load())
}
