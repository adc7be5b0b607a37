package machine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/slot/internal/game/dice"
	"github.com/cory-johannsen/slot/internal/game/grid"
	"github.com/cory-johannsen/slot/internal/game/ledger"
	"github.com/cory-johannsen/slot/internal/game/machine"
	"github.com/cory-johannsen/slot/internal/game/outcome"
	"github.com/cory-johannsen/slot/internal/game/reel"
	"github.com/cory-johannsen/slot/internal/game/symbol"
	"github.com/cory-johannsen/slot/internal/storage/memory"
)

// recorder captures every observer notification.
type recorder struct {
	mu        sync.Mutex
	frames    int
	last      [][]int
	balances  []int64
	messages  []string
	flags     []machine.Flags
	states    []machine.State
	cues      []machine.Cue
	celebrate []int
}

func (r *recorder) GridChanged(cells [][]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames++
	r.last = cells
}

func (r *recorder) BalanceChanged(b int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances = append(r.balances, b)
}

func (r *recorder) MessageChanged(m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

func (r *recorder) FlagsChanged(f machine.Flags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags = append(r.flags, f)
}

func (r *recorder) SpinStateChanged(s machine.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) PlayCue(c machine.Cue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, c)
}

func (r *recorder) Celebrate(sym int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.celebrate = append(r.celebrate, sym)
}

// telemetry captures Recorder calls.
type telemetry struct {
	mu       sync.Mutex
	spins    int
	wins     int
	rejected []string
}

func (t *telemetry) RecordSpin(win bool, _ string, _ time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spins++
	if win {
		t.wins++
	}
}

func (t *telemetry) RecordRejected(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rejected = append(t.rejected, reason)
}

func (t *telemetry) RecordBalance(int64) {}

// ctxStore refuses every call made with a finished context, like the
// network-backed stores do.
type ctxStore struct{ *memory.Store }

func (s ctxStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Store.Get(ctx, key)
}

func (s ctxStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Set(ctx, key, value)
}

type fixture struct {
	m       *machine.Machine
	ledger  *ledger.Ledger
	store   ctxStore
	obs     *recorder
	tel     *telemetry
	journal *memory.Journal
}

func newFixture(t *testing.T, outcomeSrc dice.Source, balance int64, window time.Duration) fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := symbol.Default()
	store := ctxStore{memory.New()}
	l := ledger.New(store,
		ledger.WithDefaultBalance(balance),
		ledger.WithRamp(ledger.DefaultRampSteps, time.Millisecond),
		ledger.WithLogger(logger),
	)
	l.Load(context.Background())
	e := outcome.NewEngine(reg, outcomeSrc, outcome.DefaultWinChance)
	a := reel.NewAnimator(reg, dice.NewSeededSource(5), reel.Timing{
		Stagger: time.Millisecond,
		Tick:    time.Millisecond,
		Window:  window,
	}, logger)

	obs := &recorder{}
	tel := &telemetry{}
	journal := memory.NewJournal(10)
	m, err := machine.New(machine.DefaultConfig(), l, e, a,
		machine.WithJournal(journal),
		machine.WithObserver(obs),
		machine.WithRecorder(tel),
		machine.WithLogger(logger),
	)
	require.NoError(t, err)
	return fixture{m: m, ledger: l, store: store, obs: obs, tel: tel, journal: journal}
}

func TestSpin_ForcedLoss(t *testing.T) {
	f := newFixture(t, dice.NewScriptedSource(dice.NewSeededSource(9), 500), 90000, 5*time.Millisecond)

	res, err := f.m.Spin(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Win)
	assert.Equal(t, outcome.MethodIndependent, res.Method)
	assert.Equal(t, int64(90000), res.BalanceBefore)
	assert.Equal(t, int64(80000), res.BalanceAfter)
	assert.Equal(t, int64(80000), f.ledger.Balance())
	assert.Equal(t, int64(80000), f.m.DisplayBalance())
	assert.Equal(t, machine.LoseMessage, f.m.Message())
	assert.Equal(t, machine.Flags{Shake: true}, f.m.Flags())
	assert.Equal(t, machine.Idle, f.m.State())

	f.obs.mu.Lock()
	defer f.obs.mu.Unlock()
	assert.Equal(t, []int64{80000}, f.obs.balances, "no credit animation on a loss")
	assert.Empty(t, f.obs.celebrate)
	assert.Equal(t, []machine.Cue{machine.CueSpin}, f.obs.cues)
	assert.Equal(t, []string{"", machine.LoseMessage}, f.obs.messages)
	assert.Equal(t, res.Cells, f.obs.last)
	assert.Greater(t, f.obs.frames, 1)
}

func TestSpin_ForcedWin(t *testing.T) {
	f := newFixture(t, dice.NewScriptedSource(nil, 0, 95), 90000, 5*time.Millisecond)

	res, err := f.m.Spin(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Win)
	assert.Equal(t, outcome.MethodUniform, res.Method)
	assert.Equal(t, "purple", res.SymbolID)
	assert.Equal(t, int64(130000), res.BalanceAfter)
	assert.Equal(t, int64(130000), f.ledger.Balance())
	assert.Equal(t, int64(130000), f.m.DisplayBalance())
	assert.Equal(t, machine.WinMessage, f.m.Message())
	assert.Equal(t, machine.Flags{Highlight: true}, f.m.Flags())

	cells := f.m.Cells()
	require.Len(t, cells, 6)
	for _, col := range cells {
		assert.Equal(t, []int{2, 2, 2, 2, 2}, col)
	}
	sym, uniform := grid.Uniform(cells)
	assert.True(t, uniform)
	assert.Equal(t, 2, sym)

	f.obs.mu.Lock()
	defer f.obs.mu.Unlock()
	require.NotEmpty(t, f.obs.balances)
	assert.Equal(t, int64(80000), f.obs.balances[0], "debit is shown before the ramp")
	for i := 1; i < len(f.obs.balances); i++ {
		assert.GreaterOrEqual(t, f.obs.balances[i], f.obs.balances[i-1])
		assert.LessOrEqual(t, f.obs.balances[i], int64(130000))
	}
	assert.Equal(t, int64(130000), f.obs.balances[len(f.obs.balances)-1])
	assert.Equal(t, []int{2}, f.obs.celebrate, "celebration fires exactly once")
	assert.Equal(t, []machine.Cue{machine.CueSpin, machine.CueWin}, f.obs.cues)
	assert.Equal(t, []machine.State{machine.Spinning, machine.Resolved, machine.Idle}, f.obs.states)

	recs, err := f.journal.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, res.SpinID, recs[0].ID)
	assert.True(t, recs[0].Win)
	assert.Equal(t, "purple", recs[0].Symbol)
	assert.Equal(t, int64(90000), recs[0].BalanceBefore)
	assert.Equal(t, int64(130000), recs[0].BalanceAfter)
}

func TestSpin_RejectsWhileInProgress(t *testing.T) {
	f := newFixture(t, dice.NewSeededSource(1), 90000, 150*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := f.m.Spin(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return f.m.State() == machine.Spinning }, time.Second, time.Millisecond)

	assert.False(t, f.m.CanSpin())
	_, err := f.m.Spin(context.Background())
	assert.ErrorIs(t, err, machine.ErrSpinInProgress)

	require.NoError(t, <-done)
	assert.Equal(t, machine.Idle, f.m.State())
	// Only the first spin was charged.
	bal := f.ledger.Balance()
	assert.True(t, bal == 80000 || bal == 130000, "balance %d", bal)

	f.tel.mu.Lock()
	defer f.tel.mu.Unlock()
	assert.Equal(t, 1, f.tel.spins)
	assert.Equal(t, []string{"in_progress"}, f.tel.rejected)
}

func TestSpin_RejectsInsufficientBalance(t *testing.T) {
	f := newFixture(t, dice.NewSeededSource(1), 9999, time.Millisecond)

	assert.False(t, f.m.CanSpin())
	_, err := f.m.Spin(context.Background())
	assert.ErrorIs(t, err, machine.ErrInsufficientBalance)
	assert.Equal(t, int64(9999), f.ledger.Balance())
	assert.Equal(t, machine.Idle, f.m.State())

	f.obs.mu.Lock()
	defer f.obs.mu.Unlock()
	assert.Empty(t, f.obs.states, "a rejected spin has no side effects")
	assert.Empty(t, f.obs.balances)
	assert.Empty(t, f.obs.cues)
	assert.Zero(t, f.obs.frames)
}

func TestSpin_FlagsResetAtNextSpin(t *testing.T) {
	// win, then loss
	src := dice.NewScriptedSource(dice.NewSeededSource(2), 0, 0, 9999)
	f := newFixture(t, src, 90000, time.Millisecond)

	_, err := f.m.Spin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, machine.Flags{Highlight: true}, f.m.Flags())

	_, err = f.m.Spin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, machine.Flags{Shake: true}, f.m.Flags())
	assert.Equal(t, int64(120000), f.ledger.Balance())

	f.obs.mu.Lock()
	defer f.obs.mu.Unlock()
	assert.Equal(t, []machine.Flags{
		{}, {Highlight: true},
		{}, {Shake: true},
	}, f.obs.flags)
}

func TestSpin_CancelledContextStillResolves(t *testing.T) {
	f := newFixture(t, dice.NewScriptedSource(nil, 0, 0), 90000, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	res, err := f.m.Spin(ctx)
	require.NoError(t, err)
	assert.True(t, res.Win)
	assert.Equal(t, int64(130000), f.ledger.Balance())
	assert.Equal(t, int64(130000), f.m.DisplayBalance())
	assert.Equal(t, machine.Idle, f.m.State())

	stored, err := f.store.Get(context.Background(), ledger.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "130000", stored)
}

func TestSetObserver_Nil(t *testing.T) {
	f := newFixture(t, dice.NewScriptedSource(dice.NewSeededSource(3), 9999), 90000, time.Millisecond)
	f.m.SetObserver(nil)
	_, err := f.m.Spin(context.Background())
	assert.NoError(t, err)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, machine.DefaultConfig().Validate())
	err := machine.Config{Reels: 0, Rows: -1, SpinCost: -1, WinReward: -1}.Validate()
	require.Error(t, err)
	for _, want := range []string{"reels", "rows", "spin cost", "win reward"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestStateAndCueStrings(t *testing.T) {
	assert.Equal(t, "idle", machine.Idle.String())
	assert.Equal(t, "spinning", machine.Spinning.String())
	assert.Equal(t, "resolved", machine.Resolved.String())
	assert.Equal(t, "spin", machine.CueSpin.String())
	assert.Equal(t, "win", machine.CueWin.String())
}
