package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// blocker runs until stopped, or returns result after delay when set.
type blocker struct {
	once    sync.Once
	quit    chan struct{}
	started chan struct{}
	delay   time.Duration
	result  error

	mu      sync.Mutex
	stopped bool
	order   *[]string
	name    string
}

func newBlocker(name string, order *[]string) *blocker {
	return &blocker{quit: make(chan struct{}), started: make(chan struct{}), name: name, order: order}
}

func (b *blocker) Start() error {
	close(b.started)
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
			return b.result
		case <-b.quit:
			return nil
		}
	}
	<-b.quit
	return nil
}

func (b *blocker) Stop() {
	b.mu.Lock()
	b.stopped = true
	if b.order != nil {
		*b.order = append(*b.order, b.name)
	}
	b.mu.Unlock()
	b.once.Do(func() { close(b.quit) })
}

func (b *blocker) wasStopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

func runAsync(ctx context.Context, lc *Lifecycle) <-chan error {
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not return")
		return nil
	}
}

func TestLifecycle_CancelStopsInReverseOrder(t *testing.T) {
	var order []string
	lc := NewLifecycle(zaptest.NewLogger(t))
	metrics, shell := newBlocker("metrics", &order), newBlocker("shell", &order)
	lc.Add("metrics", metrics)
	lc.Add("shell", shell)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, lc)
	<-metrics.started
	<-shell.started
	cancel()

	require.NoError(t, wait(t, done))
	assert.Equal(t, []string{"shell", "metrics"}, order)
}

func TestLifecycle_ServiceFinishingEndsRun(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	metrics := newBlocker("metrics", nil)
	shell := newBlocker("shell", nil)
	shell.delay = 20 * time.Millisecond
	lc.Add("metrics", metrics)
	lc.Add("shell", shell)

	require.NoError(t, wait(t, runAsync(context.Background(), lc)))
	assert.True(t, metrics.wasStopped())
}

func TestLifecycle_ReturnsServiceError(t *testing.T) {
	boom := errors.New("address in use")
	lc := NewLifecycle(zaptest.NewLogger(t))
	failing := newBlocker("metrics", nil)
	failing.delay = time.Millisecond
	failing.result = boom
	shell := newBlocker("shell", nil)
	lc.Add("metrics", failing)
	lc.Add("shell", shell)

	err := lc.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "service metrics")
	assert.True(t, shell.wasStopped())
}

func TestLifecycle_StopTimeout(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	lc := NewLifecycle(zap.New(core), WithStopTimeout(20*time.Millisecond))
	release := make(chan struct{})
	defer close(release)
	lc.Add("stuck", &FuncService{
		StartFn: func() error { return nil },
		StopFn:  func() { <-release },
	})

	require.NoError(t, wait(t, runAsync(context.Background(), lc)))
	assert.Equal(t, 1, logs.FilterMessage("service did not stop in time").Len())
}

func TestWithStopTimeout_IgnoresNonPositive(t *testing.T) {
	lc := NewLifecycle(zap.NewNop(), WithStopTimeout(0))
	assert.Equal(t, DefaultStopTimeout, lc.stopTimeout)
}

func TestFuncService(t *testing.T) {
	var started, stopped bool
	svc := &FuncService{
		StartFn: func() error { started = true; return nil },
		StopFn:  func() { stopped = true },
	}
	assert.NoError(t, svc.Start())
	svc.Stop()
	assert.True(t, started)
	assert.True(t, stopped)
}
