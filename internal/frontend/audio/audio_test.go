package audio_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/slot/internal/config"
	"github.com/cory-johannsen/slot/internal/frontend/audio"
	"github.com/cory-johannsen/slot/internal/game/machine"
)

func assetsDir(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("ID3"), 0o644))
	}
	return dir
}

func TestBellPlayer_RingsForPresentFiles(t *testing.T) {
	dir := assetsDir(t, "spin.mp3", "win.mp3")
	p := audio.NewBellPlayer(config.AssetsConfig{
		Dir: dir, SpinSound: "spin.mp3", WinSound: "win.mp3", Bell: true,
	}, zap.NewNop())

	var out bytes.Buffer
	p.Play(machine.CueSpin, &out)
	p.Play(machine.CueWin, &out)
	assert.Equal(t, audio.Bell+audio.Bell, out.String())
}

func TestBellPlayer_BellDisabled(t *testing.T) {
	dir := assetsDir(t, "spin.mp3")
	p := audio.NewBellPlayer(config.AssetsConfig{Dir: dir, SpinSound: "spin.mp3"}, zap.NewNop())

	var out bytes.Buffer
	p.Play(machine.CueSpin, &out)
	assert.Empty(t, out.String())
}

func TestBellPlayer_MissingFileLoggedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := audio.NewBellPlayer(config.AssetsConfig{
		Dir: t.TempDir(), SpinSound: "spin.mp3", WinSound: "win.mp3", Bell: true,
	}, zap.New(core))

	var out bytes.Buffer
	for range 3 {
		p.Play(machine.CueWin, &out)
	}
	assert.Empty(t, out.String())
	require.Equal(t, 1, logs.FilterMessage("sound file unavailable").Len())
	assert.Equal(t, "win", logs.All()[0].ContextMap()["cue"])
}

func TestBellPlayer_UnconfiguredCue(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := audio.NewBellPlayer(config.AssetsConfig{Bell: true}, zap.New(core))

	var out bytes.Buffer
	p.Play(machine.CueSpin, &out)
	p.Play(machine.CueSpin, &out)
	assert.Empty(t, out.String())
	assert.Equal(t, 1, logs.FilterMessage("no sound configured for cue").Len())
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestBellPlayer_WriteErrorIgnored(t *testing.T) {
	dir := assetsDir(t, "spin.mp3")
	p := audio.NewBellPlayer(config.AssetsConfig{Dir: dir, SpinSound: "spin.mp3", Bell: true}, zap.NewNop())
	assert.NotPanics(t, func() {
		p.Play(machine.CueSpin, brokenWriter{})
		p.Play(machine.CueSpin, nil)
	})
}

func TestNop(t *testing.T) {
	var out bytes.Buffer
	audio.Nop{}.Play(machine.CueWin, &out)
	assert.Empty(t, out.String())
}
