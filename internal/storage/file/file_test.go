package file_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/slot/internal/storage"
	"github.com/cory-johannsen/slot/internal/storage/file"
)

func TestStore_MissingDocument(t *testing.T) {
	s := file.New(filepath.Join(t.TempDir(), "state", "slot.json"))
	_, err := s.Get(context.Background(), "slot_balance")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_RoundTripAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "slot.json")

	require.NoError(t, file.New(path).Set(ctx, "slot_balance", "130000"))
	require.NoError(t, file.New(path).Set(ctx, "other", "x"))

	reopened := file.New(path)
	v, err := reopened.Get(ctx, "slot_balance")
	require.NoError(t, err)
	assert.Equal(t, "130000", v)
	v, err = reopened.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"slot_balance": "130000"`)
}

func TestStore_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "slot.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := file.New(path)
	_, err := s.Get(ctx, "slot_balance")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "slot_balance", "1"), "a corrupt document is replaced on write")
	v, err := s.Get(ctx, "slot_balance")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

// Property: any stored balance reloads unchanged.
func TestProperty_BalanceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.Int64Min(0).Draw(rt, "balance")
		path := filepath.Join(dir, "roundtrip.json")
		ctx := context.Background()
		if err := file.New(path).Set(ctx, "slot_balance", strconv.FormatInt(v, 10)); err != nil {
			rt.Fatal(err)
		}
		got, err := file.New(path).Get(ctx, "slot_balance")
		if err != nil {
			rt.Fatal(err)
		}
		if got != strconv.FormatInt(v, 10) {
			rt.Fatalf("got %q, want %d", got, v)
		}
	})
}
