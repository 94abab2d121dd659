package taskstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/abiforge/internal/nodeid"
)

func TestSetAndGetStatus(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	addr := nodeid.MustParse("compile.core[arm64]")

	status, err := s.GetStatus(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)

	require.NoError(t, s.SetStatus(ctx, addr, StatusRunning))

	status, err = s.GetStatus(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, status)
}

func TestSetAndGetError(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	addr := nodeid.MustParse("compile.core[arm64]")

	got, err := s.GetError(ctx, addr)
	require.NoError(t, err)
	assert.Nil(t, got)

	expected := errors.New("linker not found")
	require.NoError(t, s.SetError(ctx, addr, expected))

	got, err = s.GetError(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestSnapshot(t *testing.T) {
	// --- Arrange ---
	s := NewInMemory()
	ctx := context.Background()
	arm := nodeid.MustParse("compile.core[arm64]")
	x86 := nodeid.MustParse("compile.core[x86_64]")
	merge := nodeid.MustParse("merge_native_libs.debug")

	require.NoError(t, s.SetStatus(ctx, merge, StatusSkipped))
	require.NoError(t, s.SetStatus(ctx, x86, StatusFailed))
	require.NoError(t, s.SetError(ctx, x86, errors.New("boom")))
	require.NoError(t, s.SetStatus(ctx, arm, StatusSucceeded))
	require.NoError(t, s.MarkCacheHit(ctx, arm))

	// --- Act ---
	snap := s.Snapshot(ctx)

	// --- Assert ---
	require.Len(t, snap, 3)
	assert.Equal(t, arm.String(), snap[0].ID)
	assert.True(t, snap[0].CacheHit)
	assert.Equal(t, x86.String(), snap[1].ID)
	assert.Equal(t, "boom", snap[1].Error)
	assert.Equal(t, StatusSkipped, snap[2].Status)
	assert.False(t, snap[2].Updated.IsZero())
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusSucceeded.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusSkipped.IsTerminal())
}

func TestConcurrentAccess(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := nodeid.New("merge_native_libs", fmt.Sprintf("m%d", i))
			assert.NoError(t, s.SetStatus(ctx, addr, StatusSucceeded))
			_, err := s.GetStatus(ctx, addr)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Snapshot(ctx), n)
}
