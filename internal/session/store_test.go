package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, ok, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok, "no session should exist before Set")
}

func TestMemoryStoreSetOverwrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 42, Session{WeekNumber: 3, AwaitingPhoto: true}))
	require.NoError(t, store.Set(ctx, 42, Session{WeekNumber: 4}))

	s, ok, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, s.WeekNumber)
	assert.False(t, s.AwaitingPhoto, "Set must overwrite, not merge")
}

func TestMemoryStoreUpdate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 7, Session{WeekNumber: 2}))
	require.NoError(t, store.Update(ctx, 7, func(s *Session) {
		s.AwaitingPhoto = true
	}))

	s, ok, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, s.AwaitingPhoto)
	assert.Equal(t, 2, s.WeekNumber)
}

func TestMemoryStoreUpdateMissingIsNoop(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	called := false
	require.NoError(t, store.Update(ctx, 99, func(s *Session) {
		called = true
	}))

	assert.False(t, called, "mutation must not run without a session")
	_, ok, err := store.Get(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok, "Update must not create a session")
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, 1, Session{WeekNumber: 1}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Update(ctx, 1, func(s *Session) { s.WeekNumber++ })
		}()
		go func() {
			defer wg.Done()
			store.Get(ctx, 1)
		}()
	}
	wg.Wait()

	s, ok, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 51, s.WeekNumber, "no update should be lost")
}
