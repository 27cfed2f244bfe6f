package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTypingStoreExpires(t *testing.T) {
	store := NewMemoryTypingStore(10, 30*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 1, 2))
	typing, err := store.IsTyping(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, typing)

	typing, _ = store.IsTyping(ctx, 1, 3)
	assert.False(t, typing)

	time.Sleep(60 * time.Millisecond)
	typing, _ = store.IsTyping(ctx, 1, 2)
	assert.False(t, typing)
}

func TestMemoryTypingStoreIsBounded(t *testing.T) {
	store := NewMemoryTypingStore(3, time.Minute)
	ctx := context.Background()

	for user := uint(1); user <= 5; user++ {
		require.NoError(t, store.Set(ctx, 7, user))
	}
	assert.Equal(t, 3, store.Len())

	// Oldest flags were evicted
	typing, _ := store.IsTyping(ctx, 7, 1)
	assert.False(t, typing)
	typing, _ = store.IsTyping(ctx, 7, 5)
	assert.True(t, typing)

	require.NoError(t, store.Clear(ctx, 7, 5))
	typing, _ = store.IsTyping(ctx, 7, 5)
	assert.False(t, typing)
}
