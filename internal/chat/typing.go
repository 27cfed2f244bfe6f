package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TypingStore keeps short-lived "is typing" flags per chat participant.
type TypingStore interface {
	Set(ctx context.Context, chatID, userID uint) error
	Clear(ctx context.Context, chatID, userID uint) error
	IsTyping(ctx context.Context, chatID, userID uint) (bool, error)
}

func typingKey(chatID, userID uint) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

// MemoryTypingStore holds flags in process memory, bounded by capacity and
// expiring after ttl. State is not shared between instances.
type MemoryTypingStore struct {
	cache *expirable.LRU[string, struct{}]
}

func NewMemoryTypingStore(capacity int, ttl time.Duration) *MemoryTypingStore {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	return &MemoryTypingStore{cache: expirable.NewLRU[string, struct{}](capacity, nil, ttl)}
}

func (m *MemoryTypingStore) Set(_ context.Context, chatID, userID uint) error {
	m.cache.Add(typingKey(chatID, userID), struct{}{})
	return nil
}

func (m *MemoryTypingStore) Clear(_ context.Context, chatID, userID uint) error {
	m.cache.Remove(typingKey(chatID, userID))
	return nil
}

func (m *MemoryTypingStore) IsTyping(_ context.Context, chatID, userID uint) (bool, error) {
	_, ok := m.cache.Get(typingKey(chatID, userID))
	return ok, nil
}

// Len returns the number of live flags.
func (m *MemoryTypingStore) Len() int {
	return m.cache.Len()
}
