package chat

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const typingKeyPrefix = "typing:"

// RedisTypingStore shares typing flags between instances as Redis keys
// with a TTL.
type RedisTypingStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTypingStore(client *redis.Client, ttl time.Duration) *RedisTypingStore {
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	return &RedisTypingStore{client: client, ttl: ttl}
}

func (r *RedisTypingStore) Set(ctx context.Context, chatID, userID uint) error {
	return r.client.Set(ctx, typingKeyPrefix+typingKey(chatID, userID), "1", r.ttl).Err()
}

func (r *RedisTypingStore) Clear(ctx context.Context, chatID, userID uint) error {
	return r.client.Del(ctx, typingKeyPrefix+typingKey(chatID, userID)).Err()
}

func (r *RedisTypingStore) IsTyping(ctx context.Context, chatID, userID uint) (bool, error) {
	n, err := r.client.Exists(ctx, typingKeyPrefix+typingKey(chatID, userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
