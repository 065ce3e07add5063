// Package redisstate 提供 StateRepository 接口的 Redis 实现。
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Bondebut/tripchat/internal/domain"
)

const (
	// 每个房间历史缓存保留的最大条数。
	historyMaxLen = 100
	// 历史缓存的过期时间，冷房间的 key 会自动回收。
	historyTTL = 24 * time.Hour
)

// RedisStateRepository 是 StateRepository 接口的 Redis 实现。
// 历史缓存使用 List 结构，表头为最新消息。
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateRepository 创建 RedisStateRepository 实例。
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	return &RedisStateRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisStateRepository) historyKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:history", r.keyPrefix, roomID)
}

// PushMessage 实现把已提交的消息推入历史缓存。
func (r *RedisStateRepository) PushMessage(ctx context.Context, roomID string, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redis: marshal message %s: %w", msg.ID, err)
	}
	key := r.historyKey(roomID)
	pipe := r.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, historyMaxLen-1)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: push message to history of room %s: %w", roomID, err)
	}
	return nil
}

// RecentMessages 实现读取缓存中的最近消息 (最新在前)。
func (r *RedisStateRepository) RecentMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	raw, err := r.client.LRange(ctx, r.historyKey(roomID), 0, int64(limit-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: read history of room %s: %w", roomID, err)
	}
	msgs := make([]domain.Message, 0, len(raw))
	for _, item := range raw {
		var msg domain.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			// 缓存中出现坏数据时放弃整个缓存结果，让调用方回源数据库
			return nil, fmt.Errorf("redis: corrupt history entry in room %s: %w", roomID, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// PrimeHistory 实现用数据库结果重建历史缓存。
// msgs 按时间正序传入，逐条 LPush 后表头即为最新消息。
func (r *RedisStateRepository) PrimeHistory(ctx context.Context, roomID string, msgs []domain.Message) error {
	key := r.historyKey(roomID)
	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("redis: marshal message %s: %w", msg.ID, err)
		}
		pipe.LPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, 0, historyMaxLen-1)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: prime history of room %s: %w", roomID, err)
	}
	return nil
}
