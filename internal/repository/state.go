package repository

import (
	"context"

	"github.com/Bondebut/tripchat/internal/domain"
)

// StateRepository 定义了与房间实时状态相关的操作，由 Redis 实现。
// 这里缓存的历史只用于加速 joinRoom 时的历史下发，
// 权威数据始终在 MessageRepository。
type StateRepository interface {
	// PushMessage 把一条已提交的消息推入房间的历史缓存，并裁剪缓存长度。
	PushMessage(ctx context.Context, roomID string, msg domain.Message) error

	// RecentMessages 返回缓存中的最近 limit 条消息，按时间倒序 (最新在前)。
	// 缓存未命中时返回空切片。
	RecentMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error)

	// PrimeHistory 用数据库查询结果重建房间的历史缓存。
	// msgs 按时间正序传入。
	PrimeHistory(ctx context.Context, roomID string, msgs []domain.Message) error
}
