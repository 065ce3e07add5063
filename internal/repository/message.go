package repository

import (
	"context"
	"time"

	"github.com/Bondebut/tripchat/internal/domain"
)

// MessageRepository 定义了消息记录的持久化操作。
// 它是消息内容与顺序元数据的唯一权威来源。
type MessageRepository interface {
	// Append 追加一条消息记录。msg 的 ID 与 SentAt 由调用方在持久化前分配。
	Append(ctx context.Context, msg *domain.Message) error

	// RecentByRoom 返回房间最近的 limit 条消息，按时间正序 (最旧在前)，
	// 每条附带发送者名称。
	RecentByRoom(ctx context.Context, roomID string, limit int) ([]domain.Message, error)

	// DeleteOlderThan 删除早于 cutoff 的消息，返回删除的行数。
	// 由保留期后台任务调用。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
