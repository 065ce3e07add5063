package gormpersistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Bondebut/tripchat/internal/domain"
)

// GormMessageRepository 是 MessageRepository 接口的 GORM 实现。
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建 GormMessageRepository 实例。
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

// Append 实现追加一条消息记录。
func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	err := r.db.WithContext(ctx).Create(msg).Error
	if err != nil {
		return fmt.Errorf("gorm: append message (id: %s, room: %s): %w", msg.ID, msg.RoomID, err)
	}
	return nil
}

// RecentByRoom 实现查询房间最近的 limit 条消息。
// 先按时间倒序取出最近的记录，再反转为正序返回。
func (r *GormMessageRepository) RecentByRoom(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Table("messages m").
		Select("m.*, u.username AS sender_name").
		Joins("LEFT JOIN users u ON u.id = m.sender_id").
		Where("m.room_id = ?", roomID).
		Order("m.sent_at DESC").
		Limit(limit).
		Scan(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: recent messages for room %s: %w", roomID, err)
	}
	// 反转为时间正序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// DeleteOlderThan 实现删除早于 cutoff 的消息。
func (r *GormMessageRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("sent_at < ?", cutoff).Delete(&domain.Message{})
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: delete messages older than %v: %w", cutoff, result.Error)
	}
	return result.RowsAffected, nil
}
