package repository

import (
	"context"
	"time"

	"github.com/Bondebut/tripchat/internal/domain"
)

// RoomRepository 定义了房间及其业务成员关系的存储操作。
type RoomRepository interface {
	// FindByID 根据房间 ID 查找房间。
	// 如果房间不存在，返回 repository.ErrRoomNotFound。
	FindByID(ctx context.Context, id string) (*domain.Room, error)

	// IsNameTaken 检查房间名是否已被占用。
	IsNameTaken(ctx context.Context, name string) (bool, error)

	// Create 在一个事务中创建房间，并把创建者写入参与者表 (主持人)。
	Create(ctx context.Context, room *domain.Room) error

	// AddParticipant 记录一条业务成员关系。
	// 已存在相同 (roomId, userId) 时返回 repository.ErrDuplicateEntry。
	AddParticipant(ctx context.Context, p *domain.RoomParticipant) error

	// IsParticipant 检查用户是否已是房间的业务成员。
	IsParticipant(ctx context.Context, roomID, userID string) (bool, error)

	// ListByUser 查询用户参与的全部房间，附带主持人名称。
	ListByUser(ctx context.Context, userID string) ([]domain.RoomListing, error)

	// TouchLastActive 更新房间的最后活跃时间，由后台任务调用。
	TouchLastActive(ctx context.Context, roomID string, at time.Time) error
}
