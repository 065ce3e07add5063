package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Bondebut/tripchat/internal/domain"
	"github.com/Bondebut/tripchat/internal/repository"
)

// GormRoomRepository 是 RoomRepository 接口的 GORM 实现。
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository 创建 GormRoomRepository 实例。
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

// FindByID 实现根据房间 ID 查找房间。
func (r *GormRoomRepository) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %s: %w", id, err)
	}
	return &room, nil
}

// IsNameTaken 实现检查房间名是否已存在。
func (r *GormRoomRepository) IsNameTaken(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count rooms by name '%s': %w", name, err)
	}
	return count > 0, nil
}

// Create 实现在事务中创建房间并把创建者登记为主持人。
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		host := domain.RoomParticipant{
			RoomID:   room.ID,
			UserID:   room.CreatorID,
			JoinedAt: room.CreatedAt,
			IsHost:   true,
		}
		return tx.Create(&host).Error
	})
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create room (id: %s, name: %s): %w", room.ID, room.Name, err)
	}
	return nil
}

// AddParticipant 实现记录业务成员关系。
func (r *GormRoomRepository) AddParticipant(ctx context.Context, p *domain.RoomParticipant) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: add participant (room: %s, user: %s): %w", p.RoomID, p.UserID, err)
	}
	return nil
}

// IsParticipant 实现检查用户是否已是房间的业务成员。
func (r *GormRoomRepository) IsParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RoomParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count participants (room: %s, user: %s): %w", roomID, userID, err)
	}
	return count > 0, nil
}

// ListByUser 实现查询用户参与的房间列表，联查主持人名称。
func (r *GormRoomRepository) ListByUser(ctx context.Context, userID string) ([]domain.RoomListing, error) {
	var listings []domain.RoomListing
	err := r.db.WithContext(ctx).
		Table("rooms r").
		Select("r.id, r.name, r.type, r.is_active, r.created_at, rp.joined_at, u.username AS host_name").
		Joins("JOIN room_participants rp ON rp.room_id = r.id").
		Joins("JOIN room_participants host ON host.room_id = r.id AND host.is_host = ?", true).
		Joins("JOIN users u ON u.id = host.user_id").
		Where("rp.user_id = ?", userID).
		Scan(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list rooms by user %s: %w", userID, err)
	}
	return listings, nil
}

// TouchLastActive 实现更新房间的最后活跃时间。
func (r *GormRoomRepository) TouchLastActive(ctx context.Context, roomID string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("id = ?", roomID).
		Update("last_active", at).Error
	if err != nil {
		return fmt.Errorf("gorm: touch last_active for room %s: %w", roomID, err)
	}
	return nil
}
