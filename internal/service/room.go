package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Bondebut/tripchat/internal/domain"
	"github.com/Bondebut/tripchat/internal/repository"
)

// RoomService 负责房间的业务生命周期：创建、加入、查询。
// 实时广播成员关系不归它管，见 hub.Registry。
type RoomService struct {
	roomRepo repository.RoomRepository
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(roomRepo repository.RoomRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo}
}

// Create 创建一个新房间，创建者自动成为主持人。
func (s *RoomService) Create(ctx context.Context, creatorID, name, roomType string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	logCtx := logrus.WithFields(logrus.Fields{"creator_id": creatorID, "room_name": name})

	if len(name) < 3 {
		return nil, ErrInvalidRequest
	}
	switch roomType {
	case domain.RoomTypeChat, domain.RoomTypeVideo, domain.RoomTypeAudio:
	case "":
		roomType = domain.RoomTypeChat
	default:
		return nil, ErrInvalidRequest
	}

	taken, err := s.roomRepo.IsNameTaken(ctx, name)
	if err != nil {
		logCtx.WithError(err).Error("Failed to check room name uniqueness")
		return nil, ErrInternalServer
	}
	if taken {
		return nil, ErrRoomNameTaken
	}

	room := &domain.Room{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      roomType,
		IsActive:  true,
		CreatorID: creatorID,
		CreatedAt: time.Now(),
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// 与 IsNameTaken 检查之间存在并发窗口
			logCtx.WithError(err).Warn("Room creation raced with a duplicate name")
			return nil, ErrRoomNameTaken
		}
		logCtx.WithError(err).Error("Failed to save new room to database")
		return nil, ErrInternalServer
	}

	logCtx.WithField("room_id", room.ID).Info("Room created successfully")
	return room, nil
}

// Join 把用户登记为房间的业务成员。
func (s *RoomService) Join(ctx context.Context, userID, roomID string) (*domain.RoomParticipant, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID})

	if roomID == "" || userID == "" {
		return nil, ErrInvalidRequest
	}

	if _, err := s.FindRoomByID(ctx, roomID); err != nil {
		return nil, err
	}

	participant := &domain.RoomParticipant{
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}
	if err := s.roomRepo.AddParticipant(ctx, participant); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Warn("User is already a participant in this room")
			return nil, ErrAlreadyParticipant
		}
		logCtx.WithError(err).Error("Failed to add participant")
		return nil, ErrInternalServer
	}

	logCtx.Info("User joined room successfully")
	return participant, nil
}

// FindRoomByID 查找房间，供 HTTP Handler 使用。
func (s *RoomService) FindRoomByID(ctx context.Context, roomID string) (*domain.Room, error) {
	logCtx := logrus.WithField("room_id", roomID)
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.Warn("FindRoomByID: room not found")
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("FindRoomByID: repository error")
		return nil, ErrInternalServer
	}
	if room == nil {
		logCtx.Warn("FindRoomByID: repository returned nil room without error")
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// ListForUser 查询用户参与的全部房间。
func (s *RoomService) ListForUser(ctx context.Context, userID string) ([]domain.RoomListing, error) {
	listings, err := s.roomRepo.ListByUser(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list rooms for user")
		return nil, ErrInternalServer
	}
	return listings, nil
}
