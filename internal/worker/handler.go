package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Bondebut/tripchat/internal/repository"
	"github.com/Bondebut/tripchat/internal/tasks"
)

// RoomTouchHandler 处理房间活跃时间更新任务。
type RoomTouchHandler struct {
	roomRepo repository.RoomRepository
}

// NewRoomTouchHandler 创建 Handler 实例。
func NewRoomTouchHandler(roomRepo repository.RoomRepository) *RoomTouchHandler {
	return &RoomTouchHandler{roomRepo: roomRepo}
}

// ProcessTask 实现 asynq.Handler 接口。
func (h *RoomTouchHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.RoomTouchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// 负载损坏的任务重试没有意义
		return fmt.Errorf("unmarshal room touch payload: %w: %v", asynq.SkipRetry, err)
	}

	if err := h.roomRepo.TouchLastActive(ctx, payload.RoomID, payload.At); err != nil {
		logrus.WithError(err).WithField("room_id", payload.RoomID).Warn("Room touch task failed")
		return err
	}
	logrus.WithField("room_id", payload.RoomID).Debug("Room last_active updated")
	return nil
}

// MessageRetentionHandler 处理消息保留期清理任务。
type MessageRetentionHandler struct {
	msgRepo repository.MessageRepository
}

// NewMessageRetentionHandler 创建 Handler 实例。
func NewMessageRetentionHandler(msgRepo repository.MessageRepository) *MessageRetentionHandler {
	return &MessageRetentionHandler{msgRepo: msgRepo}
}

// ProcessTask 实现 asynq.Handler 接口。
func (h *MessageRetentionHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.MessageRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal message retention payload: %w: %v", asynq.SkipRetry, err)
	}

	cutoff := time.Now().Add(-payload.Retention)
	deleted, err := h.msgRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Error("Message retention task failed")
		return err
	}
	logrus.WithFields(logrus.Fields{"deleted": deleted, "cutoff": cutoff}).Info("Message retention sweep complete")
	return nil
}
