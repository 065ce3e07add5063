// Package tasks 定义后台任务的类型与负载。
package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// 任务类型常量。
const (
	// TypeRoomTouch 更新房间的最后活跃时间。
	TypeRoomTouch = "room:touch"
	// TypeMessageRetention 清理超过保留期的历史消息。
	TypeMessageRetention = "message:retention"
)

// RoomTouchPayload 是房间活跃时间更新任务的负载。
type RoomTouchPayload struct {
	RoomID string    `json:"roomId"`
	At     time.Time `json:"at"`
}

// NewRoomTouchTask 创建一个房间活跃时间更新任务。
func NewRoomTouchTask(roomID string, at time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(RoomTouchPayload{RoomID: roomID, At: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRoomTouch, payload), nil
}

// MessageRetentionPayload 是消息保留期清理任务的负载。
type MessageRetentionPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewMessageRetentionTask 创建一个消息保留期清理任务。
func NewMessageRetentionTask(retention time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(MessageRetentionPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeMessageRetention, payload), nil
}
