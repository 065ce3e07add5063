// Package hub 实现连接网关的核心：房间成员登记、入站事件分发
// 和 持久化→广播 的消息管道。
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Bondebut/tripchat/internal/domain"
	"github.com/Bondebut/tripchat/internal/service"
	"github.com/Bondebut/tripchat/internal/tasks"
)

// MessageStore 是 Hub 消费的消息存储客户端接口，
// 由 service.MessageService 实现。
type MessageStore interface {
	Append(ctx context.Context, roomID string, sender service.Identity, content string) (*domain.Message, error)
	RecentHistory(ctx context.Context, roomID string) ([]domain.Message, error)
}

// Hub 协调所有活跃连接：加入/离开房间、消息管道、断开清理。
//
// 并发模型：每条连接的事件由它自己的 readPump 顺序处理，
// 不同连接的处理器并发执行；Registry 是唯一共享结构。
// 同一房间内 持久化→广播 持房间发送锁串行执行，保证广播
// 顺序与存储提交顺序一致；不同房间互不阻塞。
type Hub struct {
	registry *Registry
	store    MessageStore
	tasks    *asynq.Client // 可为 nil，后台任务降级为不触发
}

// NewHub 创建并返回一个新的 Hub 实例。
func NewHub(store MessageStore, taskClient *asynq.Client) *Hub {
	if store == nil {
		panic("MessageStore cannot be nil for Hub")
	}
	return &Hub{
		registry: NewRegistry(),
		store:    store,
		tasks:    taskClient,
	}
}

// Register 登记一条新的已认证连接。
func (h *Hub) Register(c *Client) {
	logrus.WithFields(logrus.Fields{
		"conn_id":  c.id,
		"user_id":  c.identity.UserID,
		"username": c.identity.Username,
	}).Info("Client connected")
}

// Disconnect 执行断开清理：把连接移出它加入过的全部房间，
// 然后关闭发送通道。幂等，由 readPump 的 defer 保证恰好触发一次。
func (h *Hub) Disconnect(c *Client) {
	h.registry.LeaveAll(c.id)
	c.closeSend()
	logrus.WithFields(logrus.Fields{
		"conn_id": c.id,
		"user_id": c.identity.UserID,
	}).Info("Client disconnected")
}

// handleEvent 解析入站事件并分发到对应的处理器。
// 在连接的 readPump goroutine 中被顺序调用。
func (h *Hub) handleEvent(c *Client, raw []byte) {
	var evt inboundEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		logrus.WithFields(logrus.Fields{"conn_id": c.id}).WithError(err).Debug("Malformed inbound event")
		h.sendError(c, "Invalid message data")
		return
	}

	switch evt.Type {
	case EventJoinRoom:
		h.handleJoin(c, evt.RoomID)
	case EventSendMessage:
		h.handleSend(c, evt.RoomID, evt.Content)
	case EventLeaveRoom:
		h.handleLeave(c, evt.RoomID)
	default:
		logrus.WithFields(logrus.Fields{"conn_id": c.id, "event_type": evt.Type}).Debug("Unknown event type")
		h.sendError(c, "Unknown event type")
	}
}

// handleJoin 处理 joinRoom：登记成员关系并把当前历史发给加入者。
// 重复加入不改变成员关系，但仍然返回历史。
func (h *Hub) handleJoin(c *Client, roomID string) {
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.identity.UserID, "room_id": roomID})

	if roomID == "" {
		h.sendError(c, "Invalid message data")
		return
	}

	if h.registry.Join(roomID, c) {
		logCtx.Info("Client joined room")
	} else {
		logCtx.Debug("Client already in room, join is a no-op")
	}

	history, err := h.store.RecentHistory(context.Background(), roomID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load chat history")
		h.sendError(c, "Failed to load chat history")
		return
	}
	if history == nil {
		history = []domain.Message{}
	}

	h.sendEvent(c, chatHistoryEvent{Type: EventChatHistory, RoomID: roomID, Messages: history})
}

// handleLeave 处理 leaveRoom，非成员时为空操作。
func (h *Hub) handleLeave(c *Client, roomID string) {
	if roomID == "" {
		h.sendError(c, "Invalid message data")
		return
	}
	h.registry.Leave(roomID, c.id)
	logrus.WithFields(logrus.Fields{"conn_id": c.id, "room_id": roomID}).Info("Client left room")
}

// handleSend 是消息管道：校验 → 持久化 → 广播。
//
// 持久化与广播持房间发送锁执行，同一房间同时只有一条管道
// 在途。错误只回发给发起连接；对单个成员的投递失败静默丢弃，
// 不影响其他成员，也不影响本次发送的结果。
func (h *Hub) handleSend(c *Client, roomID, content string) {
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.identity.UserID, "room_id": roomID})

	if roomID == "" || strings.TrimSpace(content) == "" {
		h.sendError(c, "Invalid message data")
		return
	}

	lock := h.registry.RoomLock(roomID)
	lock.Lock()

	msg, err := h.store.Append(context.Background(), roomID, c.identity, content)
	if err != nil {
		lock.Unlock()
		if errors.Is(err, service.ErrInvalidRequest) {
			h.sendError(c, "Invalid message data")
			return
		}
		logCtx.WithError(err).Error("Message persistence failed")
		h.sendError(c, "Failed to send message")
		return
	}

	// 广播的是存储层返回的规范记录，发送者同样从它渲染
	payload, err := json.Marshal(newMessageEvent{Type: EventNewMessage, Message: *msg})
	if err != nil {
		lock.Unlock()
		logCtx.WithError(err).Error("Failed to marshal committed message for broadcast")
		h.sendError(c, "Failed to send message")
		return
	}

	members := h.registry.MembersOf(roomID)
	for _, member := range members {
		if !member.enqueue(payload) {
			logCtx.WithField("receiver_conn_id", member.id).Warn("Member send buffer unavailable during broadcast, skipping")
		}
	}
	lock.Unlock()

	logCtx.WithFields(logrus.Fields{"message_id": msg.ID, "recipient_count": len(members)}).Debug("Message broadcast complete")
	h.touchRoom(roomID)
}

// touchRoom 异步触发房间活跃时间更新，尽力而为。
func (h *Hub) touchRoom(roomID string) {
	if h.tasks == nil {
		return
	}
	task, err := tasks.NewRoomTouchTask(roomID, time.Now())
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to build room touch task")
		return
	}
	if _, err := h.tasks.Enqueue(task, asynq.Queue("low")); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to enqueue room touch task")
	}
}

// sendEvent 序列化并投递一个事件到单个连接。
func (h *Hub) sendEvent(c *Client, evt interface{}) {
	payload, err := json.Marshal(evt)
	if err != nil {
		logrus.WithError(err).WithField("conn_id", c.id).Error("Failed to marshal outbound event")
		return
	}
	if !c.enqueue(payload) {
		logrus.WithField("conn_id", c.id).Warn("Client send buffer unavailable, event dropped")
	}
}

// sendError 把错误事件发给发起连接本人。
func (h *Hub) sendError(c *Client, message string) {
	h.sendEvent(c, errorEvent{Type: EventError, Message: message})
}
