package hub

import "github.com/Bondebut/tripchat/internal/domain"

// 入站事件类型。
const (
	EventJoinRoom    = "joinRoom"
	EventSendMessage = "sendMessage"
	EventLeaveRoom   = "leaveRoom"
)

// 出站事件类型。
const (
	EventChatHistory = "chatHistory"
	EventNewMessage  = "newMessage"
	EventError       = "error"
)

// inboundEvent 是客户端发来的统一事件信封。
type inboundEvent struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

// chatHistoryEvent 在加入房间成功后发给加入者本人。
type chatHistoryEvent struct {
	Type     string           `json:"type"`
	RoomID   string           `json:"roomId"`
	Messages []domain.Message `json:"messages"`
}

// newMessageEvent 携带存储层提交后的规范消息记录，
// 字段直接展开到事件负载中。
type newMessageEvent struct {
	Type string `json:"type"`
	domain.Message
}

// errorEvent 只发给事件的发起连接。
type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
