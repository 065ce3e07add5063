package domain

import "time"

// Message 表示一条已持久化的聊天消息。
// ID 与 SentAt 在持久化时由服务端分配，客户端提交的内容不包含它们。
// 广播负载直接使用本结构体的 JSON 序列化结果，保证所有成员
// (包括发送者) 看到的是存储层的规范记录。
type Message struct {
	ID       string    `gorm:"primaryKey;size:36" json:"id"`
	RoomID   string    `gorm:"index:idx_room_sent,priority:1;size:36;not null" json:"roomId"`
	SenderID string    `gorm:"index;size:36;not null" json:"senderId"`
	Content  string    `gorm:"type:text;not null" json:"content"`
	SentAt   time.Time `gorm:"index:idx_room_sent,priority:2;not null" json:"sentAt"`

	// SenderName 来自与 users 表的联查 (或写入时的连接身份)，不落库。
	SenderName string `gorm:"->;-:migration" json:"senderDisplayName"`
}
