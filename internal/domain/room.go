package domain

import "time"

// 房间类型。房间的业务元数据由数据库持有，
// 广播用的成员关系由 hub.Registry 在内存中维护。
const (
	RoomTypeChat  = "chat"
	RoomTypeVideo = "video"
	RoomTypeAudio = "audio"
)

// Room 表示一个聊天房间。
type Room struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"` // 房间唯一标识符 (UUID)
	Name       string    `gorm:"uniqueIndex:idx_room_name;size:191;not null" json:"name"`
	Type       string    `gorm:"size:20;not null;default:chat" json:"type"`
	IsActive   bool      `gorm:"not null;default:true" json:"isActive"`
	CreatorID  string    `gorm:"index;size:36" json:"createdBy"` // 创建该房间的用户 ID
	LastActive time.Time `gorm:"index" json:"-"`                 // 最近一次消息活动时间，由后台任务更新
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"-"`
}

// RoomParticipant 记录用户与房间的业务成员关系。
// 注意它与实时广播成员 (当前连接) 是两个概念。
type RoomParticipant struct {
	RoomID   string    `gorm:"primaryKey;size:36" json:"roomId"`
	UserID   string    `gorm:"primaryKey;size:36" json:"userId"`
	JoinedAt time.Time `gorm:"not null" json:"joinedAt"`
	IsHost   bool      `gorm:"not null;default:false" json:"isHost"`
}

// RoomListing 是用户房间列表查询的投影结果，附带主持人名称。
type RoomListing struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	JoinedAt  time.Time `json:"joinedAt"`
	HostName  string    `json:"hostName"`
}
