// Package domain 定义了应用程序中使用的数据结构 (数据库模型)。
package domain

import "time"

// User 表示应用程序中的用户。
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"` // 用户唯一标识符 (UUID)
	Username  string    `gorm:"size:191;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex:idx_email;size:191;not null" json:"email"`
	Password  string    `gorm:"type:text;not null" json:"-"` // 存储的是哈希后的密码
	Role      string    `gorm:"size:20;not null;default:USER" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}
