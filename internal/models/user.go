package models

import (
	"time"
)

// User 用户基础信息表
type User struct {
	BaseModel
	Username    string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password    string     `gorm:"size:255" json:"-"` // argon2哈希
	Nickname    string     `gorm:"size:100" json:"nickname"`
	ProfileName string     `gorm:"size:50" json:"profile_name"`
	Avatar      string     `gorm:"size:255" json:"avatar"`
	Status      string     `gorm:"size:20;default:'active'" json:"status"` // active, frozen, banned
	IsAdmin     bool       `gorm:"default:false" json:"is_admin"`
	Level       int        `gorm:"default:1" json:"level"`
	Reputation  int        `gorm:"default:0" json:"reputation"`
	TotalGames  int        `gorm:"default:0" json:"total_games"`
	Wins        int        `gorm:"default:0" json:"wins"`
	Losses      int        `gorm:"default:0" json:"losses"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// TableName 指定User表名
func (User) TableName() string {
	return "users"
}

// DisplayName 返回用于展示的名称
func (u *User) DisplayName() string {
	if u.ProfileName != "" {
		return u.ProfileName
	}
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}
