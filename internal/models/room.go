package models

import (
	"time"
)

// 房间状态
const (
	RoomStatusWaiting = "waiting" // 等待玩家
	RoomStatusInGame  = "in_game" // 游戏进行中
	RoomStatusClosed  = "closed"  // 已关闭
)

// Room 房间表
// 不变式: CurrentPlayers <= MaxPlayers; ActiveSessionID 非空当且仅当 Status=in_game
type Room struct {
	BaseModel
	Name            string `gorm:"size:100;not null" json:"name"`
	Password        string `gorm:"size:255" json:"-"` // argon2哈希，空串表示无密码
	MaxPlayers      int    `gorm:"not null;default:20" json:"max_players"`
	CurrentPlayers  int    `gorm:"not null;default:0" json:"current_players"`
	Status          string `gorm:"size:20;index;default:'waiting'" json:"status"`
	CreatedBy       uint   `gorm:"not null;index" json:"created_by"`
	ActiveSessionID *uint  `gorm:"index" json:"active_session_id,omitempty"`
}

// TableName 指定表名
func (Room) TableName() string {
	return "rooms"
}

// HasPassword 房间是否设有密码（对外只暴露布尔值）
func (r *Room) HasPassword() bool {
	return r.Password != ""
}

// RoomPlayer 房间在线玩家表（大厅级心跳记录，独立于游戏会话）
type RoomPlayer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uint      `gorm:"not null;index;uniqueIndex:idx_room_user" json:"room_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_room_user" json:"user_id"`
	UserName  string    `gorm:"size:100" json:"user_name"`
	IsCreator bool      `gorm:"default:false" json:"is_creator"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`
	LastSeen  time.Time `gorm:"index;not null" json:"last_seen"`
}

// TableName 指定表名
func (RoomPlayer) TableName() string {
	return "room_players"
}

// RoomChat 房间聊天记录表
type RoomChat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uint      `gorm:"not null;index" json:"room_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	UserName  string    `gorm:"size:100" json:"user_name"`
	Message   string    `gorm:"size:500;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (RoomChat) TableName() string {
	return "room_chat"
}
