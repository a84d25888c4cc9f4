package models

// 会话状态
const (
	SessionStatusActive   = "active"
	SessionStatusFinished = "finished"
)

// 游戏阶段
const (
	PhaseNight = "night"
	PhaseDay   = "day"
	PhaseVote  = "vote"
)

// 胜利方
const (
	WinnerCivilian = "civilian"
	WinnerMafia    = "mafia"
)

// GameSession 游戏会话表
// 每个房间同时至多一个active会话，RoomID创建后不变
type GameSession struct {
	BaseModel
	RoomID    uint   `gorm:"not null;index" json:"room_id"`
	Status    string `gorm:"size:20;index;default:'active'" json:"status"` // active, finished
	Phase     string `gorm:"size:20;not null;default:'night'" json:"phase"`
	DayNumber int    `gorm:"not null;default:1" json:"day_number"`
	Winner    string `gorm:"size:20" json:"winner,omitempty"` // civilian, mafia

	// 关联
	Players []SessionPlayer `gorm:"foreignKey:SessionID" json:"players,omitempty"`
}

// TableName 指定表名
func (GameSession) TableName() string {
	return "game_sessions"
}

// IsFinished 会话是否已结束
func (s *GameSession) IsFinished() bool {
	return s.Status == SessionStatusFinished
}

// SessionPlayer 会话玩家表
// 会话开始时批量创建，会话存续期间只变更IsAlive
type SessionPlayer struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID uint   `gorm:"not null;index;uniqueIndex:idx_session_user" json:"session_id"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_session_user" json:"user_id"`
	UserName  string `gorm:"size:100" json:"user_name"`
	Role      string `gorm:"size:20;not null" json:"role"`
	IsAlive   bool   `gorm:"not null;default:true" json:"is_alive"`
}

// TableName 指定表名
func (SessionPlayer) TableName() string {
	return "session_players"
}

// Vote 投票表
// 唯一约束保证每个(会话,投票人,阶段,天数)至多一条存活记录，重投覆盖
type Vote struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID uint   `gorm:"not null;index;uniqueIndex:idx_vote_unique" json:"session_id"`
	VoterID   uint   `gorm:"not null;uniqueIndex:idx_vote_unique" json:"voter_id"`
	TargetID  uint   `gorm:"not null" json:"target_id"`
	Phase     string `gorm:"size:20;not null;uniqueIndex:idx_vote_unique" json:"phase"`
	DayNumber int    `gorm:"not null;uniqueIndex:idx_vote_unique" json:"day_number"`
}

// TableName 指定表名
func (Vote) TableName() string {
	return "votes"
}
