package service

import (
	"context"
	"time"

	"github.com/wfunc/mafia-game/internal/models"
	"github.com/wfunc/mafia-game/internal/repository"
)

// RoomService 房间服务接口
type RoomService interface {
	CreateRoom(ctx context.Context, req *CreateRoomRequest) (*models.Room, error)
	ListRooms(ctx context.Context) ([]*repository.RoomSummary, error)
	// JoinRoom 加入房间；重复加入等价于刷新心跳
	JoinRoom(ctx context.Context, req *JoinRoomRequest) (*JoinRoomResponse, error)
	LeaveRoom(ctx context.Context, roomID, userID uint) error
	// Heartbeat 刷新在房间内的心跳
	Heartbeat(ctx context.Context, roomID, userID uint) error
	GetRoomState(ctx context.Context, roomID uint) (*RoomStateResponse, error)
	PostChat(ctx context.Context, roomID, userID uint, userName, message string) (*models.RoomChat, error)
	CloseRoom(ctx context.Context, roomID, userID uint) error
}

// GameService 游戏服务接口
type GameService interface {
	// StartGame 开始游戏，发牌并创建会话，整个序列在单事务中完成
	StartGame(ctx context.Context, roomID, initiatorID uint) (uint, error)
	// CastVote 投票，同一(阶段,天数)内重投为替换
	CastVote(ctx context.Context, sessionID, voterID, targetID uint) error
	// GetTally 当前阶段的计票结果
	GetTally(ctx context.Context, sessionID uint) (map[uint]int, error)
	// AdvancePhase 推进阶段，结算被离开阶段的淘汰并判定胜负
	AdvancePhase(ctx context.Context, sessionID uint) (*PhaseResult, error)
	// GetGameState 获取对局状态，角色只对本人可见
	GetGameState(ctx context.Context, sessionID, requestingUserID uint) (*GameStateResponse, error)
}

// AuthService 认证服务接口
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	// ResolveIdentity 校验令牌并返回用户ID
	ResolveIdentity(ctx context.Context, token string) (uint, error)
	// IsPrivileged 用户是否具有管理员权限
	IsPrivileged(ctx context.Context, userID uint) (bool, error)
	GetUser(ctx context.Context, userID uint) (*models.User, error)
}

// CreateRoomRequest 创建房间请求
type CreateRoomRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=100"`
	Password   string `json:"password"`
	MaxPlayers int    `json:"max_players" binding:"required"`
	CreatorID  uint   `json:"-"` // 由handler从令牌注入
}

// JoinRoomRequest 加入房间请求
type JoinRoomRequest struct {
	RoomID      uint   `json:"-"`
	UserID      uint   `json:"-"`
	DisplayName string `json:"-"`
	Password    string `json:"password"`
}

// JoinRoomResponse 加入房间响应
type JoinRoomResponse struct {
	RoomID    uint `json:"room_id"`
	IsCreator bool `json:"is_creator"`
}

// RoomPlayerInfo 房间内玩家信息
type RoomPlayerInfo struct {
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name"`
	IsCreator bool      `json:"is_creator"`
	JoinedAt  time.Time `json:"joined_at"`
}

// ChatMessage 聊天消息
type ChatMessage struct {
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomStateResponse 房间状态响应
type RoomStateResponse struct {
	RoomID    uint             `json:"room_id"`
	Name      string           `json:"name"`
	Status    string           `json:"status"`
	Players   []RoomPlayerInfo `json:"players"`
	Chat      []ChatMessage    `json:"chat"`
	Started   bool             `json:"started"`
	SessionID *uint            `json:"session_id,omitempty"`
}

// PhaseResult 阶段推进结果
type PhaseResult struct {
	Phase        string `json:"phase"`
	DayNumber    int    `json:"day_number"`
	EliminatedID *uint  `json:"eliminated_id,omitempty"` // 被离开阶段淘汰的玩家
	SavedByMedic bool   `json:"saved_by_medic,omitempty"`
	GameEnded    bool   `json:"game_ended"`
	Winner       string `json:"winner,omitempty"`
}

// GamePlayerInfo 对局内玩家视图，角色按请求者身份脱敏
type GamePlayerInfo struct {
	UserID   uint   `json:"user_id"`
	UserName string `json:"user_name"`
	Role     string `json:"role"` // 本人显示真实角色，其他人显示unknown
	IsAlive  bool   `json:"is_alive"`
	Voted    bool   `json:"voted"` // 当前阶段是否已投票
}

// GameStateResponse 对局状态响应
type GameStateResponse struct {
	SessionID uint             `json:"session_id"`
	RoomID    uint             `json:"room_id"`
	Phase     string           `json:"phase"`
	DayNumber int              `json:"day_number"`
	MyRole    string           `json:"my_role"`
	Players   []GamePlayerInfo `json:"players"`
	Chat      []ChatMessage    `json:"chat"`
	GameEnded bool             `json:"game_ended"`
	Winner    string           `json:"winner,omitempty"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=20"`
	Password string `json:"password" binding:"required,min=6"`
	Nickname string `json:"nickname"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	TokenType   string       `json:"token_type"`
}
