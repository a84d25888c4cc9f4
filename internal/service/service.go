package service

import (
	"time"

	"github.com/wfunc/mafia-game/internal/config"
	"github.com/wfunc/mafia-game/internal/repository"
	"github.com/wfunc/mafia-game/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Auth AuthService
	Room RoomService
	Game GameService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, cfg *config.Config, log *zap.Logger) *Services {
	// 初始化仓储
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	playerRepo := repository.NewRoomPlayerRepository(db)
	chatRepo := repository.NewRoomChatRepository(db)
	sessionRepo := repository.NewGameSessionRepository(db)
	spRepo := repository.NewSessionPlayerRepository(db)
	voteRepo := repository.NewVoteRepository(db)

	// 初始化JWT管理器
	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.ExpireHours)*time.Hour,
		time.Duration(cfg.Security.JWT.RefreshHours)*time.Hour,
	)

	authService := NewAuthService(db, userRepo, jwtManager, log)
	roomService := NewRoomService(db, &cfg.Game, roomRepo, playerRepo, chatRepo, log)
	gameService := NewGameService(db, &cfg.Game, roomRepo, playerRepo, sessionRepo, spRepo, voteRepo, userRepo, chatRepo, log)

	return &Services{
		Auth: authService,
		Room: roomService,
		Game: gameService,
	}
}
