package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/mafia-game/internal/config"
	"github.com/wfunc/mafia-game/internal/models"
	"github.com/wfunc/mafia-game/internal/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv 服务层测试环境
type testEnv struct {
	db    *gorm.DB
	cfg   *config.GameConfig
	room  RoomService
	game  GameService
	users []models.User
}

// setupTestEnv 构建内存数据库上的服务栈
func setupTestEnv(t *testing.T, userCount int) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.RoomPlayer{},
		&models.RoomChat{},
		&models.GameSession{},
		&models.SessionPlayer{},
		&models.Vote{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})

	cfg := &config.GameConfig{
		PresenceTTL:      30 * time.Second,
		MinPlayers:       4,
		MaxPlayers:       20,
		ChatHistoryLimit: 50,
	}

	log := zap.NewNop()
	roomRepo := repository.NewRoomRepository(db)
	playerRepo := repository.NewRoomPlayerRepository(db)
	chatRepo := repository.NewRoomChatRepository(db)
	sessionRepo := repository.NewGameSessionRepository(db)
	spRepo := repository.NewSessionPlayerRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	userRepo := repository.NewUserRepository(db)

	env := &testEnv{
		db:   db,
		cfg:  cfg,
		room: NewRoomService(db, cfg, roomRepo, playerRepo, chatRepo, log),
		game: NewGameService(db, cfg, roomRepo, playerRepo, sessionRepo, spRepo, voteRepo, userRepo, chatRepo, log),
	}

	for i := 0; i < userCount; i++ {
		user := models.User{
			Username: fmt.Sprintf("player%d", i+1),
			Nickname: fmt.Sprintf("玩家%d", i+1),
			Status:   "active",
		}
		require.NoError(t, db.Create(&user).Error)
		env.users = append(env.users, user)
	}

	return env
}

// createAndFillRoom 创建房间并让前n个用户加入
func (e *testEnv) createAndFillRoom(t *testing.T, n int) *models.Room {
	ctx := context.Background()
	room, err := e.room.CreateRoom(ctx, &CreateRoomRequest{
		Name:       "测试房",
		MaxPlayers: 20,
		CreatorID:  e.users[0].ID,
	})
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		_, err := e.room.JoinRoom(ctx, &JoinRoomRequest{
			RoomID:      room.ID,
			UserID:      e.users[i].ID,
			DisplayName: e.users[i].DisplayName(),
		})
		require.NoError(t, err)
	}
	return room
}

// sessionPlayers 读取对局玩家
func (e *testEnv) sessionPlayers(t *testing.T, sessionID uint) []models.SessionPlayer {
	var players []models.SessionPlayer
	require.NoError(t, e.db.Where("session_id = ?", sessionID).Order("id").Find(&players).Error)
	return players
}

// findByRole 找到指定角色的玩家
func findByRole(players []models.SessionPlayer, role string) *models.SessionPlayer {
	for i := range players {
		if players[i].Role == role {
			return &players[i]
		}
	}
	return nil
}

// aliveByFaction 统计双方存活人数
func aliveByFaction(players []models.SessionPlayer) (mafia, civilian int) {
	for _, p := range players {
		if !p.IsAlive {
			continue
		}
		if p.Role == "mafia" || p.Role == "don" {
			mafia++
		} else {
			civilian++
		}
	}
	return
}
