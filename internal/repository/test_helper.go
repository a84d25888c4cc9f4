package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/mafia-game/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
func SetupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 自动迁移所有模型
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

	return db
}

// SeedTestUsers 创建测试用户
func SeedTestUsers(t *testing.T, db *gorm.DB, count int) []models.User {
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		users = append(users, models.User{
			Username: fmt.Sprintf("player%d", i+1),
			Nickname: fmt.Sprintf("玩家%d", i+1),
			Status:   "active",
		})
	}
	err := db.Create(&users).Error
	require.NoError(t, err)
	return users
}

// CreateTestRoom 创建测试房间
func CreateTestRoom(t *testing.T, db *gorm.DB, name string, createdBy uint) *models.Room {
	room := &models.Room{
		Name:       name,
		MaxPlayers: 20,
		Status:     models.RoomStatusWaiting,
		CreatedBy:  createdBy,
	}
	err := db.Create(room).Error
	require.NoError(t, err)
	return room
}

// JoinTestRoom 将用户写入房间在线表
func JoinTestRoom(t *testing.T, db *gorm.DB, roomID uint, user models.User, isCreator bool, joinedAt time.Time) *models.RoomPlayer {
	player := &models.RoomPlayer{
		RoomID:    roomID,
		UserID:    user.ID,
		UserName:  user.DisplayName(),
		IsCreator: isCreator,
		JoinedAt:  joinedAt,
		LastSeen:  time.Now(),
	}
	err := db.Create(player).Error
	require.NoError(t, err)
	return player
}

// CreateTestSession 创建测试对局及玩家，roles按顺序分配给userIDs
func CreateTestSession(t *testing.T, db *gorm.DB, roomID uint, userIDs []uint, roles []string) *models.GameSession {
	require.Equal(t, len(userIDs), len(roles))
	session := &models.GameSession{
		RoomID:    roomID,
		Status:    models.SessionStatusActive,
		Phase:     models.PhaseNight,
		DayNumber: 1,
	}
	err := db.Create(session).Error
	require.NoError(t, err)

	players := make([]models.SessionPlayer, 0, len(userIDs))
	for i, uid := range userIDs {
		players = append(players, models.SessionPlayer{
			SessionID: session.ID,
			UserID:    uid,
			Role:      roles[i],
			IsAlive:   true,
		})
	}
	err = db.Create(&players).Error
	require.NoError(t, err)
	session.Players = players
	return session
}
