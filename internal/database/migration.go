package database

import (
	"fmt"

	"github.com/wfunc/mafia-game/internal/logger"
	"github.com/wfunc/mafia-game/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 清理过期锁文件
	cleanupStaleLocks(dbFile)

	// 获取迁移锁，避免多个进程同时迁移；非文件库不需要
	if dbFile != "" {
		lockFile, err := acquireMigrationLock(dbFile)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	migrationModels := []interface{}{
		// 用户相关
		&models.User{},

		// 房间相关
		&models.Room{},
		&models.RoomPlayer{},
		&models.RoomChat{},

		// 对局相关
		&models.GameSession{},
		&models.SessionPlayer{},
		&models.Vote{},
	}

	logger.Info("开始数据库迁移...")

	// SQLite迁移重建表时先关外键，避免锁定问题
	if DB.Dialector.Name() == "sqlite" {
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	if err := createIndexes(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
// gorm标签已声明大部分索引，这里补充查询热点的组合索引
func createIndexes() error {
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_room_players_last_seen ON room_players(room_id, last_seen)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_room_players_last_seen"), zap.Error(err))
	}

	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_game_sessions_room_status ON game_sessions(room_id, status)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_game_sessions_room_status"), zap.Error(err))
	}

	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_votes_phase ON votes(session_id, phase, day_number)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_votes_phase"), zap.Error(err))
	}

	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_room_chat_room_id ON room_chat(room_id, id)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_room_chat_room_id"), zap.Error(err))
	}

	return nil
}

// DropAllTables 删除所有表（仅用于测试环境重置）
func DropAllTables() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	tables := []interface{}{
		&models.Vote{},
		&models.SessionPlayer{},
		&models.GameSession{},
		&models.RoomChat{},
		&models.RoomPlayer{},
		&models.Room{},
		&models.User{},
	}

	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			return err
		}
	}

	logger.Info("所有表已删除")
	return nil
}
