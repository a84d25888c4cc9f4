package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wfunc/mafia-game/internal/logger"
	"go.uber.org/zap"
)

const (
	lockRetryInterval = time.Second
	lockMaxAttempts   = 30

	// 超过此时长的锁视为上一个进程崩溃遗留
	staleLockAge   = 5 * time.Minute
	cleanupLockAge = 10 * time.Minute
)

// sqliteFilePath 从DSN解析sqlite数据库文件路径
// 内存库和mysql/postgres返回空串，表示迁移不需要文件锁
func sqliteFilePath(driver, dsn string) string {
	switch driver {
	case "sqlite", "sqlite3":
	default:
		return ""
	}

	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

// acquireMigrationLock 以独占创建锁文件的方式获取迁移锁
func acquireMigrationLock(dbPath string) (*os.File, error) {
	lockPath := dbPath + ".migration.lock"

	for i := 0; i < lockMaxAttempts; i++ {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
		if err == nil {
			logger.Debug("获取迁移锁成功", zap.String("lock", lockPath))
			return lockFile, nil
		}

		if info, err := os.Stat(lockPath); err == nil {
			if time.Since(info.ModTime()) > staleLockAge {
				logger.Warn("迁移锁文件过期，尝试删除", zap.String("lock", lockPath))
				os.Remove(lockPath)
				continue
			}
		}

		logger.Debug("等待迁移锁...", zap.Int("attempt", i+1))
		time.Sleep(lockRetryInterval)
	}

	return nil, fmt.Errorf("无法获取迁移锁，可能有其他进程正在执行迁移")
}

// releaseMigrationLock 释放迁移锁
func releaseMigrationLock(lockFile *os.File) {
	if lockFile == nil {
		return
	}

	lockPath := lockFile.Name()
	lockFile.Close()
	os.Remove(lockPath)
	logger.Debug("释放迁移锁", zap.String("lock", lockPath))
}

// cleanupStaleLocks 清理数据库所在目录下过期的锁文件
func cleanupStaleLocks(dbPath string) {
	if dbPath == "" {
		return
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(dbPath), "*.lock"))
	for _, lockFile := range matches {
		if info, err := os.Stat(lockFile); err == nil {
			if time.Since(info.ModTime()) > cleanupLockAge {
				logger.Info("清理过期锁文件", zap.String("file", lockFile))
				os.Remove(lockFile)
			}
		}
	}
}
