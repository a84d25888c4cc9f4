package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqliteFilePath(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		dsn    string
		want   string
	}{
		{"普通文件路径", "sqlite", "./data/mafia-game.db", "./data/mafia-game.db"},
		{"file前缀带参数", "sqlite", "file:./data/game.db?cache=shared&_fk=1", "./data/game.db"},
		{"sqlite3别名", "sqlite3", "game.db", "game.db"},
		{"内存库不加锁", "sqlite", ":memory:", ""},
		{"file内存库不加锁", "sqlite", "file::memory:?cache=shared", ""},
		{"mysql不加锁", "mysql", "user:pass@tcp(localhost:3306)/game", ""},
		{"postgres不加锁", "postgres", "host=localhost dbname=game", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteFilePath(tt.driver, tt.dsn))
		})
	}
}

func TestMigrationLockRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "game.db")

	lockFile, err := acquireMigrationLock(dbPath)
	require.NoError(t, err)
	require.NotNil(t, lockFile)

	lockPath := dbPath + ".migration.lock"
	_, err = os.Stat(lockPath)
	require.NoError(t, err)

	releaseMigrationLock(lockFile)
	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanupStaleLocksKeepsFreshLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "game.db")
	lockPath := dbPath + ".migration.lock"
	require.NoError(t, os.WriteFile(lockPath, nil, 0644))

	// 新鲜的锁文件不能被清理
	cleanupStaleLocks(dbPath)
	_, err := os.Stat(lockPath)
	assert.NoError(t, err)

	// 空路径（内存库/网络库）直接跳过
	cleanupStaleLocks("")
}
