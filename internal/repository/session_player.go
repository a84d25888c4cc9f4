package repository

import (
	"context"

	"github.com/wfunc/mafia-game/internal/models"
	"gorm.io/gorm"
)

// SessionPlayerRepository 对局玩家仓储接口
type SessionPlayerRepository interface {
	BaseRepository
	// CreateBatch 批量写入对局玩家（发牌时一次性落库）
	CreateBatch(ctx context.Context, players []models.SessionPlayer) error
	ListBySession(ctx context.Context, sessionID uint) ([]models.SessionPlayer, error)
	FindBySessionAndUser(ctx context.Context, sessionID, userID uint) (*models.SessionPlayer, error)
	// MarkDead 标记玩家出局
	MarkDead(ctx context.Context, sessionID, userID uint) error
}

// sessionPlayerRepo 对局玩家仓储实现
type sessionPlayerRepo struct {
	*BaseRepo
}

// NewSessionPlayerRepository 创建对局玩家仓储
func NewSessionPlayerRepository(db *gorm.DB) SessionPlayerRepository {
	return &sessionPlayerRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// CreateBatch 批量写入对局玩家
func (r *sessionPlayerRepo) CreateBatch(ctx context.Context, players []models.SessionPlayer) error {
	if len(players) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&players).Error
}

// ListBySession 列出对局内全部玩家
func (r *sessionPlayerRepo) ListBySession(ctx context.Context, sessionID uint) ([]models.SessionPlayer, error) {
	var players []models.SessionPlayer
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id").
		Find(&players).Error
	return players, err
}

// FindBySessionAndUser 查询玩家在对局中的记录
func (r *sessionPlayerRepo) FindBySessionAndUser(ctx context.Context, sessionID, userID uint) (*models.SessionPlayer, error) {
	var player models.SessionPlayer
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&player).Error
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// MarkDead 标记玩家出局
func (r *sessionPlayerRepo) MarkDead(ctx context.Context, sessionID, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.SessionPlayer{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Update("is_alive", false).Error
}

// WithTx 使用事务
func (r *sessionPlayerRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &sessionPlayerRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
