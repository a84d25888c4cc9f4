package repository

import (
	"context"

	"github.com/wfunc/mafia-game/internal/models"
	"gorm.io/gorm"
)

// GameSessionRepository 对局仓储接口
type GameSessionRepository interface {
	BaseRepository
	Create(ctx context.Context, session *models.GameSession) error
	// FindByID 查询对局并预加载玩家列表
	FindByID(ctx context.Context, id uint) (*models.GameSession, error)
	// FindActiveByRoom 查询房间当前进行中的对局
	FindActiveByRoom(ctx context.Context, roomID uint) (*models.GameSession, error)
	// UpdatePhase 更新阶段与天数
	UpdatePhase(ctx context.Context, id uint, phase string, dayNumber int) error
	// Finish 结束对局并记录胜方，仅对active状态生效保证只翻转一次
	Finish(ctx context.Context, id uint, winner string) (bool, error)
}

// gameSessionRepo 对局仓储实现
type gameSessionRepo struct {
	*BaseRepo
}

// NewGameSessionRepository 创建对局仓储
func NewGameSessionRepository(db *gorm.DB) GameSessionRepository {
	return &gameSessionRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建对局
func (r *gameSessionRepo) Create(ctx context.Context, session *models.GameSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByID 查询对局并预加载玩家列表
func (r *gameSessionRepo) FindByID(ctx context.Context, id uint) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).
		Preload("Players").
		First(&session, id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindActiveByRoom 查询房间当前进行中的对局
func (r *gameSessionRepo) FindActiveByRoom(ctx context.Context, roomID uint) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).
		Preload("Players").
		Where("room_id = ? AND status = ?", roomID, models.SessionStatusActive).
		Order("id DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdatePhase 更新阶段与天数
func (r *gameSessionRepo) UpdatePhase(ctx context.Context, id uint, phase string, dayNumber int) error {
	return r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"phase":      phase,
			"day_number": dayNumber,
		}).Error
}

// Finish 结束对局并记录胜方
// 条件更新保证finished只从active翻转一次，返回是否由本次调用完成翻转
func (r *gameSessionRepo) Finish(ctx context.Context, id uint, winner string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("id = ? AND status = ?", id, models.SessionStatusActive).
		Updates(map[string]interface{}{
			"status": models.SessionStatusFinished,
			"winner": winner,
		})
	return result.RowsAffected > 0, result.Error
}

// WithTx 使用事务
func (r *gameSessionRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameSessionRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
