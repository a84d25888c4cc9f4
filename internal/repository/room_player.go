package repository

import (
	"context"
	"time"

	"github.com/wfunc/mafia-game/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomPlayerRepository 房间在线玩家仓储接口
// 心跳过期采用惰性清理：每次读取成员列表前先Sweep，无后台定时器
type RoomPlayerRepository interface {
	BaseRepository
	// Touch 刷新心跳，不存在则创建（join与heartbeat共用）
	Touch(ctx context.Context, player *models.RoomPlayer) error
	// Sweep 删除指定房间内心跳过期的玩家，并发清理可无害竞争
	Sweep(ctx context.Context, roomID uint, threshold time.Duration) (int64, error)
	// SweepAll 全量清理过期心跳（大厅列表前调用）
	SweepAll(ctx context.Context, threshold time.Duration) (int64, error)
	// ListActive 按加入时间排序列出房间内玩家
	ListActive(ctx context.Context, roomID uint) ([]models.RoomPlayer, error)
	Find(ctx context.Context, roomID, userID uint) (*models.RoomPlayer, error)
	Count(ctx context.Context, roomID uint) (int64, error)
	Delete(ctx context.Context, roomID, userID uint) error
	DeleteByRoom(ctx context.Context, roomID uint) error
}

// roomPlayerRepo 房间在线玩家仓储实现
type roomPlayerRepo struct {
	*BaseRepo
}

// NewRoomPlayerRepository 创建房间在线玩家仓储
func NewRoomPlayerRepository(db *gorm.DB) RoomPlayerRepository {
	return &roomPlayerRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Touch 刷新心跳，不存在则创建
func (r *roomPlayerRepo) Touch(ctx context.Context, player *models.RoomPlayer) error {
	player.LastSeen = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_seen"}),
		}).
		Create(player).Error
}

// Sweep 删除指定房间内心跳过期的玩家
func (r *roomPlayerRepo) Sweep(ctx context.Context, roomID uint, threshold time.Duration) (int64, error) {
	cutoff := time.Now().Add(-threshold)
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND last_seen < ?", roomID, cutoff).
		Delete(&models.RoomPlayer{})
	return result.RowsAffected, result.Error
}

// SweepAll 全量清理过期心跳
func (r *roomPlayerRepo) SweepAll(ctx context.Context, threshold time.Duration) (int64, error) {
	cutoff := time.Now().Add(-threshold)
	result := r.db.WithContext(ctx).
		Where("last_seen < ?", cutoff).
		Delete(&models.RoomPlayer{})
	return result.RowsAffected, result.Error
}

// ListActive 按加入时间排序列出房间内玩家
func (r *roomPlayerRepo) ListActive(ctx context.Context, roomID uint) ([]models.RoomPlayer, error) {
	var players []models.RoomPlayer
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at").
		Find(&players).Error
	return players, err
}

// Find 查找玩家的在线记录
func (r *roomPlayerRepo) Find(ctx context.Context, roomID, userID uint) (*models.RoomPlayer, error) {
	var player models.RoomPlayer
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&player).Error
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// Count 统计房间内玩家数
func (r *roomPlayerRepo) Count(ctx context.Context, roomID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RoomPlayer{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

// Delete 删除玩家的在线记录（显式离开，记录不存在不报错）
func (r *roomPlayerRepo) Delete(ctx context.Context, roomID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&models.RoomPlayer{}).Error
}

// DeleteByRoom 清空房间内所有在线记录
func (r *roomPlayerRepo) DeleteByRoom(ctx context.Context, roomID uint) error {
	return r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Delete(&models.RoomPlayer{}).Error
}

// WithTx 使用事务
func (r *roomPlayerRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &roomPlayerRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
