package repository

import (
	"context"

	"github.com/wfunc/mafia-game/internal/models"
	"gorm.io/gorm"
)

// RoomSummary 房间列表项（密码只暴露布尔值）
type RoomSummary struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	HasPassword    bool   `json:"has_password"`
	MaxPlayers     int    `json:"max_players"`
	CurrentPlayers int    `json:"current_players"`
	Status         string `json:"status"`
	CreatedBy      uint   `json:"created_by"`
	CreatedAt      string `json:"created_at"`
}

// RoomRepository 房间仓储接口
type RoomRepository interface {
	BaseRepository
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id uint) (*models.Room, error)
	// ListSummaries 列出指定状态的房间，在线人数按存活心跳聚合
	ListSummaries(ctx context.Context, statuses []string) ([]*RoomSummary, error)
	UpdatePlayerCount(ctx context.Context, id uint, count int) error
	// StartSession 将房间从waiting置为in_game并绑定会话，返回是否由本次调用完成翻转
	StartSession(ctx context.Context, id uint, sessionID uint) (bool, error)
	// EndSession 对局结束后将房间放回waiting并解绑会话
	EndSession(ctx context.Context, id uint) error
	Close(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

// roomRepo 房间仓储实现
type roomRepo struct {
	*BaseRepo
}

// NewRoomRepository 创建房间仓储
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建房间
func (r *roomRepo) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// FindByID 根据ID查找
func (r *roomRepo) FindByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListSummaries 列出指定状态的房间
func (r *roomRepo) ListSummaries(ctx context.Context, statuses []string) ([]*RoomSummary, error) {
	var summaries []*RoomSummary

	err := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Select(
			"rooms.id",
			"rooms.name",
			"rooms.password != '' as has_password",
			"rooms.max_players",
			"COUNT(DISTINCT room_players.user_id) as current_players",
			"rooms.status",
			"rooms.created_by",
			"rooms.created_at",
		).
		Joins("LEFT JOIN room_players ON room_players.room_id = rooms.id").
		Where("rooms.status IN ?", statuses).
		Group("rooms.id").
		Order("rooms.created_at DESC").
		Scan(&summaries).Error

	return summaries, err
}

// UpdatePlayerCount 更新在线人数
func (r *roomRepo) UpdatePlayerCount(ctx context.Context, id uint, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", id).
		Update("current_players", count).Error
}

// StartSession 将房间从waiting置为in_game并绑定会话
// 条件更新保证并发开局只有一个调用成功，返回是否由本次调用完成翻转
func (r *roomRepo) StartSession(ctx context.Context, id uint, sessionID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND status = ?", id, models.RoomStatusWaiting).
		Updates(map[string]interface{}{
			"status":            models.RoomStatusInGame,
			"active_session_id": sessionID,
		})
	return result.RowsAffected > 0, result.Error
}

// EndSession 对局结束后将房间放回waiting并解绑会话
func (r *roomRepo) EndSession(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND status = ?", id, models.RoomStatusInGame).
		Updates(map[string]interface{}{
			"status":            models.RoomStatusWaiting,
			"active_session_id": nil,
		}).Error
}

// Close 关闭房间
func (r *roomRepo) Close(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            models.RoomStatusClosed,
			"active_session_id": nil,
		}).Error
}

// Delete 删除房间
func (r *roomRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Room{}, id).Error
}

// WithTx 使用事务
func (r *roomRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &roomRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
