package repository

import (
	"context"

	"github.com/wfunc/mafia-game/internal/models"
	"gorm.io/gorm"
)

// RoomChatRepository 房间聊天仓储接口
type RoomChatRepository interface {
	BaseRepository
	Create(ctx context.Context, msg *models.RoomChat) error
	// ListRecent 按时间正序返回最近limit条消息
	ListRecent(ctx context.Context, roomID uint, limit int) ([]models.RoomChat, error)
	DeleteByRoom(ctx context.Context, roomID uint) error
}

// roomChatRepo 房间聊天仓储实现
type roomChatRepo struct {
	*BaseRepo
}

// NewRoomChatRepository 创建房间聊天仓储
func NewRoomChatRepository(db *gorm.DB) RoomChatRepository {
	return &roomChatRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 写入聊天消息
func (r *roomChatRepo) Create(ctx context.Context, msg *models.RoomChat) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListRecent 按时间正序返回最近limit条消息
func (r *roomChatRepo) ListRecent(ctx context.Context, roomID uint, limit int) ([]models.RoomChat, error) {
	var msgs []models.RoomChat
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// 倒序取最新，再反转为时间正序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// DeleteByRoom 删除房间的全部聊天记录
func (r *roomChatRepo) DeleteByRoom(ctx context.Context, roomID uint) error {
	return r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Delete(&models.RoomChat{}).Error
}

// WithTx 使用事务
func (r *roomChatRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &roomChatRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
