package service

import (
	"context"
	"errors"
	"strings"

	"github.com/wfunc/mafia-game/internal/config"
	apperrors "github.com/wfunc/mafia-game/internal/errors"
	"github.com/wfunc/mafia-game/internal/models"
	"github.com/wfunc/mafia-game/internal/repository"
	"github.com/wfunc/mafia-game/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// roomService 房间服务实现
type roomService struct {
	db         *gorm.DB
	cfg        *config.GameConfig
	roomRepo   repository.RoomRepository
	playerRepo repository.RoomPlayerRepository
	chatRepo   repository.RoomChatRepository
	log        *zap.Logger
}

// NewRoomService 创建房间服务
func NewRoomService(
	db *gorm.DB,
	cfg *config.GameConfig,
	roomRepo repository.RoomRepository,
	playerRepo repository.RoomPlayerRepository,
	chatRepo repository.RoomChatRepository,
	log *zap.Logger,
) RoomService {
	return &roomService{
		db:         db,
		cfg:        cfg,
		roomRepo:   roomRepo,
		playerRepo: playerRepo,
		chatRepo:   chatRepo,
		log:        log,
	}
}

// CreateRoom 创建房间
func (s *roomService) CreateRoom(ctx context.Context, req *CreateRoomRequest) (*models.Room, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.ErrInvalidRoomName)
	}
	if req.MaxPlayers < s.cfg.MinPlayers || req.MaxPlayers > s.cfg.MaxPlayers {
		return nil, apperrors.Newf(apperrors.ErrInvalidMaxPlayers,
			"人数上限必须在%d到%d之间", s.cfg.MinPlayers, s.cfg.MaxPlayers)
	}

	room := &models.Room{
		Name:       name,
		MaxPlayers: req.MaxPlayers,
		Status:     models.RoomStatusWaiting,
		CreatedBy:  req.CreatorID,
	}

	// 密码仅存哈希，列表接口只暴露是否有密码
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrUnknown)
		}
		room.Password = hash
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		s.log.Error("创建房间失败", zap.Error(err), zap.String("name", name))
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	s.log.Info("房间已创建",
		zap.Uint("room_id", room.ID),
		zap.String("name", name),
		zap.Uint("creator", req.CreatorID),
	)
	return room, nil
}

// ListRooms 列出可见房间
// 先做全量心跳清理，保证列表中的在线人数是存活心跳的聚合
func (s *roomService) ListRooms(ctx context.Context) ([]*repository.RoomSummary, error) {
	if _, err := s.playerRepo.SweepAll(ctx, s.cfg.PresenceTTL); err != nil {
		s.log.Warn("心跳清理失败", zap.Error(err))
	}

	summaries, err := s.roomRepo.ListSummaries(ctx,
		[]string{models.RoomStatusWaiting, models.RoomStatusInGame})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return summaries, nil
}

// JoinRoom 加入房间
// 已在房间内的玩家重复加入只刷新心跳，不受满员限制；
// 新玩家受容量硬上限约束。容量检查和写入在同一事务内完成。
func (s *roomService) JoinRoom(ctx context.Context, req *JoinRoomRequest) (*JoinRoomResponse, error) {
	room, err := s.roomRepo.FindByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrRoomNotFound)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if room.Status == models.RoomStatusClosed {
		return nil, apperrors.New(apperrors.ErrRoomClosed)
	}

	if room.HasPassword() {
		ok, err := utils.VerifyPassword(req.Password, room.Password)
		if err != nil || !ok {
			return nil, apperrors.New(apperrors.ErrWrongPassword)
		}
	}

	isCreator := room.CreatedBy == req.UserID
	resp := &JoinRoomResponse{RoomID: room.ID}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		playerRepo := repository.NewRoomPlayerRepository(tx)
		roomRepo := repository.NewRoomRepository(tx)

		if _, err := playerRepo.Sweep(ctx, room.ID, s.cfg.PresenceTTL); err != nil {
			return err
		}

		// 已在房间内：任何状态下都允许刷新心跳
		existing, err := playerRepo.Find(ctx, room.ID, req.UserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing == nil {
			count, err := playerRepo.Count(ctx, room.ID)
			if err != nil {
				return err
			}
			if int(count) >= room.MaxPlayers {
				return apperrors.New(apperrors.ErrRoomFull)
			}
		}

		if err := playerRepo.Touch(ctx, &models.RoomPlayer{
			RoomID:    room.ID,
			UserID:    req.UserID,
			UserName:  req.DisplayName,
			IsCreator: isCreator,
		}); err != nil {
			return err
		}

		count, err := playerRepo.Count(ctx, room.ID)
		if err != nil {
			return err
		}
		return roomRepo.UpdatePlayerCount(ctx, room.ID, int(count))
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		s.log.Error("加入房间失败", zap.Error(err),
			zap.Uint("room_id", req.RoomID), zap.Uint("user_id", req.UserID))
		return nil, apperrors.Wrap(err, apperrors.ErrTransaction)
	}

	resp.IsCreator = isCreator
	return resp, nil
}

// LeaveRoom 离开房间，记录不存在不报错
func (s *roomService) LeaveRoom(ctx context.Context, roomID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		playerRepo := repository.NewRoomPlayerRepository(tx)
		roomRepo := repository.NewRoomRepository(tx)

		if err := playerRepo.Delete(ctx, roomID, userID); err != nil {
			return err
		}
		count, err := playerRepo.Count(ctx, roomID)
		if err != nil {
			return err
		}
		return roomRepo.UpdatePlayerCount(ctx, roomID, int(count))
	})
}

// Heartbeat 刷新心跳，未加入房间的心跳视为不在房间
func (s *roomService) Heartbeat(ctx context.Context, roomID, userID uint) error {
	existing, err := s.playerRepo.Find(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.ErrNotInRoom)
		}
		return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return s.playerRepo.Touch(ctx, &models.RoomPlayer{
		RoomID:    roomID,
		UserID:    userID,
		UserName:  existing.UserName,
		IsCreator: existing.IsCreator,
	})
}

// GetRoomState 获取房间状态：成员、聊天记录、开局标记
// 读取成员前先做惰性心跳清理
func (s *roomService) GetRoomState(ctx context.Context, roomID uint) (*RoomStateResponse, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrRoomNotFound)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	if _, err := s.playerRepo.Sweep(ctx, roomID, s.cfg.PresenceTTL); err != nil {
		s.log.Warn("心跳清理失败", zap.Error(err), zap.Uint("room_id", roomID))
	}

	players, err := s.playerRepo.ListActive(ctx, roomID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	chat, err := s.chatRepo.ListRecent(ctx, roomID, s.cfg.ChatHistoryLimit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	resp := &RoomStateResponse{
		RoomID:    room.ID,
		Name:      room.Name,
		Status:    room.Status,
		Started:   room.Status == models.RoomStatusInGame,
		SessionID: room.ActiveSessionID,
		Players:   make([]RoomPlayerInfo, 0, len(players)),
		Chat:      make([]ChatMessage, 0, len(chat)),
	}
	for _, p := range players {
		resp.Players = append(resp.Players, RoomPlayerInfo{
			UserID:    p.UserID,
			UserName:  p.UserName,
			IsCreator: p.IsCreator,
			JoinedAt:  p.JoinedAt,
		})
	}
	for _, m := range chat {
		resp.Chat = append(resp.Chat, ChatMessage{
			UserID:    m.UserID,
			UserName:  m.UserName,
			Message:   m.Message,
			CreatedAt: m.CreatedAt,
		})
	}
	return resp, nil
}

// PostChat 发送房间聊天消息
func (s *roomService) PostChat(ctx context.Context, roomID, userID uint, userName, message string) (*models.RoomChat, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "消息不能为空")
	}

	// 只有房间内的玩家可以发言
	if _, err := s.playerRepo.Find(ctx, roomID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotInRoom)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	msg := &models.RoomChat{
		RoomID:   roomID,
		UserID:   userID,
		UserName: userName,
		Message:  message,
	}
	if err := s.chatRepo.Create(ctx, msg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}
	return msg, nil
}

// CloseRoom 关闭房间，仅房主可操作
func (s *roomService) CloseRoom(ctx context.Context, roomID, userID uint) error {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.ErrRoomNotFound)
		}
		return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if room.CreatedBy != userID {
		return apperrors.New(apperrors.ErrNotRoomCreator)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roomRepo := repository.NewRoomRepository(tx)
		playerRepo := repository.NewRoomPlayerRepository(tx)

		if err := roomRepo.Close(ctx, roomID); err != nil {
			return err
		}
		return playerRepo.DeleteByRoom(ctx, roomID)
	})
}
