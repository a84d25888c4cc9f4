package service

import (
	"context"
	"errors"

	"github.com/wfunc/mafia-game/internal/config"
	apperrors "github.com/wfunc/mafia-game/internal/errors"
	"github.com/wfunc/mafia-game/internal/game"
	"github.com/wfunc/mafia-game/internal/models"
	"github.com/wfunc/mafia-game/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// gameService 游戏服务实现
type gameService struct {
	db          *gorm.DB
	cfg         *config.GameConfig
	roomRepo    repository.RoomRepository
	playerRepo  repository.RoomPlayerRepository
	sessionRepo repository.GameSessionRepository
	spRepo      repository.SessionPlayerRepository
	voteRepo    repository.VoteRepository
	userRepo    repository.UserRepository
	chatRepo    repository.RoomChatRepository
	log         *zap.Logger
}

// NewGameService 创建游戏服务
func NewGameService(
	db *gorm.DB,
	cfg *config.GameConfig,
	roomRepo repository.RoomRepository,
	playerRepo repository.RoomPlayerRepository,
	sessionRepo repository.GameSessionRepository,
	spRepo repository.SessionPlayerRepository,
	voteRepo repository.VoteRepository,
	userRepo repository.UserRepository,
	chatRepo repository.RoomChatRepository,
	log *zap.Logger,
) GameService {
	return &gameService{
		db:          db,
		cfg:         cfg,
		roomRepo:    roomRepo,
		playerRepo:  playerRepo,
		sessionRepo: sessionRepo,
		spRepo:      spRepo,
		voteRepo:    voteRepo,
		userRepo:    userRepo,
		chatRepo:    chatRepo,
		log:         log,
	}
}

// StartGame 开始游戏
// 清理过期心跳后按存活成员发牌；建会话、批量写入玩家、更新房间状态
// 在同一事务内完成，任何一步失败都整体回滚。
func (s *gameService) StartGame(ctx context.Context, roomID, initiatorID uint) (uint, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.New(apperrors.ErrRoomNotFound)
		}
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if room.CreatedBy != initiatorID {
		return 0, apperrors.New(apperrors.ErrNotRoomCreator)
	}
	if room.Status == models.RoomStatusInGame {
		return 0, apperrors.New(apperrors.ErrGameAlreadyStarted)
	}
	if room.Status == models.RoomStatusClosed {
		return 0, apperrors.New(apperrors.ErrRoomClosed)
	}

	var sessionID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		playerRepo := repository.NewRoomPlayerRepository(tx)
		sessionRepo := repository.NewGameSessionRepository(tx)
		spRepo := repository.NewSessionPlayerRepository(tx)
		roomRepo := repository.NewRoomRepository(tx)

		if _, err := playerRepo.Sweep(ctx, roomID, s.cfg.PresenceTTL); err != nil {
			return err
		}
		players, err := playerRepo.ListActive(ctx, roomID)
		if err != nil {
			return err
		}
		if len(players) < s.cfg.MinPlayers {
			return apperrors.Newf(apperrors.ErrInsufficientPlayers,
				"当前%d人，至少需要%d人", len(players), s.cfg.MinPlayers)
		}

		session := &models.GameSession{
			RoomID:    roomID,
			Status:    models.SessionStatusActive,
			Phase:     models.PhaseNight,
			DayNumber: 1,
		}
		if err := sessionRepo.Create(ctx, session); err != nil {
			return err
		}

		assigned := game.AssignRoles(players)
		for i := range assigned {
			assigned[i].SessionID = session.ID
		}
		if err := spRepo.CreateBatch(ctx, assigned); err != nil {
			return err
		}

		// 条件翻转兜底：并发开局时只有抢到waiting状态的事务能提交
		started, err := roomRepo.StartSession(ctx, roomID, session.ID)
		if err != nil {
			return err
		}
		if !started {
			return apperrors.New(apperrors.ErrGameAlreadyStarted)
		}

		sessionID = session.ID
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return 0, appErr
		}
		s.log.Error("开始游戏失败", zap.Error(err), zap.Uint("room_id", roomID))
		return 0, apperrors.Wrap(err, apperrors.ErrTransaction)
	}

	s.log.Info("游戏已开始",
		zap.Uint("room_id", roomID),
		zap.Uint("session_id", sessionID),
	)
	return sessionID, nil
}

// CastVote 投票
// 夜晚只有黑手党（击杀）和医生（救治）可以行动；白天讨论阶段不允许投票；
// 投票阶段所有存活玩家表决。投票人和目标都必须存活。
func (s *gameService) CastVote(ctx context.Context, sessionID, voterID, targetID uint) error {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.ErrSessionNotFound)
		}
		return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if session.IsFinished() {
		return apperrors.New(apperrors.ErrGameFinished)
	}

	var voter, target *models.SessionPlayer
	for i := range session.Players {
		p := &session.Players[i]
		if p.UserID == voterID {
			voter = p
		}
		if p.UserID == targetID {
			target = p
		}
	}
	if voter == nil {
		return apperrors.New(apperrors.ErrNotInSession)
	}
	if !voter.IsAlive {
		return apperrors.New(apperrors.ErrPlayerDead)
	}
	if target == nil || !target.IsAlive {
		return apperrors.New(apperrors.ErrInvalidTarget)
	}

	switch session.Phase {
	case models.PhaseNight:
		role := game.Role(voter.Role)
		if !role.IsMafia() && role != game.RoleDoctor {
			return apperrors.New(apperrors.ErrWrongPhase, "夜晚只有行动角色可以选择目标")
		}
	case models.PhaseVote:
		// 所有存活玩家表决
	default:
		return apperrors.New(apperrors.ErrWrongPhase, "白天讨论阶段不能投票")
	}

	err = s.voteRepo.Replace(ctx, &models.Vote{
		SessionID: sessionID,
		VoterID:   voterID,
		TargetID:  targetID,
		Phase:     session.Phase,
		DayNumber: session.DayNumber,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}
	return nil
}

// GetTally 当前阶段的计票结果
func (s *gameService) GetTally(ctx context.Context, sessionID uint) (map[uint]int, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrSessionNotFound)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	tally, err := s.voteRepo.Tally(ctx, sessionID, session.Phase, session.DayNumber)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return tally, nil
}

// AdvancePhase 推进阶段
// 离开夜晚时结算击杀（医生救治可抵消），离开投票阶段时结算处决，
// 平票不淘汰。结算、阶段切换和胜负判定在同一事务内完成。
// 对已结束的会话推进会被拒绝。
func (s *gameService) AdvancePhase(ctx context.Context, sessionID uint) (*PhaseResult, error) {
	var result *PhaseResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessionRepo := repository.NewGameSessionRepository(tx)
		spRepo := repository.NewSessionPlayerRepository(tx)
		voteRepo := repository.NewVoteRepository(tx)

		session, err := sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.ErrSessionNotFound)
			}
			return err
		}
		if session.IsFinished() {
			return apperrors.New(apperrors.ErrGameFinished)
		}

		result = &PhaseResult{}

		// 结算被离开的阶段
		switch session.Phase {
		case models.PhaseNight:
			eliminated, saved, err := s.resolveNight(ctx, voteRepo, session)
			if err != nil {
				return err
			}
			result.SavedByMedic = saved
			if eliminated != 0 {
				if err := spRepo.MarkDead(ctx, session.ID, eliminated); err != nil {
					return err
				}
				result.EliminatedID = &eliminated
			}
		case models.PhaseVote:
			tally, err := voteRepo.Tally(ctx, session.ID, session.Phase, session.DayNumber)
			if err != nil {
				return err
			}
			if leader, ok := game.TallyLeader(tally); ok {
				if err := spRepo.MarkDead(ctx, session.ID, leader); err != nil {
					return err
				}
				result.EliminatedID = &leader
			}
		}

		next, wrap := game.Phase(session.Phase).Next()
		day := session.DayNumber
		if wrap {
			day++
		}
		if err := sessionRepo.UpdatePhase(ctx, session.ID, next.String(), day); err != nil {
			return err
		}
		result.Phase = next.String()
		result.DayNumber = day

		// 结算后重新读取存活名单判定胜负
		players, err := spRepo.ListBySession(ctx, session.ID)
		if err != nil {
			return err
		}
		if win := game.EvaluateWin(players); win != game.WinOngoing {
			if err := s.finishSession(ctx, tx, session, players, string(win)); err != nil {
				return err
			}
			result.GameEnded = true
			result.Winner = string(win)
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		s.log.Error("推进阶段失败", zap.Error(err), zap.Uint("session_id", sessionID))
		return nil, apperrors.Wrap(err, apperrors.ErrTransaction)
	}

	s.log.Info("阶段已推进",
		zap.Uint("session_id", sessionID),
		zap.String("phase", result.Phase),
		zap.Int("day", result.DayNumber),
		zap.Bool("ended", result.GameEnded),
	)
	return result, nil
}

// resolveNight 结算夜晚行动
// 击杀目标取黑手党票数最高者（并列则无人被杀）；
// 医生的选择与击杀目标一致时救治成功。
func (s *gameService) resolveNight(ctx context.Context, voteRepo repository.VoteRepository, session *models.GameSession) (uint, bool, error) {
	votes, err := voteRepo.ListByPhase(ctx, session.ID, models.PhaseNight, session.DayNumber)
	if err != nil {
		return 0, false, err
	}

	roles := make(map[uint]game.Role, len(session.Players))
	for _, p := range session.Players {
		roles[p.UserID] = game.Role(p.Role)
	}

	killTally := make(map[uint]int)
	var protected uint
	for _, v := range votes {
		switch {
		case roles[v.VoterID].IsMafia():
			killTally[v.TargetID]++
		case roles[v.VoterID] == game.RoleDoctor:
			protected = v.TargetID
		}
	}

	target, ok := game.TallyLeader(killTally)
	if !ok {
		return 0, false, nil
	}
	if protected == target {
		return 0, true, nil
	}
	return target, false, nil
}

// finishSession 结束会话：翻转状态、释放房间、累加战绩
// 条件更新保证翻转只发生一次，重复调用不会重复累加战绩。
func (s *gameService) finishSession(ctx context.Context, tx *gorm.DB, session *models.GameSession, players []models.SessionPlayer, winner string) error {
	sessionRepo := repository.NewGameSessionRepository(tx)
	roomRepo := repository.NewRoomRepository(tx)
	userRepo := repository.NewUserRepository(tx)

	flipped, err := sessionRepo.Finish(ctx, session.ID, winner)
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}

	if err := roomRepo.EndSession(ctx, session.RoomID); err != nil {
		return err
	}

	mafiaWon := winner == models.WinnerMafia
	for _, p := range players {
		won := game.Role(p.Role).IsMafia() == mafiaWon
		if err := userRepo.IncrementStats(ctx, p.UserID, won); err != nil {
			return err
		}
	}

	s.log.Info("对局结束",
		zap.Uint("session_id", session.ID),
		zap.String("winner", winner),
	)
	return nil
}

// GetGameState 获取对局状态
// 每次查询都根据存活角色重新判定胜负；检测到胜利时当场翻转finished
// （条件更新保证幂等）。角色只对本人展示，其余一律显示unknown。
func (s *gameService) GetGameState(ctx context.Context, sessionID, requestingUserID uint) (*GameStateResponse, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrSessionNotFound)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	// 惰性胜负判定：会话仍为active但已满足胜利条件时补翻转
	if !session.IsFinished() {
		if win := game.EvaluateWin(session.Players); win != game.WinOngoing {
			err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				return s.finishSession(ctx, tx, session, session.Players, string(win))
			})
			if err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrTransaction)
			}
			session.Status = models.SessionStatusFinished
			session.Winner = string(win)
		}
	}

	voted := make(map[uint]bool)
	votes, err := s.voteRepo.ListByPhase(ctx, sessionID, session.Phase, session.DayNumber)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	for _, v := range votes {
		voted[v.VoterID] = true
	}

	chat, err := s.chatRepo.ListRecent(ctx, session.RoomID, s.cfg.ChatHistoryLimit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	resp := &GameStateResponse{
		SessionID: session.ID,
		RoomID:    session.RoomID,
		Phase:     session.Phase,
		DayNumber: session.DayNumber,
		MyRole:    game.RoleUnknown,
		GameEnded: session.IsFinished(),
		Winner:    session.Winner,
		Players:   make([]GamePlayerInfo, 0, len(session.Players)),
		Chat:      make([]ChatMessage, 0, len(chat)),
	}
	for _, m := range chat {
		resp.Chat = append(resp.Chat, ChatMessage{
			UserID:    m.UserID,
			UserName:  m.UserName,
			Message:   m.Message,
			CreatedAt: m.CreatedAt,
		})
	}

	for _, p := range session.Players {
		role := game.RoleUnknown
		if p.UserID == requestingUserID {
			role = p.Role
			resp.MyRole = p.Role
		}
		resp.Players = append(resp.Players, GamePlayerInfo{
			UserID:   p.UserID,
			UserName: p.UserName,
			Role:     role,
			IsAlive:  p.IsAlive,
			Voted:    voted[p.UserID],
		})
	}
	return resp, nil
}
