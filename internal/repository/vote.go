package repository

import (
	"context"

	"github.com/wfunc/mafia-game/internal/models"
	"gorm.io/gorm"
)

// VoteRepository 投票仓储接口
// 同一(对局,投票人,阶段,天数)只保留最后一票，重复投票为替换语义
type VoteRepository interface {
	BaseRepository
	// Replace 写入投票，同键旧票先删除再插入
	Replace(ctx context.Context, vote *models.Vote) error
	// Find 查询玩家在当前阶段的投票
	Find(ctx context.Context, sessionID, voterID uint, phase string, dayNumber int) (*models.Vote, error)
	// ListByPhase 列出指定阶段的全部投票
	ListByPhase(ctx context.Context, sessionID uint, phase string, dayNumber int) ([]models.Vote, error)
	// Tally 按目标统计指定阶段的得票数
	Tally(ctx context.Context, sessionID uint, phase string, dayNumber int) (map[uint]int, error)
	DeleteBySession(ctx context.Context, sessionID uint) error
}

// voteRepo 投票仓储实现
type voteRepo struct {
	*BaseRepo
}

// NewVoteRepository 创建投票仓储
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Replace 写入投票，同键旧票先删除再插入
func (r *voteRepo) Replace(ctx context.Context, vote *models.Vote) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(
			"session_id = ? AND voter_id = ? AND phase = ? AND day_number = ?",
			vote.SessionID, vote.VoterID, vote.Phase, vote.DayNumber,
		).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Create(vote).Error
	})
}

// Find 查询玩家在当前阶段的投票
func (r *voteRepo) Find(ctx context.Context, sessionID, voterID uint, phase string, dayNumber int) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND voter_id = ? AND phase = ? AND day_number = ?",
			sessionID, voterID, phase, dayNumber).
		First(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// ListByPhase 列出指定阶段的全部投票
func (r *voteRepo) ListByPhase(ctx context.Context, sessionID uint, phase string, dayNumber int) ([]models.Vote, error) {
	var votes []models.Vote
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND phase = ? AND day_number = ?", sessionID, phase, dayNumber).
		Order("id").
		Find(&votes).Error
	return votes, err
}

// Tally 按目标统计指定阶段的得票数
func (r *voteRepo) Tally(ctx context.Context, sessionID uint, phase string, dayNumber int) (map[uint]int, error) {
	type row struct {
		TargetID uint
		Count    int
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("target_id, COUNT(*) as count").
		Where("session_id = ? AND phase = ? AND day_number = ?", sessionID, phase, dayNumber).
		Group("target_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	tally := make(map[uint]int, len(rows))
	for _, r := range rows {
		tally[r.TargetID] = r.Count
	}
	return tally, nil
}

// DeleteBySession 删除对局的全部投票
func (r *voteRepo) DeleteBySession(ctx context.Context, sessionID uint) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.Vote{}).Error
}

// WithTx 使用事务
func (r *voteRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &voteRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
