package service

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/wfunc/mafia-game/internal/errors"
	"github.com/wfunc/mafia-game/internal/models"
	"github.com/wfunc/mafia-game/internal/repository"
	"github.com/wfunc/mafia-game/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// authService 认证服务实现
type authService struct {
	db         *gorm.DB
	userRepo   repository.UserRepository
	jwtManager *utils.JWTManager
	log        *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	jwtManager *utils.JWTManager,
	log *zap.Logger,
) AuthService {
	return &authService{
		db:         db,
		userRepo:   userRepo,
		jwtManager: jwtManager,
		log:        log,
	}
}

// Register 注册新用户
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "用户名不能为空")
	}

	if existing, _ := s.userRepo.FindByUsername(ctx, username); existing != nil {
		return nil, apperrors.New(apperrors.ErrAlreadyExists, "用户名已存在")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown)
	}

	user := &models.User{
		Username: username,
		Password: hash,
		Nickname: req.Nickname,
		Status:   "active",
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.log.Error("创建用户失败", zap.Error(err), zap.String("username", username))
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	return s.issueToken(user)
}

// Login 用户登录
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrAuthentication, "用户名或密码错误")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	ok, err := utils.VerifyPassword(req.Password, user.Password)
	if err != nil || !ok {
		return nil, apperrors.New(apperrors.ErrAuthentication, "用户名或密码错误")
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("更新登录时间失败", zap.Error(err), zap.Uint("user_id", user.ID))
	}

	return s.issueToken(user)
}

// issueToken 为用户签发访问令牌
func (s *authService) issueToken(user *models.User) (*AuthResponse, error) {
	role := "user"
	if user.IsAdmin {
		role = "admin"
	}
	token, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, role)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown)
	}

	return &AuthResponse{
		User:        user,
		AccessToken: token,
		ExpiresIn:   int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
		TokenType:   "Bearer",
	}, nil
}

// ResolveIdentity 校验令牌并返回用户ID
func (s *authService) ResolveIdentity(ctx context.Context, token string) (uint, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		if errors.Is(err, utils.ErrExpiredToken) {
			return 0, apperrors.New(apperrors.ErrTokenExpired)
		}
		return 0, apperrors.New(apperrors.ErrTokenInvalid)
	}
	return claims.UserID, nil
}

// IsPrivileged 用户是否具有管理员权限
func (s *authService) IsPrivileged(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperrors.New(apperrors.ErrNotFound, "用户不存在")
		}
		return false, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return user.IsAdmin, nil
}

// GetUser 获取用户信息
func (s *authService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "用户不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return user, nil
}
