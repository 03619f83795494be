package user

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-orders/internal/domain/user"
	"github.com/xiebiao/bookstore-orders/pkg/jwt"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
)

// SessionStore 登录会话存储(Redis)
type SessionStore interface {
	SaveSession(ctx context.Context, userID uint, data map[string]any, ttl time.Duration) error
	DeleteSession(ctx context.Context, userID uint) error
	AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error
}

// LoginUseCase 用户登录用例
//  1. 验证邮箱密码,停用账号拒绝登录
//  2. 生成JWT Token对(携带角色)
//  3. 保存会话到Redis
type LoginUseCase struct {
	userService user.Service
	jwtManager  *jwt.Manager
	sessions    SessionStore
	sessionTTL  time.Duration
}

// NewLoginUseCase 创建登录用例,sessionTTL与Refresh Token有效期一致
func NewLoginUseCase(
	userService user.Service,
	jwtManager *jwt.Manager,
	sessions SessionStore,
	sessionTTL time.Duration,
) *LoginUseCase {
	return &LoginUseCase{
		userService: userService,
		jwtManager:  jwtManager,
		sessions:    sessions,
		sessionTTL:  sessionTTL,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string
	Password string
	ClientIP string
}

// LoginResponse 登录响应
type LoginResponse struct {
	User         UserInfo `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"` // Access Token过期时间(秒)
}

// Execute 执行登录
func (uc *LoginUseCase) Execute(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := uc.userService.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	tokenPair, err := uc.jwtManager.GenerateToken(jwt.Identity{
		UserID:   u.ID,
		Email:    u.Email,
		Nickname: u.Nickname,
		Role:     string(u.Role),
	})
	if err != nil {
		return nil, err
	}

	session := map[string]any{
		"user_id":  u.ID,
		"email":    u.Email,
		"role":     string(u.Role),
		"login_at": time.Now().Unix(),
		"ip":       req.ClientIP,
	}
	if err := uc.sessions.SaveSession(ctx, u.ID, session, uc.sessionTTL); err != nil {
		// 会话只用于强制下线,保存失败不影响登录
		logger.Warn(ctx, "save session failed", zap.Uint("user_id", u.ID), zap.Error(err))
	}

	return &LoginResponse{
		User:         NewUserInfo(u),
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	}, nil
}

// LogoutUseCase 用户登出用例
type LogoutUseCase struct {
	sessions   SessionStore
	jwtManager *jwt.Manager
}

// NewLogoutUseCase 创建登出用例
func NewLogoutUseCase(sessions SessionStore, jwtManager *jwt.Manager) *LogoutUseCase {
	return &LogoutUseCase{sessions: sessions, jwtManager: jwtManager}
}

// Execute 删除会话并拉黑Access Token
func (uc *LogoutUseCase) Execute(ctx context.Context, userID uint, accessToken string) error {
	if err := uc.sessions.DeleteSession(ctx, userID); err != nil {
		return err
	}
	return uc.sessions.AddToBlacklist(ctx, accessToken, uc.jwtManager.AccessTokenTTL())
}

// RefreshTokenUseCase 使用Refresh Token换取新的Access Token
type RefreshTokenUseCase struct {
	users      user.Repository
	jwtManager *jwt.Manager
}

// NewRefreshTokenUseCase 创建刷新Token用例
func NewRefreshTokenUseCase(users user.Repository, jwtManager *jwt.Manager) *RefreshTokenUseCase {
	return &RefreshTokenUseCase{users: users, jwtManager: jwtManager}
}

// Execute 停用账号不能刷新
func (uc *RefreshTokenUseCase) Execute(ctx context.Context, refreshToken string) (string, error) {
	claims, err := uc.jwtManager.ParseToken(refreshToken)
	if err != nil {
		return "", err
	}
	u, err := uc.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	if u.Suspended {
		return "", user.ErrAccountSuspended
	}
	return uc.jwtManager.RefreshAccessToken(refreshToken)
}
