package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/bookstore-orders/internal/domain/audit"
	"github.com/xiebiao/bookstore-orders/internal/domain/user"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
	"github.com/xiebiao/bookstore-orders/pkg/jwt"
	"github.com/xiebiao/bookstore-orders/pkg/response"
)

// Context中保存的当前用户信息
const (
	ctxUserID      = "user_id"
	ctxEmail       = "email"
	ctxNickname    = "nickname"
	ctxRole        = "role"
	ctxAccessToken = "access_token"
)

// TokenGuard Token黑名单和账号停用标记(Redis)
type TokenGuard interface {
	IsInBlacklist(ctx context.Context, token string) (bool, error)
	IsSuspended(ctx context.Context, userID uint) (bool, error)
}

// AuthMiddleware JWT认证中间件
//  1. 从Header提取Token
//  2. 检查黑名单,验证Token
//  3. 检查账号停用标记,停用后已签发的Token立即失效
//  4. 将用户信息注入Context
type AuthMiddleware struct {
	jwtManager *jwt.Manager
	guard      TokenGuard
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *jwt.Manager, guard TokenGuard) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		guard:      guard,
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequireAuth 要求登录
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.ErrorWithCode(c, apperrors.ErrCodeUnauthorized, "请先登录")
			c.Abort()
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			response.ErrorWithCode(c, apperrors.ErrCodeInvalidToken, "Token格式错误")
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		isBlacklisted, err := m.guard.IsInBlacklist(ctx, tokenString)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if isBlacklisted {
			response.ErrorWithCode(c, apperrors.ErrCodeTokenExpired, "Token已失效,请重新登录")
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ParseToken(tokenString)
		if err != nil {
			response.Error(c, err) // ErrTokenExpired、ErrInvalidToken
			c.Abort()
			return
		}

		suspended, err := m.guard.IsSuspended(ctx, claims.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if suspended {
			response.Error(c, user.ErrAccountSuspended)
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxNickname, claims.Nickname)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxAccessToken, tokenString)
		c.Next()
	}
}

// RequireAdmin 要求管理员角色,需放在RequireAuth之后
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user.ParseRole(c.GetString(ctxRole)) != user.RoleAdmin {
			response.ErrorWithCode(c, apperrors.ErrCodeForbidden, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID 从Context获取当前登录用户ID,未登录返回0
func GetUserID(c *gin.Context) uint {
	if userID, exists := c.Get(ctxUserID); exists {
		if uid, ok := userID.(uint); ok {
			return uid
		}
	}
	return 0
}

// GetEmail 从Context获取当前登录用户邮箱
func GetEmail(c *gin.Context) string {
	return c.GetString(ctxEmail)
}

// GetAccessToken 当前请求携带的Access Token
func GetAccessToken(c *gin.Context) string {
	return c.GetString(ctxAccessToken)
}

// IsAdmin 当前用户是否管理员
func IsAdmin(c *gin.Context) bool {
	return user.ParseRole(c.GetString(ctxRole)) == user.RoleAdmin
}

// GetActor 审计日志中的操作人
func GetActor(c *gin.Context) audit.Actor {
	return audit.Actor{ID: GetUserID(c), Email: GetEmail(c)}
}

// MustGetUserID 用于已经通过RequireAuth的Handler
func MustGetUserID(c *gin.Context) uint {
	userID := GetUserID(c)
	if userID == 0 {
		panic("user_id not found in context")
	}
	return userID
}
