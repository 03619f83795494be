package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

// SessionStore 登录会话、Token黑名单和账号停用标记
//
// Key:
//
//	session:{user_id}    登录信息(hash),TTL与Refresh Token一致
//	blacklist:{token}    已登出的Access Token,TTL与Access Token一致
//	suspended:{user_id}  账号停用标记,无TTL,恢复时删除
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore 创建会话存储
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(userID uint) string   { return fmt.Sprintf("session:%d", userID) }
func suspendedKey(userID uint) string { return fmt.Sprintf("suspended:%d", userID) }
func blacklistKey(token string) string {
	return "blacklist:" + token
}

// SaveSession 保存登录信息
func (s *SessionStore) SaveSession(ctx context.Context, userID uint, data map[string]any, ttl time.Duration) error {
	key := sessionKey(userID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, data)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "保存会话失败")
	}
	return nil
}

// GetSession 会话不存在时返回ErrUnauthorized
func (s *SessionStore) GetSession(ctx context.Context, userID uint) (map[string]string, error) {
	result, err := s.client.HGetAll(ctx, sessionKey(userID)).Result()
	if err != nil {
		return nil, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "获取会话失败")
	}
	if len(result) == 0 {
		return nil, apperrors.ErrUnauthorized
	}
	return result, nil
}

// DeleteSession 登出或停用时删除会话
func (s *SessionStore) DeleteSession(ctx context.Context, userID uint) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "删除会话失败")
	}
	return nil
}

// AddToBlacklist 让Access Token提前失效
func (s *SessionStore) AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, blacklistKey(token), "revoked", ttl).Err(); err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "添加Token到黑名单失败")
	}
	return nil
}

// IsInBlacklist Token是否已登出
func (s *SessionStore) IsInBlacklist(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "检查黑名单失败")
	}
	return n > 0, nil
}

// MarkSuspended 停用账号:写入标记并踢掉当前会话
// 鉴权中间件据此拒绝已签发但未过期的Token
func (s *SessionStore) MarkSuspended(ctx context.Context, userID uint) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, suspendedKey(userID), time.Now().Unix(), 0)
		pipe.Del(ctx, sessionKey(userID))
		return nil
	})
	if err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "写入停用标记失败")
	}
	return nil
}

// ClearSuspended 恢复账号
func (s *SessionStore) ClearSuspended(ctx context.Context, userID uint) error {
	if err := s.client.Del(ctx, suspendedKey(userID)).Err(); err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "清除停用标记失败")
	}
	return nil
}

// IsSuspended 账号是否被停用
func (s *SessionStore) IsSuspended(ctx context.Context, userID uint) (bool, error) {
	n, err := s.client.Exists(ctx, suspendedKey(userID)).Result()
	if err != nil {
		return false, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "检查停用标记失败")
	}
	return n > 0, nil
}
