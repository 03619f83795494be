package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/bookstore-orders/internal/domain/cart"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

// CartStore 购物车存储,cart:{user_id} → JSON
// 每次写入刷新TTL,长期不动的购物车自动过期
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ cart.Repository = (*CartStore)(nil)

// NewCartStore 创建购物车存储
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

func cartKey(userID uint) string { return fmt.Sprintf("cart:%d", userID) }

// cartUpdateRetries WATCH冲突后的重试次数
const cartUpdateRetries = 16

// Get 不存在时返回空购物车
func (s *CartStore) Get(ctx context.Context, userID uint) (*cart.Cart, error) {
	raw, err := s.client.Get(ctx, cartKey(userID)).Bytes()
	return decodeCart(userID, raw, err)
}

func decodeCart(userID uint, raw []byte, err error) (*cart.Cart, error) {
	if errors.Is(err, redis.Nil) {
		return &cart.Cart{UserID: userID, Items: []cart.Item{}}, nil
	}
	if err != nil {
		return nil, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "读取购物车失败")
	}

	var c cart.Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, apperrors.Wrap(err, "解析购物车失败")
	}
	c.UserID = userID
	if c.Items == nil {
		c.Items = []cart.Item{}
	}
	return &c, nil
}

// Update WATCH购物车key后读取并修改,在MULTI/EXEC中写回
// 期间key被其他请求修改时EXEC失败,重新读取后重试
func (s *CartStore) Update(ctx context.Context, userID uint, fn func(*cart.Cart) error) (*cart.Cart, error) {
	key := cartKey(userID)
	var result *cart.Cart

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		c, err := decodeCart(userID, raw, err)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}

		var payload []byte
		if !c.IsEmpty() {
			if payload, err = json.Marshal(c); err != nil {
				return apperrors.Wrap(err, "序列化购物车失败")
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if payload == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, payload, s.ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}
		result = c
		return nil
	}

	for range cartUpdateRetries {
		err := s.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case apperrors.IsAppError(err):
			return nil, err
		default:
			return nil, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "保存购物车失败")
		}
	}
	return nil, apperrors.New(apperrors.ErrCodeRedisError, "购物车更新冲突,请重试")
}

// Save 空购物车直接删除key
func (s *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	if c.IsEmpty() {
		return s.Clear(ctx, c.UserID)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return apperrors.Wrap(err, "序列化购物车失败")
	}
	if err := s.client.Set(ctx, cartKey(c.UserID), raw, s.ttl).Err(); err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "保存购物车失败")
	}
	return nil
}

func (s *CartStore) Clear(ctx context.Context, userID uint) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "清空购物车失败")
	}
	return nil
}
