package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-orders/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-orders/internal/infrastructure/persistence/redis"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
	"github.com/xiebiao/bookstore-orders/pkg/jwt"
	"github.com/xiebiao/bookstore-orders/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type authFixture struct {
	jwt      *jwt.Manager
	sessions *redis.SessionStore
	engine   *gin.Engine
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &authFixture{
		jwt:      jwt.NewManager("test-secret", time.Hour, 24*time.Hour),
		sessions: redis.NewSessionStore(client),
	}
	auth := NewAuthMiddleware(f.jwt, f.sessions)

	r := gin.New()
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		response.Success(c, gin.H{
			"user_id": GetUserID(c),
			"email":   GetEmail(c),
			"admin":   IsAdmin(c),
		})
	})
	r.GET("/admin", auth.RequireAuth(), auth.RequireAdmin(), func(c *gin.Context) {
		response.Success(c, gin.H{"actor": GetActor(c).Email})
	})
	f.engine = r
	return f
}

func (f *authFixture) token(t *testing.T, id uint, role string) string {
	t.Helper()
	pair, err := f.jwt.GenerateToken(jwt.Identity{UserID: id, Email: "u@example.com", Nickname: "u", Role: role})
	require.NoError(t, err)
	return pair.AccessToken
}

func (f *authFixture) get(t *testing.T, path, authorization string) response.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRequireAuth(t *testing.T) {
	f := newAuthFixture(t)

	t.Run("缺少Token", func(t *testing.T) {
		resp := f.get(t, "/me", "")
		assert.Equal(t, apperrors.ErrCodeUnauthorized, resp.Code)
	})

	t.Run("格式错误", func(t *testing.T) {
		resp := f.get(t, "/me", "Token abc")
		assert.Equal(t, apperrors.ErrCodeInvalidToken, resp.Code)
	})

	t.Run("无效签名", func(t *testing.T) {
		other := jwt.NewManager("other-secret", time.Hour, time.Hour)
		pair, err := other.GenerateToken(jwt.Identity{UserID: 1, Role: "customer"})
		require.NoError(t, err)
		resp := f.get(t, "/me", "Bearer "+pair.AccessToken)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, resp.Code)
	})

	t.Run("正常访问", func(t *testing.T) {
		resp := f.get(t, "/me", "Bearer "+f.token(t, 7, "customer"))
		require.Equal(t, 0, resp.Code)
		data := resp.Data.(map[string]any)
		assert.EqualValues(t, 7, data["user_id"])
		assert.Equal(t, "u@example.com", data["email"])
		assert.Equal(t, false, data["admin"])
	})

	t.Run("黑名单Token", func(t *testing.T) {
		token := f.token(t, 8, "customer")
		require.NoError(t, f.sessions.AddToBlacklist(context.Background(), token, time.Hour))
		resp := f.get(t, "/me", "Bearer "+token)
		assert.Equal(t, apperrors.ErrCodeTokenExpired, resp.Code)
	})

	t.Run("停用账号的Token立即失效", func(t *testing.T) {
		token := f.token(t, 9, "customer")
		require.Equal(t, 0, f.get(t, "/me", "Bearer "+token).Code)

		require.NoError(t, f.sessions.MarkSuspended(context.Background(), 9))
		assert.Equal(t, apperrors.ErrCodeAccountSuspended, f.get(t, "/me", "Bearer "+token).Code)

		require.NoError(t, f.sessions.ClearSuspended(context.Background(), 9))
		assert.Equal(t, 0, f.get(t, "/me", "Bearer "+token).Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	f := newAuthFixture(t)

	resp := f.get(t, "/admin", "Bearer "+f.token(t, 1, "customer"))
	assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)

	resp = f.get(t, "/admin", "Bearer "+f.token(t, 2, "admin"))
	require.Equal(t, 0, resp.Code)
	assert.Equal(t, "u@example.com", resp.Data.(map[string]any)["actor"])
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		if uid := c.GetHeader("X-User"); uid != "" {
			c.Set(ctxUserID, uint(len(uid)))
		}
		c.Next()
	}, rl.Handler(), func(c *gin.Context) {
		response.Success(c, nil)
	})

	call := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if user != "" {
			req.Header.Set("X-User", user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Code
	}

	assert.Equal(t, 0, call("a"))
	assert.Equal(t, 0, call("a"))
	assert.Equal(t, apperrors.ErrCodeTooManyRequests, call("a"))
	// 不同用户各自计数
	assert.Equal(t, 0, call("bb"))
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(config.RateLimitConfig{Enabled: false}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = c.GetString("request_id")
		c.Status(http.StatusNoContent)
	})

	t.Run("沿用上游请求ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-123", seen)
	})

	t.Run("生成请求ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, seen)
	})
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.CORSConfig{AllowOrigins: []string{"https://shop.example.com"}, MaxAge: time.Hour}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
