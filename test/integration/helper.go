package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// 集成测试针对运行中的服务(make docker-up && go run ./cmd/api && go run ./cmd/worker)
//
//	BOOKSTORE_BASE_URL       默认 http://localhost:8080/api/v1
//	BOOKSTORE_ADMIN_EMAIL    管理员账号,图书上架和后台接口需要
//	BOOKSTORE_ADMIN_PASSWORD
//
// 服务不可达时整个包跳过。

// Timeout HTTP请求超时时间
const Timeout = 10 * time.Second

// BaseURL API基础URL
var BaseURL = envOr("BOOKSTORE_BASE_URL", "http://localhost:8080/api/v1")

var (
	client = &http.Client{Timeout: Timeout}
	seq    atomic.Int64
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestMain(m *testing.M) {
	resp, err := client.Get(BaseURL + "/books?page_size=1")
	if err != nil {
		fmt.Printf("跳过集成测试: 服务不可达 (%v)\n", err)
		os.Exit(0)
	}
	resp.Body.Close()
	os.Exit(m.Run())
}

// Response 统一响应结构
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Decode 解析data字段
func (r *Response) Decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v), "解析响应数据失败: %s", string(r.Data))
}

// UserData 用户信息
type UserData struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

// LoginData 登录响应数据
type LoginData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// BookData 图书
type BookData struct {
	ID    uint  `json:"id"`
	Price int64 `json:"price"`
	Stock int   `json:"stock"`
}

// CheckoutData 下单响应
type CheckoutData struct {
	OrderID     uint   `json:"order_id"`
	OrderNo     string `json:"order_no"`
	Total       int64  `json:"total"`
	Status      string `json:"status"`
	DelivStatus string `json:"delivstatus"`
	CheckoutURL string `json:"checkout_url"`
}

// OrderData 订单详情
type OrderData struct {
	ID            uint   `json:"id"`
	Status        string `json:"status"`
	DelivStatus   string `json:"delivstatus"`
	StockDeducted bool   `json:"stock_deducted"`
	CanCancel     bool   `json:"can_cancel"`
}

func doJSON(t *testing.T, method, url string, data any, token string) *Response {
	t.Helper()
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		require.NoError(t, err, "JSON序列化失败")
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err, "创建HTTP请求失败")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	require.NoError(t, err, "发送HTTP请求失败")
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "读取响应体失败")

	var result Response
	require.NoError(t, json.Unmarshal(raw, &result), "解析JSON响应失败: %s", string(raw))
	return &result
}

// PostJSON 发送POST请求并解析JSON响应
func PostJSON(t *testing.T, url string, data any, token string) *Response {
	return doJSON(t, http.MethodPost, url, data, token)
}

// GetJSON 发送GET请求并解析JSON响应
func GetJSON(t *testing.T, url string, token string) *Response {
	return doJSON(t, http.MethodGet, url, nil, token)
}

// DeleteJSON 发送DELETE请求
func DeleteJSON(t *testing.T, url string, token string) *Response {
	return doJSON(t, http.MethodDelete, url, nil, token)
}

// GenerateTestEmail 生成唯一的测试邮箱
func GenerateTestEmail(prefix string) string {
	return fmt.Sprintf("%s_%d_%d@test.com", prefix, time.Now().UnixNano(), seq.Add(1))
}

// Login 登录并返回Access Token
func Login(t *testing.T, email, password string) LoginData {
	t.Helper()
	resp := PostJSON(t, BaseURL+"/users/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, 0, resp.Code, "登录失败: %s", resp.Message)

	var data LoginData
	resp.Decode(t, &data)
	return data
}

// RegisterTestUser 注册并登录,返回邮箱和Access Token
func RegisterTestUser(t *testing.T, nickname string) (email string, token string) {
	t.Helper()
	email = GenerateTestEmail(nickname)
	resp := PostJSON(t, BaseURL+"/users/register", map[string]string{
		"email":    email,
		"password": "Test1234",
		"nickname": nickname,
	}, "")
	require.Equal(t, 0, resp.Code, "注册失败: %s", resp.Message)

	return email, Login(t, email, "Test1234").AccessToken
}

// AdminToken 管理员Token,未配置时跳过当前测试
func AdminToken(t *testing.T) string {
	t.Helper()
	email, password := os.Getenv("BOOKSTORE_ADMIN_EMAIL"), os.Getenv("BOOKSTORE_ADMIN_PASSWORD")
	if email == "" || password == "" {
		t.Skip("未配置BOOKSTORE_ADMIN_EMAIL/BOOKSTORE_ADMIN_PASSWORD")
	}
	return Login(t, email, password).AccessToken
}

// PublishTestBook 以管理员身份上架图书
func PublishTestBook(t *testing.T, adminToken, title string, stock int) uint {
	t.Helper()
	resp := PostJSON(t, BaseURL+"/admin/books", map[string]any{
		"title":       title,
		"author":      "测试作者",
		"category":    "测试",
		"price":       8900,
		"stock":       stock,
		"description": "集成测试用图书",
	}, adminToken)
	require.Equal(t, 0, resp.Code, "图书上架失败: %s", resp.Message)

	var book BookData
	resp.Decode(t, &book)
	return book.ID
}

// BookStock 当前库存
func BookStock(t *testing.T, bookID uint) int {
	t.Helper()
	resp := GetJSON(t, fmt.Sprintf("%s/books/%d", BaseURL, bookID), "")
	require.Equal(t, 0, resp.Code, resp.Message)
	var book BookData
	resp.Decode(t, &book)
	return book.Stock
}

// CODCheckout 货到付款下单
func CODCheckout(t *testing.T, token string, bookID uint, qty int) *Response {
	t.Helper()
	return PostJSON(t, BaseURL+"/orders", checkoutRequest(bookID, qty, "cod"), token)
}

func checkoutRequest(bookID uint, qty int, method string) map[string]any {
	return map[string]any{
		"items": []map[string]any{{"book_id": bookID, "qty": qty}},
		"shipping": map[string]string{
			"name":   "测试收货人",
			"email":  "receiver@test.com",
			"phone":  "13800000000",
			"street": "测试路1号",
			"city":   "上海",
		},
		"delivery_method": "standard",
		"payment_method":  method,
	}
}
