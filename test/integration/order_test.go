package integration

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCODOrderLifecycle 货到付款:下单即扣库存,取消归还库存,发货后不可取消
func TestCODOrderLifecycle(t *testing.T) {
	admin := AdminToken(t)
	_, token := RegisterTestUser(t, "cod_buyer")
	bookID := PublishTestBook(t, admin, "《货到付款测试》", 5)

	t.Run("下单扣减库存", func(t *testing.T) {
		resp := CODCheckout(t, token, bookID, 2)
		require.Equal(t, 0, resp.Code, resp.Message)

		var data CheckoutData
		resp.Decode(t, &data)
		assert.Equal(t, int64(2*8900), data.Total-shippingFee(t, data.OrderID, token))
		assert.Equal(t, "pending", data.DelivStatus)
		assert.Equal(t, 3, BookStock(t, bookID))

		resp = DeleteJSON(t, fmt.Sprintf("%s/orders/%d", BaseURL, data.OrderID), token)
		require.Equal(t, 0, resp.Code, resp.Message)
		assert.Equal(t, 5, BookStock(t, bookID), "取消后库存归还")
	})

	t.Run("处理中的订单不可取消", func(t *testing.T) {
		resp := CODCheckout(t, token, bookID, 1)
		require.Equal(t, 0, resp.Code, resp.Message)
		var data CheckoutData
		resp.Decode(t, &data)

		resp = PostJSON(t, fmt.Sprintf("%s/admin/orders/%d/delivery", BaseURL, data.OrderID), nil, admin)
		require.Equal(t, 0, resp.Code, resp.Message)

		resp = DeleteJSON(t, fmt.Sprintf("%s/orders/%d", BaseURL, data.OrderID), token)
		assert.NotEqual(t, 0, resp.Code)
	})

	t.Run("未支付订单不能申请退款", func(t *testing.T) {
		resp := CODCheckout(t, token, bookID, 1)
		require.Equal(t, 0, resp.Code, resp.Message)
		var data CheckoutData
		resp.Decode(t, &data)

		resp = PostJSON(t, fmt.Sprintf("%s/orders/%d/refund", BaseURL, data.OrderID),
			map[string]any{"reason": "不想要了"}, token)
		assert.NotEqual(t, 0, resp.Code)
	})
}

func shippingFee(t *testing.T, orderID uint, token string) int64 {
	t.Helper()
	resp := GetJSON(t, fmt.Sprintf("%s/orders/%d", BaseURL, orderID), token)
	require.Equal(t, 0, resp.Code, resp.Message)
	var o struct {
		ShippingFee int64 `json:"shipping_fee"`
	}
	resp.Decode(t, &o)
	return o.ShippingFee
}

// TestCODConcurrency 多个买家并发抢购,成功数等于库存
// 行锁保证扣减串行化,不会超卖
func TestCODConcurrency(t *testing.T) {
	admin := AdminToken(t)
	const stock, buyers = 5, 10
	bookID := PublishTestBook(t, admin, "《热门图书》", stock)

	tokens := make([]string, buyers)
	for i := range tokens {
		_, tokens[i] = RegisterTestUser(t, fmt.Sprintf("buyer%d", i))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			resp := CODCheckout(t, token, bookID, 1)
			if resp.Code == 0 {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(token)
	}
	wg.Wait()

	assert.Equal(t, stock, success)
	assert.Equal(t, 0, BookStock(t, bookID))
}

// TestOnlineCheckout 在线支付只创建会话,库存在支付确认前不变
func TestOnlineCheckout(t *testing.T) {
	admin := AdminToken(t)
	_, token := RegisterTestUser(t, "online_buyer")
	bookID := PublishTestBook(t, admin, "《在线支付测试》", 3)

	resp := PostJSON(t, BaseURL+"/orders", checkoutRequest(bookID, 1, "online"), token)
	if resp.Code != 0 {
		t.Skipf("支付网关不可用: %s", resp.Message)
	}
	var data CheckoutData
	resp.Decode(t, &data)
	assert.NotEmpty(t, data.CheckoutURL)
	assert.Equal(t, "initiated", data.Status)
	assert.Equal(t, 3, BookStock(t, bookID))
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	_, token := RegisterTestUser(t, "not_admin")
	for _, path := range []string{"/admin/orders/in-flight", "/admin/refunds", "/admin/reports/sales", "/admin/audits"} {
		resp := GetJSON(t, BaseURL+path, token)
		assert.Equal(t, 40104, resp.Code, path)
	}
}
