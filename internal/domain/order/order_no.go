package order

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// GenerateOrderNo 生成订单号
// 格式:BK + yyyyMMddHHmmss + 6位随机数,同时作为支付会话的client_reference_id
func GenerateOrderNo(now time.Time) string {
	return fmt.Sprintf("BK%s%06d", now.Format("20060102150405"), rand.IntN(1000000))
}
