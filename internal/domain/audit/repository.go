package audit

import (
	"context"
)

// Repository 审计日志仓储,只提供追加和查询
type Repository interface {
	Append(ctx context.Context, entry *Entry) error

	// List 按创建时间倒序
	List(ctx context.Context, params ListParams) ([]*Entry, int64, error)
}

// ListParams 审计日志查询参数
type ListParams struct {
	Action   Action // 为空表示全部
	AdminID  uint
	Page     int
	PageSize int
}
