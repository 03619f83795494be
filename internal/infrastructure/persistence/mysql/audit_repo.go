package mysql

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/xiebiao/bookstore-orders/internal/domain/audit"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

// auditRepository 审计日志(MySQL),只有INSERT和SELECT
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository 创建审计仓储
func NewAuditRepository(db *gorm.DB) audit.Repository {
	return &auditRepository{db: db}
}

// Append 在调用方的事务中写入,与被审计的修改一起提交或回滚
func (r *auditRepository) Append(ctx context.Context, e *audit.Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return apperrors.Wrap(err, "序列化审计详情失败")
	}
	model := &AuditEntryModel{
		AdminID:        e.AdminID,
		AdminEmail:     e.AdminEmail,
		Action:         string(e.Action),
		TargetUserID:   e.TargetUserID,
		TargetResource: e.TargetResource,
		ResourceID:     e.ResourceID,
		Details:        string(details),
		CreatedAt:      e.CreatedAt,
	}
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入审计日志失败")
	}
	e.ID = model.ID
	return nil
}

func (r *auditRepository) List(ctx context.Context, params audit.ListParams) ([]*audit.Entry, int64, error) {
	query := conn(ctx, r.db).Model(&AuditEntryModel{})
	if params.Action != "" {
		query = query.Where("action = ?", string(params.Action))
	}
	if params.AdminID != 0 {
		query = query.Where("admin_id = ?", params.AdminID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询审计日志总数失败")
	}

	var models []AuditEntryModel
	err := paginate(query.Order("created_at DESC").Order("id DESC"), params.Page, params.PageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询审计日志失败")
	}

	entries := make([]*audit.Entry, len(models))
	for i, m := range models {
		var details audit.Details
		// 历史数据格式不对时只丢弃详情
		_ = json.Unmarshal([]byte(m.Details), &details)
		entries[i] = &audit.Entry{
			ID:             m.ID,
			AdminID:        m.AdminID,
			AdminEmail:     m.AdminEmail,
			Action:         audit.Action(m.Action),
			TargetUserID:   m.TargetUserID,
			TargetResource: m.TargetResource,
			ResourceID:     m.ResourceID,
			Details:        details,
			CreatedAt:      m.CreatedAt,
		}
	}
	return entries, total, nil
}
