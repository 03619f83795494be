package admin

import (
	"context"
	"time"

	"go.uber.org/zap"

	appuser "github.com/xiebiao/bookstore-orders/internal/application/user"
	"github.com/xiebiao/bookstore-orders/internal/domain/audit"
	"github.com/xiebiao/bookstore-orders/internal/domain/order"
	"github.com/xiebiao/bookstore-orders/internal/domain/user"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
	"github.com/xiebiao/bookstore-orders/pkg/logger"
)

// SuspensionMarker 停用标记(Redis),认证中间件每次请求都会检查
type SuspensionMarker interface {
	MarkSuspended(ctx context.Context, userID uint) error
	ClearSuspended(ctx context.Context, userID uint) error
}

// UserAdminUseCase 客户管理
type UserAdminUseCase struct {
	users  user.Repository
	audits audit.Repository
	tx     order.TxManager
	marker SuspensionMarker
}

// NewUserAdminUseCase 创建客户管理用例
func NewUserAdminUseCase(users user.Repository, audits audit.Repository, tx order.TxManager, marker SuspensionMarker) *UserAdminUseCase {
	return &UserAdminUseCase{users: users, audits: audits, tx: tx, marker: marker}
}

// ListUsersRequest 客户列表
type ListUsersRequest struct {
	Keyword  string
	Role     string
	Page     int
	PageSize int
}

// ListUsersResponse 客户列表
type ListUsersResponse struct {
	List     []appuser.UserInfo `json:"list"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	return page, min(size, 100)
}

// ListUsers 按关键字(邮箱/昵称)和角色过滤
func (uc *UserAdminUseCase) ListUsers(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error) {
	page, size := normalizePage(req.Page, req.PageSize)
	params := user.ListParams{Page: page, PageSize: size, Keyword: req.Keyword}
	if req.Role != "" {
		params.Role = user.ParseRole(req.Role)
	}
	users, total, err := uc.users.List(ctx, params)
	if err != nil {
		return nil, err
	}
	list := make([]appuser.UserInfo, len(users))
	for i, u := range users {
		list[i] = appuser.NewUserInfo(u)
	}
	return &ListUsersResponse{List: list, Total: total, Page: page, PageSize: size}, nil
}

// Suspend 停用账号并强制下线
// 数据库提交后再写Redis标记;标记写入失败时返回错误,重试是安全的
func (uc *UserAdminUseCase) Suspend(ctx context.Context, actor audit.Actor, userID uint) (*appuser.UserInfo, error) {
	if actor.ID == userID {
		return nil, user.ErrSuspendSelf
	}
	u, err := uc.setSuspended(ctx, actor, userID, true)
	if err != nil {
		return nil, err
	}
	if err := uc.marker.MarkSuspended(ctx, userID); err != nil {
		return nil, err
	}
	logger.Info(ctx, "user suspended", zap.Uint("user_id", userID), zap.Uint("admin_id", actor.ID))
	info := appuser.NewUserInfo(u)
	return &info, nil
}

// Reactivate 恢复账号
func (uc *UserAdminUseCase) Reactivate(ctx context.Context, actor audit.Actor, userID uint) (*appuser.UserInfo, error) {
	u, err := uc.setSuspended(ctx, actor, userID, false)
	if err != nil {
		return nil, err
	}
	if err := uc.marker.ClearSuspended(ctx, userID); err != nil {
		return nil, err
	}
	logger.Info(ctx, "user reactivated", zap.Uint("user_id", userID), zap.Uint("admin_id", actor.ID))
	info := appuser.NewUserInfo(u)
	return &info, nil
}

// setSuspended 状态未变化时不写库也不记审计
func (uc *UserAdminUseCase) setSuspended(ctx context.Context, actor audit.Actor, userID uint, suspend bool) (*user.User, error) {
	var result *user.User
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		u, err := uc.users.FindByID(txCtx, userID)
		if err != nil {
			return err
		}
		result = u

		before := u.Snapshot()
		now := time.Now()
		action := audit.ActionReactivateUser
		var changed bool
		if suspend {
			action = audit.ActionSuspendUser
			changed = u.Suspend(now)
		} else {
			changed = u.Reactivate(now)
		}
		if !changed {
			return nil
		}

		if err := uc.users.Update(txCtx, u); err != nil {
			return err
		}
		return uc.audits.Append(txCtx, audit.NewEntry(actor, action,
			audit.ResourceUser, resourceID(u.ID), before, u.Snapshot()).ForUser(u.ID))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AuditDTO 审计日志
type AuditDTO struct {
	ID             uint          `json:"id"`
	AdminID        uint          `json:"admin_id"`
	AdminEmail     string        `json:"admin_email"`
	Action         string        `json:"action"`
	TargetUserID   *uint         `json:"target_user_id,omitempty"`
	TargetResource string        `json:"target_resource"`
	ResourceID     string        `json:"resource_id"`
	Details        audit.Details `json:"details"`
	CreatedAt      string        `json:"created_at"`
}

// ListAuditRequest 审计日志查询
type ListAuditRequest struct {
	Action   string
	AdminID  uint
	Page     int
	PageSize int
}

// ListAuditResponse 审计日志分页
type ListAuditResponse struct {
	List     []AuditDTO `json:"list"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// AuditUseCase 审计日志查询
type AuditUseCase struct {
	audits audit.Repository
}

// NewAuditUseCase 创建审计日志查询用例
func NewAuditUseCase(audits audit.Repository) *AuditUseCase {
	return &AuditUseCase{audits: audits}
}

var knownActions = map[audit.Action]bool{
	audit.ActionCreateBook:         true,
	audit.ActionUpdateBook:         true,
	audit.ActionDeleteBook:         true,
	audit.ActionAdvanceDelivery:    true,
	audit.ActionApproveRefund:      true,
	audit.ActionRejectRefund:       true,
	audit.ActionDeleteRefundRecord: true,
	audit.ActionSuspendUser:        true,
	audit.ActionReactivateUser:     true,
}

// Execute 按时间倒序
func (uc *AuditUseCase) Execute(ctx context.Context, req ListAuditRequest) (*ListAuditResponse, error) {
	action := audit.Action(req.Action)
	if action != "" && !knownActions[action] {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "未知的审计动作")
	}
	page, size := normalizePage(req.Page, req.PageSize)
	entries, total, err := uc.audits.List(ctx, audit.ListParams{
		Action:   action,
		AdminID:  req.AdminID,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		return nil, err
	}
	list := make([]AuditDTO, len(entries))
	for i, e := range entries {
		list[i] = AuditDTO{
			ID:             e.ID,
			AdminID:        e.AdminID,
			AdminEmail:     e.AdminEmail,
			Action:         string(e.Action),
			TargetUserID:   e.TargetUserID,
			TargetResource: e.TargetResource,
			ResourceID:     e.ResourceID,
			Details:        e.Details,
			CreatedAt:      e.CreatedAt.Format(timeLayout),
		}
	}
	return &ListAuditResponse{List: list, Total: total, Page: page, PageSize: size}, nil
}
