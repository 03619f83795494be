package audit

import (
	"time"
)

// Action 审计动作
type Action string

const (
	ActionCreateBook         Action = "create_book"
	ActionUpdateBook         Action = "update_book"
	ActionDeleteBook         Action = "delete_book"
	ActionAdvanceDelivery    Action = "advance_delivery"
	ActionApproveRefund      Action = "approve_refund"
	ActionRejectRefund       Action = "reject_refund"
	ActionDeleteRefundRecord Action = "delete_refund_record"
	ActionSuspendUser        Action = "suspend_user"
	ActionReactivateUser     Action = "reactivate_user"
)

// 审计目标资源
const (
	ResourceBook   = "book"
	ResourceOrder  = "order"
	ResourceRefund = "refund"
	ResourceUser   = "user"
)

// Details 变更前后快照,删除时After为nil
type Details struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// Entry 审计日志条目,只追加不修改
type Entry struct {
	ID             uint
	AdminID        uint
	AdminEmail     string
	Action         Action
	TargetUserID   *uint
	TargetResource string
	ResourceID     string
	Details        Details
	CreatedAt      time.Time
}

// Actor 执行操作的管理员
type Actor struct {
	ID    uint
	Email string
}

// NewEntry 创建审计条目
func NewEntry(actor Actor, action Action, resource, resourceID string, before, after any) *Entry {
	return &Entry{
		AdminID:        actor.ID,
		AdminEmail:     actor.Email,
		Action:         action,
		TargetResource: resource,
		ResourceID:     resourceID,
		Details:        Details{Before: before, After: after},
		CreatedAt:      time.Now(),
	}
}

// ForUser 设置目标用户
func (e *Entry) ForUser(userID uint) *Entry {
	e.TargetUserID = &userID
	return e
}
