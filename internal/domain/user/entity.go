package user

import (
	"time"
)

// Role 用户角色
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// ParseRole 未知角色按customer处理
func ParseRole(raw string) Role {
	if Role(raw) == RoleAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// User 用户实体
type User struct {
	ID          uint
	Email       string
	Password    string // bcrypt哈希值
	Nickname    string
	Role        Role
	Suspended   bool
	SuspendedAt *time.Time
	LastOrderID *uint
	LastOrderAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewUser 创建普通用户
func NewUser(email, hashedPassword, nickname string) *User {
	now := time.Now()
	return &User{
		Email:     email,
		Password:  hashedPassword,
		Nickname:  nickname,
		Role:      RoleCustomer,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Suspend 停用账号,重复停用无副作用
func (u *User) Suspend(now time.Time) bool {
	if u.Suspended {
		return false
	}
	u.Suspended = true
	u.SuspendedAt = &now
	u.UpdatedAt = now
	return true
}

// Reactivate 恢复账号
func (u *User) Reactivate(now time.Time) bool {
	if !u.Suspended {
		return false
	}
	u.Suspended = false
	u.SuspendedAt = nil
	u.UpdatedAt = now
	return true
}

// DisplayName 评价等场景展示的名字
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Email
}

// Snapshot 审计快照
func (u *User) Snapshot() map[string]any {
	return map[string]any{
		"email":     u.Email,
		"nickname":  u.Nickname,
		"role":      u.Role,
		"suspended": u.Suspended,
	}
}
