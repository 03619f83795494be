package user

import (
	"context"

	"github.com/xiebiao/bookstore-orders/internal/domain/user"
)

// RegisterUseCase 用户注册用例
type RegisterUseCase struct {
	userService user.Service
}

// NewRegisterUseCase 创建注册用例
func NewRegisterUseCase(userService user.Service) *RegisterUseCase {
	return &RegisterUseCase{
		userService: userService,
	}
}

// Execute 执行注册,新用户角色为customer
func (uc *RegisterUseCase) Execute(ctx context.Context, req RegisterRequest) (*UserInfo, error) {
	u, err := uc.userService.Register(ctx, req.Email, req.Password, req.Nickname)
	if err != nil {
		return nil, err
	}
	info := NewUserInfo(u)
	return &info, nil
}

// ProfileUseCase 当前用户信息
type ProfileUseCase struct {
	users user.Repository
}

// NewProfileUseCase 创建用户信息用例
func NewProfileUseCase(users user.Repository) *ProfileUseCase {
	return &ProfileUseCase{users: users}
}

// Execute 查询用户
func (uc *ProfileUseCase) Execute(ctx context.Context, userID uint) (*UserInfo, error) {
	u, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := NewUserInfo(u)
	return &info, nil
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string
	Password string
	Nickname string
}

// UserInfo 用户信息,不含密码
type UserInfo struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Nickname    string `json:"nickname"`
	Role        string `json:"role"`
	Suspended   bool   `json:"suspended"`
	LastOrderID *uint  `json:"last_order_id,omitempty"`
	LastOrderAt string `json:"last_order_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// NewUserInfo 领域实体 → DTO
func NewUserInfo(u *user.User) UserInfo {
	info := UserInfo{
		ID:          u.ID,
		Email:       u.Email,
		Nickname:    u.Nickname,
		Role:        string(u.Role),
		Suspended:   u.Suspended,
		LastOrderID: u.LastOrderID,
		CreatedAt:   u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if u.LastOrderAt != nil {
		info.LastOrderAt = u.LastOrderAt.Format("2006-01-02 15:04:05")
	}
	return info
}
