package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/bookstore-orders/internal/domain/user"
	apperrors "github.com/xiebiao/bookstore-orders/pkg/errors"
)

// userRepository 用户仓储(MySQL)
// 邮箱唯一性由UNIQUE索引保证,冲突转换为ErrEmailDuplicate
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) user.Repository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	model := toUserModel(u)
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return user.ErrEmailDuplicate
		}
		return apperrors.Wrap(err, "创建用户失败")
	}
	u.ID = model.ID
	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	return r.findOne(conn(ctx, r.db).Where("id = ?", id))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(conn(ctx, r.db).Where("email = ?", email))
}

func (r *userRepository) findOne(query *gorm.DB) (*user.User, error) {
	var model UserModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "查询用户失败")
	}
	return toUserEntity(&model), nil
}

// Update 更新资料、角色和停用状态
func (r *userRepository) Update(ctx context.Context, u *user.User) error {
	result := conn(ctx, r.db).Model(&UserModel{ID: u.ID}).Updates(map[string]any{
		"email":        u.Email,
		"password":     u.Password,
		"nickname":     u.Nickname,
		"role":         string(u.Role),
		"suspended":    u.Suspended,
		"suspended_at": u.SuspendedAt,
	})
	if result.Error != nil {
		if isDuplicateError(result.Error) {
			return user.ErrEmailDuplicate
		}
		return apperrors.Wrap(result.Error, "更新用户失败")
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, params user.ListParams) ([]*user.User, int64, error) {
	query := conn(ctx, r.db).Model(&UserModel{})
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("email LIKE ? OR nickname LIKE ?", kw, kw)
	}
	if params.Role != "" {
		query = query.Where("role = ?", string(params.Role))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询用户总数失败")
	}

	var models []UserModel
	err := paginate(query.Order("created_at DESC").Order("id DESC"), params.Page, params.PageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询用户列表失败")
	}

	users := make([]*user.User, len(models))
	for i := range models {
		users[i] = toUserEntity(&models[i])
	}
	return users, total, nil
}

func (r *userRepository) RecordLastOrder(ctx context.Context, userID, orderID uint, at time.Time) error {
	result := conn(ctx, r.db).Model(&UserModel{}).Where("id = ?", userID).Updates(map[string]any{
		"last_order_id": orderID,
		"last_order_at": at,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "记录最近订单失败")
	}
	return nil
}

func toUserModel(u *user.User) *UserModel {
	role := u.Role
	if role == "" {
		role = user.RoleCustomer
	}
	return &UserModel{
		ID:          u.ID,
		Email:       u.Email,
		Password:    u.Password,
		Nickname:    u.Nickname,
		Role:        string(role),
		Suspended:   u.Suspended,
		SuspendedAt: u.SuspendedAt,
		LastOrderID: u.LastOrderID,
		LastOrderAt: u.LastOrderAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func toUserEntity(m *UserModel) *user.User {
	return &user.User{
		ID:          m.ID,
		Email:       m.Email,
		Password:    m.Password,
		Nickname:    m.Nickname,
		Role:        user.ParseRole(m.Role),
		Suspended:   m.Suspended,
		SuspendedAt: m.SuspendedAt,
		LastOrderID: m.LastOrderID,
		LastOrderAt: m.LastOrderAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
