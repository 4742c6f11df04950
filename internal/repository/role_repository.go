package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/maronglamin/snap-admin-sub004/internal/models"

	"gorm.io/gorm"
)

// RoleRepository 角色数据访问接口
type RoleRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	Create(ctx context.Context, role *models.Role) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) (int64, error)
}

// GormRoleRepository GORM 实现
type GormRoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository 创建角色仓库
func NewRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: db}
}

// GetByID 根据 ID 获取角色
func (r *GormRoleRepository) GetByID(ctx context.Context, id uint) (*models.Role, error) {
	if id == 0 {
		return nil, nil
	}
	var role models.Role
	if err := r.db.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

// GetByName 根据名称获取角色
func (r *GormRoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var role models.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

// List 获取全部角色
func (r *GormRoleRepository) List(ctx context.Context) ([]models.Role, error) {
	roles := make([]models.Role, 0)
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// Create 创建角色
func (r *GormRoleRepository) Create(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

// UpdateFields 按字段更新角色（name 不允许修改）
func (r *GormRoleRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) (int64, error) {
	if id == 0 || len(fields) == 0 {
		return 0, nil
	}
	delete(fields, "name")
	result := r.db.WithContext(ctx).Model(&models.Role{}).Where("id = ?", id).Updates(fields)
	return result.RowsAffected, result.Error
}
