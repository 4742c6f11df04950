package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/maronglamin/snap-admin-sub004/internal/models"

	"gorm.io/gorm"
)

// OperatorEntityRepository 运营主体数据访问接口
type OperatorEntityRepository interface {
	GetByID(ctx context.Context, id uint) (*models.OperatorEntity, error)
	GetByName(ctx context.Context, name string) (*models.OperatorEntity, error)
	List(ctx context.Context) ([]models.OperatorEntity, error)
	Create(ctx context.Context, entity *models.OperatorEntity) error
	UpdateRole(ctx context.Context, id, roleID uint) (int64, error)
	WithTx(tx *gorm.DB) OperatorEntityRepository
}

// GormOperatorEntityRepository GORM 实现
type GormOperatorEntityRepository struct {
	db *gorm.DB
}

// NewOperatorEntityRepository 创建运营主体仓库
func NewOperatorEntityRepository(db *gorm.DB) *GormOperatorEntityRepository {
	return &GormOperatorEntityRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOperatorEntityRepository) WithTx(tx *gorm.DB) OperatorEntityRepository {
	if tx == nil {
		return r
	}
	return &GormOperatorEntityRepository{db: tx}
}

// GetByID 根据 ID 获取运营主体
func (r *GormOperatorEntityRepository) GetByID(ctx context.Context, id uint) (*models.OperatorEntity, error) {
	if id == 0 {
		return nil, nil
	}
	var entity models.OperatorEntity
	if err := r.db.WithContext(ctx).Preload("Role").First(&entity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// GetByName 根据名称获取运营主体
func (r *GormOperatorEntityRepository) GetByName(ctx context.Context, name string) (*models.OperatorEntity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var entity models.OperatorEntity
	if err := r.db.WithContext(ctx).Preload("Role").Where("name = ?", name).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// List 获取全部运营主体
func (r *GormOperatorEntityRepository) List(ctx context.Context) ([]models.OperatorEntity, error) {
	entities := make([]models.OperatorEntity, 0)
	if err := r.db.WithContext(ctx).Preload("Role").Order("id ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// Create 创建运营主体
func (r *GormOperatorEntityRepository) Create(ctx context.Context, entity *models.OperatorEntity) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

// UpdateRole 变更运营主体绑定的角色
func (r *GormOperatorEntityRepository) UpdateRole(ctx context.Context, id, roleID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.OperatorEntity{}).Where("id = ?", id).Update("role_id", roleID)
	return result.RowsAffected, result.Error
}
