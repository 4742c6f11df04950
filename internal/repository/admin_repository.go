package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 管理员数据访问接口
type AdminRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Admin, error)
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	List(ctx context.Context, filter AdminListFilter) ([]models.Admin, int64, error)
	ListIDsByEntity(ctx context.Context, entityID uint) ([]uint, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, admin *models.Admin) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) (int64, error)
	RevokeTokens(ctx context.Context, id uint, at time.Time) error
	RevokeTokensByEntity(ctx context.Context, entityID uint, at time.Time) (int64, error)
	SetPendingMFASecret(ctx context.Context, id uint, secret string) (int64, error)
	ActivateMFA(ctx context.Context, id uint, secret string) (int64, error)
	ClearMFA(ctx context.Context, id uint, at time.Time) (int64, error)
	RecordTOTPStep(ctx context.Context, id uint, step int64) (bool, error)
	WithTx(tx *gorm.DB) AdminRepository
}

// GormAdminRepository GORM 实现
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建管理员仓库
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAdminRepository) WithTx(tx *gorm.DB) AdminRepository {
	if tx == nil {
		return r
	}
	return &GormAdminRepository{db: tx}
}

func (r *GormAdminRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).Preload("OperatorEntity.Role").Where(query, args...).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// GetByID 根据 ID 获取管理员（含运营主体与角色）
func (r *GormAdminRepository) GetByID(ctx context.Context, id uint) (*models.Admin, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(ctx, "id = ?", id)
}

// GetByEmail 根据邮箱获取管理员
func (r *GormAdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	return r.first(ctx, "email = ?", email)
}

// GetByUsername 根据用户名获取管理员
func (r *GormAdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	return r.first(ctx, "username = ?", username)
}

// List 获取管理员列表
func (r *GormAdminRepository) List(ctx context.Context, filter AdminListFilter) ([]models.Admin, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Admin{}).Scopes(keywordScope(filter.Keyword, "username", "email"))
	if filter.OperatorEntityID != 0 {
		query = query.Where("operator_entity_id = ?", filter.OperatorEntityID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.MFAEnabled != nil {
		query = query.Where("mfa_enabled = ?", *filter.MFAEnabled)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	admins := make([]models.Admin, 0)
	if err := query.Preload("OperatorEntity.Role").Order("id ASC").Find(&admins).Error; err != nil {
		return nil, 0, err
	}
	return admins, total, nil
}

// ListIDsByEntity 列出运营主体下的管理员 ID
func (r *GormAdminRepository) ListIDsByEntity(ctx context.Context, entityID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Admin{}).
		Where("operator_entity_id = ?", entityID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Count 统计管理员数量
func (r *GormAdminRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Admin{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create 创建管理员
func (r *GormAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

// UpdateFields 按字段更新管理员
func (r *GormAdminRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) (int64, error) {
	if id == 0 || len(fields) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", id).Updates(fields)
	return result.RowsAffected, result.Error
}

// RevokeTokens 使管理员已签发的 Token 全部失效
func (r *GormAdminRepository) RevokeTokens(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", id).Updates(map[string]interface{}{
		"token_version":        gorm.Expr("token_version + 1"),
		"token_invalid_before": at,
	}).Error
}

// RevokeTokensByEntity 使运营主体下所有管理员的 Token 失效
func (r *GormAdminRepository) RevokeTokensByEntity(ctx context.Context, entityID uint, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Admin{}).Where("operator_entity_id = ?", entityID).Updates(map[string]interface{}{
		"token_version":        gorm.Expr("token_version + 1"),
		"token_invalid_before": at,
	})
	return result.RowsAffected, result.Error
}

// SetPendingMFASecret 写入待确认的 TOTP 密钥（仅在未启用时生效）
func (r *GormAdminRepository) SetPendingMFASecret(ctx context.Context, id uint, secret string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ? AND mfa_enabled = ?", id, false).
		Updates(map[string]interface{}{
			"mfa_secret":         secret,
			"mfa_verified":       false,
			"mfa_last_used_step": 0,
		})
	return result.RowsAffected, result.Error
}

// ActivateMFA 乐观条件更新：仅当仍未启用且密钥未被替换时启用
func (r *GormAdminRepository) ActivateMFA(ctx context.Context, id uint, secret string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ? AND mfa_enabled = ? AND mfa_secret = ?", id, false, secret).
		Updates(map[string]interface{}{
			"mfa_enabled":  true,
			"mfa_verified": true,
		})
	return result.RowsAffected, result.Error
}

// ClearMFA 清空 MFA 字段并使已签发 Token 失效
func (r *GormAdminRepository) ClearMFA(ctx context.Context, id uint, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", id).Updates(map[string]interface{}{
		"mfa_enabled":          false,
		"mfa_verified":         false,
		"mfa_secret":           "",
		"mfa_last_used_step":   0,
		"token_version":        gorm.Expr("token_version + 1"),
		"token_invalid_before": at,
	})
	return result.RowsAffected, result.Error
}

// RecordTOTPStep 记录已使用的时间步；同一时间步或更早的时间步不能重复使用
func (r *GormAdminRepository) RecordTOTPStep(ctx context.Context, id uint, step int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ? AND mfa_enabled = ? AND mfa_last_used_step < ?", id, true, step).
		Update("mfa_last_used_step", step)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
