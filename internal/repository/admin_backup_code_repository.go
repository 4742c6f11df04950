package repository

import (
	"context"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/models"

	"gorm.io/gorm"
)

// AdminBackupCodeRepository 备用码数据访问接口
type AdminBackupCodeRepository interface {
	Replace(ctx context.Context, adminID uint, hashes []string) error
	DeleteByAdmin(ctx context.Context, adminID uint) error
	Consume(ctx context.Context, adminID uint, hash string, at time.Time) (bool, error)
	CountRemaining(ctx context.Context, adminID uint) (int64, error)
	WithTx(tx *gorm.DB) AdminBackupCodeRepository
}

// GormAdminBackupCodeRepository GORM 实现
type GormAdminBackupCodeRepository struct {
	db *gorm.DB
}

// NewAdminBackupCodeRepository 创建备用码仓库
func NewAdminBackupCodeRepository(db *gorm.DB) *GormAdminBackupCodeRepository {
	return &GormAdminBackupCodeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAdminBackupCodeRepository) WithTx(tx *gorm.DB) AdminBackupCodeRepository {
	if tx == nil {
		return r
	}
	return &GormAdminBackupCodeRepository{db: tx}
}

// Replace 删除管理员全部旧备用码并写入新哈希，需在事务中调用
func (r *GormAdminBackupCodeRepository) Replace(ctx context.Context, adminID uint, hashes []string) error {
	if err := r.DeleteByAdmin(ctx, adminID); err != nil {
		return err
	}
	if len(hashes) == 0 {
		return nil
	}
	rows := make([]models.AdminBackupCode, 0, len(hashes))
	for idx, hash := range hashes {
		rows = append(rows, models.AdminBackupCode{
			AdminID:  adminID,
			Position: idx,
			CodeHash: hash,
		})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// DeleteByAdmin 删除管理员全部备用码
func (r *GormAdminBackupCodeRepository) DeleteByAdmin(ctx context.Context, adminID uint) error {
	return r.db.WithContext(ctx).Where("admin_id = ?", adminID).Delete(&models.AdminBackupCode{}).Error
}

// Consume 单条条件更新标记已使用；仅当恰好影响一行时视为成功
func (r *GormAdminBackupCodeRepository) Consume(ctx context.Context, adminID uint, hash string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.AdminBackupCode{}).
		Where("admin_id = ? AND code_hash = ? AND used_at IS NULL", adminID, hash).
		Update("used_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CountRemaining 统计未使用的备用码数量
func (r *GormAdminBackupCodeRepository) CountRemaining(ctx context.Context, adminID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AdminBackupCode{}).
		Where("admin_id = ? AND used_at IS NULL", adminID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
