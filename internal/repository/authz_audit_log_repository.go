package repository

import (
	"context"

	"github.com/maronglamin/snap-admin-sub004/internal/models"

	"gorm.io/gorm"
)

// AuthzAuditLogRepository 权限审计日志只追加，不提供修改与删除
type AuthzAuditLogRepository interface {
	Create(ctx context.Context, log *models.AuthzAuditLog) error
	List(ctx context.Context, filter AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error)
}

// GormAuthzAuditLogRepository GORM 实现
type GormAuthzAuditLogRepository struct {
	db *gorm.DB
}

// NewAuthzAuditLogRepository 创建权限审计日志仓库
func NewAuthzAuditLogRepository(db *gorm.DB) *GormAuthzAuditLogRepository {
	return &GormAuthzAuditLogRepository{db: db}
}

func (r *GormAuthzAuditLogRepository) Create(ctx context.Context, log *models.AuthzAuditLog) error {
	if log == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// List 按操作人、目标、对象与时间范围检索，新记录在前
func (r *GormAuthzAuditLogRepository) List(ctx context.Context, filter AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuthzAuditLog{}).Scopes(authzAuditLogFilter(filter))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	logs := make([]models.AuthzAuditLog, 0)
	if total == 0 {
		return logs, 0, nil
	}
	err := query.Scopes(paginate(filter.Page, filter.PageSize)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func authzAuditLogFilter(filter AuthzAuditLogListFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		equals := []struct {
			column string
			value  interface{}
			set    bool
		}{
			{"operator_admin_id", filter.OperatorAdminID, filter.OperatorAdminID != 0},
			{"target_admin_id", filter.TargetAdminID, filter.TargetAdminID != 0},
			{"action", filter.Action, filter.Action != ""},
			{"role", filter.Role, filter.Role != ""},
			{"object_type", filter.ObjectType, filter.ObjectType != ""},
			{"object", filter.Object, filter.Object != ""},
			{"request_id", filter.RequestID, filter.RequestID != ""},
		}
		for _, eq := range equals {
			if eq.set {
				db = db.Where(eq.column+" = ?", eq.value)
			}
		}
		if filter.CreatedFrom != nil {
			db = db.Where("created_at >= ?", *filter.CreatedFrom)
		}
		if filter.CreatedTo != nil {
			db = db.Where("created_at <= ?", *filter.CreatedTo)
		}
		return db
	}
}
