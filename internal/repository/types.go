package repository

import "time"

// AdminListFilter 查询管理员列表的过滤条件
type AdminListFilter struct {
	Page             int
	PageSize         int
	Keyword          string
	OperatorEntityID uint
	IsActive         *bool
	MFAEnabled       *bool
}

// AdminLoginLogListFilter 查询管理员登录日志列表的过滤条件
type AdminLoginLogListFilter struct {
	Page        int
	PageSize    int
	AdminID     uint
	Account     string
	Status      string
	FailReason  string
	ClientIP    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AuthzAuditLogListFilter 查询权限审计日志列表的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	Role            string
	ObjectType      string
	Object          string
	RequestID       string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}
