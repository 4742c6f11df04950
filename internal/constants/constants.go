package constants

// 登录日志状态常量
const (
	LoginLogStatusSuccess     = "success"
	LoginLogStatusFailed      = "failed"
	LoginLogStatusMFARequired = "mfa_required"
)

// 登录日志失败原因常量（仅内部记录，不对外暴露）
const (
	LoginLogFailReasonBadRequest         = "bad_request"
	LoginLogFailReasonCaptchaRequired    = "captcha_required"
	LoginLogFailReasonCaptchaInvalid     = "captcha_invalid"
	LoginLogFailReasonInvalidEmail       = "invalid_email"
	LoginLogFailReasonAccountNotFound    = "account_not_found"
	LoginLogFailReasonPasswordMismatch   = "password_mismatch"
	LoginLogFailReasonAccountInactive    = "account_inactive"
	LoginLogFailReasonMFAInvalidCode     = "mfa_invalid_code"
	LoginLogFailReasonMFAReplayed        = "mfa_replayed"
	LoginLogFailReasonMFARateLimited     = "mfa_rate_limited"
	LoginLogFailReasonMFAStateCorrupt    = "mfa_state_corrupt"
	LoginLogFailReasonStorageUnavailable = "storage_unavailable"
	LoginLogFailReasonInternalError      = "internal_error"
)

// MFA 校验方式常量
const (
	MFAMethodTOTP       = "totp"
	MFAMethodBackupCode = "backup_code"
)

// 安全通知事件常量
const (
	SecurityEventMFAEnabled             = "mfa_enabled"
	SecurityEventMFADisabled            = "mfa_disabled"
	SecurityEventBackupCodeUsed         = "backup_code_used"
	SecurityEventBackupCodesRegenerated = "backup_codes_regenerated"
	SecurityEventPasswordChanged        = "password_changed"
)

// 验证码校验场景常量
const (
	CaptchaSceneLogin = "login"
)

// 队列常量
const (
	QueueDefault            = "default"
	QueueCritical           = "critical"
	TaskAdminSecurityNotice = "admin:security_notice"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "snap"
)

// 内置角色常量
const (
	RoleSuperAdmin = "super_admin"
	RoleOperations = "operations"
	RoleSupport    = "support"
	RoleFinance    = "finance"
	RoleAnalyst    = "analyst"
	RoleAuditor    = "auditor"
)

// 默认运营主体
const (
	DefaultOperatorEntityName = "headquarters"
)

// 权限审计动作常量
const (
	AuditActionRoleCreate         = "role_create"
	AuditActionRoleUpdate         = "role_update"
	AuditActionRolePermissionsSet = "role_permissions_set"
	AuditActionEntityCreate       = "operator_entity_create"
	AuditActionEntityRoleAssign   = "operator_entity_role_assign"
	AuditActionAdminCreate        = "admin_create"
	AuditActionAdminActivate      = "admin_activate"
	AuditActionAdminDeactivate    = "admin_deactivate"
	AuditActionAdminEntityAssign  = "admin_entity_assign"
	AuditActionAdminMFAReset      = "admin_mfa_reset"
)
