package provider

import (
	"context"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/authz"
	"github.com/maronglamin/snap-admin-sub004/internal/cache"
	"github.com/maronglamin/snap-admin-sub004/internal/config"
	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/mfa"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/queue"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"
	"github.com/maronglamin/snap-admin-sub004/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo           repository.AdminRepository
	AdminBackupCodeRepo repository.AdminBackupCodeRepository
	RoleRepo            repository.RoleRepository
	OperatorEntityRepo  repository.OperatorEntityRepository
	AdminLoginLogRepo   repository.AdminLoginLogRepository
	AuthzAuditLogRepo   repository.AuthzAuditLogRepository

	// Authorization
	AuthzService *authz.Service
	AuthzEngine  *authz.Engine

	// Services
	TOTPEngine            *mfa.TOTPEngine
	BackupCodeService     *service.BackupCodeService
	SecurityNoticeService *service.SecurityNoticeService
	EmailService          *service.EmailService
	CaptchaService        *service.CaptchaService
	MFAService            *service.MFAService
	SessionService        *service.SessionService
	AuthService           *service.AuthService
	AdminService          *service.AdminService
	RoleService           *service.RoleService
	OperatorEntityService *service.OperatorEntityService
	AdminLoginLogService  *service.AdminLoginLogService
	AuthzAuditService     *service.AuthzAuditService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient = nil
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化权限矩阵
	c.initAuthz()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.AdminBackupCodeRepo = repository.NewAdminBackupCodeRepository(db)
	c.RoleRepo = repository.NewRoleRepository(db)
	c.OperatorEntityRepo = repository.NewOperatorEntityRepository(db)
	c.AdminLoginLogRepo = repository.NewAdminLoginLogRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initAuthz() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	report, err := c.AuthzService.BootstrapBuiltinRoles(context.Background())
	if err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}
	logger.Infow("provider_bootstrap_builtin_roles",
		"roles_created", report.RolesCreated,
		"permissions_filled", report.PermissionsFilled,
	)
	c.AuthzEngine = authz.NewEngine(c.AuthzService, cache.NewPermissionCache(0))
}

func (c *Container) initServices() {
	cfg := c.Config
	db := models.DB

	c.SecurityNoticeService = service.NewSecurityNoticeService(c.QueueClient)
	c.EmailService = service.NewEmailService(&cfg.Email)
	c.CaptchaService = service.NewCaptchaService(cfg.Captcha)
	c.AdminLoginLogService = service.NewAdminLoginLogService(c.AdminLoginLogRepo)
	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)

	c.TOTPEngine = mfa.NewTOTPEngine(cfg.MFA.Issuer)
	if cfg.MFA.BackupCodePepper == "" {
		logger.Warnw("provider_backup_code_pepper_missing")
	}
	c.BackupCodeService = service.NewBackupCodeService(
		mfa.NewBackupCodes(cfg.MFA.BackupCodeCount, cfg.MFA.BackupCodeLength, cfg.MFA.BackupCodePepper),
		c.AdminBackupCodeRepo,
	)
	mfaLimit := cfg.Security.MFARateLimit
	limiter := cache.NewAttemptLimiter("mfa", mfaLimit.MaxAttempts, mfaLimit.WindowSeconds, mfaLimit.BlockSeconds)
	c.MFAService = service.NewMFAService(db, c.AdminRepo, c.TOTPEngine, c.BackupCodeService, limiter,
		c.SecurityNoticeService, cfg.MFA.LowBackupCodes)

	ttl := time.Duration(cfg.JWT.ExpireHours) * time.Hour
	c.SessionService = service.NewSessionService([]byte(cfg.JWT.SecretKey), ttl, cfg.JWT.Issuer,
		service.NewAdminAuthStateLoader(c.AdminRepo), c.AuthzEngine)

	c.AuthService = service.NewAuthService(cfg, c.AdminRepo, c.SessionService, c.MFAService,
		c.CaptchaService, c.AdminLoginLogService, c.SecurityNoticeService)
	c.AdminService = service.NewAdminService(cfg, c.AdminRepo, c.OperatorEntityRepo, c.MFAService, c.AuthzAuditService)
	c.RoleService = service.NewRoleService(c.RoleRepo, c.AuthzService, c.AuthzEngine, c.AuthzAuditService)
	c.OperatorEntityService = service.NewOperatorEntityService(c.OperatorEntityRepo, c.RoleRepo, c.AdminRepo, c.AuthzAuditService)
}

// Close 释放队列客户端与 Redis 连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
