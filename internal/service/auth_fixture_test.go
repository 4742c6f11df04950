package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/authz"
	"github.com/maronglamin/snap-admin-sub004/internal/cache"
	"github.com/maronglamin/snap-admin-sub004/internal/config"
	"github.com/maronglamin/snap-admin-sub004/internal/mfa"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const testAdminPassword = "Passw0rd!"

type recordedNotice struct {
	AdminID   uint
	Event     string
	Remaining int64
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []recordedNotice
}

func (n *recordingNotifier) Notify(adminID uint, event string, remaining int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, recordedNotice{AdminID: adminID, Event: event, Remaining: remaining})
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.notices))
	for _, notice := range n.notices {
		out = append(out, notice.Event)
	}
	return out
}

type authTestEnv struct {
	db        *gorm.DB
	redis     *miniredis.Miniredis
	cfg       *config.Config
	adminRepo *repository.GormAdminRepository
	matrix    *authz.Service
	totp      *mfa.TOTPEngine
	backup    *BackupCodeService
	mfa       *MFAService
	sessions  *SessionService
	auth      *AuthService
	admins    *AdminService
	roles     *RoleService
	entities  *OperatorEntityService
	notifier  *recordingNotifier
	now       time.Time
}

func setupAuthServiceTest(t *testing.T) *authTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// 内存库共享缓存下并发写会报表锁，串行化连接
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.Role{},
		&models.RolePermission{},
		&models.OperatorEntity{},
		&models.Admin{},
		&models.AdminBackupCode{},
		&models.AdminLoginLog{},
		&models.AuthzAuditLog{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	mr := miniredis.RunT(t)
	cache.UseClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test")
	t.Cleanup(func() {
		_ = cache.Close()
		cache.UseClient(nil, "")
	})

	cfg := &config.Config{}
	cfg.Security.PasswordPolicy = config.PasswordPolicyConfig{MinLength: 8, RequireNumber: true}

	env := &authTestEnv{
		db:        db,
		redis:     mr,
		cfg:       cfg,
		adminRepo: repository.NewAdminRepository(db),
		totp:      mfa.NewTOTPEngine("snap-admin-test"),
		notifier:  &recordingNotifier{},
		// 对齐到时间步起点后 5 秒，避免跨步边界
		now: time.Unix((time.Now().Add(time.Hour).Unix()/mfa.StepSeconds)*mfa.StepSeconds+5, 0),
	}
	clock := func() time.Time { return env.now }

	env.matrix, err = authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	engine := authz.NewEngine(env.matrix, cache.NewPermissionCache(0))
	audit := NewAuthzAuditService(repository.NewAuthzAuditLogRepository(db))

	env.backup = NewBackupCodeService(mfa.NewBackupCodes(10, 10, "test-pepper"), repository.NewAdminBackupCodeRepository(db))
	env.backup.now = clock
	limiter := cache.NewAttemptLimiter("mfa", 5, 900, 900)
	env.mfa = NewMFAService(db, env.adminRepo, env.totp, env.backup, limiter, env.notifier, 3)
	env.mfa.now = clock

	env.sessions = NewSessionService([]byte("test-signing-key-0123456789abcdef"), time.Hour, "snap-admin-test",
		NewAdminAuthStateLoader(env.adminRepo), engine)
	env.sessions.now = clock

	env.auth = NewAuthService(cfg, env.adminRepo, env.sessions, env.mfa,
		NewCaptchaService(config.CaptchaConfig{}),
		NewAdminLoginLogService(repository.NewAdminLoginLogRepository(db)),
		env.notifier)
	entityRepo := repository.NewOperatorEntityRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	env.admins = NewAdminService(cfg, env.adminRepo, entityRepo, env.mfa, audit)
	env.roles = NewRoleService(roleRepo, env.matrix, engine, audit)
	env.entities = NewOperatorEntityService(entityRepo, roleRepo, env.adminRepo, audit)
	return env
}

func (e *authTestEnv) seedRole(t *testing.T, name string, grants ...authz.Permission) models.Role {
	t.Helper()
	role := models.Role{Name: name, Label: name, IsActive: true}
	if err := e.db.Create(&role).Error; err != nil {
		t.Fatalf("create role failed: %v", err)
	}
	if _, err := e.matrix.Backfill(context.Background(), role.ID); err != nil {
		t.Fatalf("backfill role failed: %v", err)
	}
	if len(grants) > 0 {
		set := make(authz.PermissionSet, len(grants))
		for _, perm := range grants {
			set[perm] = true
		}
		if err := e.matrix.SetRolePermissions(context.Background(), role.ID, set); err != nil {
			t.Fatalf("grant role permissions failed: %v", err)
		}
	}
	return role
}

func (e *authTestEnv) seedEntity(t *testing.T, name string, roleID uint) models.OperatorEntity {
	t.Helper()
	entity := models.OperatorEntity{Name: name, RoleID: roleID}
	if err := e.db.Create(&entity).Error; err != nil {
		t.Fatalf("create operator entity failed: %v", err)
	}
	return entity
}

func (e *authTestEnv) seedAdmin(t *testing.T, username string, entityID uint) *models.Admin {
	t.Helper()
	hash, err := HashPassword(testAdminPassword)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	admin := &models.Admin{
		Email:            username + "@example.com",
		Username:         username,
		PasswordHash:     hash,
		IsActive:         true,
		OperatorEntityID: &entityID,
	}
	if err := e.db.Create(admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	return admin
}

func (e *authTestEnv) reloadAdmin(t *testing.T, id uint) *models.Admin {
	t.Helper()
	admin, err := e.adminRepo.GetByID(context.Background(), id)
	if err != nil || admin == nil {
		t.Fatalf("reload admin failed: %v", err)
	}
	return admin
}

func (e *authTestEnv) code(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := e.totp.CurrentCode(secret, at)
	if err != nil {
		t.Fatalf("generate totp code failed: %v", err)
	}
	return code
}

// enableMFA 完成开启流程，返回密钥与备用码
func (e *authTestEnv) enableMFA(t *testing.T, adminID uint) *MFAEnrollment {
	t.Helper()
	ctx := context.Background()
	enrollment, err := e.mfa.Enroll(ctx, adminID)
	if err != nil {
		t.Fatalf("enroll failed: %v", err)
	}
	ok, err := e.mfa.Confirm(ctx, adminID, e.code(t, enrollment.Secret, e.now))
	if err != nil || !ok {
		t.Fatalf("confirm failed: ok=%v err=%v", ok, err)
	}
	return enrollment
}
