//go:build integration
// +build integration

package repository

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	"github.com/maronglamin/snap-admin-sub004/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.AuthzAuditLog{},
		&models.AdminLoginLog{},
		&models.AdminBackupCode{},
		&models.Admin{},
		&models.OperatorEntity{},
		&models.RolePermission{},
		&models.Role{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := migrateAuthModels(db); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresAdminKeywordSearchIsCaseInsensitive(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	ctx := context.Background()
	seedRepoAdmin(t, db, "grace", nil)
	seedRepoAdmin(t, db, "heidi", nil)

	admins, total, err := NewAdminRepository(db).List(ctx, AdminListFilter{Page: 1, PageSize: 10, Keyword: "GRA"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(admins) != 1 || admins[0].Username != "grace" {
		t.Fatalf("unexpected search result: total=%d admins=%v", total, admins)
	}
}

// 并发消费同一备用码只有一个请求成功
func TestPostgresBackupCodeConsumeIsAtomic(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	ctx := context.Background()
	admin := seedRepoAdmin(t, db, "ivan", nil)
	repo := NewAdminBackupCodeRepository(db)
	if err := repo.Replace(ctx, admin.ID, []string{"race-hash"}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Consume(ctx, admin.ID, "race-hash", time.Now())
			if err != nil {
				t.Errorf("consume failed: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestPostgresTOTPStepIsMonotonic(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	ctx := context.Background()
	repo := NewAdminRepository(db)
	admin := seedRepoAdmin(t, db, "judy", nil)
	if _, err := repo.SetPendingMFASecret(ctx, admin.ID, "PGSECRET"); err != nil {
		t.Fatalf("set pending failed: %v", err)
	}
	if _, err := repo.ActivateMFA(ctx, admin.ID, "PGSECRET"); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	var accepted int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.RecordTOTPStep(ctx, admin.ID, 5000)
			if err != nil {
				t.Errorf("record step failed: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&accepted, 1)
			}
		}()
	}
	wg.Wait()
	if accepted != 1 {
		t.Fatalf("expected one accepted step, got %d", accepted)
	}
}

func TestPostgresLoginLogFilters(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	ctx := context.Background()
	repo := NewAdminLoginLogRepository(db)
	rows := []models.AdminLoginLog{
		{Account: "kim", Status: constants.LoginLogStatusSuccess, ClientIP: "10.0.0.1"},
		{Account: "kim", Status: constants.LoginLogStatusFailed, FailReason: constants.LoginLogFailReasonPasswordMismatch, ClientIP: "10.0.0.2"},
		{Account: "lee", Status: constants.LoginLogStatusFailed, FailReason: constants.LoginLogFailReasonAccountNotFound, ClientIP: "10.0.0.2"},
	}
	for i := range rows {
		if err := repo.Create(ctx, &rows[i]); err != nil {
			t.Fatalf("create login log failed: %v", err)
		}
	}

	_, total, err := repo.List(ctx, AdminLoginLogListFilter{Page: 1, PageSize: 10, Status: constants.LoginLogStatusFailed})
	if err != nil || total != 2 {
		t.Fatalf("failed status filter want 2 got %d (%v)", total, err)
	}
	_, total, err = repo.List(ctx, AdminLoginLogListFilter{Page: 1, PageSize: 10, ClientIP: "10.0.0.2", Account: "kim"})
	if err != nil || total != 1 {
		t.Fatalf("ip+account filter want 1 got %d (%v)", total, err)
	}
}
