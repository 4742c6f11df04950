package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/config"
	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	"github.com/maronglamin/snap-admin-sub004/internal/models"
	"github.com/maronglamin/snap-admin-sub004/internal/provider"
	"github.com/maronglamin/snap-admin-sub004/internal/queue"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"
	"github.com/maronglamin/snap-admin-sub004/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupWorkerTest(t *testing.T, email config.EmailConfig) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Role{}, &models.OperatorEntity{}, &models.Admin{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	cfg := &config.Config{Email: email}
	container := &provider.Container{
		Config:       cfg,
		AdminRepo:    repository.NewAdminRepository(db),
		EmailService: service.NewEmailService(&cfg.Email),
	}
	return NewConsumer(container), db
}

func noticeTask(t *testing.T, payload queue.AdminSecurityNoticePayload) *asynq.Task {
	t.Helper()
	task, err := queue.NewAdminSecurityNoticeTask(payload)
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	return task
}

func TestHandleAdminSecurityNoticeRejectsBadPayload(t *testing.T) {
	consumer, _ := setupWorkerTest(t, config.EmailConfig{Enabled: true})
	task := asynq.NewTask(queue.TaskAdminSecurityNotice, []byte("{not json"))
	if err := consumer.handleAdminSecurityNotice(context.Background(), task); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestHandleAdminSecurityNoticeSkips(t *testing.T) {
	ctx := context.Background()

	disabled, db := setupWorkerTest(t, config.EmailConfig{Enabled: false})
	admin := models.Admin{Email: "ops@example.com", Username: "ops", PasswordHash: "x", IsActive: true}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	payload := queue.AdminSecurityNoticePayload{AdminID: admin.ID, Event: constants.SecurityEventMFAEnabled, OccurredAt: 1700000000}
	if err := disabled.handleAdminSecurityNotice(ctx, noticeTask(t, payload)); err != nil {
		t.Fatalf("disabled email should ack, got %v", err)
	}

	// 已启用但缺少 SMTP 配置：任务被确认而非重试
	misconfigured, db := setupWorkerTest(t, config.EmailConfig{Enabled: true})
	admin = models.Admin{Email: "ops@example.com", Username: "ops", PasswordHash: "x", IsActive: true}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	cases := []struct {
		payload queue.AdminSecurityNoticePayload
		want    string
	}{
		{payload: queue.AdminSecurityNoticePayload{AdminID: 0, Event: constants.SecurityEventMFAEnabled}, want: noticeResultSkipped},
		{payload: queue.AdminSecurityNoticePayload{AdminID: admin.ID, Event: "  "}, want: noticeResultSkipped},
		{payload: queue.AdminSecurityNoticePayload{AdminID: admin.ID + 100, Event: constants.SecurityEventMFAEnabled}, want: noticeResultSkipped},
		{payload: queue.AdminSecurityNoticePayload{AdminID: admin.ID, Event: constants.SecurityEventBackupCodeUsed, Remaining: 2}, want: noticeResultDropped},
	}
	for _, tc := range cases {
		result, err := misconfigured.deliverSecurityNotice(ctx, noticeTask(t, tc.payload))
		if err != nil {
			t.Fatalf("payload %+v: expected ack, got %v", tc.payload, err)
		}
		if result != tc.want {
			t.Fatalf("payload %+v: expected %s, got %s", tc.payload, tc.want, result)
		}
	}
}

func TestSecurityNoticePayloadCarriesNoSecrets(t *testing.T) {
	task := noticeTask(t, queue.AdminSecurityNoticePayload{AdminID: 7, Event: constants.SecurityEventBackupCodesRegenerated})
	var fields map[string]interface{}
	if err := json.Unmarshal(task.Payload(), &fields); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	for key := range fields {
		switch key {
		case "admin_id", "event", "occurred_at":
		default:
			t.Fatalf("unexpected payload field %s", key)
		}
	}
}

func TestNoticeTime(t *testing.T) {
	if !noticeTime(0).IsZero() {
		t.Fatalf("expected zero time")
	}
	if got := noticeTime(1700000000); got.Unix() != 1700000000 {
		t.Fatalf("unexpected time %v", got)
	}
}
