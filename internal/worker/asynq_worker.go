package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/metrics"
	"github.com/maronglamin/snap-admin-sub004/internal/provider"
	"github.com/maronglamin/snap-admin-sub004/internal/queue"
	"github.com/maronglamin/snap-admin-sub004/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskAdminSecurityNotice, c.handleAdminSecurityNotice)
}

const (
	noticeResultSent    = "sent"
	noticeResultSkipped = "skipped"
	noticeResultDropped = "dropped"
	noticeResultFailed  = "failed"
)

// handleAdminSecurityNotice 投递管理员安全事件邮件；收件人缺失或邮件未启用时直接确认任务
func (c *Consumer) handleAdminSecurityNotice(ctx context.Context, task *asynq.Task) error {
	result, err := c.deliverSecurityNotice(ctx, task)
	metrics.ObserveSecurityNotice(result)
	return err
}

func (c *Consumer) deliverSecurityNotice(ctx context.Context, task *asynq.Task) (string, error) {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_security_notice_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return noticeResultSkipped, nil
	}
	var payload queue.AdminSecurityNoticePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_security_notice_unmarshal_failed", "error", err)
		return noticeResultFailed, err
	}
	if payload.AdminID == 0 || strings.TrimSpace(payload.Event) == "" {
		logger.Debugw("worker_security_notice_skip_invalid_payload", "admin_id", payload.AdminID, "event", payload.Event)
		return noticeResultSkipped, nil
	}
	if c.EmailService == nil || !c.EmailService.Enabled() {
		logger.Debugw("worker_security_notice_skip_email_disabled", "admin_id", payload.AdminID, "event", payload.Event)
		return noticeResultSkipped, nil
	}
	if c.AdminRepo == nil {
		logger.Warnw("worker_security_notice_skip_admin_repo_nil", "admin_id", payload.AdminID)
		return noticeResultSkipped, nil
	}
	admin, err := c.AdminRepo.GetByID(ctx, payload.AdminID)
	if err != nil {
		logger.Warnw("worker_security_notice_fetch_admin_failed", "admin_id", payload.AdminID, "error", err)
		return noticeResultFailed, err
	}
	if admin == nil || strings.TrimSpace(admin.Email) == "" {
		logger.Debugw("worker_security_notice_skip_admin_not_found", "admin_id", payload.AdminID)
		return noticeResultSkipped, nil
	}

	input := service.SecurityNoticeInput{
		Username:   admin.Username,
		Event:      payload.Event,
		Remaining:  payload.Remaining,
		OccurredAt: noticeTime(payload.OccurredAt),
	}
	locale := ""
	if c.Config != nil {
		locale = c.Config.Email.Locale
	}
	if err := c.EmailService.SendSecurityNotice(admin.Email, input, locale); err != nil {
		if isPermanentEmailError(err) {
			logger.Warnw("worker_security_notice_drop", "admin_id", admin.ID, "event", payload.Event, "error", err)
			return noticeResultDropped, nil
		}
		logger.Warnw("worker_security_notice_send_failed",
			"admin_id", admin.ID,
			"event", payload.Event,
			"error", err,
		)
		return noticeResultFailed, err
	}
	logger.Infow("worker_security_notice_sent", "admin_id", admin.ID, "event", payload.Event)
	return noticeResultSent, nil
}

func noticeTime(unix int64) time.Time {
	if unix <= 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0).UTC()
}

// isPermanentEmailError 重试也无法投递的错误
func isPermanentEmailError(err error) bool {
	return errors.Is(err, service.ErrEmailServiceNotConfigured) ||
		errors.Is(err, service.ErrInvalidEmail) ||
		errors.Is(err, service.ErrEmailRecipientRejected)
}
