package service

import (
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/logger"
	"github.com/maronglamin/snap-admin-sub004/internal/queue"
)

// SecurityNotifier 安全事件通知
type SecurityNotifier interface {
	Notify(adminID uint, event string, remaining int64)
}

// SecurityNoticeService 通过异步队列投递安全事件通知
type SecurityNoticeService struct {
	queueClient *queue.Client
}

// NewSecurityNoticeService 创建安全事件通知服务
func NewSecurityNoticeService(queueClient *queue.Client) *SecurityNoticeService {
	return &SecurityNoticeService{queueClient: queueClient}
}

// Notify 投递失败只记录日志，不影响主流程
func (s *SecurityNoticeService) Notify(adminID uint, event string, remaining int64) {
	if s == nil || s.queueClient == nil || !s.queueClient.Enabled() || adminID == 0 {
		return
	}
	payload := queue.AdminSecurityNoticePayload{
		AdminID:    adminID,
		Event:      event,
		Remaining:  remaining,
		OccurredAt: time.Now().Unix(),
	}
	if err := s.queueClient.EnqueueAdminSecurityNotice(payload); err != nil {
		logger.Warnw("security_notice_enqueue_failed", "admin_id", adminID, "event", event, "error", err)
	}
}
