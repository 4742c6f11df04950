package queue

import (
	"encoding/json"

	"github.com/maronglamin/snap-admin-sub004/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskAdminSecurityNotice 管理员安全事件通知任务
	TaskAdminSecurityNotice = constants.TaskAdminSecurityNotice
)

// AdminSecurityNoticePayload 安全事件通知载荷，不携带任何密钥或验证码
type AdminSecurityNoticePayload struct {
	AdminID    uint   `json:"admin_id"`
	Event      string `json:"event"`
	Remaining  int64  `json:"remaining,omitempty"`
	ClientIP   string `json:"client_ip,omitempty"`
	OccurredAt int64  `json:"occurred_at"`
}

// NewAdminSecurityNoticeTask 创建安全事件通知任务
func NewAdminSecurityNoticeTask(payload AdminSecurityNoticePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAdminSecurityNotice, body), nil
}
