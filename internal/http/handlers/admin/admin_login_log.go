package admin

import (
	"strings"

	handlershared "github.com/maronglamin/snap-admin-sub004/internal/http/handlers/shared"
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAdminLoginLogs 获取管理员登录日志列表
func (h *Handler) ListAdminLoginLogs(c *gin.Context) {
	page, pageSize := handlershared.PaginationFromQuery(c)

	adminID, ok := parseUintQuery(c, "admin_id")
	if !ok {
		return
	}
	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	logs, total, err := h.AdminLoginLogService.ListForAdmin(c.Request.Context(), repository.AdminLoginLogListFilter{
		Page:        page,
		PageSize:    pageSize,
		AdminID:     adminID,
		Account:     strings.TrimSpace(c.Query("account")),
		Status:      strings.TrimSpace(c.Query("status")),
		FailReason:  strings.TrimSpace(c.Query("fail_reason")),
		ClientIP:    strings.TrimSpace(c.Query("client_ip")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, logs, response.BuildPagination(page, pageSize, total))
}
