package admin

import (
	"strings"

	handlershared "github.com/maronglamin/snap-admin-sub004/internal/http/handlers/shared"
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuthzAuditLogs 获取权限审计日志列表
func (h *Handler) ListAuthzAuditLogs(c *gin.Context) {
	page, pageSize := handlershared.PaginationFromQuery(c)

	operatorAdminID, ok := parseUintQuery(c, "operator_admin_id")
	if !ok {
		return
	}
	targetAdminID, ok := parseUintQuery(c, "target_admin_id")
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

	items, total, err := h.AuthzAuditService.ListForAdmin(c.Request.Context(), repository.AuthzAuditLogListFilter{
		Page:            page,
		PageSize:        pageSize,
		OperatorAdminID: operatorAdminID,
		TargetAdminID:   targetAdminID,
		Action:          strings.TrimSpace(c.Query("action")),
		Role:            strings.TrimSpace(c.Query("role")),
		ObjectType:      strings.TrimSpace(c.Query("object_type")),
		Object:          strings.TrimSpace(c.Query("object")),
		RequestID:       strings.TrimSpace(c.Query("request_id")),
		CreatedFrom:     createdFrom,
		CreatedTo:       createdTo,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}
