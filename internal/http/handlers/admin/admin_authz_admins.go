package admin

import (
	"strings"

	handlershared "github.com/maronglamin/snap-admin-sub004/internal/http/handlers/shared"
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"
	"github.com/maronglamin/snap-admin-sub004/internal/repository"
	"github.com/maronglamin/snap-admin-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// ListAdmins 管理员列表
func (h *Handler) ListAdmins(c *gin.Context) {
	page, pageSize := handlershared.PaginationFromQuery(c)

	entityID, ok := parseUintQuery(c, "operator_entity_id")
	if !ok {
		return
	}
	isActive, ok := parseBoolQuery(c, "is_active")
	if !ok {
		return
	}
	mfaEnabled, ok := parseBoolQuery(c, "mfa_enabled")
	if !ok {
		return
	}

	admins, total, err := h.AdminService.List(c.Request.Context(), repository.AdminListFilter{
		Page:             page,
		PageSize:         pageSize,
		Keyword:          strings.TrimSpace(c.Query("keyword")),
		OperatorEntityID: entityID,
		IsActive:         isActive,
		MFAEnabled:       mfaEnabled,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	items := make([]*AdminView, 0, len(admins))
	for i := range admins {
		items = append(items, toAdminView(&admins[i]))
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// GetAdmin 管理员详情
func (h *Handler) GetAdmin(c *gin.Context) {
	id, ok := parseIDParam(c, "error.admin_id_invalid")
	if !ok {
		return
	}
	admin, err := h.AdminService.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, toAdminView(admin))
}

// CreateAdminRequest 创建管理员请求
type CreateAdminRequest struct {
	Email            string `json:"email" binding:"required"`
	Username         string `json:"username" binding:"required"`
	Password         string `json:"password" binding:"required"`
	OperatorEntityID uint   `json:"operator_entity_id" binding:"required"`
}

// CreateAdmin 创建管理员
func (h *Handler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	admin, err := h.AdminService.Create(c.Request.Context(), currentActor(c), service.CreateAdminInput{
		Email:            req.Email,
		Username:         req.Username,
		Password:         req.Password,
		OperatorEntityID: req.OperatorEntityID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, toAdminView(admin))
}

// SetAdminActiveRequest 启用/停用请求
type SetAdminActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// SetAdminActive 启用或停用管理员，停用后会话立即失效
func (h *Handler) SetAdminActive(c *gin.Context) {
	id, ok := parseIDParam(c, "error.admin_id_invalid")
	if !ok {
		return
	}
	var req SetAdminActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	admin, err := h.AdminService.SetActive(c.Request.Context(), currentActor(c), id, *req.IsActive)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, toAdminView(admin))
}

// AssignAdminEntityRequest 调整所属主体请求
type AssignAdminEntityRequest struct {
	OperatorEntityID uint `json:"operator_entity_id" binding:"required"`
}

// AssignAdminEntity 调整管理员所属运营主体
func (h *Handler) AssignAdminEntity(c *gin.Context) {
	id, ok := parseIDParam(c, "error.admin_id_invalid")
	if !ok {
		return
	}
	var req AssignAdminEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	admin, err := h.AdminService.AssignEntity(c.Request.Context(), currentActor(c), id, req.OperatorEntityID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, toAdminView(admin))
}

// ResetAdminMFA 重置管理员二次验证
func (h *Handler) ResetAdminMFA(c *gin.Context) {
	id, ok := parseIDParam(c, "error.admin_id_invalid")
	if !ok {
		return
	}
	if err := h.AdminService.ResetMFA(c.Request.Context(), currentActor(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, nil)
}
