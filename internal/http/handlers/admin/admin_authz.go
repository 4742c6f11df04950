package admin

import (
	"github.com/maronglamin/snap-admin-sub004/internal/http/response"
	"github.com/maronglamin/snap-admin-sub004/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAuthzCatalog 返回实体类型与动作枚举
func (h *Handler) GetAuthzCatalog(c *gin.Context) {
	response.Success(c, h.RoleService.Catalog())
}

// ListAuthzRoles 角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.RoleService.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, roles)
}

// CreateRoleRequest 创建角色请求
type CreateRoleRequest struct {
	Name  string `json:"name" binding:"required"`
	Label string `json:"label"`
}

// CreateAuthzRole 创建角色，新角色不含任何授权
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	role, err := h.RoleService.Create(c.Request.Context(), currentActor(c), service.CreateRoleInput{
		Name:  req.Name,
		Label: req.Label,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, role)
}

// UpdateRoleRequest 更新角色请求
type UpdateRoleRequest struct {
	Label    *string `json:"label"`
	IsActive *bool   `json:"is_active"`
}

// UpdateAuthzRole 更新角色
func (h *Handler) UpdateAuthzRole(c *gin.Context) {
	id, ok := parseIDParam(c, "error.bad_request")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	role, err := h.RoleService.Update(c.Request.Context(), currentActor(c), id, service.UpdateRoleInput{
		Label:    req.Label,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, role)
}

// GetAuthzRoleMatrix 角色权限矩阵
func (h *Handler) GetAuthzRoleMatrix(c *gin.Context) {
	id, ok := parseIDParam(c, "error.bad_request")
	if !ok {
		return
	}
	matrix, err := h.RoleService.Matrix(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, matrix)
}

// SetRoleMatrixRequest 批量设置矩阵格
type SetRoleMatrixRequest struct {
	Permissions []service.PermissionCell `json:"permissions" binding:"required"`
}

// SetAuthzRoleMatrix 设置角色权限矩阵，立即对在线会话生效
func (h *Handler) SetAuthzRoleMatrix(c *gin.Context) {
	id, ok := parseIDParam(c, "error.bad_request")
	if !ok {
		return
	}
	var req SetRoleMatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	matrix, err := h.RoleService.SetMatrix(c.Request.Context(), currentActor(c), id, req.Permissions)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, matrix)
}
