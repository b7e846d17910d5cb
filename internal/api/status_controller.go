package api

import (
	"net/http"

	"github.com/emerginginv/trace-aid-sub002/internal/service"
	"github.com/emerginginv/trace-aid-sub002/internal/utils"
	"github.com/gin-gonic/gin"
)

// StatusController 状态目录控制器
// 只读:状态、类别与锁定状态的查询
type StatusController struct {
	statusService service.StatusService
}

// NewStatusController 创建状态目录控制器
func NewStatusController(statusService service.StatusService) *StatusController {
	return &StatusController{
		statusService: statusService,
	}
}

// validateOrgID 验证组织 ID 并返回错误响应（如果无效）
func (c *StatusController) validateOrgID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateOrganizationID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid organization ID", err.Error())
		return false
	}
	return true
}

// ListStatuses 列出组织的状态
func (c *StatusController) ListStatuses(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	statuses, err := c.statusService.ListStatuses(orgID)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list statuses", err.Error())
		return
	}

	Success(ctx, statuses)
}

// ListCategories 列出组织的状态类别
func (c *StatusController) ListCategories(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	categories, err := c.statusService.ListCategories(orgID)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list status categories", err.Error())
		return
	}

	Success(ctx, categories)
}

// GetLockState 查询组织的锁定状态
func (c *StatusController) GetLockState(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	state, err := c.statusService.GetLockState(orgID)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get lock state", err.Error())
		return
	}

	Success(ctx, state)
}
