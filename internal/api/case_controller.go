package api

import (
	"errors"
	"net/http"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/emerginginv/trace-aid-sub002/internal/service"
	"github.com/emerginginv/trace-aid-sub002/internal/utils"
	"github.com/gin-gonic/gin"
)

// CaseController 案件控制器
// 迁移期间的案件读写面与状态历史查询
type CaseController struct {
	caseService service.CaseService
}

// NewCaseController 创建案件控制器
func NewCaseController(caseService service.CaseService) *CaseController {
	return &CaseController{
		caseService: caseService,
	}
}

// CaseRequest 案件保存请求
type CaseRequest struct {
	Title           string `json:"title"`
	LegacyStatus    string `json:"legacy_status"`
	LegacyStatusKey string `json:"legacy_status_key"`
}

// ChangeStatusRequest 状态变更请求
type ChangeStatusRequest struct {
	StatusID string `json:"status_id" binding:"required"`
}

// validateOrgID 验证组织 ID 并返回错误响应（如果无效）
func (c *CaseController) validateOrgID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateOrganizationID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid organization ID", err.Error())
		return false
	}
	return true
}

// validateCaseID 验证案件 ID 并返回错误响应（如果无效）
func (c *CaseController) validateCaseID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateCaseID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid case ID", err.Error())
		return false
	}
	return true
}

// handleCaseError 将服务层错误映射为 HTTP 响应
func (c *CaseController) handleCaseError(ctx *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, service.ErrCaseNotFound):
		Error(ctx, http.StatusNotFound, "case not found", err.Error())
	case errors.Is(err, service.ErrStatusNotFound):
		Error(ctx, http.StatusNotFound, "status not found", err.Error())
	case errors.Is(err, model.ErrFieldLocked):
		Error(ctx, http.StatusLocked, "legacy status fields are locked", err.Error())
	default:
		Error(ctx, http.StatusInternalServerError, message, err.Error())
	}
}

// ListCases 列出组织内的案件
func (c *CaseController) ListCases(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	cases, err := c.caseService.ListCases(orgID)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list cases", err.Error())
		return
	}

	Success(ctx, cases)
}

// GetCase 查询单个案件
func (c *CaseController) GetCase(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	caseID := ctx.Param("caseId")
	if !c.validateOrgID(ctx, orgID) || !c.validateCaseID(ctx, caseID) {
		return
	}

	result, err := c.caseService.GetCase(orgID, caseID)
	if err != nil {
		c.handleCaseError(ctx, err, "failed to get case")
		return
	}

	Success(ctx, result)
}

// SaveCase 保存案件
// 锁定生效后对遗留状态字段的写入返回 423
func (c *CaseController) SaveCase(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	caseID := ctx.Param("caseId")
	if !c.validateOrgID(ctx, orgID) || !c.validateCaseID(ctx, caseID) {
		return
	}

	var req CaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	existing, err := c.caseService.GetCase(orgID, caseID)
	switch {
	case err == nil:
		existing.Title = req.Title
		existing.LegacyStatus = req.LegacyStatus
		existing.LegacyStatusKey = req.LegacyStatusKey
	case errors.Is(err, service.ErrCaseNotFound):
		existing = &model.CaseModel{
			ID:              caseID,
			OrganizationID:  orgID,
			Title:           req.Title,
			LegacyStatus:    req.LegacyStatus,
			LegacyStatusKey: req.LegacyStatusKey,
		}
	default:
		Error(ctx, http.StatusInternalServerError, "failed to get case", err.Error())
		return
	}

	if err := c.caseService.SaveCase(existing); err != nil {
		c.handleCaseError(ctx, err, "failed to save case")
		return
	}

	Success(ctx, existing)
}

// ChangeStatus 变更案件的规范状态
func (c *CaseController) ChangeStatus(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	caseID := ctx.Param("caseId")
	if !c.validateOrgID(ctx, orgID) || !c.validateCaseID(ctx, caseID) {
		return
	}

	var req ChangeStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := c.caseService.ChangeStatus(ctx.Request.Context(), orgID, caseID, req.StatusID)
	if err != nil {
		c.handleCaseError(ctx, err, "failed to change status")
		return
	}

	Success(ctx, result)
}

// History 查询案件的状态历史
func (c *CaseController) History(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	caseID := ctx.Param("caseId")
	if !c.validateOrgID(ctx, orgID) || !c.validateCaseID(ctx, caseID) {
		return
	}

	entries, err := c.caseService.History(orgID, caseID)
	if err != nil {
		c.handleCaseError(ctx, err, "failed to get case history")
		return
	}

	Success(ctx, entries)
}

// HistorySummary 查询组织状态历史的回填进度
func (c *CaseController) HistorySummary(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	summary, err := c.caseService.HistorySummary(orgID)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to get history summary", err.Error())
		return
	}

	Success(ctx, summary)
}
