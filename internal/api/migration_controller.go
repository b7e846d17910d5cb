package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/emerginginv/trace-aid-sub002/internal/migration"
	"github.com/emerginginv/trace-aid-sub002/internal/repository"
	"github.com/emerginginv/trace-aid-sub002/internal/service"
	"github.com/emerginginv/trace-aid-sub002/internal/utils"
	"github.com/gin-gonic/gin"
)

// MigrationController 迁移控制器
// 暴露五步管道、独立转换同步、回滚、日志与近期操作查询
type MigrationController struct {
	migrationService service.MigrationService
	auditService     service.AuditLogService
}

// NewMigrationController 创建迁移控制器
func NewMigrationController(migrationService service.MigrationService, auditService service.AuditLogService) *MigrationController {
	return &MigrationController{
		migrationService: migrationService,
		auditService:     auditService,
	}
}

// StepRequest 步骤执行请求
type StepRequest struct {
	DryRun bool `json:"dry_run"`
}

// SyncRequest 转换同步请求
type SyncRequest struct {
	Mode    string `json:"mode"`
	Confirm bool   `json:"confirm"`
	DryRun  bool   `json:"dry_run"`
}

// LockRequest 锁定切换请求
type LockRequest struct {
	Enable *bool `json:"enable" binding:"required"`
}

// validateOrgID 验证组织 ID 并返回错误响应（如果无效）
func (c *MigrationController) validateOrgID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateOrganizationID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid organization ID", err.Error())
		return false
	}
	return true
}

// handleStepError 统一处理步骤执行错误
// 并发冲突、确认缺失、非法模式分别映射到对应状态码
func (c *MigrationController) handleStepError(ctx *gin.Context, err error, operation string) {
	switch {
	case errors.Is(err, migration.ErrConcurrentMigration):
		Error(ctx, http.StatusConflict, "migration already in progress", err.Error())
	case errors.Is(err, migration.ErrMissingConfirmation):
		Error(ctx, http.StatusBadRequest, "confirmation required", err.Error())
	case errors.Is(err, migration.ErrInvalidSyncMode):
		Error(ctx, http.StatusBadRequest, "invalid sync mode", err.Error())
	case errors.Is(err, migration.ErrRollbackNotSupported):
		Error(ctx, http.StatusBadRequest, "rollback not supported", err.Error())
	case errors.Is(err, repository.ErrLogNotFound):
		Error(ctx, http.StatusNotFound, "migration log not found", err.Error())
	default:
		Error(ctx, http.StatusInternalServerError, "failed to "+operation, err.Error())
	}
}

// Validate 刷新迁移前完整性计数
func (c *MigrationController) Validate(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	result, err := c.migrationService.Validate(ctx.Request.Context(), orgID)
	if err != nil {
		c.handleStepError(ctx, err, "validate organization")
		return
	}

	Success(ctx, result)
}

// Backfill 执行状态回填
func (c *MigrationController) Backfill(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	var req StepRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.migrationService.Backfill(ctx.Request.Context(), orgID, req.DryRun)
	if err != nil {
		c.handleStepError(ctx, err, "backfill statuses")
		return
	}

	Success(ctx, result)
}

// FixTimestamps 执行时间戳修复
func (c *MigrationController) FixTimestamps(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	var req StepRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	result, err := c.migrationService.FixTimestamps(ctx.Request.Context(), orgID, req.DryRun)
	if err != nil {
		c.handleStepError(ctx, err, "fix timestamps")
		return
	}

	Success(ctx, result)
}

// SyncTransitions 执行类别转换同步
func (c *MigrationController) SyncTransitions(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	var req SyncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if req.Mode == "" {
		req.Mode = string(migration.SyncModeFill)
	}

	result, err := c.migrationService.SyncTransitions(ctx.Request.Context(), orgID, migration.SyncMode(req.Mode), req.Confirm, req.DryRun)
	if err != nil {
		c.handleStepError(ctx, err, "sync transitions")
		return
	}

	Success(ctx, result)
}

// ToggleLock 切换遗留字段锁定
func (c *MigrationController) ToggleLock(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	var req LockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	state, err := c.migrationService.ToggleLock(ctx.Request.Context(), orgID, *req.Enable)
	if err != nil {
		c.handleStepError(ctx, err, "toggle lock")
		return
	}

	Success(ctx, state)
}

// Rollback 回滚一条迁移日志
func (c *MigrationController) Rollback(ctx *gin.Context) {
	logID := ctx.Param("logId")
	if err := utils.ValidateLogID(logID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid log ID", err.Error())
		return
	}

	entry, err := c.migrationService.Rollback(ctx.Request.Context(), logID)
	if err != nil {
		c.handleStepError(ctx, err, "rollback migration")
		return
	}

	Success(ctx, entry)
}

// ListLogs 查询组织最近的迁移日志
func (c *MigrationController) ListLogs(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "0"))

	logs, err := c.migrationService.ListRecentLogs(orgID, limit)
	if err != nil {
		c.handleStepError(ctx, err, "list migration logs")
		return
	}

	Success(ctx, logs)
}

// ListAuditLogs 列出组织上的近期操作者动作
func (c *MigrationController) ListAuditLogs(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "0"))

	logs, err := c.auditService.ListForOrganization(orgID, limit)
	if err != nil {
		Error(ctx, http.StatusInternalServerError, "failed to list audit logs", err.Error())
		return
	}

	Success(ctx, logs)
}

// Pipeline 查询服务端推导的管道阶段
func (c *MigrationController) Pipeline(ctx *gin.Context) {
	orgID := ctx.Param("orgId")
	if !c.validateOrgID(ctx, orgID) {
		return
	}

	stage, err := c.migrationService.PipelineState(orgID)
	if err != nil {
		c.handleStepError(ctx, err, "resolve pipeline state")
		return
	}

	Success(ctx, gin.H{"stage": stage})
}
