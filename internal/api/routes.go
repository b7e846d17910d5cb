package api

import (
	"github.com/emerginginv/trace-aid-sub002/internal/auth"
	"github.com/emerginginv/trace-aid-sub002/internal/config"
	"github.com/emerginginv/trace-aid-sub002/internal/container"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, c *container.Container) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(ErrorHandlerMiddleware())
	router.Use(auth.IdentityMiddleware())
	if cfg != nil && len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	}
	if cfg != nil && cfg.RateLimit.RPS > 0 {
		router.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	// 健康检查
	healthController := NewHealthController(c.DB())
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	migrationController := NewMigrationController(c.MigrationService(), c.AuditService())
	statusController := NewStatusController(c.StatusService())
	caseController := NewCaseController(c.CaseService())

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		orgs := v1.Group("/organizations/:orgId")
		{
			// 迁移管道路由
			orgs.GET("/migration/validate", migrationController.Validate)
			orgs.POST("/migration/backfill", migrationController.Backfill)
			orgs.POST("/migration/timestamps", migrationController.FixTimestamps)
			orgs.POST("/migration/transitions", migrationController.SyncTransitions)
			orgs.POST("/migration/lock", migrationController.ToggleLock)
			orgs.GET("/migration/logs", migrationController.ListLogs)
			orgs.GET("/migration/pipeline", migrationController.Pipeline)
			orgs.GET("/migration/audit-logs", migrationController.ListAuditLogs)

			// 状态目录路由
			orgs.GET("/statuses", statusController.ListStatuses)
			orgs.GET("/status-categories", statusController.ListCategories)
			orgs.GET("/lock-state", statusController.GetLockState)

			// 案件路由
			orgs.GET("/cases", caseController.ListCases)
			orgs.GET("/cases/:caseId", caseController.GetCase)
			orgs.PUT("/cases/:caseId", caseController.SaveCase)
			orgs.POST("/cases/:caseId/status", caseController.ChangeStatus)
			orgs.GET("/cases/:caseId/history", caseController.History)
			orgs.GET("/history-summary", caseController.HistorySummary)
		}

		// 回滚按日志 ID 寻址,不限定组织
		v1.POST("/migration/logs/:logId/rollback", migrationController.Rollback)
	}

	return router
}
