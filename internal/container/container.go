package container

import (
	"fmt"
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/config"
	"github.com/emerginginv/trace-aid-sub002/internal/database"
	"github.com/emerginginv/trace-aid-sub002/internal/repository"
	"github.com/emerginginv/trace-aid-sub002/internal/service"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理数据库连接、仓储与服务的装配
type Container struct {
	db               *gorm.DB
	logger           *logrus.Logger
	migrationService service.MigrationService
	statusService    service.StatusService
	caseService      service.CaseService
	auditService     service.AuditLogService
	logRepo          repository.MigrationLogRepository
	lockRepo         repository.LockStateRepository
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	// 1. 初始化数据库（带重试机制）
	// 默认重试 3 次，初始间隔 1 秒，指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移（含索引创建）
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return NewContainerWithDB(db, logger), nil
}

// NewContainerWithDB 基于已有数据库连接装配容器（用于测试）
func NewContainerWithDB(db *gorm.DB, logger *logrus.Logger) *Container {
	// 仓储层
	logRepo := repository.NewMigrationLogRepository(db)
	lockRepo := repository.NewLockStateRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	statusRepo := repository.NewStatusRepository(db)
	categoryRepo := repository.NewStatusCategoryRepository(db)
	caseRepo := repository.NewCaseRepository(db, lockRepo)
	historyRepo := repository.NewStatusHistoryRepository(db)

	// 服务层
	auditService := service.NewAuditLogService(auditRepo)
	migrationService := service.NewMigrationService(db, logRepo, lockRepo, auditService, logger)
	statusService := service.NewStatusService(statusRepo, categoryRepo, lockRepo)
	caseService := service.NewCaseService(caseRepo, historyRepo, statusRepo, auditService)

	return &Container{
		db:               db,
		logger:           logger,
		migrationService: migrationService,
		statusService:    statusService,
		caseService:      caseService,
		auditService:     auditService,
		logRepo:          logRepo,
		lockRepo:         lockRepo,
	}
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Logger 获取日志记录器
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// MigrationService 获取迁移服务
func (c *Container) MigrationService() service.MigrationService {
	return c.migrationService
}

// StatusService 获取状态目录服务
func (c *Container) StatusService() service.StatusService {
	return c.statusService
}

// CaseService 获取案件服务
func (c *Container) CaseService() service.CaseService {
	return c.caseService
}

// AuditService 获取审计日志服务
func (c *Container) AuditService() service.AuditLogService {
	return c.auditService
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
