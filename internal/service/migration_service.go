package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/metrics"
	"github.com/emerginginv/trace-aid-sub002/internal/migration"
	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/emerginginv/trace-aid-sub002/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// 最近日志列表的数量边界
const (
	defaultLogLimit = 20
	maxLogLimit     = 100
)

// MigrationService 迁移服务接口
// 操作面板面向的全部逻辑调用:五步管道、独立转换同步、回滚与日志查询
type MigrationService interface {
	Validate(ctx context.Context, orgID string) (*migration.ValidationResult, error)
	Backfill(ctx context.Context, orgID string, dryRun bool) (*migration.BackfillResult, error)
	FixTimestamps(ctx context.Context, orgID string, dryRun bool) (*migration.TimestampResult, error)
	SyncTransitions(ctx context.Context, orgID string, mode migration.SyncMode, confirm bool, dryRun bool) (*migration.SyncResult, error)
	ToggleLock(ctx context.Context, orgID string, enable bool) (*model.LockStateModel, error)
	Rollback(ctx context.Context, logID string) (*model.MigrationLogModel, error)
	ListRecentLogs(orgID string, limit int) ([]*model.MigrationLogModel, error)
	PipelineState(orgID string) (migration.PipelineStage, error)
}

// migrationService 迁移服务实现
// 提交模式调用先取步骤锁,执行后追加迁移日志并记录审计与指标;
// 干跑不取锁也照常记日志(带 dry_run 标志)
type migrationService struct {
	validator   *migration.Validator
	backfill    *migration.Backfill
	timestamps  *migration.TimestampReconciler
	transitions *migration.TransitionRebuilder
	lockCtrl    *migration.LockController
	rollbacker  *migration.Rollbacker
	pipeline    *migration.Pipeline
	stepLocker  *migration.StepLocker
	logRepo     repository.MigrationLogRepository
	auditSvc    AuditLogService
	logger      *logrus.Logger
}

// NewMigrationService 创建迁移服务
func NewMigrationService(
	db *gorm.DB,
	logRepo repository.MigrationLogRepository,
	lockRepo repository.LockStateRepository,
	auditSvc AuditLogService,
	logger *logrus.Logger,
) MigrationService {
	return &migrationService{
		validator:   migration.NewValidator(db),
		backfill:    migration.NewBackfill(db, logger),
		timestamps:  migration.NewTimestampReconciler(db, logger),
		transitions: migration.NewTransitionRebuilder(db, logger),
		lockCtrl:    migration.NewLockController(lockRepo, logger),
		rollbacker:  migration.NewRollbacker(db, logger),
		pipeline:    migration.NewPipeline(logRepo, lockRepo),
		stepLocker:  migration.NewStepLocker(db),
		logRepo:     logRepo,
		auditSvc:    auditSvc,
		logger:      logger,
	}
}

// Validate 刷新完整性计数
// 只读,不取锁不记迁移日志,迁移中途随时可调
func (s *migrationService) Validate(ctx context.Context, orgID string) (*migration.ValidationResult, error) {
	return s.validator.Validate(ctx, orgID)
}

// Backfill 执行回填步骤
func (s *migrationService) Backfill(ctx context.Context, orgID string, dryRun bool) (*migration.BackfillResult, error) {
	operator := getUserIDFromContext(ctx)
	started := time.Now()

	if !dryRun {
		release, err := s.stepLocker.Acquire(orgID, model.StepBackfill, operator)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	result, err := s.backfill.Run(ctx, orgID, dryRun)
	if err != nil {
		s.appendLog(ctx, logEntry{
			orgID: orgID, step: model.StepBackfill, dryRun: dryRun,
			status: model.LogStatusFailed, operator: operator, startedAt: started,
		})
		metrics.RecordMigrationStep(model.StepBackfill, dryRun, "failed")
		return nil, err
	}

	s.appendLog(ctx, logEntry{
		orgID: orgID, step: model.StepBackfill, dryRun: dryRun,
		affected: result.Updated, errors: result.Errors,
		status: model.LogStatusCompleted, operator: operator, startedAt: started,
		details: migration.BackfillDetails{EntryIDs: result.EntryIDs, CaseIDs: result.CaseIDs},
	})
	metrics.RecordMigrationStep(model.StepBackfill, dryRun, "completed")
	metrics.AddRecordsAffected(model.StepBackfill, result.Updated)
	return result, nil
}

// FixTimestamps 执行时间戳修复步骤
func (s *migrationService) FixTimestamps(ctx context.Context, orgID string, dryRun bool) (*migration.TimestampResult, error) {
	operator := getUserIDFromContext(ctx)
	started := time.Now()

	if !dryRun {
		release, err := s.stepLocker.Acquire(orgID, model.StepFixTimestamps, operator)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	result, err := s.timestamps.Run(ctx, orgID, dryRun)
	if err != nil {
		s.appendLog(ctx, logEntry{
			orgID: orgID, step: model.StepFixTimestamps, dryRun: dryRun,
			status: model.LogStatusFailed, operator: operator, startedAt: started,
		})
		metrics.RecordMigrationStep(model.StepFixTimestamps, dryRun, "failed")
		return nil, err
	}

	s.appendLog(ctx, logEntry{
		orgID: orgID, step: model.StepFixTimestamps, dryRun: dryRun,
		affected: result.EntriesFixed, errors: result.Errors,
		status: model.LogStatusCompleted, operator: operator, startedAt: started,
		details: migration.TimestampDetails{PreImages: result.PreImages},
	})
	metrics.RecordMigrationStep(model.StepFixTimestamps, dryRun, "completed")
	metrics.AddRecordsAffected(model.StepFixTimestamps, result.EntriesFixed)
	return result, nil
}

// SyncTransitions 执行类别转换同步
// 管道步骤 4 与批量导入后的日常对账共用此入口
func (s *migrationService) SyncTransitions(ctx context.Context, orgID string, mode migration.SyncMode, confirm bool, dryRun bool) (*migration.SyncResult, error) {
	operator := getUserIDFromContext(ctx)
	started := time.Now()

	if !dryRun {
		release, err := s.stepLocker.Acquire(orgID, model.StepSyncTransitions, operator)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	result, err := s.transitions.Run(ctx, orgID, mode, confirm, dryRun)
	if err != nil {
		// 模式与确认标志的拒绝发生在执行前,不留日志
		if errors.Is(err, migration.ErrInvalidSyncMode) || errors.Is(err, migration.ErrMissingConfirmation) {
			return nil, err
		}
		s.appendLog(ctx, logEntry{
			orgID: orgID, step: model.StepSyncTransitions, dryRun: dryRun,
			status: model.LogStatusFailed, operator: operator, startedAt: started,
		})
		metrics.RecordMigrationStep(model.StepSyncTransitions, dryRun, "failed")
		return nil, err
	}

	s.appendLog(ctx, logEntry{
		orgID: orgID, step: model.StepSyncTransitions, dryRun: dryRun,
		affected: result.TransitionsCreated + result.TransitionsDeleted,
		errors:   result.Errors, skipped: result.Skipped,
		status: model.LogStatusCompleted, operator: operator, startedAt: started,
		details: migration.SyncDetails{Mode: string(mode), CreatedIDs: result.CreatedIDs},
	})
	metrics.RecordMigrationStep(model.StepSyncTransitions, dryRun, "completed")
	metrics.AddRecordsAffected(model.StepSyncTransitions, result.TransitionsCreated)
	return result, nil
}

// ToggleLock 切换遗留字段锁定
// 终态动作:所有之前的步骤在提交模式下零差异后才应调用
func (s *migrationService) ToggleLock(ctx context.Context, orgID string, enable bool) (*model.LockStateModel, error) {
	operator := getUserIDFromContext(ctx)
	started := time.Now()

	release, err := s.stepLocker.Acquire(orgID, model.StepToggleLock, operator)
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := s.lockCtrl.Toggle(ctx, orgID, enable, operator)
	if err != nil {
		s.appendLog(ctx, logEntry{
			orgID: orgID, step: model.StepToggleLock,
			status: model.LogStatusFailed, operator: operator, startedAt: started,
		})
		metrics.RecordMigrationStep(model.StepToggleLock, false, "failed")
		return nil, err
	}

	s.appendLog(ctx, logEntry{
		orgID: orgID, step: model.StepToggleLock, affected: 1,
		status: model.LogStatusCompleted, operator: operator, startedAt: started,
		details: migration.LockDetails{Enable: enable},
	})
	metrics.RecordMigrationStep(model.StepToggleLock, false, "completed")
	metrics.SetOrganizationLocked(orgID, enable)
	return state, nil
}

// Rollback 回滚一次提交模式的步骤执行
// 幂等:再次调用返回既有的回滚条目,不重复施加补偿写入
func (s *migrationService) Rollback(ctx context.Context, logID string) (*model.MigrationLogModel, error) {
	operator := getUserIDFromContext(ctx)
	started := time.Now()

	source, err := s.logRepo.FindByID(logID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.logRepo.FindRollbackOf(logID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	if err := migration.Eligible(source); err != nil {
		return nil, err
	}

	// 与同步骤的并发提交互斥,回滚触碰同一批数据
	release, err := s.stepLocker.Acquire(source.OrganizationID, source.Step, operator)
	if err != nil {
		return nil, err
	}
	defer release()

	affected, err := s.rollbacker.Apply(ctx, source)
	if err != nil {
		return nil, err
	}

	entry := s.appendLog(ctx, logEntry{
		orgID: source.OrganizationID, step: source.Step, affected: affected,
		status: model.LogStatusRolledBack, operator: operator,
		sourceLogID: logID, startedAt: started,
		details: migration.RollbackDetails{SourceLogID: logID, SourceStep: source.Step},
	})
	metrics.RecordMigrationStep(source.Step, false, "rolled_back")
	return entry, nil
}

// ListRecentLogs 返回组织最近的迁移日志
// limit 超界时收敛到默认边界
func (s *migrationService) ListRecentLogs(orgID string, limit int) ([]*model.MigrationLogModel, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	return s.logRepo.ListRecent(orgID, limit)
}

// PipelineState 返回服务端推导的管道阶段
func (s *migrationService) PipelineState(orgID string) (migration.PipelineStage, error) {
	return s.pipeline.State(orgID)
}

// logEntry 一次步骤调用的日志参数
type logEntry struct {
	orgID       string
	step        string
	dryRun      bool
	affected    int
	errors      int
	skipped     int
	status      string
	operator    string
	sourceLogID string
	startedAt   time.Time
	details     interface{}
}

// appendLog 追加迁移日志并记录审计
// 日志失败不中断主流程,只记录告警:步骤效果已经落库
func (s *migrationService) appendLog(ctx context.Context, e logEntry) *model.MigrationLogModel {
	var detailsJSON []byte
	if e.details != nil {
		detailsJSON, _ = json.Marshal(e.details)
	}

	entry := &model.MigrationLogModel{
		ID:              uuid.New().String(),
		OrganizationID:  e.orgID,
		Step:            e.step,
		DryRun:          e.dryRun,
		RecordsAffected: e.affected,
		Errors:          e.errors,
		Skipped:         e.skipped,
		Status:          e.status,
		Operator:        e.operator,
		SourceLogID:     e.sourceLogID,
		Details:         detailsJSON,
		StartedAt:       e.startedAt,
		FinishedAt:      time.Now(),
	}

	if err := s.logRepo.Append(entry); err != nil {
		if s.logger != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"organization_id": e.orgID,
				"step":            e.step,
			}).Error("failed to append migration log")
		}
		return entry
	}

	if s.auditSvc != nil && e.operator != "" {
		_ = s.auditSvc.RecordAction(ctx, e.operator, e.step, "organization", e.orgID, map[string]interface{}{
			"log_id":           entry.ID,
			"dry_run":          e.dryRun,
			"records_affected": e.affected,
			"errors":           e.errors,
			"status":           e.status,
		})
	}

	return entry
}
