package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Rollbacker 回滚执行器
// 依据日志条目持久化的受影响记录集施加补偿写入:
// 回填 → 将记录的条目/案件外键重置为空;
// 时间戳 → 恢复日志中捕获的修复前快照;
// 转换同步(fill) → 删除日志记录的新建转换。
// 锁定与 override 同步不可经此机制回滚
type Rollbacker struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRollbacker 创建回滚执行器
func NewRollbacker(db *gorm.DB, logger *logrus.Logger) *Rollbacker {
	return &Rollbacker{db: db, logger: logger}
}

// Eligible 判断日志条目是否可回滚
// 仅限提交模式、已完成、非锁定步骤的条目;
// override 同步的前置快照无界,其恢复路径是重新执行,不提供回滚
func Eligible(entry *model.MigrationLogModel) error {
	if entry.DryRun {
		return fmt.Errorf("%w: dry-run entries have no effect to roll back", ErrRollbackNotSupported)
	}
	if entry.Status != model.LogStatusCompleted {
		return fmt.Errorf("%w: entry status is %s", ErrRollbackNotSupported, entry.Status)
	}

	switch entry.Step {
	case model.StepBackfill, model.StepFixTimestamps:
		return nil
	case model.StepSyncTransitions:
		var details SyncDetails
		if err := json.Unmarshal(entry.Details, &details); err != nil {
			return fmt.Errorf("failed to decode sync details: %w", err)
		}
		if details.Mode == string(SyncModeOverride) {
			return fmt.Errorf("%w: override sync is recomputed by re-running, not rolled back", ErrRollbackNotSupported)
		}
		return nil
	case model.StepToggleLock:
		return fmt.Errorf("%w: locking is not rollback-eligible", ErrRollbackNotSupported)
	default:
		return fmt.Errorf("%w: unknown step %s", ErrRollbackNotSupported, entry.Step)
	}
}

// Apply 施加补偿写入,返回受影响的记录数
// 所有补偿写入都是幂等的,重复施加不改变结果
func (r *Rollbacker) Apply(ctx context.Context, entry *model.MigrationLogModel) (int, error) {
	if err := Eligible(entry); err != nil {
		return 0, err
	}

	db := r.db.WithContext(ctx)

	switch entry.Step {
	case model.StepBackfill:
		return r.applyBackfill(db, entry)
	case model.StepFixTimestamps:
		return r.applyTimestamps(db, entry)
	case model.StepSyncTransitions:
		return r.applySyncFill(db, entry)
	}
	return 0, ErrRollbackNotSupported
}

// applyBackfill 将回填过的外键重置为空
func (r *Rollbacker) applyBackfill(db *gorm.DB, entry *model.MigrationLogModel) (int, error) {
	var details BackfillDetails
	if err := json.Unmarshal(entry.Details, &details); err != nil {
		return 0, fmt.Errorf("failed to decode backfill details: %w", err)
	}

	affected := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		// 只重置仍持有外键的行,重复施加不再计数
		if len(details.EntryIDs) > 0 {
			res := tx.Model(&model.StatusHistoryModel{}).
				Where("id IN ? AND organization_id = ? AND status_id IS NOT NULL", details.EntryIDs, entry.OrganizationID).
				Update("status_id", nil)
			if res.Error != nil {
				return res.Error
			}
			affected += int(res.RowsAffected)
		}
		if len(details.CaseIDs) > 0 {
			if err := tx.Model(&model.CaseModel{}).
				Where("id IN ? AND organization_id = ? AND status_id IS NOT NULL", details.CaseIDs, entry.OrganizationID).
				Update("status_id", nil).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to roll back backfill: %w", err)
	}
	return affected, nil
}

// applyTimestamps 恢复时间戳修复前的快照
func (r *Rollbacker) applyTimestamps(db *gorm.DB, entry *model.MigrationLogModel) (int, error) {
	var details TimestampDetails
	if err := json.Unmarshal(entry.Details, &details); err != nil {
		return 0, fmt.Errorf("failed to decode timestamp details: %w", err)
	}

	affected := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, pre := range details.PreImages {
			var current model.StatusHistoryModel
			err := tx.Where("id = ? AND organization_id = ?", pre.EntryID, entry.OrganizationID).
				First(&current).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			// 已恢复到快照的条目不再改写,重复施加不计数
			if timePtrEqual(current.ExitedAt, pre.PrevExitedAt) && int64PtrEqual(current.DurationSeconds, pre.PrevDuration) {
				continue
			}

			if err := tx.Model(&model.StatusHistoryModel{}).
				Where("id = ? AND organization_id = ?", pre.EntryID, entry.OrganizationID).
				Updates(map[string]interface{}{
					"exited_at":        pre.PrevExitedAt,
					"duration_seconds": pre.PrevDuration,
				}).Error; err != nil {
				return err
			}
			affected++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to roll back timestamps: %w", err)
	}
	return affected, nil
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// applySyncFill 删除 fill 模式新建的转换记录
func (r *Rollbacker) applySyncFill(db *gorm.DB, entry *model.MigrationLogModel) (int, error) {
	var details SyncDetails
	if err := json.Unmarshal(entry.Details, &details); err != nil {
		return 0, fmt.Errorf("failed to decode sync details: %w", err)
	}
	if len(details.CreatedIDs) == 0 {
		return 0, nil
	}

	res := db.Where("id IN ? AND organization_id = ?", details.CreatedIDs, entry.OrganizationID).
		Delete(&model.CategoryTransitionModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to roll back transitions: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
