package migration

import (
	"context"
	"fmt"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TimestampReconciler 时间戳修复步骤
// 依据台账排序重算 exited_at 与持续时长:
// 除最后一条外,每条的 exited_at 等于下一条的 entered_at;最后一条为空
type TimestampReconciler struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewTimestampReconciler 创建时间戳修复步骤
func NewTimestampReconciler(db *gorm.DB, logger *logrus.Logger) *TimestampReconciler {
	return &TimestampReconciler{db: db, logger: logger}
}

// Run 执行时间戳修复
// 同一案件内的条目按 entered_at 串行处理;案件之间无顺序依赖;
// 同案件出现相同 entered_at 时属于无法机械修复的时序冲突,
// 整个案件计入错误并留待人工处理,不猜测顺序;
// 幂等:数据正确时第二次运行报告零修复
func (t *TimestampReconciler) Run(ctx context.Context, orgID string, dryRun bool) (*TimestampResult, error) {
	db := t.db.WithContext(ctx)
	result := &TimestampResult{DryRun: dryRun}

	caseIDs, err := historyCaseIDs(db, orgID)
	if err != nil {
		return nil, err
	}

	for _, caseID := range caseIDs {
		if err := t.reconcileCase(db, orgID, caseID, dryRun, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// reconcileCase 修复单个案件的历史时间戳
// 提交模式下整个案件是一个事务,对应规格要求的小原子单元
func (t *TimestampReconciler) reconcileCase(db *gorm.DB, orgID string, caseID string, dryRun bool, result *TimestampResult) error {
	var entries []*model.StatusHistoryModel
	if err := db.Where("case_id = ? AND organization_id = ?", caseID, orgID).
		Order("entered_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return fmt.Errorf("failed to load history for case %s: %w", caseID, err)
	}
	if len(entries) == 0 {
		return nil
	}

	// 相同 entered_at 无法确定先后,计为时序冲突,案件整体跳过
	for i := 0; i < len(entries)-1; i++ {
		if entries[i].EnteredAt.Equal(entries[i+1].EnteredAt) {
			result.Errors++
			if t.logger != nil {
				t.logger.WithFields(logrus.Fields{
					"organization_id": orgID,
					"case_id":         caseID,
					"entered_at":      entries[i].EnteredAt,
				}).Warn("ordering violation, case left for manual review")
			}
			return nil
		}
	}

	type fix struct {
		entry *model.StatusHistoryModel
		next  *model.StatusHistoryModel // 后继条目,nil 表示当前条目
	}
	var fixes []fix

	for i, entry := range entries {
		var wantExited *model.StatusHistoryModel
		if i < len(entries)-1 {
			wantExited = entries[i+1]
		}
		if timestampNeedsFix(entry, wantExited) {
			fixes = append(fixes, fix{entry: entry, next: wantExited})
		}
	}

	if len(fixes) == 0 {
		return nil
	}

	if dryRun {
		result.EntriesFixed += len(fixes)
		return nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, f := range fixes {
			updates := map[string]interface{}{
				"exited_at":        nil,
				"duration_seconds": nil,
			}
			if f.next != nil {
				exited := f.next.EnteredAt
				duration := int64(exited.Sub(f.entry.EnteredAt).Seconds())
				updates["exited_at"] = exited
				updates["duration_seconds"] = duration
			}
			if err := tx.Model(&model.StatusHistoryModel{}).
				Where("id = ?", f.entry.ID).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to fix timestamps for case %s: %w", caseID, err)
	}

	for _, f := range fixes {
		result.PreImages = append(result.PreImages, TimestampPreImage{
			EntryID:      f.entry.ID,
			PrevExitedAt: f.entry.ExitedAt,
			PrevDuration: f.entry.DurationSeconds,
		})
	}
	result.EntriesFixed += len(fixes)
	return nil
}

// timestampNeedsFix 判断条目的 exited_at/duration 是否偏离台账推导值
func timestampNeedsFix(entry *model.StatusHistoryModel, next *model.StatusHistoryModel) bool {
	if next == nil {
		// 最后一条:exited_at 与 duration 都必须为空
		return entry.ExitedAt != nil || entry.DurationSeconds != nil
	}

	want := next.EnteredAt
	if entry.ExitedAt == nil || !entry.ExitedAt.Equal(want) {
		return true
	}
	wantDuration := int64(want.Sub(entry.EnteredAt).Seconds())
	return entry.DurationSeconds == nil || *entry.DurationSeconds != wantDuration
}

// historyCaseIDs 返回组织内拥有历史条目的案件 ID 集合
func historyCaseIDs(db *gorm.DB, orgID string) ([]string, error) {
	var caseIDs []string
	if err := db.Model(&model.StatusHistoryModel{}).
		Where("organization_id = ?", orgID).
		Distinct("case_id").
		Order("case_id ASC").
		Pluck("case_id", &caseIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to list cases with history: %w", err)
	}
	return caseIDs, nil
}
