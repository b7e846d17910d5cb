package migration

import (
	"context"
	"fmt"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Backfill 回填步骤
// 将历史条目与案件行上的遗留状态文本解析为状态目录中的规范外键;
// 精确名称匹配,解析不到的记录计入错误并跳过,绝不猜测
type Backfill struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewBackfill 创建回填步骤
func NewBackfill(db *gorm.DB, logger *logrus.Logger) *Backfill {
	return &Backfill{db: db, logger: logger}
}

// Run 执行回填
// 干跑与提交走同一条解析路径,计数逐位一致;
// 提交模式每条记录一个事务,进程崩溃最多丢失一条在途记录;
// 幂等:重跑只触碰仍未解析的行
func (b *Backfill) Run(ctx context.Context, orgID string, dryRun bool) (*BackfillResult, error) {
	db := b.db.WithContext(ctx)
	result := &BackfillResult{DryRun: dryRun}

	nameIndex, err := b.loadStatusIndex(db, orgID)
	if err != nil {
		return nil, err
	}

	var entries []*model.StatusHistoryModel
	if err := db.Where("organization_id = ? AND status_id IS NULL", orgID).
		Order("case_id ASC, entered_at ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load unresolved history entries: %w", err)
	}

	for _, entry := range entries {
		statusID, ok := nameIndex[entry.LegacyStatus]
		if !ok {
			result.Errors++
			if b.logger != nil {
				b.logger.WithFields(logrus.Fields{
					"organization_id": orgID,
					"entry_id":        entry.ID,
					"legacy_status":   entry.LegacyStatus,
				}).Warn("unresolved status text, entry skipped")
			}
			continue
		}

		if !dryRun {
			if err := b.commitEntry(db, orgID, entry, statusID); err != nil {
				return nil, fmt.Errorf("failed to backfill entry %s: %w", entry.ID, err)
			}
			result.EntryIDs = append(result.EntryIDs, entry.ID)
			if entry.ExitedAt == nil {
				result.CaseIDs = append(result.CaseIDs, entry.CaseID)
			}
		}
		result.Updated++
	}

	// 没有任何历史的案件:单独按案件自身的遗留文本回填外键,
	// 计数单位是历史条目,这里不计入 updated/errors
	if err := b.backfillBareCases(db, orgID, nameIndex, dryRun, result); err != nil {
		return nil, err
	}

	return result, nil
}

// loadStatusIndex 加载组织的状态目录,建立名称到 ID 的精确匹配索引
func (b *Backfill) loadStatusIndex(db *gorm.DB, orgID string) (map[string]string, error) {
	var statuses []*model.StatusModel
	if err := db.Where("organization_id = ?", orgID).Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("failed to load status catalog: %w", err)
	}

	index := make(map[string]string, len(statuses))
	for _, s := range statuses {
		index[s.Name] = s.ID
	}
	return index, nil
}

// commitEntry 在单个事务内写入一条历史条目的解析结果
// 条目为案件当前状态(exited_at 为空)时同步回填案件行,
// 保证崩溃后只存在完全解析或完全未解析的行
func (b *Backfill) commitEntry(db *gorm.DB, orgID string, entry *model.StatusHistoryModel, statusID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.StatusHistoryModel{}).
			Where("id = ? AND status_id IS NULL", entry.ID).
			Update("status_id", statusID).Error; err != nil {
			return err
		}

		if entry.ExitedAt == nil {
			if err := tx.Model(&model.CaseModel{}).
				Where("id = ? AND organization_id = ?", entry.CaseID, orgID).
				Update("status_id", statusID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// backfillBareCases 回填没有历史条目覆盖的案件行
func (b *Backfill) backfillBareCases(db *gorm.DB, orgID string, nameIndex map[string]string, dryRun bool, result *BackfillResult) error {
	var cases []*model.CaseModel
	if err := db.Where("organization_id = ? AND status_id IS NULL", orgID).
		Find(&cases).Error; err != nil {
		return fmt.Errorf("failed to load unresolved cases: %w", err)
	}

	for _, c := range cases {
		statusID, ok := nameIndex[c.LegacyStatus]
		if !ok {
			continue
		}
		if !dryRun {
			if err := db.Model(&model.CaseModel{}).
				Where("id = ? AND status_id IS NULL", c.ID).
				Update("status_id", statusID).Error; err != nil {
				return fmt.Errorf("failed to backfill case %s: %w", c.ID, err)
			}
			result.CaseIDs = append(result.CaseIDs, c.ID)
		}
	}
	return nil
}
