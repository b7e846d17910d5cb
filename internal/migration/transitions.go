package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TransitionRebuilder 类别转换重建
// 管道步骤 4 与独立同步工具共用同一实现:
// 按案件遍历有序历史,相邻条目类别不同处产生一条转换记录
type TransitionRebuilder struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewTransitionRebuilder 创建类别转换重建器
func NewTransitionRebuilder(db *gorm.DB, logger *logrus.Logger) *TransitionRebuilder {
	return &TransitionRebuilder{db: db, logger: logger}
}

// desiredTransition 从历史推导出的应有转换
type desiredTransition struct {
	fromCategoryID string
	toCategoryID   string
	transitionedAt time.Time
}

// Run 执行类别转换同步
// fill 模式只插入缺失项,已有记录绝不触碰,transitions_deleted 恒为 0;
// override 模式删除范围内全部转换后重算,提交前必须带确认标志;
// 存在未回填 status_id 的案件被跳过(计入 skipped,不算错误)
func (r *TransitionRebuilder) Run(ctx context.Context, orgID string, mode SyncMode, confirm bool, dryRun bool) (*SyncResult, error) {
	if !mode.Valid() {
		return nil, ErrInvalidSyncMode
	}
	if mode == SyncModeOverride && !dryRun && !confirm {
		return nil, ErrMissingConfirmation
	}

	db := r.db.WithContext(ctx)
	result := &SyncResult{
		OverrideMode: mode == SyncModeOverride,
		DryRun:       dryRun,
	}

	categoryByStatus, err := r.loadCategoryIndex(db, orgID)
	if err != nil {
		return nil, err
	}

	caseIDs, err := historyCaseIDs(db, orgID)
	if err != nil {
		return nil, err
	}

	for _, caseID := range caseIDs {
		if err := r.syncCase(db, orgID, caseID, mode, dryRun, categoryByStatus, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// loadCategoryIndex 建立状态 ID 到类别 ID 的索引
func (r *TransitionRebuilder) loadCategoryIndex(db *gorm.DB, orgID string) (map[string]string, error) {
	var statuses []*model.StatusModel
	if err := db.Where("organization_id = ?", orgID).Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("failed to load status catalog: %w", err)
	}

	index := make(map[string]string, len(statuses))
	for _, s := range statuses {
		index[s.ID] = s.CategoryID
	}
	return index, nil
}

// syncCase 同步单个案件的类别转换记录
func (r *TransitionRebuilder) syncCase(db *gorm.DB, orgID string, caseID string, mode SyncMode, dryRun bool, categoryByStatus map[string]string, result *SyncResult) error {
	var entries []*model.StatusHistoryModel
	if err := db.Where("case_id = ? AND organization_id = ?", caseID, orgID).
		Order("entered_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return fmt.Errorf("failed to load history for case %s: %w", caseID, err)
	}

	// 回填未完成的案件尚不可处理,跳过而非报错
	for _, entry := range entries {
		if entry.StatusID == nil {
			result.Skipped++
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{
					"organization_id": orgID,
					"case_id":         caseID,
				}).Debug("case skipped, backfill incomplete")
			}
			return nil
		}
		if _, ok := categoryByStatus[*entry.StatusID]; !ok {
			result.Skipped++
			return nil
		}
	}

	desired := deriveTransitions(entries, categoryByStatus)
	result.CasesProcessed++

	var existing []*model.CategoryTransitionModel
	if err := db.Where("case_id = ? AND organization_id = ?", caseID, orgID).
		Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load transitions for case %s: %w", caseID, err)
	}

	switch mode {
	case SyncModeFill:
		return r.fillCase(db, orgID, caseID, desired, existing, dryRun, result)
	case SyncModeOverride:
		return r.overrideCase(db, orgID, caseID, desired, existing, dryRun, result)
	}
	return nil
}

// fillCase 只插入在该时间点尚无转换记录的缺失项
func (r *TransitionRebuilder) fillCase(db *gorm.DB, orgID string, caseID string, desired []desiredTransition, existing []*model.CategoryTransitionModel, dryRun bool, result *SyncResult) error {
	existingAt := make(map[int64]bool, len(existing))
	for _, t := range existing {
		existingAt[t.TransitionedAt.UnixNano()] = true
	}

	var missing []desiredTransition
	for _, d := range desired {
		if !existingAt[d.transitionedAt.UnixNano()] {
			missing = append(missing, d)
		}
	}

	result.TransitionsCreated += len(missing)
	if dryRun || len(missing) == 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, d := range missing {
			record := newTransitionRecord(orgID, caseID, d)
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("failed to create transition for case %s: %w", caseID, err)
			}
			result.CreatedIDs = append(result.CreatedIDs, record.ID)
		}
		return nil
	})
}

// overrideCase 删除案件的全部转换记录后按当前历史全量重算
func (r *TransitionRebuilder) overrideCase(db *gorm.DB, orgID string, caseID string, desired []desiredTransition, existing []*model.CategoryTransitionModel, dryRun bool, result *SyncResult) error {
	result.TransitionsDeleted += len(existing)
	result.TransitionsCreated += len(desired)
	if dryRun {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("case_id = ? AND organization_id = ?", caseID, orgID).
			Delete(&model.CategoryTransitionModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete transitions for case %s: %w", caseID, err)
		}
		for _, d := range desired {
			record := newTransitionRecord(orgID, caseID, d)
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("failed to create transition for case %s: %w", caseID, err)
			}
			result.CreatedIDs = append(result.CreatedIDs, record.ID)
		}
		return nil
	})
}

// deriveTransitions 从有序历史推导应有的类别转换集合
// 相邻条目解析出的类别不同时产生一条转换,时间取后一条的 entered_at
func deriveTransitions(entries []*model.StatusHistoryModel, categoryByStatus map[string]string) []desiredTransition {
	var transitions []desiredTransition
	for i := 1; i < len(entries); i++ {
		fromCat := categoryByStatus[*entries[i-1].StatusID]
		toCat := categoryByStatus[*entries[i].StatusID]
		if fromCat == toCat {
			continue
		}
		transitions = append(transitions, desiredTransition{
			fromCategoryID: fromCat,
			toCategoryID:   toCat,
			transitionedAt: entries[i].EnteredAt,
		})
	}
	return transitions
}

// newTransitionRecord 构造一条类别转换记录
func newTransitionRecord(orgID string, caseID string, d desiredTransition) *model.CategoryTransitionModel {
	from := d.fromCategoryID
	return &model.CategoryTransitionModel{
		ID:             uuid.New().String(),
		CaseID:         caseID,
		OrganizationID: orgID,
		FromCategoryID: &from,
		ToCategoryID:   d.toCategoryID,
		TransitionedAt: d.transitionedAt,
		CreatedAt:      time.Now(),
	}
}
