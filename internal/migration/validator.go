package migration

import (
	"context"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"gorm.io/gorm"
)

// Validator 完整性校验器
// 纯读取,无副作用,迁移中途随时可调;作为步骤 1 也作为每步之后的健康检查
type Validator struct {
	db *gorm.DB
}

// NewValidator 创建校验器
func NewValidator(db *gorm.DB) *Validator {
	return &Validator{db: db}
}

// Validate 计算遗留与规范表示之间的完整性计数
// 空组织返回全零,不报错
func (v *Validator) Validate(ctx context.Context, orgID string) (*ValidationResult, error) {
	db := v.db.WithContext(ctx)
	result := &ValidationResult{}

	if err := db.Model(&model.CaseModel{}).
		Where("organization_id = ?", orgID).
		Count(&result.TotalCases).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&model.StatusHistoryModel{}).
		Where("organization_id = ?", orgID).
		Count(&result.TotalHistoryEntries).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&model.StatusHistoryModel{}).
		Where("organization_id = ? AND status_id IS NOT NULL", orgID).
		Count(&result.HistoryWithStatusID).Error; err != nil {
		return nil, err
	}
	result.HistoryWithoutStatusID = result.TotalHistoryEntries - result.HistoryWithStatusID

	if err := db.Model(&model.CategoryTransitionModel{}).
		Where("organization_id = ?", orgID).
		Count(&result.CategoryTransitions).Error; err != nil {
		return nil, err
	}

	return result, nil
}
