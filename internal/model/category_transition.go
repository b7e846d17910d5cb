package model

import (
	"errors"
	"time"
)

// CategoryTransitionModel 类别转换数据模型
// 派生记录:由相邻状态历史条目的类别差异推导,只能重算,不能手工编辑
type CategoryTransitionModel struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)"`
	CaseID         string    `gorm:"type:varchar(64);not null;index"`
	OrganizationID string    `gorm:"type:varchar(64);not null;index"`
	FromCategoryID *string   `gorm:"type:varchar(64)"`
	ToCategoryID   string    `gorm:"type:varchar(64);not null"`
	TransitionedAt time.Time `gorm:"not null;index"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName 指定表名
func (CategoryTransitionModel) TableName() string {
	return "category_transitions"
}

// Validate 验证类别转换模型
func (ctm *CategoryTransitionModel) Validate() error {
	if ctm.ID == "" {
		return errors.New("transition ID is required")
	}
	if ctm.CaseID == "" {
		return errors.New("case ID is required")
	}
	if ctm.OrganizationID == "" {
		return errors.New("organization ID is required")
	}
	if ctm.ToCategoryID == "" {
		return errors.New("to category ID is required")
	}
	if ctm.TransitionedAt.IsZero() {
		return errors.New("transitioned at is required")
	}
	return nil
}
