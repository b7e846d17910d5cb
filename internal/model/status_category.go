package model

import (
	"errors"
	"time"
)

// StatusCategoryModel 状态类别数据模型
// 类别是比单个状态更粗粒度的生命周期分组(如 Open/Pending/Closed)
type StatusCategoryModel struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)"`
	OrganizationID string    `gorm:"type:varchar(64);not null;index"`
	Name           string    `gorm:"type:varchar(128);not null"`
	Rank           int       `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName 指定表名
func (StatusCategoryModel) TableName() string {
	return "status_categories"
}

// Validate 验证状态类别模型
func (scm *StatusCategoryModel) Validate() error {
	if scm.ID == "" {
		return errors.New("category ID is required")
	}
	if scm.OrganizationID == "" {
		return errors.New("organization ID is required")
	}
	if scm.Name == "" {
		return errors.New("category name is required")
	}
	return nil
}
