package model

import (
	"errors"
	"time"
)

// StatusModel 规范状态定义数据模型
// 一旦被状态历史引用,状态的标识不可变更
type StatusModel struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)"`
	OrganizationID string    `gorm:"type:varchar(64);not null;index"`
	Name           string    `gorm:"type:varchar(255);not null"`
	CategoryID     string    `gorm:"type:varchar(64);not null;index"`
	Rank           int       `gorm:"not null;default:0"` // 显示顺序
	Active         bool      `gorm:"not null;default:true"`
	Reopenable     bool      `gorm:"not null;default:false"`
	ReadOnly       bool      `gorm:"not null;default:false"`
	FirstStatus    bool      `gorm:"not null;default:false"` // 新案件的初始状态
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName 指定表名
func (StatusModel) TableName() string {
	return "statuses"
}

// Validate 验证状态模型
func (sm *StatusModel) Validate() error {
	if sm.ID == "" {
		return errors.New("status ID is required")
	}
	if sm.OrganizationID == "" {
		return errors.New("organization ID is required")
	}
	if sm.Name == "" {
		return errors.New("status name is required")
	}
	if sm.CategoryID == "" {
		return errors.New("category ID is required")
	}
	return nil
}
