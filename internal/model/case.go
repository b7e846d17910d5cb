package model

import (
	"errors"
	"time"
)

// ErrFieldLocked 遗留状态字段已锁定,拒绝写入
var ErrFieldLocked = errors.New("legacy status fields are locked")

// CaseModel 案件数据模型
// LegacyStatus/LegacyStatusKey 是迁移前的自由文本表示,
// StatusID 是迁移后指向状态目录的规范外键
type CaseModel struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)"`
	OrganizationID  string    `gorm:"type:varchar(64);not null;index"`
	Title           string    `gorm:"type:varchar(255)"`
	LegacyStatus    string    `gorm:"type:varchar(255)"`
	LegacyStatusKey string    `gorm:"type:varchar(128)"`
	StatusID        *string   `gorm:"type:varchar(64);index"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (CaseModel) TableName() string {
	return "cases"
}

// Validate 验证案件模型
func (cm *CaseModel) Validate() error {
	if cm.ID == "" {
		return errors.New("case ID is required")
	}
	if cm.OrganizationID == "" {
		return errors.New("organization ID is required")
	}
	return nil
}
