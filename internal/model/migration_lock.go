package model

import (
	"errors"
	"time"
)

// MigrationLockModel 迁移步骤咨询锁
// 同一组织同一步骤的提交模式调用互斥;干跑不获取锁
type MigrationLockModel struct {
	OrganizationID string    `gorm:"primaryKey;type:varchar(64)"`
	Step           string    `gorm:"primaryKey;type:varchar(32)"`
	Holder         string    `gorm:"type:varchar(64)"`
	AcquiredAt     time.Time `gorm:"not null"`
}

// TableName 指定表名
func (MigrationLockModel) TableName() string {
	return "migration_locks"
}

// Validate 验证迁移锁模型
func (mlm *MigrationLockModel) Validate() error {
	if mlm.OrganizationID == "" {
		return errors.New("organization ID is required")
	}
	if mlm.Step == "" {
		return errors.New("step is required")
	}
	return nil
}
