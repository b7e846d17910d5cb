package model

import (
	"errors"
	"time"
)

// LockStateModel 组织级遗留字段锁定状态
// Locked 为 true 后,案件的遗留状态字段拒绝写入;这是管道的终态
type LockStateModel struct {
	OrganizationID string     `gorm:"primaryKey;type:varchar(64)"`
	Locked         bool       `gorm:"not null;default:false"`
	LockedAt       *time.Time `gorm:""`
	LockedBy       string     `gorm:"type:varchar(64)"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// TableName 指定表名
func (LockStateModel) TableName() string {
	return "lock_states"
}

// Validate 验证锁定状态模型
func (lsm *LockStateModel) Validate() error {
	if lsm.OrganizationID == "" {
		return errors.New("organization ID is required")
	}
	return nil
}
