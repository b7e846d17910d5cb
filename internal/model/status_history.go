package model

import (
	"errors"
	"time"
)

// StatusHistoryModel 案件状态历史数据模型
// 只追加的台账:同一案件的条目按 EnteredAt 单调有序,
// 时间上连续且不重叠;恰好一条 ExitedAt 为空(当前状态)
type StatusHistoryModel struct {
	ID              string     `gorm:"primaryKey;type:varchar(64)"`
	CaseID          string     `gorm:"type:varchar(64);not null;index"`
	OrganizationID  string     `gorm:"type:varchar(64);not null;index"`
	LegacyStatus    string     `gorm:"type:varchar(255)"`
	StatusID        *string    `gorm:"type:varchar(64);index"` // 回填前为空
	EnteredAt       time.Time  `gorm:"not null;index"`
	ExitedAt        *time.Time `gorm:""` // 当前条目为空
	DurationSeconds *int64     `gorm:""`
	CreatedAt       time.Time  `gorm:"not null"`
}

// TableName 指定表名
func (StatusHistoryModel) TableName() string {
	return "status_history"
}

// Validate 验证状态历史模型
func (shm *StatusHistoryModel) Validate() error {
	if shm.ID == "" {
		return errors.New("history ID is required")
	}
	if shm.CaseID == "" {
		return errors.New("case ID is required")
	}
	if shm.OrganizationID == "" {
		return errors.New("organization ID is required")
	}
	if shm.EnteredAt.IsZero() {
		return errors.New("entered at is required")
	}
	return nil
}
