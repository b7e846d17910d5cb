package model

import (
	"errors"
	"time"
)

// 迁移步骤名称
const (
	StepBackfill        = "backfill"
	StepFixTimestamps   = "fix_timestamps"
	StepSyncTransitions = "sync_transitions"
	StepToggleLock      = "toggle_lock"
)

// 迁移日志状态
const (
	LogStatusCompleted  = "completed"
	LogStatusFailed     = "failed"
	LogStatusRolledBack = "rolled_back"
)

// MigrationLogModel 迁移日志数据模型
// 不可变审计记录:每次步骤调用追加一条,回滚追加新条目而非改写旧条目
type MigrationLogModel struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)"`
	OrganizationID  string    `gorm:"type:varchar(64);not null;index"`
	Step            string    `gorm:"type:varchar(32);not null;index"`
	DryRun          bool      `gorm:"not null;default:false"`
	RecordsAffected int       `gorm:"not null;default:0"`
	Errors          int       `gorm:"not null;default:0"`
	Skipped         int       `gorm:"not null;default:0"`
	Status          string    `gorm:"type:varchar(32);not null"` // completed/failed/rolled_back
	Operator        string    `gorm:"type:varchar(64)"`
	SourceLogID     string    `gorm:"type:varchar(64);index"` // 回滚条目指向的源日志
	Details         []byte    `gorm:"type:jsonb"`             // 受影响记录集等,回滚依据
	StartedAt       time.Time `gorm:"not null;index"`
	FinishedAt      time.Time `gorm:"not null"`
}

// TableName 指定表名
func (MigrationLogModel) TableName() string {
	return "migration_logs"
}

// Validate 验证迁移日志模型
func (mlm *MigrationLogModel) Validate() error {
	if mlm.ID == "" {
		return errors.New("log ID is required")
	}
	if mlm.OrganizationID == "" {
		return errors.New("organization ID is required")
	}
	if mlm.Step == "" {
		return errors.New("step is required")
	}
	if mlm.Status == "" {
		return errors.New("status is required")
	}
	return nil
}
