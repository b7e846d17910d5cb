package migration

import "time"

// SyncMode 类别转换同步模式
type SyncMode string

const (
	// SyncModeFill 只补缺失的转换记录,绝不删除
	SyncModeFill SyncMode = "fill"
	// SyncModeOverride 删除后全量重算,需要操作员确认
	SyncModeOverride SyncMode = "override"
)

// Valid 判断同步模式是否合法
func (m SyncMode) Valid() bool {
	return m == SyncModeFill || m == SyncModeOverride
}

// ValidationResult 校验结果:遗留与规范表示之间的完整性计数
type ValidationResult struct {
	TotalCases             int64 `json:"total_cases"`
	TotalHistoryEntries    int64 `json:"total_history_entries"`
	HistoryWithStatusID    int64 `json:"history_with_status_id"`
	HistoryWithoutStatusID int64 `json:"history_without_status_id"`
	CategoryTransitions    int64 `json:"category_transitions"`
}

// BackfillResult 回填步骤结果
// 干跑与提交返回同一形状,操作员据此对照预期与实际
type BackfillResult struct {
	Updated int  `json:"updated"`
	Errors  int  `json:"errors"`
	DryRun  bool `json:"dry_run"`

	// 回滚所需的受影响记录集,随迁移日志持久化,不进入 API 响应
	EntryIDs []string `json:"-"`
	CaseIDs  []string `json:"-"`
}

// TimestampPreImage 时间戳修复前的原值快照
type TimestampPreImage struct {
	EntryID      string     `json:"entry_id"`
	PrevExitedAt *time.Time `json:"prev_exited_at"`
	PrevDuration *int64     `json:"prev_duration"`
}

// TimestampResult 时间戳修复步骤结果
type TimestampResult struct {
	EntriesFixed int  `json:"entries_fixed"`
	Errors       int  `json:"errors"`
	DryRun       bool `json:"dry_run"`

	PreImages []TimestampPreImage `json:"-"`
}

// SyncResult 类别转换同步结果
// Skipped 统计因回填未完成而跳过的案件,与硬错误分开计数
type SyncResult struct {
	CasesProcessed     int  `json:"cases_processed"`
	TransitionsCreated int  `json:"transitions_created"`
	TransitionsDeleted int  `json:"transitions_deleted"`
	OverrideMode       bool `json:"override_mode"`
	Skipped            int  `json:"skipped"`
	Errors             int  `json:"errors"`
	DryRun             bool `json:"dry_run"`

	CreatedIDs []string `json:"-"`
}

// BackfillDetails 回填日志详情,回滚依据
type BackfillDetails struct {
	EntryIDs []string `json:"entry_ids"`
	CaseIDs  []string `json:"case_ids"`
}

// TimestampDetails 时间戳修复日志详情,回滚依据
type TimestampDetails struct {
	PreImages []TimestampPreImage `json:"pre_images"`
}

// SyncDetails 转换同步日志详情
// fill 模式的回滚删除 CreatedIDs;override 模式不可回滚
type SyncDetails struct {
	Mode       string   `json:"mode"`
	CreatedIDs []string `json:"created_ids"`
}

// LockDetails 锁定切换日志详情
type LockDetails struct {
	Enable bool `json:"enable"`
}

// RollbackDetails 回滚日志详情
type RollbackDetails struct {
	SourceLogID string `json:"source_log_id"`
	SourceStep  string `json:"source_step"`
}
