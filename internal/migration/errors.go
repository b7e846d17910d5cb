package migration

import "errors"

// 迁移引擎错误
// 批量步骤内的单条记录问题(无法解析的状态文本、时序冲突)以计数而非
// 错误返回聚合,这里只定义会使整次调用被拒绝的条件
var (
	// ErrConcurrentMigration 同组织同步骤的提交模式调用已在进行中
	ErrConcurrentMigration = errors.New("migration already running for this organization and step")
	// ErrMissingConfirmation override 模式缺少操作员确认标志
	ErrMissingConfirmation = errors.New("override mode requires explicit confirmation")
	// ErrInvalidSyncMode 非法的转换同步模式
	ErrInvalidSyncMode = errors.New("sync mode must be fill or override")
	// ErrRollbackNotSupported 该日志条目不支持回滚
	ErrRollbackNotSupported = errors.New("rollback is not supported for this log entry")
	// ErrOrderingViolation 同案件历史条目存在无法机械修复的时序冲突
	ErrOrderingViolation = errors.New("history entries have an unresolvable ordering violation")
)
