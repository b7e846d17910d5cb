package migration

import (
	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/emerginginv/trace-aid-sub002/internal/repository"
)

// PipelineStage 迁移管道所处阶段
type PipelineStage string

// 管道阶段,只有 Locked 没有出边;任何步骤可重跑自环验证
const (
	StageNotStarted         PipelineStage = "not_started"
	StageValidated          PipelineStage = "validated"
	StageBackfilled         PipelineStage = "backfilled"
	StageTimestampsFixed    PipelineStage = "timestamps_fixed"
	StageTransitionsRebuilt PipelineStage = "transitions_rebuilt"
	StageLocked             PipelineStage = "locked"
)

// Pipeline 管道状态机
// 位置由迁移日志与锁定状态在每次读取时推导,服务端是唯一事实来源,
// 多个操作员并发查看不会失同步
type Pipeline struct {
	logs  repository.MigrationLogRepository
	locks repository.LockStateRepository
}

// NewPipeline 创建管道状态机
func NewPipeline(logs repository.MigrationLogRepository, locks repository.LockStateRepository) *Pipeline {
	return &Pipeline{logs: logs, locks: locks}
}

// State 推导组织当前所处的管道阶段
// 前进边要求上一步骤最近一次提交模式运行完成且零差异;
// 失败或被回滚的步骤使阶段退回
func (p *Pipeline) State(orgID string) (PipelineStage, error) {
	locked, err := p.locks.IsLocked(orgID)
	if err != nil {
		return "", err
	}
	if locked {
		return StageLocked, nil
	}

	backfilled, err := p.stepAchieved(orgID, model.StepBackfill)
	if err != nil {
		return "", err
	}
	timestampsFixed, err := p.stepAchieved(orgID, model.StepFixTimestamps)
	if err != nil {
		return "", err
	}
	transitionsRebuilt, err := p.stepAchieved(orgID, model.StepSyncTransitions)
	if err != nil {
		return "", err
	}

	switch {
	case backfilled && timestampsFixed && transitionsRebuilt:
		return StageTransitionsRebuilt, nil
	case backfilled && timestampsFixed:
		return StageTimestampsFixed, nil
	case backfilled:
		return StageBackfilled, nil
	}

	// 校验本身只读不记日志;任何迁移活动的痕迹都说明操作员已开始校验
	count, err := p.logs.CountByOrganization(orgID)
	if err != nil {
		return "", err
	}
	if count > 0 {
		return StageValidated, nil
	}
	return StageNotStarted, nil
}

// stepAchieved 判断步骤最近一次提交模式运行是否完成且零差异
func (p *Pipeline) stepAchieved(orgID string, step string) (bool, error) {
	entry, err := p.logs.LatestCommit(orgID, step)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	return entry.Status == model.LogStatusCompleted && entry.Errors == 0, nil
}
