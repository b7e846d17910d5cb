package migration

import (
	"context"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/emerginginv/trace-aid-sub002/internal/repository"
	"github.com/sirupsen/logrus"
)

// LockController 锁定控制器
// enable=true 是管道的终态动作:此后案件遗留状态字段拒绝写入;
// 解锁是显式的逃生通道,不属于正常流程,且必须留下审计痕迹
type LockController struct {
	locks  repository.LockStateRepository
	logger *logrus.Logger
}

// NewLockController 创建锁定控制器
func NewLockController(locks repository.LockStateRepository, logger *logrus.Logger) *LockController {
	return &LockController{locks: locks, logger: logger}
}

// Toggle 切换组织的遗留字段锁定状态
// 写入在单个事务内原子生效,案件写入不可能落在
// "遗留可写"与"遗留已锁"之间的窗口
func (l *LockController) Toggle(ctx context.Context, orgID string, enable bool, operator string) (*model.LockStateModel, error) {
	state, err := l.locks.Set(orgID, enable, operator)
	if err != nil {
		return nil, err
	}

	if l.logger != nil {
		l.logger.WithFields(logrus.Fields{
			"organization_id": orgID,
			"locked":          enable,
			"operator":        operator,
		}).Info("legacy field lock toggled")
	}
	return state, nil
}
