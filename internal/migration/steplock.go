package migration

import (
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"gorm.io/gorm"
)

// staleLockAfter 超过此时长的步骤锁视为宿主进程已死,可被接管
const staleLockAfter = 2 * time.Hour

// StepLocker 每组织每步骤的咨询锁
// 同组织同步骤的提交模式调用互斥,并发尝试快速失败;
// 干跑不获取锁,与在线流量及其他干跑安全并发
type StepLocker struct {
	db *gorm.DB
}

// NewStepLocker 创建步骤锁管理器
func NewStepLocker(db *gorm.DB) *StepLocker {
	return &StepLocker{db: db}
}

// Acquire 获取步骤锁,已被持有时返回 ErrConcurrentMigration
// 获取成功后通过返回的函数释放
func (l *StepLocker) Acquire(orgID string, step string, holder string) (func(), error) {
	err := l.db.Transaction(func(tx *gorm.DB) error {
		// 清理陈旧锁
		if err := tx.Where("organization_id = ? AND step = ? AND acquired_at < ?",
			orgID, step, time.Now().Add(-staleLockAfter)).
			Delete(&model.MigrationLockModel{}).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&model.MigrationLockModel{}).
			Where("organization_id = ? AND step = ?", orgID, step).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConcurrentMigration
		}

		// 主键 (organization_id, step) 兜底:即便计数检查竞争,插入也只会成功一次
		return tx.Create(&model.MigrationLockModel{
			OrganizationID: orgID,
			Step:           step,
			Holder:         holder,
			AcquiredAt:     time.Now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	release := func() {
		l.db.Where("organization_id = ? AND step = ?", orgID, step).
			Delete(&model.MigrationLockModel{})
	}
	return release, nil
}
