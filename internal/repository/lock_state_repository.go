package repository

import (
	"errors"
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"gorm.io/gorm"
)

// LockStateRepository 锁定状态仓储接口
type LockStateRepository interface {
	Get(orgID string) (*model.LockStateModel, error)
	IsLocked(orgID string) (bool, error)
	Set(orgID string, locked bool, operator string) (*model.LockStateModel, error)
}

// lockStateRepository 锁定状态仓储实现
type lockStateRepository struct {
	db *gorm.DB
}

// NewLockStateRepository 创建锁定状态仓储
func NewLockStateRepository(db *gorm.DB) LockStateRepository {
	return &lockStateRepository{db: db}
}

// Get 获取组织的锁定状态,无记录时返回未锁定的默认状态
func (r *lockStateRepository) Get(orgID string) (*model.LockStateModel, error) {
	var state model.LockStateModel
	err := r.db.Where("organization_id = ?", orgID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.LockStateModel{OrganizationID: orgID, Locked: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// IsLocked 判断组织的遗留字段是否已锁定
func (r *lockStateRepository) IsLocked(orgID string) (bool, error) {
	state, err := r.Get(orgID)
	if err != nil {
		return false, err
	}
	return state.Locked, nil
}

// Set 在单个事务内写入锁定状态
// 锁定写入原子生效,不存在"部分锁定"的中间窗口
func (r *lockStateRepository) Set(orgID string, locked bool, operator string) (*model.LockStateModel, error) {
	now := time.Now()
	state := &model.LockStateModel{
		OrganizationID: orgID,
		Locked:         locked,
		UpdatedAt:      now,
	}
	if locked {
		state.LockedAt = &now
		state.LockedBy = operator
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing model.LockStateModel
		err := tx.Where("organization_id = ?", orgID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(state).Error
		}
		if err != nil {
			return err
		}
		if !locked {
			// 解锁保留 locked_by 以便追溯最后一次锁定人
			state.LockedAt = existing.LockedAt
			state.LockedBy = existing.LockedBy
		}
		return tx.Model(&model.LockStateModel{}).
			Where("organization_id = ?", orgID).
			Updates(map[string]interface{}{
				"locked":     state.Locked,
				"locked_at":  state.LockedAt,
				"locked_by":  state.LockedBy,
				"updated_at": state.UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}
