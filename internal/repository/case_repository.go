package repository

import (
	"errors"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"gorm.io/gorm"
)

// CaseRepository 案件仓储接口
// 锁定生效后,遗留状态字段的写入在此处被拒绝
type CaseRepository interface {
	FindByID(orgID string, id string) (*model.CaseModel, error)
	ListByOrganization(orgID string) ([]*model.CaseModel, error)
	Save(c *model.CaseModel) error
	UpdateStatusID(orgID string, caseID string, statusID string) error
}

// caseRepository 案件仓储实现
type caseRepository struct {
	db    *gorm.DB
	locks LockStateRepository
}

// NewCaseRepository 创建案件仓储
func NewCaseRepository(db *gorm.DB, locks LockStateRepository) CaseRepository {
	return &caseRepository{db: db, locks: locks}
}

// FindByID 根据 ID 查找案件
func (r *caseRepository) FindByID(orgID string, id string) (*model.CaseModel, error) {
	var c model.CaseModel
	err := r.db.Where("id = ? AND organization_id = ?", id, orgID).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByOrganization 列出组织内的所有案件
func (r *caseRepository) ListByOrganization(orgID string) ([]*model.CaseModel, error) {
	var cases []*model.CaseModel
	err := r.db.Where("organization_id = ?", orgID).Order("created_at ASC").Find(&cases).Error
	return cases, err
}

// Save 保存案件
// 组织锁定后,任何改变遗留状态字段的写入返回 model.ErrFieldLocked;
// status_id 路径的写入不受影响
func (r *caseRepository) Save(c *model.CaseModel) error {
	if err := c.Validate(); err != nil {
		return err
	}

	var existing model.CaseModel
	err := r.db.Where("id = ? AND organization_id = ?", c.ID, c.OrganizationID).First(&existing).Error
	switch {
	case err == nil:
		if existing.LegacyStatus != c.LegacyStatus || existing.LegacyStatusKey != c.LegacyStatusKey {
			locked, lerr := r.locks.IsLocked(c.OrganizationID)
			if lerr != nil {
				return lerr
			}
			if locked {
				return model.ErrFieldLocked
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// 新案件在锁定后不得携带遗留状态文本
		if c.LegacyStatus != "" || c.LegacyStatusKey != "" {
			locked, lerr := r.locks.IsLocked(c.OrganizationID)
			if lerr != nil {
				return lerr
			}
			if locked {
				return model.ErrFieldLocked
			}
		}
	default:
		return err
	}

	return r.db.Save(c).Error
}

// UpdateStatusID 更新案件的规范状态外键
// 锁定后唯一被支持的状态写入路径
func (r *caseRepository) UpdateStatusID(orgID string, caseID string, statusID string) error {
	return r.db.Model(&model.CaseModel{}).
		Where("id = ? AND organization_id = ?", caseID, orgID).
		Update("status_id", statusID).Error
}
