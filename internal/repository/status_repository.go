package repository

import (
	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"gorm.io/gorm"
)

// StatusRepository 状态目录仓储接口
type StatusRepository interface {
	FindByID(orgID string, id string) (*model.StatusModel, error)
	ListByOrganization(orgID string) ([]*model.StatusModel, error)
	Save(s *model.StatusModel) error
}

// statusRepository 状态目录仓储实现
type statusRepository struct {
	db *gorm.DB
}

// NewStatusRepository 创建状态目录仓储
func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &statusRepository{db: db}
}

// FindByID 根据 ID 查找状态
func (r *statusRepository) FindByID(orgID string, id string) (*model.StatusModel, error) {
	var s model.StatusModel
	err := r.db.Where("id = ? AND organization_id = ?", id, orgID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByOrganization 按显示顺序列出组织内的状态定义
func (r *statusRepository) ListByOrganization(orgID string) ([]*model.StatusModel, error) {
	var statuses []*model.StatusModel
	err := r.db.Where("organization_id = ?", orgID).Order("rank ASC, name ASC").Find(&statuses).Error
	return statuses, err
}

// Save 保存状态定义
func (r *statusRepository) Save(s *model.StatusModel) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return r.db.Save(s).Error
}
