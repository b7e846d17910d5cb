package repository

import (
	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"gorm.io/gorm"
)

// StatusCategoryRepository 状态类别仓储接口
type StatusCategoryRepository interface {
	FindByID(orgID string, id string) (*model.StatusCategoryModel, error)
	ListByOrganization(orgID string) ([]*model.StatusCategoryModel, error)
	Save(c *model.StatusCategoryModel) error
}

// statusCategoryRepository 状态类别仓储实现
type statusCategoryRepository struct {
	db *gorm.DB
}

// NewStatusCategoryRepository 创建状态类别仓储
func NewStatusCategoryRepository(db *gorm.DB) StatusCategoryRepository {
	return &statusCategoryRepository{db: db}
}

// FindByID 根据 ID 查找状态类别
func (r *statusCategoryRepository) FindByID(orgID string, id string) (*model.StatusCategoryModel, error) {
	var c model.StatusCategoryModel
	err := r.db.Where("id = ? AND organization_id = ?", id, orgID).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByOrganization 按显示顺序列出组织内的状态类别
func (r *statusCategoryRepository) ListByOrganization(orgID string) ([]*model.StatusCategoryModel, error) {
	var categories []*model.StatusCategoryModel
	err := r.db.Where("organization_id = ?", orgID).Order("rank ASC, name ASC").Find(&categories).Error
	return categories, err
}

// Save 保存状态类别
func (r *statusCategoryRepository) Save(c *model.StatusCategoryModel) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.db.Save(c).Error
}
