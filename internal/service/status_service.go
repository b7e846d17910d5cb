package service

import (
	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/emerginginv/trace-aid-sub002/internal/repository"
)

// StatusService 状态目录服务
// 引擎对外的只读目录 API,状态/类别的增删改由外部 CRUD 界面负责
type StatusService interface {
	ListStatuses(orgID string) ([]*model.StatusModel, error)
	ListCategories(orgID string) ([]*model.StatusCategoryModel, error)
	GetLockState(orgID string) (*model.LockStateModel, error)
}

// statusService 状态目录服务实现
type statusService struct {
	statusRepo   repository.StatusRepository
	categoryRepo repository.StatusCategoryRepository
	lockRepo     repository.LockStateRepository
}

// NewStatusService 创建状态目录服务
func NewStatusService(
	statusRepo repository.StatusRepository,
	categoryRepo repository.StatusCategoryRepository,
	lockRepo repository.LockStateRepository,
) StatusService {
	return &statusService{
		statusRepo:   statusRepo,
		categoryRepo: categoryRepo,
		lockRepo:     lockRepo,
	}
}

// ListStatuses 列出组织的状态定义
func (s *statusService) ListStatuses(orgID string) ([]*model.StatusModel, error) {
	return s.statusRepo.ListByOrganization(orgID)
}

// ListCategories 列出组织的状态类别
func (s *statusService) ListCategories(orgID string) ([]*model.StatusCategoryModel, error) {
	return s.categoryRepo.ListByOrganization(orgID)
}

// GetLockState 返回组织的遗留字段锁定状态
func (s *statusService) GetLockState(orgID string) (*model.LockStateModel, error) {
	return s.lockRepo.Get(orgID)
}
