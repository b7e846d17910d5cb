package repository

import (
	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"gorm.io/gorm"
)

// AuditLogRepository 审计日志仓储接口
// 操作者在某组织/案件上的动作轨迹,最近优先
type AuditLogRepository interface {
	Save(log *model.AuditLogModel) error
	FindByOperator(userID string, limit int) ([]*model.AuditLogModel, error)
	FindByResource(resourceType string, resourceID string, limit int) ([]*model.AuditLogModel, error)
}

// auditLogRepository 审计日志仓储实现
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓储
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Save 保存审计日志
func (r *auditLogRepository) Save(log *model.AuditLogModel) error {
	return r.db.Save(log).Error
}

// FindByOperator 查找操作者的审计日志,最近优先
func (r *auditLogRepository) FindByOperator(userID string, limit int) ([]*model.AuditLogModel, error) {
	var logs []*model.AuditLogModel
	q := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}

// FindByResource 查找资源上的审计日志,最近优先
func (r *auditLogRepository) FindByResource(resourceType string, resourceID string, limit int) ([]*model.AuditLogModel, error) {
	var logs []*model.AuditLogModel
	q := r.db.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}
