package repository

import (
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"gorm.io/gorm"
)

// StatusHistoryRepository 状态历史仓储接口
// 历史是只追加的台账:仓储提供追加与读取,不提供删除
type StatusHistoryRepository interface {
	Append(entry *model.StatusHistoryModel) error
	CloseEntry(orgID string, entryID string, exitedAt time.Time) error
	FindByCaseID(orgID string, caseID string) ([]*model.StatusHistoryModel, error)
	CountByOrganization(orgID string) (int64, error)
	CountResolved(orgID string) (int64, error)
	CountUnresolved(orgID string) (int64, error)
}

// statusHistoryRepository 状态历史仓储实现
type statusHistoryRepository struct {
	db *gorm.DB
}

// NewStatusHistoryRepository 创建状态历史仓储
func NewStatusHistoryRepository(db *gorm.DB) StatusHistoryRepository {
	return &statusHistoryRepository{db: db}
}

// Append 追加状态历史条目
func (r *statusHistoryRepository) Append(entry *model.StatusHistoryModel) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	return r.db.Create(entry).Error
}

// CloseEntry 封闭一条尚未退出的历史条目
// 写入 exited_at 并据此补齐停留时长;已封闭的条目不受影响
func (r *statusHistoryRepository) CloseEntry(orgID string, entryID string, exitedAt time.Time) error {
	var entry model.StatusHistoryModel
	err := r.db.Where("id = ? AND organization_id = ?", entryID, orgID).First(&entry).Error
	if err != nil {
		return err
	}
	if entry.ExitedAt != nil {
		return nil
	}

	duration := int64(exitedAt.Sub(entry.EnteredAt).Seconds())
	return r.db.Model(&model.StatusHistoryModel{}).
		Where("id = ? AND organization_id = ?", entryID, orgID).
		Updates(map[string]interface{}{
			"exited_at":        exitedAt,
			"duration_seconds": duration,
		}).Error
}

// FindByCaseID 按进入时间排序返回案件的状态历史
func (r *statusHistoryRepository) FindByCaseID(orgID string, caseID string) ([]*model.StatusHistoryModel, error) {
	var entries []*model.StatusHistoryModel
	err := r.db.Where("case_id = ? AND organization_id = ?", caseID, orgID).
		Order("entered_at ASC").
		Find(&entries).Error
	return entries, err
}

// CountByOrganization 统计组织内的历史条目总数
func (r *statusHistoryRepository) CountByOrganization(orgID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.StatusHistoryModel{}).
		Where("organization_id = ?", orgID).
		Count(&count).Error
	return count, err
}

// CountResolved 统计已回填 status_id 的历史条目数
func (r *statusHistoryRepository) CountResolved(orgID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.StatusHistoryModel{}).
		Where("organization_id = ? AND status_id IS NOT NULL", orgID).
		Count(&count).Error
	return count, err
}

// CountUnresolved 统计尚未回填 status_id 的历史条目数
func (r *statusHistoryRepository) CountUnresolved(orgID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.StatusHistoryModel{}).
		Where("organization_id = ? AND status_id IS NULL", orgID).
		Count(&count).Error
	return count, err
}
