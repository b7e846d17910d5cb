package repository

import (
	"errors"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"gorm.io/gorm"
)

// ErrLogNotFound 迁移日志不存在
var ErrLogNotFound = errors.New("migration log not found")

// MigrationLogRepository 迁移日志仓储接口
// 日志只追加:没有更新和删除方法,回滚通过追加新条目表达
type MigrationLogRepository interface {
	Append(entry *model.MigrationLogModel) error
	FindByID(id string) (*model.MigrationLogModel, error)
	ListRecent(orgID string, limit int) ([]*model.MigrationLogModel, error)
	LatestCommit(orgID string, step string) (*model.MigrationLogModel, error)
	FindRollbackOf(sourceLogID string) (*model.MigrationLogModel, error)
	CountByOrganization(orgID string) (int64, error)
}

// migrationLogRepository 迁移日志仓储实现
type migrationLogRepository struct {
	db *gorm.DB
}

// NewMigrationLogRepository 创建迁移日志仓储
func NewMigrationLogRepository(db *gorm.DB) MigrationLogRepository {
	return &migrationLogRepository{db: db}
}

// Append 追加迁移日志条目
func (r *migrationLogRepository) Append(entry *model.MigrationLogModel) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	return r.db.Create(entry).Error
}

// FindByID 根据 ID 查找迁移日志
func (r *migrationLogRepository) FindByID(id string) (*model.MigrationLogModel, error) {
	var entry model.MigrationLogModel
	err := r.db.Where("id = ?", id).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListRecent 返回组织最近的迁移日志,按开始时间倒序
func (r *migrationLogRepository) ListRecent(orgID string, limit int) ([]*model.MigrationLogModel, error) {
	var entries []*model.MigrationLogModel
	err := r.db.Where("organization_id = ?", orgID).
		Order("started_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// LatestCommit 返回组织内某步骤最近的提交模式日志,无记录时返回 nil
func (r *migrationLogRepository) LatestCommit(orgID string, step string) (*model.MigrationLogModel, error) {
	var entry model.MigrationLogModel
	err := r.db.Where("organization_id = ? AND step = ? AND dry_run = ?", orgID, step, false).
		Order("started_at DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindRollbackOf 查找指向某条源日志的回滚条目,无记录时返回 nil
func (r *migrationLogRepository) FindRollbackOf(sourceLogID string) (*model.MigrationLogModel, error) {
	var entry model.MigrationLogModel
	err := r.db.Where("status = ? AND source_log_id = ?",
		model.LogStatusRolledBack, sourceLogID).
		Order("started_at DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CountByOrganization 统计组织内的迁移日志条数
func (r *migrationLogRepository) CountByOrganization(orgID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.MigrationLogModel{}).
		Where("organization_id = ?", orgID).
		Count(&count).Error
	return count, err
}
