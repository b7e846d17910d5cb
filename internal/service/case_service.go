package service

import (
	"context"
	"errors"
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/emerginginv/trace-aid-sub002/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrCaseNotFound 案件不存在
var ErrCaseNotFound = errors.New("case not found")

// ErrStatusNotFound 状态不存在于组织的状态目录
var ErrStatusNotFound = errors.New("status not found")

// HistorySummary 组织状态历史的回填进度概览
type HistorySummary struct {
	Total      int64 `json:"total"`
	Resolved   int64 `json:"resolved"`
	Unresolved int64 `json:"unresolved"`
}

// CaseService 案件服务
// 迁移期间仍在使用的案件读写面:遗留字段的写入经由仓储
// 受锁定状态约束,规范状态的变更只走 ChangeStatus 路径
type CaseService interface {
	GetCase(orgID string, caseID string) (*model.CaseModel, error)
	ListCases(orgID string) ([]*model.CaseModel, error)
	SaveCase(c *model.CaseModel) error
	ChangeStatus(ctx context.Context, orgID string, caseID string, statusID string) (*model.CaseModel, error)
	History(orgID string, caseID string) ([]*model.StatusHistoryModel, error)
	HistorySummary(orgID string) (*HistorySummary, error)
}

// caseService 案件服务实现
type caseService struct {
	caseRepo    repository.CaseRepository
	historyRepo repository.StatusHistoryRepository
	statusRepo  repository.StatusRepository
	auditSvc    AuditLogService
}

// NewCaseService 创建案件服务
func NewCaseService(
	caseRepo repository.CaseRepository,
	historyRepo repository.StatusHistoryRepository,
	statusRepo repository.StatusRepository,
	auditSvc AuditLogService,
) CaseService {
	return &caseService{
		caseRepo:    caseRepo,
		historyRepo: historyRepo,
		statusRepo:  statusRepo,
		auditSvc:    auditSvc,
	}
}

// GetCase 查询单个案件
func (s *caseService) GetCase(orgID string, caseID string) (*model.CaseModel, error) {
	c, err := s.caseRepo.FindByID(orgID, caseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCaseNotFound
	}
	return c, err
}

// ListCases 列出组织内的案件
func (s *caseService) ListCases(orgID string) ([]*model.CaseModel, error) {
	return s.caseRepo.ListByOrganization(orgID)
}

// SaveCase 保存案件
// 锁定生效后对遗留状态字段的写入会以 model.ErrFieldLocked 被拒绝
func (s *caseService) SaveCase(c *model.CaseModel) error {
	return s.caseRepo.Save(c)
}

// ChangeStatus 变更案件的规范状态
// 封闭当前历史条目、追加新条目并更新案件外键;
// 同一状态的重复变更是无操作
func (s *caseService) ChangeStatus(ctx context.Context, orgID string, caseID string, statusID string) (*model.CaseModel, error) {
	status, err := s.statusRepo.FindByID(orgID, statusID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, err
	}

	c, err := s.caseRepo.FindByID(orgID, caseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}

	entries, err := s.historyRepo.FindByCaseID(orgID, caseID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if len(entries) > 0 {
		last := entries[len(entries)-1]
		if last.ExitedAt == nil && last.StatusID != nil && *last.StatusID == status.ID {
			return c, nil
		}
		if last.ExitedAt == nil {
			if err := s.historyRepo.CloseEntry(orgID, last.ID, now); err != nil {
				return nil, err
			}
		}
	}

	entry := &model.StatusHistoryModel{
		ID:             uuid.New().String(),
		CaseID:         caseID,
		OrganizationID: orgID,
		StatusID:       &status.ID,
		EnteredAt:      now,
		CreatedAt:      now,
	}
	if err := s.historyRepo.Append(entry); err != nil {
		return nil, err
	}

	if err := s.caseRepo.UpdateStatusID(orgID, caseID, status.ID); err != nil {
		return nil, err
	}
	c.StatusID = &status.ID

	if s.auditSvc != nil {
		if operator := getUserIDFromContext(ctx); operator != "" {
			_ = s.auditSvc.RecordAction(ctx, operator, "change_status", "case", caseID, map[string]interface{}{
				"organization_id": orgID,
				"status_id":       status.ID,
			})
		}
	}

	return c, nil
}

// History 按进入时间排序返回案件的状态历史
func (s *caseService) History(orgID string, caseID string) ([]*model.StatusHistoryModel, error) {
	if _, err := s.GetCase(orgID, caseID); err != nil {
		return nil, err
	}
	return s.historyRepo.FindByCaseID(orgID, caseID)
}

// HistorySummary 返回组织状态历史的回填进度
func (s *caseService) HistorySummary(orgID string) (*HistorySummary, error) {
	total, err := s.historyRepo.CountByOrganization(orgID)
	if err != nil {
		return nil, err
	}
	resolved, err := s.historyRepo.CountResolved(orgID)
	if err != nil {
		return nil, err
	}
	unresolved, err := s.historyRepo.CountUnresolved(orgID)
	if err != nil {
		return nil, err
	}
	return &HistorySummary{Total: total, Resolved: resolved, Unresolved: unresolved}, nil
}
