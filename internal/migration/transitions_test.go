package migration_test

import (
	"context"
	"testing"
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/migration"
	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedCatalog 写入 Open/Pending/Closed 三状态目录
func seedCatalog(t *testing.T, db *gorm.DB, orgID string) {
	seedStatus(t, db, orgID, "st-open", "Open", "cat-open")
	seedStatus(t, db, orgID, "st-pending", "Pending", "cat-pending")
	seedStatus(t, db, orgID, "st-closed", "Closed", "cat-closed")
	seedStatus(t, db, orgID, "st-review", "In Review", "cat-pending")
}

// seedResolvedChain 写入已回填的四段历史:Open → Pending → In Review → Closed
// In Review 与 Pending 同类别,应只产生两条转换
func seedResolvedChain(t *testing.T, db *gorm.DB, orgID, caseID string, base time.Time) {
	seedHistory(t, db, orgID, caseID+"-h1", caseID, "Open", strPtr("st-open"),
		base, timePtr(base.Add(time.Hour)), int64Ptr(3600))
	seedHistory(t, db, orgID, caseID+"-h2", caseID, "Pending", strPtr("st-pending"),
		base.Add(time.Hour), timePtr(base.Add(2*time.Hour)), int64Ptr(3600))
	seedHistory(t, db, orgID, caseID+"-h3", caseID, "In Review", strPtr("st-review"),
		base.Add(2*time.Hour), timePtr(base.Add(3*time.Hour)), int64Ptr(3600))
	seedHistory(t, db, orgID, caseID+"-h4", caseID, "Closed", strPtr("st-closed"),
		base.Add(3*time.Hour), nil, nil)
}

// TestTransitions_DerivesOnCategoryChange 测试只有类别变化处产生转换
func TestTransitions_DerivesOnCategoryChange(t *testing.T) {
	db := setupMigrationDB(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seedCatalog(t, db, "org-1")
	seedResolvedChain(t, db, "org-1", "case-1", base)

	rebuilder := migration.NewTransitionRebuilder(db, nil)
	result, err := rebuilder.Run(context.Background(), "org-1", migration.SyncModeFill, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CasesProcessed)
	assert.Equal(t, 2, result.TransitionsCreated)
	assert.Equal(t, 0, result.TransitionsDeleted)
	assert.Equal(t, 0, result.Skipped)

	var transitions []*model.CategoryTransitionModel
	require.NoError(t, db.Where("case_id = ?", "case-1").
		Order("transitioned_at ASC").Find(&transitions).Error)
	require.Len(t, transitions, 2)

	require.NotNil(t, transitions[0].FromCategoryID)
	assert.Equal(t, "cat-open", *transitions[0].FromCategoryID)
	assert.Equal(t, "cat-pending", transitions[0].ToCategoryID)
	assert.True(t, transitions[0].TransitionedAt.Equal(base.Add(time.Hour)))

	require.NotNil(t, transitions[1].FromCategoryID)
	assert.Equal(t, "cat-pending", *transitions[1].FromCategoryID)
	assert.Equal(t, "cat-closed", transitions[1].ToCategoryID)
	assert.True(t, transitions[1].TransitionedAt.Equal(base.Add(3*time.Hour)))
}

// TestTransitions_FillNeverDeletes 测试 fill 模式绝不删除既有记录
func TestTransitions_FillNeverDeletes(t *testing.T) {
	db := setupMigrationDB(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seedCatalog(t, db, "org-1")
	seedResolvedChain(t, db, "org-1", "case-1", base)

	// 历史推导不出的手工残留记录
	stray := &model.CategoryTransitionModel{
		ID:             "tr-stray",
		CaseID:         "case-1",
		OrganizationID: "org-1",
		FromCategoryID: strPtr("cat-open"),
		ToCategoryID:   "cat-closed",
		TransitionedAt: base.Add(30 * time.Minute),
		CreatedAt:      time.Now(),
	}
	require.NoError(t, db.Create(stray).Error)

	rebuilder := migration.NewTransitionRebuilder(db, nil)
	result, err := rebuilder.Run(context.Background(), "org-1", migration.SyncModeFill, false, false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TransitionsCreated)
	assert.Equal(t, 0, result.TransitionsDeleted)

	var survived model.CategoryTransitionModel
	assert.NoError(t, db.First(&survived, "id = ?", "tr-stray").Error)
}

// TestTransitions_FillIdempotent 测试 fill 模式重跑零新建
func TestTransitions_FillIdempotent(t *testing.T) {
	db := setupMigrationDB(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seedCatalog(t, db, "org-1")
	seedResolvedChain(t, db, "org-1", "case-1", base)

	rebuilder := migration.NewTransitionRebuilder(db, nil)
	_, err := rebuilder.Run(context.Background(), "org-1", migration.SyncModeFill, false, false)
	require.NoError(t, err)

	second, err := rebuilder.Run(context.Background(), "org-1", migration.SyncModeFill, false, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.TransitionsCreated)
}

// TestTransitions_OverrideRecomputes 测试 override 模式删除后全量重算
func TestTransitions_OverrideRecomputes(t *testing.T) {
	db := setupMigrationDB(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seedCatalog(t, db, "org-1")
	seedResolvedChain(t, db, "org-1", "case-1", base)

	stray := &model.CategoryTransitionModel{
		ID:             "tr-stray",
		CaseID:         "case-1",
		OrganizationID: "org-1",
		FromCategoryID: strPtr("cat-open"),
		ToCategoryID:   "cat-closed",
		TransitionedAt: base.Add(30 * time.Minute),
		CreatedAt:      time.Now(),
	}
	require.NoError(t, db.Create(stray).Error)

	rebuilder := migration.NewTransitionRebuilder(db, nil)
	result, err := rebuilder.Run(context.Background(), "org-1", migration.SyncModeOverride, true, false)
	require.NoError(t, err)
	assert.True(t, result.OverrideMode)
	assert.Equal(t, 1, result.TransitionsDeleted)
	assert.Equal(t, 2, result.TransitionsCreated)

	// 残留记录被清除,最终集合与历史完全一致
	var stale int64
	require.NoError(t, db.Model(&model.CategoryTransitionModel{}).
		Where("id = ?", "tr-stray").Count(&stale).Error)
	assert.Equal(t, int64(0), stale)

	var total int64
	require.NoError(t, db.Model(&model.CategoryTransitionModel{}).
		Where("case_id = ?", "case-1").Count(&total).Error)
	assert.Equal(t, int64(2), total)
}

// TestTransitions_OverrideCommitRequiresConfirm 测试 override 提交必须带确认标志
func TestTransitions_OverrideCommitRequiresConfirm(t *testing.T) {
	db := setupMigrationDB(t)
	seedCatalog(t, db, "org-1")

	rebuilder := migration.NewTransitionRebuilder(db, nil)
	_, err := rebuilder.Run(context.Background(), "org-1", migration.SyncModeOverride, false, false)
	assert.ErrorIs(t, err, migration.ErrMissingConfirmation)

	// 干跑不需要确认
	_, err = rebuilder.Run(context.Background(), "org-1", migration.SyncModeOverride, false, true)
	assert.NoError(t, err)
}

// TestTransitions_InvalidMode 测试非法同步模式被拒绝
func TestTransitions_InvalidMode(t *testing.T) {
	db := setupMigrationDB(t)

	rebuilder := migration.NewTransitionRebuilder(db, nil)
	_, err := rebuilder.Run(context.Background(), "org-1", migration.SyncMode("merge"), false, false)
	assert.ErrorIs(t, err, migration.ErrInvalidSyncMode)
}

// TestTransitions_SkipsUnresolvedCase 测试回填未完成的案件跳过不报错
func TestTransitions_SkipsUnresolvedCase(t *testing.T) {
	db := setupMigrationDB(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seedCatalog(t, db, "org-1")
	seedResolvedChain(t, db, "org-1", "case-ok", base)

	// 一条未回填的条目使整个案件不可处理
	seedHistory(t, db, "org-1", "raw-h1", "case-raw", "Open", strPtr("st-open"),
		base, timePtr(base.Add(time.Hour)), int64Ptr(3600))
	seedHistory(t, db, "org-1", "raw-h2", "case-raw", "Weird", nil,
		base.Add(time.Hour), nil, nil)

	rebuilder := migration.NewTransitionRebuilder(db, nil)
	result, err := rebuilder.Run(context.Background(), "org-1", migration.SyncModeFill, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CasesProcessed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Errors)

	var count int64
	require.NoError(t, db.Model(&model.CategoryTransitionModel{}).
		Where("case_id = ?", "case-raw").Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

// TestTransitions_DryRunParity 测试干跑与提交计数一致且不落库
func TestTransitions_DryRunParity(t *testing.T) {
	db := setupMigrationDB(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seedCatalog(t, db, "org-1")
	seedResolvedChain(t, db, "org-1", "case-1", base)

	rebuilder := migration.NewTransitionRebuilder(db, nil)
	dry, err := rebuilder.Run(context.Background(), "org-1", migration.SyncModeFill, false, true)
	require.NoError(t, err)
	assert.Equal(t, 2, dry.TransitionsCreated)

	var count int64
	require.NoError(t, db.Model(&model.CategoryTransitionModel{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	commit, err := rebuilder.Run(context.Background(), "org-1", migration.SyncModeFill, false, false)
	require.NoError(t, err)
	assert.Equal(t, dry.TransitionsCreated, commit.TransitionsCreated)
}
