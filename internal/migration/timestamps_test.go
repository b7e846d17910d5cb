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

// seedChain 写入一条三段式历史链,时间戳故意错乱
func seedChain(t *testing.T, db *gorm.DB, orgID, caseID string, base time.Time) {
	// exited_at 与后继 entered_at 不一致
	seedHistory(t, db, orgID, caseID+"-h1", caseID, "Open", strPtr("st-open"),
		base, timePtr(base.Add(30*time.Minute)), int64Ptr(1800))
	// duration 错误
	seedHistory(t, db, orgID, caseID+"-h2", caseID, "Pending", strPtr("st-pending"),
		base.Add(time.Hour), timePtr(base.Add(2*time.Hour)), int64Ptr(999))
	// 最后一条却带着 exited_at
	seedHistory(t, db, orgID, caseID+"-h3", caseID, "Closed", strPtr("st-closed"),
		base.Add(2*time.Hour), timePtr(base.Add(3*time.Hour)), int64Ptr(3600))
}

// TestTimestamps_FixesChain 测试按台账排序重算 exited_at 与持续时长
func TestTimestamps_FixesChain(t *testing.T) {
	db := setupMigrationDB(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seedChain(t, db, "org-1", "case-1", base)

	reconciler := migration.NewTimestampReconciler(db, nil)
	result, err := reconciler.Run(context.Background(), "org-1", false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.EntriesFixed)
	assert.Equal(t, 0, result.Errors)

	var h1, h2, h3 model.StatusHistoryModel
	require.NoError(t, db.First(&h1, "id = ?", "case-1-h1").Error)
	require.NoError(t, db.First(&h2, "id = ?", "case-1-h2").Error)
	require.NoError(t, db.First(&h3, "id = ?", "case-1-h3").Error)

	require.NotNil(t, h1.ExitedAt)
	assert.True(t, h1.ExitedAt.Equal(base.Add(time.Hour)))
	require.NotNil(t, h1.DurationSeconds)
	assert.Equal(t, int64(3600), *h1.DurationSeconds)

	require.NotNil(t, h2.ExitedAt)
	assert.True(t, h2.ExitedAt.Equal(base.Add(2*time.Hour)))
	require.NotNil(t, h2.DurationSeconds)
	assert.Equal(t, int64(3600), *h2.DurationSeconds)

	// 最后一条清空
	assert.Nil(t, h3.ExitedAt)
	assert.Nil(t, h3.DurationSeconds)
}

// TestTimestamps_DryRunReportsWithoutWriting 测试干跑只报告不落库
func TestTimestamps_DryRunReportsWithoutWriting(t *testing.T) {
	db := setupMigrationDB(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seedChain(t, db, "org-1", "case-1", base)

	reconciler := migration.NewTimestampReconciler(db, nil)
	dry, err := reconciler.Run(context.Background(), "org-1", true)
	require.NoError(t, err)
	assert.Equal(t, 3, dry.EntriesFixed)

	var h1 model.StatusHistoryModel
	require.NoError(t, db.First(&h1, "id = ?", "case-1-h1").Error)
	require.NotNil(t, h1.ExitedAt)
	assert.True(t, h1.ExitedAt.Equal(base.Add(30*time.Minute)))

	// 提交后的计数与干跑一致
	commit, err := reconciler.Run(context.Background(), "org-1", false)
	require.NoError(t, err)
	assert.Equal(t, dry.EntriesFixed, commit.EntriesFixed)
}

// TestTimestamps_Idempotent 测试数据正确时第二次运行报告零修复
func TestTimestamps_Idempotent(t *testing.T) {
	db := setupMigrationDB(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seedChain(t, db, "org-1", "case-1", base)

	reconciler := migration.NewTimestampReconciler(db, nil)
	_, err := reconciler.Run(context.Background(), "org-1", false)
	require.NoError(t, err)

	second, err := reconciler.Run(context.Background(), "org-1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.EntriesFixed)
	assert.Equal(t, 0, second.Errors)
}

// TestTimestamps_OrderingViolationSkipsCase 测试相同 entered_at 的案件整体跳过
func TestTimestamps_OrderingViolationSkipsCase(t *testing.T) {
	db := setupMigrationDB(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// 两条条目 entered_at 完全相同,顺序无法机械判定
	seedHistory(t, db, "org-1", "dup-h1", "case-dup", "Open", strPtr("st-open"),
		base, timePtr(base.Add(time.Hour)), int64Ptr(3600))
	seedHistory(t, db, "org-1", "dup-h2", "case-dup", "Pending", strPtr("st-pending"),
		base, nil, nil)

	// 另一个案件正常,应照常修复
	seedHistory(t, db, "org-1", "ok-h1", "case-ok", "Open", strPtr("st-open"),
		base, nil, nil)
	seedHistory(t, db, "org-1", "ok-h2", "case-ok", "Closed", strPtr("st-closed"),
		base.Add(time.Hour), nil, nil)

	reconciler := migration.NewTimestampReconciler(db, nil)
	result, err := reconciler.Run(context.Background(), "org-1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 1, result.EntriesFixed) // 只有 case-ok 的第一条需要补 exited_at

	// 冲突案件保持原样
	var dup model.StatusHistoryModel
	require.NoError(t, db.First(&dup, "id = ?", "dup-h1").Error)
	require.NotNil(t, dup.ExitedAt)
	assert.True(t, dup.ExitedAt.Equal(base.Add(time.Hour)))
}

// TestTimestamps_SingleEntryCase 测试单条目案件只需保证末条为空
func TestTimestamps_SingleEntryCase(t *testing.T) {
	db := setupMigrationDB(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	seedHistory(t, db, "org-1", "solo-h1", "case-solo", "Open", strPtr("st-open"),
		base, timePtr(base.Add(time.Hour)), int64Ptr(3600))

	reconciler := migration.NewTimestampReconciler(db, nil)
	result, err := reconciler.Run(context.Background(), "org-1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.EntriesFixed)

	var h model.StatusHistoryModel
	require.NoError(t, db.First(&h, "id = ?", "solo-h1").Error)
	assert.Nil(t, h.ExitedAt)
	assert.Nil(t, h.DurationSeconds)
}
