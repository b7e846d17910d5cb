package repository_test

import (
	"testing"
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/emerginginv/trace-aid-sub002/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLog(id, orgID, step string, dryRun bool, status string, startedAt time.Time) *model.MigrationLogModel {
	return &model.MigrationLogModel{
		ID:             id,
		OrganizationID: orgID,
		Step:           step,
		DryRun:         dryRun,
		Status:         status,
		StartedAt:      startedAt,
		FinishedAt:     startedAt.Add(time.Second),
	}
}

// TestMigrationLogRepository_AppendAndFind 测试追加与查找
func TestMigrationLogRepository_AppendAndFind(t *testing.T) {
	db := setupRepositoryDB(t)
	repo := repository.NewMigrationLogRepository(db)

	entry := newLog("log-1", "org-1", model.StepBackfill, false, model.LogStatusCompleted, time.Now())
	entry.RecordsAffected = 7
	entry.Details = []byte(`{"entry_ids":["h-1"]}`)
	require.NoError(t, repo.Append(entry))

	found, err := repo.FindByID("log-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", found.OrganizationID)
	assert.Equal(t, 7, found.RecordsAffected)

	_, err = repo.FindByID("missing")
	assert.ErrorIs(t, err, repository.ErrLogNotFound)
}

// TestMigrationLogRepository_LatestCommit 测试最近一次提交模式条目的选取
func TestMigrationLogRepository_LatestCommit(t *testing.T) {
	db := setupRepositoryDB(t)
	repo := repository.NewMigrationLogRepository(db)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(newLog("log-1", "org-1", model.StepBackfill, false, model.LogStatusCompleted, base)))
	require.NoError(t, repo.Append(newLog("log-2", "org-1", model.StepBackfill, false, model.LogStatusFailed, base.Add(time.Hour))))
	// 干跑不参与
	require.NoError(t, repo.Append(newLog("log-3", "org-1", model.StepBackfill, true, model.LogStatusCompleted, base.Add(2*time.Hour))))
	// 其他步骤不参与
	require.NoError(t, repo.Append(newLog("log-4", "org-1", model.StepFixTimestamps, false, model.LogStatusCompleted, base.Add(3*time.Hour))))

	latest, err := repo.LatestCommit("org-1", model.StepBackfill)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "log-2", latest.ID)

	// 从未提交过的步骤返回 nil
	none, err := repo.LatestCommit("org-1", model.StepSyncTransitions)
	require.NoError(t, err)
	assert.Nil(t, none)
}

// TestMigrationLogRepository_ListRecent 测试按时间倒序取最近日志
func TestMigrationLogRepository_ListRecent(t *testing.T) {
	db := setupRepositoryDB(t)
	repo := repository.NewMigrationLogRepository(db)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		require.NoError(t, repo.Append(newLog("log-"+id, "org-1", model.StepBackfill, true, model.LogStatusCompleted, base.Add(time.Duration(i)*time.Hour))))
	}

	logs, err := repo.ListRecent("org-1", 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "log-e", logs[0].ID)
	assert.Equal(t, "log-d", logs[1].ID)
	assert.Equal(t, "log-c", logs[2].ID)
}

// TestMigrationLogRepository_FindRollbackOf 测试回滚条目的溯源查询
func TestMigrationLogRepository_FindRollbackOf(t *testing.T) {
	db := setupRepositoryDB(t)
	repo := repository.NewMigrationLogRepository(db)

	source := newLog("log-src", "org-1", model.StepBackfill, false, model.LogStatusCompleted, time.Now())
	require.NoError(t, repo.Append(source))

	// 尚无回滚
	none, err := repo.FindRollbackOf("log-src")
	require.NoError(t, err)
	assert.Nil(t, none)

	rollback := newLog("log-rb", "org-1", model.StepBackfill, false, model.LogStatusRolledBack, time.Now())
	rollback.SourceLogID = "log-src"
	require.NoError(t, repo.Append(rollback))

	found, err := repo.FindRollbackOf("log-src")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "log-rb", found.ID)
}
