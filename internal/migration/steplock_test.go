package migration_test

import (
	"testing"
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/migration"
	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStepLocker_ConflictFailsFast 测试同组织同步骤并发获取快速失败
func TestStepLocker_ConflictFailsFast(t *testing.T) {
	db := setupMigrationDB(t)
	locker := migration.NewStepLocker(db)

	release, err := locker.Acquire("org-1", model.StepBackfill, "alice")
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire("org-1", model.StepBackfill, "bob")
	assert.ErrorIs(t, err, migration.ErrConcurrentMigration)
}

// TestStepLocker_DifferentStepsIndependent 测试不同步骤的锁互不影响
func TestStepLocker_DifferentStepsIndependent(t *testing.T) {
	db := setupMigrationDB(t)
	locker := migration.NewStepLocker(db)

	release1, err := locker.Acquire("org-1", model.StepBackfill, "alice")
	require.NoError(t, err)
	defer release1()

	release2, err := locker.Acquire("org-1", model.StepFixTimestamps, "alice")
	require.NoError(t, err)
	defer release2()

	release3, err := locker.Acquire("org-2", model.StepBackfill, "bob")
	require.NoError(t, err)
	defer release3()
}

// TestStepLocker_ReleaseAllowsReacquire 测试释放后可重新获取
func TestStepLocker_ReleaseAllowsReacquire(t *testing.T) {
	db := setupMigrationDB(t)
	locker := migration.NewStepLocker(db)

	release, err := locker.Acquire("org-1", model.StepBackfill, "alice")
	require.NoError(t, err)
	release()

	release2, err := locker.Acquire("org-1", model.StepBackfill, "bob")
	require.NoError(t, err)
	release2()
}

// TestStepLocker_StaleLockTakenOver 测试陈旧锁被接管
func TestStepLocker_StaleLockTakenOver(t *testing.T) {
	db := setupMigrationDB(t)
	locker := migration.NewStepLocker(db)

	// 锁的宿主进程两个多小时前死掉了
	require.NoError(t, db.Create(&model.MigrationLockModel{
		OrganizationID: "org-1",
		Step:           model.StepBackfill,
		Holder:         "dead-process",
		AcquiredAt:     time.Now().Add(-3 * time.Hour),
	}).Error)

	release, err := locker.Acquire("org-1", model.StepBackfill, "alice")
	require.NoError(t, err)
	defer release()

	var lock model.MigrationLockModel
	require.NoError(t, db.Where("organization_id = ? AND step = ?", "org-1", model.StepBackfill).
		First(&lock).Error)
	assert.Equal(t, "alice", lock.Holder)
}
