package repository_test

import (
	"testing"

	"github.com/emerginginv/trace-aid-sub002/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLockStateRepository_DefaultUnlocked 测试无记录的组织默认未锁定
func TestLockStateRepository_DefaultUnlocked(t *testing.T) {
	db := setupRepositoryDB(t)
	repo := repository.NewLockStateRepository(db)

	state, err := repo.Get("org-1")
	require.NoError(t, err)
	assert.False(t, state.Locked)
	assert.Equal(t, "org-1", state.OrganizationID)

	locked, err := repo.IsLocked("org-1")
	require.NoError(t, err)
	assert.False(t, locked)
}

// TestLockStateRepository_SetAndUnset 测试锁定与解锁
func TestLockStateRepository_SetAndUnset(t *testing.T) {
	db := setupRepositoryDB(t)
	repo := repository.NewLockStateRepository(db)

	state, err := repo.Set("org-1", true, "alice")
	require.NoError(t, err)
	assert.True(t, state.Locked)
	assert.Equal(t, "alice", state.LockedBy)
	require.NotNil(t, state.LockedAt)

	locked, err := repo.IsLocked("org-1")
	require.NoError(t, err)
	assert.True(t, locked)

	// 解锁保留上次锁定的痕迹
	state, err = repo.Set("org-1", false, "bob")
	require.NoError(t, err)
	assert.False(t, state.Locked)
	assert.Equal(t, "alice", state.LockedBy)
	assert.NotNil(t, state.LockedAt)

	locked, err = repo.IsLocked("org-1")
	require.NoError(t, err)
	assert.False(t, locked)
}

// TestLockStateRepository_IdempotentSet 测试重复设置同一状态无副作用
func TestLockStateRepository_IdempotentSet(t *testing.T) {
	db := setupRepositoryDB(t)
	repo := repository.NewLockStateRepository(db)

	first, err := repo.Set("org-1", true, "alice")
	require.NoError(t, err)
	second, err := repo.Set("org-1", true, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.Locked, second.Locked)
	assert.Equal(t, first.LockedBy, second.LockedBy)
}
