package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/api"
	"github.com/emerginginv/trace-aid-sub002/internal/config"
	"github.com/emerginginv/trace-aid-sub002/internal/container"
	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupRouter 创建测试路由与底层数据库
func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.CaseModel{},
		&model.StatusModel{},
		&model.StatusCategoryModel{},
		&model.StatusHistoryModel{},
		&model.CategoryTransitionModel{},
		&model.MigrationLogModel{},
		&model.MigrationLockModel{},
		&model.LockStateModel{},
		&model.AuditLogModel{},
	))

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	ctr := container.NewContainerWithDB(db, logger)
	router := api.SetupRoutes(config.Default(), ctr)
	return router, db
}

// doJSON 发送 JSON 请求并返回响应记录器
func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Operator", "alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestMigrationAPI_Validate 测试校验端点
func TestMigrationAPI_Validate(t *testing.T) {
	router, db := setupRouter(t)

	require.NoError(t, db.Create(&model.CaseModel{
		ID: "case-1", OrganizationID: "org-1", LegacyStatus: "Open",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}).Error)

	w := doJSON(router, http.MethodGet, "/api/v1/organizations/org-1/migration/validate", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			TotalCases int64 `json:"total_cases"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, int64(1), resp.Data.TotalCases)
}

// TestMigrationAPI_InvalidOrgID 测试非法组织 ID 返回 400
func TestMigrationAPI_InvalidOrgID(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/api/v1/organizations/bad!id/migration/validate", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestMigrationAPI_BackfillDryRun 测试回填干跑端点
func TestMigrationAPI_BackfillDryRun(t *testing.T) {
	router, db := setupRouter(t)

	require.NoError(t, db.Create(&model.StatusModel{
		ID: "st-open", OrganizationID: "org-1", Name: "Open", CategoryID: "cat-open",
		Active: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}).Error)
	require.NoError(t, db.Create(&model.StatusHistoryModel{
		ID: "h-1", CaseID: "case-1", OrganizationID: "org-1", LegacyStatus: "Open",
		EnteredAt: time.Now(), CreatedAt: time.Now(),
	}).Error)

	w := doJSON(router, http.MethodPost, "/api/v1/organizations/org-1/migration/backfill",
		map[string]interface{}{"dry_run": true})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Updated int  `json:"updated"`
			DryRun  bool `json:"dry_run"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Updated)
	assert.True(t, resp.Data.DryRun)
}

// TestMigrationAPI_ConcurrentConflict 测试并发冲突返回 409
func TestMigrationAPI_ConcurrentConflict(t *testing.T) {
	router, db := setupRouter(t)

	require.NoError(t, db.Create(&model.MigrationLockModel{
		OrganizationID: "org-1", Step: model.StepBackfill,
		Holder: "other", AcquiredAt: time.Now(),
	}).Error)

	w := doJSON(router, http.MethodPost, "/api/v1/organizations/org-1/migration/backfill",
		map[string]interface{}{"dry_run": false})
	assert.Equal(t, http.StatusConflict, w.Code)
}

// TestMigrationAPI_TransitionRefusals 测试同步模式与确认标志的拒绝
func TestMigrationAPI_TransitionRefusals(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/organizations/org-1/migration/transitions",
		map[string]interface{}{"mode": "merge"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/organizations/org-1/migration/transitions",
		map[string]interface{}{"mode": "override", "dry_run": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 省略 mode 默认 fill
	w = doJSON(router, http.MethodPost, "/api/v1/organizations/org-1/migration/transitions",
		map[string]interface{}{"dry_run": true})
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestMigrationAPI_LockRoundTrip 测试锁定端点与状态查询
func TestMigrationAPI_LockRoundTrip(t *testing.T) {
	router, _ := setupRouter(t)

	// enable 缺失返回 400
	w := doJSON(router, http.MethodPost, "/api/v1/organizations/org-1/migration/lock",
		map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/organizations/org-1/migration/lock",
		map[string]interface{}{"enable": true})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/organizations/org-1/lock-state", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Locked   bool   `json:"Locked"`
			LockedBy string `json:"LockedBy"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Locked)
	assert.Equal(t, "alice", resp.Data.LockedBy)

	w = doJSON(router, http.MethodGet, "/api/v1/organizations/org-1/migration/pipeline", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var pipeline struct {
		Data struct {
			Stage string `json:"stage"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pipeline))
	assert.Equal(t, "locked", pipeline.Data.Stage)
}

// TestMigrationAPI_RollbackNotFound 测试回滚未知日志返回 404
func TestMigrationAPI_RollbackNotFound(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/migration/logs/missing/rollback", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestMigrationAPI_ListLogs 测试日志列表端点
func TestMigrationAPI_ListLogs(t *testing.T) {
	router, db := setupRouter(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&model.MigrationLogModel{
			ID: "log-" + string(rune('a'+i)), OrganizationID: "org-1",
			Step: model.StepBackfill, DryRun: true, Status: model.LogStatusCompleted,
			StartedAt: time.Now().Add(time.Duration(i) * time.Minute), FinishedAt: time.Now(),
		}).Error)
	}

	w := doJSON(router, http.MethodGet, "/api/v1/organizations/org-1/migration/logs?limit=2", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

// TestMigrationAPI_ListAuditLogs 测试近期操作查询端点
func TestMigrationAPI_ListAuditLogs(t *testing.T) {
	router, _ := setupRouter(t)

	// 一次提交模式回填产生一条审计记录
	w := doJSON(router, http.MethodPost, "/api/v1/organizations/org-1/migration/backfill", map[string]interface{}{
		"dry_run": false,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/organizations/org-1/migration/audit-logs", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			UserID string `json:"UserID"`
			Action string `json:"Action"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "alice", resp.Data[0].UserID)
	assert.Equal(t, model.StepBackfill, resp.Data[0].Action)
}

// TestMigrationAPI_HealthAndMetrics 测试健康检查与指标端点
func TestMigrationAPI_HealthAndMetrics(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
