package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 迁移步骤调用数
	migrationStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_steps_total",
			Help: "Total number of migration step invocations",
		},
		[]string{"step", "mode", "outcome"}, // mode: dry_run/commit
	)

	// 迁移步骤影响的记录数
	migrationRecordsAffected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_records_affected_total",
			Help: "Total number of records affected by migration steps",
		},
		[]string{"step"},
	)

	// 组织锁定状态
	organizationLocked = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "organization_legacy_fields_locked",
			Help: "Whether an organization's legacy status fields are locked (1) or writable (0)",
		},
		[]string{"organization"},
	)

	// 尚未回填 status_id 的历史条目数
	migrationUnresolvedEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "migration_unresolved_history_entries",
			Help: "Number of status history entries whose status_id is still unresolved",
		},
		[]string{"organization"},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(migrationStepsTotal)
	prometheus.MustRegister(migrationRecordsAffected)
	prometheus.MustRegister(organizationLocked)
	prometheus.MustRegister(migrationUnresolvedEntries)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)

	// 注册 Go 运行时指标（只注册一次）
	once.Do(func() {
		// 尝试注册 Go 运行时指标,如果已注册则忽略错误
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordMigrationStep 记录迁移步骤调用
func RecordMigrationStep(step string, dryRun bool, outcome string) {
	mode := "commit"
	if dryRun {
		mode = "dry_run"
	}
	migrationStepsTotal.WithLabelValues(step, mode, outcome).Inc()
}

// AddRecordsAffected 累加迁移步骤影响的记录数
func AddRecordsAffected(step string, count int) {
	if count <= 0 {
		return
	}
	migrationRecordsAffected.WithLabelValues(step).Add(float64(count))
}

// SetOrganizationLocked 更新组织锁定状态指标
func SetOrganizationLocked(orgID string, locked bool) {
	value := 0.0
	if locked {
		value = 1.0
	}
	organizationLocked.WithLabelValues(orgID).Set(value)
}

// SetUnresolvedEntries 更新组织的未回填历史条目数指标
func SetUnresolvedEntries(orgID string, count int64) {
	migrationUnresolvedEntries.WithLabelValues(orgID).Set(float64(count))
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}
