package database

import (
	"context"
	"fmt"
	"time"

	"github.com/emerginginv/trace-aid-sub002/internal/config"
	"github.com/emerginginv/trace-aid-sub002/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// Connect 连接数据库
// driver 为 sqlite 时使用文件路径,否则按 PostgreSQL DSN 连接
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if cfg.Driver == "sqlite" || cfg.Driver == "sqlite3" {
		db, err = gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	} else {
		db, err = gorm.Open(postgres.Open(BuildDSN(cfg)), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 从配置中读取连接池参数,如果没有配置则使用默认值
	poolConfig := GetPoolConfig()
	if cfg.MaxIdleConns > 0 {
		poolConfig.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolConfig.ConnMaxIdleTime = cfg.ConnMaxIdleTime
	}

	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		// 如果不是最后一次重试,等待后重试
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb,需要手动创建表
	// GORM SQLite dialector 的名称可能是 "sqlite" 或 "sqlite3"
	if dialector == "sqlite" || dialector == "sqlite3" {
		// 手动创建 SQLite 表（使用 TEXT 替代 jsonb）
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		// PostgreSQL 等其他数据库使用 AutoMigrate
		if err := db.AutoMigrate(
			&model.StatusCategoryModel{},
			&model.StatusModel{},
			&model.CaseModel{},
			&model.StatusHistoryModel{},
			&model.CategoryTransitionModel{},
			&model.MigrationLogModel{},
			&model.MigrationLockModel{},
			&model.LockStateModel{},
			&model.AuditLogModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	// 创建索引
	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表（使用 TEXT 替代 jsonb）
func createSQLiteTables(db *gorm.DB) error {
	// 创建 status_categories 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS status_categories (
			id VARCHAR(64) PRIMARY KEY,
			organization_id VARCHAR(64) NOT NULL,
			name VARCHAR(128) NOT NULL,
			rank INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create status_categories table: %w", err)
	}

	// 创建 statuses 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS statuses (
			id VARCHAR(64) PRIMARY KEY,
			organization_id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			category_id VARCHAR(64) NOT NULL,
			rank INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT 1,
			reopenable BOOLEAN NOT NULL DEFAULT 0,
			read_only BOOLEAN NOT NULL DEFAULT 0,
			first_status BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create statuses table: %w", err)
	}

	// 创建 cases 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cases (
			id VARCHAR(64) PRIMARY KEY,
			organization_id VARCHAR(64) NOT NULL,
			title VARCHAR(255),
			legacy_status VARCHAR(255),
			legacy_status_key VARCHAR(128),
			status_id VARCHAR(64),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create cases table: %w", err)
	}

	// 创建 status_history 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS status_history (
			id VARCHAR(64) PRIMARY KEY,
			case_id VARCHAR(64) NOT NULL,
			organization_id VARCHAR(64) NOT NULL,
			legacy_status VARCHAR(255),
			status_id VARCHAR(64),
			entered_at DATETIME NOT NULL,
			exited_at DATETIME,
			duration_seconds INTEGER,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create status_history table: %w", err)
	}

	// 创建 category_transitions 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS category_transitions (
			id VARCHAR(64) PRIMARY KEY,
			case_id VARCHAR(64) NOT NULL,
			organization_id VARCHAR(64) NOT NULL,
			from_category_id VARCHAR(64),
			to_category_id VARCHAR(64) NOT NULL,
			transitioned_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create category_transitions table: %w", err)
	}

	// 创建 migration_logs 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migration_logs (
			id VARCHAR(64) PRIMARY KEY,
			organization_id VARCHAR(64) NOT NULL,
			step VARCHAR(32) NOT NULL,
			dry_run BOOLEAN NOT NULL DEFAULT 0,
			records_affected INTEGER NOT NULL DEFAULT 0,
			errors INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			status VARCHAR(32) NOT NULL,
			operator VARCHAR(64),
			source_log_id VARCHAR(64),
			details TEXT,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create migration_logs table: %w", err)
	}

	// 创建 migration_locks 表 (组合主键 organization_id, step)
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migration_locks (
			organization_id VARCHAR(64) NOT NULL,
			step VARCHAR(32) NOT NULL,
			holder VARCHAR(64),
			acquired_at DATETIME NOT NULL,
			PRIMARY KEY (organization_id, step)
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create migration_locks table: %w", err)
	}

	// 创建 lock_states 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS lock_states (
			organization_id VARCHAR(64) PRIMARY KEY,
			locked BOOLEAN NOT NULL DEFAULT 0,
			locked_at DATETIME,
			locked_by VARCHAR(64),
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create lock_states table: %w", err)
	}

	// 创建 audit_logs 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64),
			ip VARCHAR(45),
			user_agent TEXT,
			details TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	// statuses 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_statuses_org ON statuses(organization_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_statuses_org: %w", err)
	}
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_statuses_org_name ON statuses(organization_id, name)").Error; err != nil {
		return fmt.Errorf("failed to create idx_statuses_org_name: %w", err)
	}

	// cases 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_cases_org ON cases(organization_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_cases_org: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_cases_status_id ON cases(status_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_cases_status_id: %w", err)
	}

	// status_history 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_case_entered ON status_history(case_id, entered_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_case_entered: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_org_status ON status_history(organization_id, status_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_org_status: %w", err)
	}

	// category_transitions 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_transitions_case_at ON category_transitions(case_id, transitioned_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_transitions_case_at: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_transitions_org ON category_transitions(organization_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_transitions_org: %w", err)
	}

	// migration_logs 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_migration_logs_org_started ON migration_logs(organization_id, started_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_migration_logs_org_started: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_migration_logs_org_step ON migration_logs(organization_id, step)").Error; err != nil {
		return fmt.Errorf("failed to create idx_migration_logs_org_step: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_migration_logs_source ON migration_logs(source_log_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_migration_logs_source: %w", err)
	}

	// audit_logs 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_resource: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_logs(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_user_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_created_at: %w", err)
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return false
	}

	return true
}
