package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/emerginginv/trace-aid-sub002/internal/model"
)

// Collector 定期采样迁移引擎的状态指标:
// 数据库连接数、各组织锁定状态、未回填的历史条目数
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.run()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

func (c *Collector) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = UpdateDatabaseConnections(c.db)
			c.refreshOrganizationGauges()
		}
	}
}

// refreshOrganizationGauges 按组织刷新锁定状态与未回填条目数
func (c *Collector) refreshOrganizationGauges() {
	var states []model.LockStateModel
	if err := c.db.WithContext(c.ctx).Find(&states).Error; err == nil {
		for _, state := range states {
			SetOrganizationLocked(state.OrganizationID, state.Locked)
		}
	}

	var rows []struct {
		OrganizationID string
		Count          int64
	}
	err := c.db.WithContext(c.ctx).
		Model(&model.StatusHistoryModel{}).
		Select("organization_id, COUNT(*) AS count").
		Where("status_id IS NULL").
		Group("organization_id").
		Scan(&rows).Error
	if err != nil {
		return
	}
	for _, row := range rows {
		SetUnresolvedEntries(row.OrganizationID, row.Count)
	}
}
