package repository

import (
	"context"
	"time"

	"github.com/ashwinyue/agenteva/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalyticsRepository 日指标数据访问
type AnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository 创建日指标仓库
func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Upsert 写入或覆盖某租户某天的聚合行
func (r *AnalyticsRepository) Upsert(ctx context.Context, row *model.DailyAnalytics) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_conversations",
			"resolved_conversations",
			"escalated_conversations",
			"avg_confidence",
			"metadata",
		}),
	}).Create(row).Error
}

// GetRange 取时间段内的聚合行，按日期升序
func (r *AnalyticsRepository) GetRange(ctx context.Context, tenantID string, from, to time.Time) ([]*model.DailyAnalytics, error) {
	var rows []*model.DailyAnalytics
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND date >= ? AND date < ?", tenantID, from, to).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}
