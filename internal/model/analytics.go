package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DailyAnalytics 按天聚合的租户指标
type DailyAnalytics struct {
	ID                     string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	TenantID               string    `json:"tenant_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_analytics_tenant_date,priority:1"`
	Date                   time.Time `json:"date" gorm:"not null;uniqueIndex:idx_analytics_tenant_date,priority:2;index"`
	TotalConversations     int       `json:"total_conversations" gorm:"not null;default:0"`
	ResolvedConversations  int       `json:"resolved_conversations" gorm:"not null;default:0"`
	EscalatedConversations int       `json:"escalated_conversations" gorm:"not null;default:0"`
	AvgConfidence          float64   `json:"avg_confidence" gorm:"default:0"`
	Metadata               JSON      `json:"metadata" gorm:"type:jsonb"`
}

// BeforeCreate GORM 钩子
func (a *DailyAnalytics) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (DailyAnalytics) TableName() string {
	return "daily_analytics"
}
