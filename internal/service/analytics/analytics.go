// Package analytics 租户日指标聚合
package analytics

import (
	"context"
	"time"

	"github.com/ashwinyue/agenteva/internal/apperr"
	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/ashwinyue/agenteva/internal/repository"
)

// Service 日指标服务
type Service struct {
	analytics     *repository.AnalyticsRepository
	conversations *repository.ConversationRepository
}

// NewService 创建日指标服务
func NewService(analytics *repository.AnalyticsRepository, conversations *repository.ConversationRepository) *Service {
	return &Service{analytics: analytics, conversations: conversations}
}

// ComputeDaily 聚合某租户某天的指标并落库，重复计算覆盖旧行
// day 按 UTC 取整到当天零点
func (s *Service) ComputeDaily(ctx context.Context, tenantID string, day time.Time) (*model.DailyAnalytics, error) {
	if tenantID == "" {
		return nil, apperr.Validationf("tenant id is required")
	}
	from := day.UTC().Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	total, err := s.conversations.CountStartedBetween(ctx, tenantID, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to count conversations", err)
	}
	resolved, err := s.conversations.CountByStatusBetween(ctx, tenantID, model.StatusResolved, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to count resolved conversations", err)
	}
	escalated, err := s.conversations.CountByStatusBetween(ctx, tenantID, model.StatusEscalated, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to count escalated conversations", err)
	}

	avg, sampled, err := s.avgConfidence(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}

	row := &model.DailyAnalytics{
		TenantID:               tenantID,
		Date:                   from,
		TotalConversations:     int(total),
		ResolvedConversations:  int(resolved),
		EscalatedConversations: int(escalated),
		AvgConfidence:          avg,
		Metadata:               model.JSON{"confidence_samples": sampled},
	}
	if err := s.analytics.Upsert(ctx, row); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to store daily analytics", err)
	}
	return row, nil
}

// avgConfidence 当天助手消息元数据里置信度的均值
func (s *Service) avgConfidence(ctx context.Context, tenantID string, from, to time.Time) (float64, int, error) {
	messages, err := s.conversations.ListMessagesByRoleBetween(ctx, tenantID, model.RoleAssistant, from, to)
	if err != nil {
		return 0, 0, apperr.Wrap(apperr.KindPersistence, "failed to load assistant messages", err)
	}

	var sum float64
	var count int
	for _, msg := range messages {
		if msg.Metadata == nil {
			continue
		}
		if c, ok := msg.Metadata["confidence"].(float64); ok {
			sum += c
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return sum / float64(count), count, nil
}

// GetRange 取日期区间内的聚合行
func (s *Service) GetRange(ctx context.Context, tenantID string, from, to time.Time) ([]*model.DailyAnalytics, error) {
	rows, err := s.analytics.GetRange(ctx, tenantID, from.UTC().Truncate(24*time.Hour), to.UTC())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to load analytics", err)
	}
	return rows, nil
}
