package testutil

import (
	"testing"

	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateTenant 插入一个活跃租户并返回
func CreateTenant(t *testing.T, db *gorm.DB, slug string) *model.Tenant {
	t.Helper()

	tenant := &model.Tenant{
		ID:     uuid.New().String(),
		Slug:   slug,
		Name:   slug + " Inc",
		Status: model.TenantStatusActive,
	}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("failed to create tenant %s: %v", slug, err)
	}
	return tenant
}

// CreateTenantWithConfig 插入带 AI 配置的租户
func CreateTenantWithConfig(t *testing.T, db *gorm.DB, slug string, cfg *model.TenantAIConfig) *model.Tenant {
	t.Helper()

	tenant := &model.Tenant{
		ID:       uuid.New().String(),
		Slug:     slug,
		Name:     slug + " Inc",
		Status:   model.TenantStatusActive,
		AIConfig: cfg,
	}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("failed to create tenant %s: %v", slug, err)
	}
	return tenant
}

// FloatPtr 便捷取指针
func FloatPtr(v float64) *float64 { return &v }
