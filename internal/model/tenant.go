// Package model 提供租户相关的数据模型
package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantStatus 租户状态
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"    // 活跃
	TenantStatusTrial     TenantStatus = "trial"     // 试用
	TenantStatusSuspended TenantStatus = "suspended" // 暂停
	TenantStatusCancelled TenantStatus = "cancelled" // 注销
)

// Tenant 租户
type Tenant struct {
	ID     string       `json:"id" gorm:"type:varchar(36);primaryKey"`
	Slug   string       `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name   string       `json:"name" gorm:"type:varchar(255);not null"`
	Domain string       `json:"domain,omitempty" gorm:"type:varchar(255)"`
	Status TenantStatus `json:"status" gorm:"type:varchar(50);default:'trial';index"`

	// APIKey 明文密钥，仅为兼容旧数据保留；新租户只写 APIKeyHash
	APIKey     string `json:"-" gorm:"type:varchar(255);index"`
	APIKeyHash string `json:"-" gorm:"type:varchar(64);index"`

	// 配置字段（JSON）
	AIConfig     *TenantAIConfig `json:"ai_config,omitempty" gorm:"type:jsonb"`
	Branding     *BrandingConfig `json:"branding,omitempty" gorm:"type:jsonb"`
	BusinessInfo JSON            `json:"business_info,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeCreate GORM 钩子
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Tenant) TableName() string {
	return "tenants"
}

// TenantAIConfig 租户 AI 配置
// 显式字段替代原来的 "ai.model" 点路径查找，缺省值在 service/tenant 中补齐
type TenantAIConfig struct {
	Model              string   `json:"model,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
	MaxTokens          int      `json:"max_tokens,omitempty"`
	SystemPrompt       string   `json:"system_prompt,omitempty"`
	EscalationKeywords []string `json:"escalation_keywords,omitempty"`
	FallbackResponses  []string `json:"fallback_responses,omitempty"`
	// MessageThreshold 对话消息数转人工阈值，0 表示使用默认（实际禁用）
	MessageThreshold int `json:"message_threshold,omitempty"`
}

// BrandingConfig 租户品牌配置
type BrandingConfig struct {
	CompanyName  string `json:"company_name,omitempty"`
	SupportEmail string `json:"support_email,omitempty"`
	PrimaryColor string `json:"primary_color,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
}

// Value 实现 driver.Valuer for TenantAIConfig
func (c *TenantAIConfig) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

// Scan 实现 sql.Scanner for TenantAIConfig
func (c *TenantAIConfig) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			b = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(b, c)
}

// Value 实现 driver.Valuer for BrandingConfig
func (c *BrandingConfig) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

// Scan 实现 sql.Scanner for BrandingConfig
func (c *BrandingConfig) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			b = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(b, c)
}
