// Package tenant 租户解析与租户级配置服务
package tenant

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ashwinyue/agenteva/internal/apperr"
	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/ashwinyue/agenteva/internal/repository"
	"gorm.io/gorm"
)

// 租户 AI 配置的缺省值
const (
	DefaultModel            = "gpt-4o-mini"
	DefaultTemperature      = 0.7
	DefaultMaxTokens        = 500
	DefaultMessageThreshold = 999
	DefaultSystemPrompt     = "You are a helpful customer support assistant."
)

// EffectiveConfig 合并缺省值后的租户 AI 配置
type EffectiveConfig struct {
	Model              string
	Temperature        float64
	MaxTokens          int
	SystemPrompt       string
	EscalationKeywords []string
	FallbackResponses  []string
	MessageThreshold   int
	CompanyName        string
	SupportEmail       string
}

// Service 租户服务
type Service struct {
	repo *repository.TenantRepository
}

// NewService 创建租户服务
func NewService(repo *repository.TenantRepository) *Service {
	return &Service{repo: repo}
}

// GetBySlug 按 slug 解析租户，未知租户视为配置错误
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	if slug == "" {
		return nil, apperr.Validationf("tenant slug is required")
	}
	tenant, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Configurationf("unknown tenant: %s", slug)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to load tenant", err)
	}
	if tenant.Status == model.TenantStatusSuspended || tenant.Status == model.TenantStatusCancelled {
		return nil, apperr.Configurationf("tenant %s is not active", slug)
	}
	return tenant, nil
}

// GetByID 按 ID 解析租户
func (s *Service) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Configurationf("unknown tenant id: %s", id)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, "failed to load tenant", err)
	}
	return tenant, nil
}

// ResolveConfig 取租户 AI 配置，缺失字段回落到缺省值
func (s *Service) ResolveConfig(tenant *model.Tenant) EffectiveConfig {
	cfg := EffectiveConfig{
		Model:            DefaultModel,
		Temperature:      DefaultTemperature,
		MaxTokens:        DefaultMaxTokens,
		MessageThreshold: DefaultMessageThreshold,
		SystemPrompt:     DefaultSystemPrompt,
	}
	if tenant == nil {
		return cfg
	}
	if tenant.Branding != nil && tenant.Branding.CompanyName != "" {
		cfg.CompanyName = tenant.Branding.CompanyName
	} else {
		cfg.CompanyName = tenant.Name
	}
	if tenant.Branding != nil {
		cfg.SupportEmail = tenant.Branding.SupportEmail
	}

	ai := tenant.AIConfig
	if ai == nil {
		return cfg
	}
	if ai.Model != "" {
		cfg.Model = ai.Model
	}
	if ai.Temperature != nil {
		cfg.Temperature = *ai.Temperature
	}
	if ai.MaxTokens > 0 {
		cfg.MaxTokens = ai.MaxTokens
	}
	if ai.MessageThreshold > 0 {
		cfg.MessageThreshold = ai.MessageThreshold
	}
	if ai.SystemPrompt != "" {
		cfg.SystemPrompt = ai.SystemPrompt
	}
	cfg.EscalationKeywords = ai.EscalationKeywords
	cfg.FallbackResponses = ai.FallbackResponses
	return cfg
}

// UpdateAIConfig 覆盖租户 AI 配置并持久化
func (s *Service) UpdateAIConfig(ctx context.Context, tenant *model.Tenant, cfg *model.TenantAIConfig) error {
	tenant.AIConfig = cfg
	if err := s.repo.Update(ctx, tenant); err != nil {
		return apperr.Wrap(apperr.KindPersistence, "failed to update tenant config", err)
	}
	return nil
}

// GenerateAPIKey 生成形如 {slug}_live_{random} 的密钥，仅保存哈希，明文只返回一次
func (s *Service) GenerateAPIKey(ctx context.Context, tenant *model.Tenant) (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	key := fmt.Sprintf("%s_live_%s", tenant.Slug, hex.EncodeToString(raw))

	tenant.APIKeyHash = HashAPIKey(key)
	tenant.APIKey = ""
	if err := s.repo.Update(ctx, tenant); err != nil {
		return "", apperr.Wrap(apperr.KindPersistence, "failed to store api key", err)
	}
	return key, nil
}

// VerifyAPIKey 常数时间比较哈希，老租户回落到明文字段
func (s *Service) VerifyAPIKey(tenant *model.Tenant, key string) bool {
	if key == "" {
		return false
	}
	if tenant.APIKeyHash != "" {
		hashed := HashAPIKey(key)
		return subtle.ConstantTimeCompare([]byte(hashed), []byte(tenant.APIKeyHash)) == 1
	}
	if tenant.APIKey != "" {
		return subtle.ConstantTimeCompare([]byte(key), []byte(tenant.APIKey)) == 1
	}
	return false
}

// HashAPIKey SHA-256 十六进制哈希
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
