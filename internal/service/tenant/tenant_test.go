package tenant

import (
	"context"
	"strings"
	"testing"

	"github.com/ashwinyue/agenteva/internal/apperr"
	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/ashwinyue/agenteva/internal/repository"
	"github.com/ashwinyue/agenteva/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()
	db := testutil.NewTestDB(t)
	repos := repository.NewRepositories(db)
	return NewService(repos.Tenant), repos
}

func TestGetBySlug(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()
	testutil.CreateTenant(t, repos.DB, "acme")

	t.Run("existing tenant", func(t *testing.T) {
		tenant, err := svc.GetBySlug(ctx, "acme")
		if err != nil {
			t.Fatalf("GetBySlug failed: %v", err)
		}
		if tenant.Slug != "acme" {
			t.Errorf("expected slug acme, got %s", tenant.Slug)
		}
	})

	t.Run("unknown tenant is a configuration error", func(t *testing.T) {
		_, err := svc.GetBySlug(ctx, "nope")
		if err == nil {
			t.Fatal("expected error")
		}
		if !apperr.Is(err, apperr.KindConfiguration) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("empty slug is a validation error", func(t *testing.T) {
		_, err := svc.GetBySlug(ctx, "")
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("suspended tenant is rejected", func(t *testing.T) {
		suspended := testutil.CreateTenant(t, repos.DB, "frozen")
		suspended.Status = model.TenantStatusSuspended
		if err := repos.Tenant.Update(ctx, suspended); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		_, err := svc.GetBySlug(ctx, "frozen")
		if !apperr.Is(err, apperr.KindConfiguration) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}

func TestResolveConfig(t *testing.T) {
	svc, _ := newTestService(t)

	t.Run("defaults when config absent", func(t *testing.T) {
		cfg := svc.ResolveConfig(&model.Tenant{Name: "Acme Inc"})
		if cfg.Model != DefaultModel {
			t.Errorf("expected %s, got %s", DefaultModel, cfg.Model)
		}
		if cfg.Temperature != DefaultTemperature {
			t.Errorf("expected %v, got %v", DefaultTemperature, cfg.Temperature)
		}
		if cfg.MaxTokens != DefaultMaxTokens {
			t.Errorf("expected %d, got %d", DefaultMaxTokens, cfg.MaxTokens)
		}
		if cfg.MessageThreshold != DefaultMessageThreshold {
			t.Errorf("expected %d, got %d", DefaultMessageThreshold, cfg.MessageThreshold)
		}
		if cfg.CompanyName != "Acme Inc" {
			t.Errorf("expected company name fallback to tenant name, got %s", cfg.CompanyName)
		}
	})

	t.Run("tenant overrides win", func(t *testing.T) {
		tenant := &model.Tenant{
			Name: "Acme Inc",
			AIConfig: &model.TenantAIConfig{
				Model:              "gpt-4o",
				Temperature:        testutil.FloatPtr(0.2),
				MaxTokens:          800,
				EscalationKeywords: []string{"refund"},
				MessageThreshold:   5,
			},
			Branding: &model.BrandingConfig{CompanyName: "Acme Support"},
		}
		cfg := svc.ResolveConfig(tenant)
		if cfg.Model != "gpt-4o" || cfg.Temperature != 0.2 || cfg.MaxTokens != 800 {
			t.Errorf("overrides not applied: %+v", cfg)
		}
		if cfg.MessageThreshold != 5 {
			t.Errorf("expected threshold 5, got %d", cfg.MessageThreshold)
		}
		if cfg.CompanyName != "Acme Support" {
			t.Errorf("expected branding company name, got %s", cfg.CompanyName)
		}
		if len(cfg.EscalationKeywords) != 1 || cfg.EscalationKeywords[0] != "refund" {
			t.Errorf("keywords not carried: %v", cfg.EscalationKeywords)
		}
	})

	t.Run("zero temperature override is respected", func(t *testing.T) {
		tenant := &model.Tenant{
			AIConfig: &model.TenantAIConfig{Temperature: testutil.FloatPtr(0)},
		}
		cfg := svc.ResolveConfig(tenant)
		if cfg.Temperature != 0 {
			t.Errorf("expected explicit zero temperature, got %v", cfg.Temperature)
		}
	})
}

func TestAPIKeyLifecycle(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()
	tenant := testutil.CreateTenant(t, repos.DB, "acme")

	key, err := svc.GenerateAPIKey(ctx, tenant)
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	if !strings.HasPrefix(key, "acme_live_") {
		t.Errorf("unexpected key format: %s", key)
	}

	stored, err := svc.GetBySlug(ctx, "acme")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if stored.APIKeyHash == "" || stored.APIKeyHash == key {
		t.Error("expected hashed key in storage, not plaintext")
	}

	if !svc.VerifyAPIKey(stored, key) {
		t.Error("expected generated key to verify")
	}
	if svc.VerifyAPIKey(stored, "acme_live_wrong") {
		t.Error("wrong key must not verify")
	}
	if svc.VerifyAPIKey(stored, "") {
		t.Error("empty key must not verify")
	}
}

func TestVerifyAPIKeyLegacyPlaintext(t *testing.T) {
	svc, _ := newTestService(t)

	tenant := &model.Tenant{APIKey: "acme_live_legacy"}
	if !svc.VerifyAPIKey(tenant, "acme_live_legacy") {
		t.Error("legacy plaintext key should verify")
	}
	if svc.VerifyAPIKey(tenant, "other") {
		t.Error("mismatched legacy key must not verify")
	}
}
