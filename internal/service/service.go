// Package service 服务装配
package service

import (
	"context"
	"time"

	"github.com/ashwinyue/agenteva/internal/config"
	"github.com/ashwinyue/agenteva/internal/repository"
	"github.com/ashwinyue/agenteva/internal/service/analytics"
	"github.com/ashwinyue/agenteva/internal/service/chat"
	"github.com/ashwinyue/agenteva/internal/service/conversation"
	"github.com/ashwinyue/agenteva/internal/service/knowledge"
	"github.com/ashwinyue/agenteva/internal/service/ratelimit"
	"github.com/ashwinyue/agenteva/internal/service/tenant"
	"github.com/ashwinyue/agenteva/internal/vectorstore"
	"github.com/redis/go-redis/v9"
)

// Services 服务集合
type Services struct {
	Tenant        *tenant.Service
	Conversations *conversation.Store
	Knowledge     *knowledge.Service
	Analytics     *analytics.Service
	Orchestrator  *chat.Orchestrator
	RateLimiter   ratelimit.Limiter

	Config *config.Config
}

// NewServices 创建所有服务
// 向量库与 eino 组件在这里构造一次，显式传给使用方
func NewServices(repos *repository.Repositories, cfg *config.Config, store vectorstore.Store, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tenantSvc := tenant.NewService(repos.Tenant)
	convStore := conversation.NewStore(repos.Conversation)

	indexer := knowledge.NewIndexer(embedder, store)
	retriever := knowledge.NewRetriever(embedder, store)
	knowledgeSvc := knowledge.NewService(repos.Knowledge, indexer, retriever)

	orchestrator := chat.NewOrchestrator(
		tenantSvc,
		convStore,
		retriever,
		chat.NewGenerator(chatModel),
		time.Duration(cfg.Server.RequestTimeout)*time.Second,
	)

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Backend == "redis" && redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.RequestsPerMinute)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.RequestsPerMinute)
	}

	return &Services{
		Tenant:        tenantSvc,
		Conversations: convStore,
		Knowledge:     knowledgeSvc,
		Analytics:     analytics.NewService(repos.Analytics, repos.Conversation),
		Orchestrator:  orchestrator,
		RateLimiter:   limiter,
		Config:        cfg,
	}, nil
}
