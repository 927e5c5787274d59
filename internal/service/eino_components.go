package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ashwinyue/agenteva/internal/config"
	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/embedding"
	einomodel "github.com/cloudwego/eino/components/model"
)

// newChatModel 创建 ChatModel
func newChatModel(ctx context.Context, cfg *config.Config) (einomodel.BaseChatModel, error) {
	aiCfg := cfg.AI

	var apiKey, baseURL, modelName string

	switch aiCfg.Provider {
	case "openai", "":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
	case "deepseek":
		apiKey = aiCfg.DeepSeek.APIKey
		baseURL = aiCfg.DeepSeek.BaseURL
		modelName = aiCfg.DeepSeek.Model
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   modelName,
	})
}

// newEmbedder 创建 Embedding 器
func newEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	embCfg := cfg.AI.Embedding

	apiKey := embCfg.APIKey
	if apiKey == "" {
		apiKey = cfg.AI.OpenAI.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("embedding api_key is required")
	}

	modelName := embCfg.Model
	if modelName == "" {
		modelName = "text-embedding-3-small"
	}

	conf := &openaiembed.EmbeddingConfig{
		APIKey:  apiKey,
		BaseURL: embCfg.BaseURL,
		Model:   modelName,
		Timeout: time.Duration(embCfg.Timeout) * time.Second,
	}
	if embCfg.Dimensions > 0 {
		dims := embCfg.Dimensions
		conf.Dimensions = &dims
	}
	return openaiembed.NewEmbedder(ctx, conf)
}
