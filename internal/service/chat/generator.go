// Package chat 回复生成、转人工判定与消息处理编排
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/ashwinyue/agenteva/internal/service/knowledge"
	"github.com/ashwinyue/agenteva/internal/service/tenant"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// 置信度档位：正常收尾 0.9，截断等异常收尾 0.7，提供方失败走兜底 0.5
const (
	confidenceComplete  = 0.9
	confidenceTruncated = 0.7
	confidenceFallback  = 0.5
)

// DefaultFallbackResponse 租户未配置兜底话术时使用
const DefaultFallbackResponse = "I'm having trouble processing that right now. Please try again or contact support."

// 拼接上下文时带入的历史消息上限
const historyWindow = 10

// GenerateResult 一次生成的结果
type GenerateResult struct {
	Response   string
	Confidence float64
	Fallback   bool // 提供方失败，返回的是兜底话术
}

// Generator 基于 ChatModel 的回复生成器
type Generator struct {
	chatModel einomodel.BaseChatModel
}

// NewGenerator 创建生成器
func NewGenerator(chatModel einomodel.BaseChatModel) *Generator {
	return &Generator{chatModel: chatModel}
}

// Generate 生成一条回复
// 提供方失败不向上抛错，改用租户兜底话术并压低置信度
func (g *Generator) Generate(ctx context.Context, cfg tenant.EffectiveConfig, userMessage string, history []*model.Message, docs []knowledge.Document) GenerateResult {
	messages := g.buildMessages(cfg, userMessage, history, docs)

	opts := []einomodel.Option{
		einomodel.WithModel(cfg.Model),
		einomodel.WithTemperature(float32(cfg.Temperature)),
		einomodel.WithMaxTokens(cfg.MaxTokens),
	}
	resp, err := g.chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		log.Printf("chat model error: %v", err)
		return GenerateResult{
			Response:   fallbackResponse(cfg),
			Confidence: confidenceFallback,
			Fallback:   true,
		}
	}

	confidence := confidenceTruncated
	if resp.ResponseMeta != nil && resp.ResponseMeta.FinishReason == "stop" {
		confidence = confidenceComplete
	}
	return GenerateResult{Response: resp.Content, Confidence: confidence}
}

// buildMessages 组装 system 提示、最近历史和当前消息
func (g *Generator) buildMessages(cfg tenant.EffectiveConfig, userMessage string, history []*model.Message, docs []knowledge.Document) []*schema.Message {
	messages := []*schema.Message{
		schema.SystemMessage(buildSystemPrompt(cfg, buildContext(docs))),
	}

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, msg := range history {
		messages = append(messages, &schema.Message{
			Role:    schema.RoleType(msg.Role),
			Content: msg.Content,
		})
	}

	// 当前消息若已作为最后一条历史落库则不重复追加
	if len(history) == 0 || history[len(history)-1].Content != userMessage {
		messages = append(messages, schema.UserMessage(userMessage))
	}
	return messages
}

// buildSystemPrompt 基础提示词加公司信息，再挂知识库上下文
func buildSystemPrompt(cfg tenant.EffectiveConfig, context string) string {
	var b strings.Builder
	b.WriteString(cfg.SystemPrompt)
	b.WriteString("\n\nCompany: ")
	b.WriteString(cfg.CompanyName)
	if cfg.SupportEmail != "" {
		b.WriteString("\nSupport Email: ")
		b.WriteString(cfg.SupportEmail)
	}
	if context != "" {
		b.WriteString("\n\n")
		b.WriteString(context)
	}
	return b.String()
}

// buildContext 把检索命中拼成带来源标注的上下文块
func buildContext(docs []knowledge.Document) string {
	if len(docs) == 0 {
		return ""
	}
	parts := []string{"Here is relevant information from our knowledge base:\n"}
	for i, doc := range docs {
		title := doc.Title
		if title == "" {
			title = "Document"
		}
		parts = append(parts, fmt.Sprintf("\n[Source %d: %s]\n%s\n", i+1, title, doc.Content))
	}
	return strings.Join(parts, "\n")
}

func fallbackResponse(cfg tenant.EffectiveConfig) string {
	if len(cfg.FallbackResponses) > 0 && cfg.FallbackResponses[0] != "" {
		return cfg.FallbackResponses[0]
	}
	return DefaultFallbackResponse
}
