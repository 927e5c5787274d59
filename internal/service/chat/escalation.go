package chat

import (
	"fmt"
	"strings"

	"github.com/ashwinyue/agenteva/internal/service/tenant"
)

// ShouldEscalate 判定是否转人工，返回判定结果和触发原因
// 关键词对用户消息和 AI 回复的拼接文本做大小写不敏感的子串匹配，
// AI 回复里出现的关键词（如兜底话术中的 "contact support"）同样触发
func ShouldEscalate(cfg tenant.EffectiveConfig, userMessage, aiResponse string, messageCount int) (bool, string) {
	combined := strings.ToLower(userMessage + " " + aiResponse)
	for _, keyword := range cfg.EscalationKeywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(keyword)) {
			return true, fmt.Sprintf("keyword: %s", keyword)
		}
	}

	if cfg.MessageThreshold > 0 && messageCount >= cfg.MessageThreshold {
		return true, fmt.Sprintf("message count: %d", messageCount)
	}
	return false, ""
}
