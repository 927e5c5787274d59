package chat

import (
	"testing"

	"github.com/ashwinyue/agenteva/internal/service/tenant"
)

func TestShouldEscalate(t *testing.T) {
	cfg := tenant.EffectiveConfig{
		EscalationKeywords: []string{"Refund", "speak to a human"},
		MessageThreshold:   10,
	}

	tests := []struct {
		name        string
		userMessage string
		aiResponse  string
		count       int
		want        bool
	}{
		{"no trigger", "what are your hours?", "9 to 5", 2, false},
		{"keyword in user message", "I want a REFUND now", "let me check", 2, true},
		{"keyword inside larger word still matches", "refunds please", "ok", 2, true},
		{"keyword in ai response", "help", "You should speak to a human agent", 2, true},
		{"keyword formed across the joined text matches", "speak to", "a human please", 2, true},
		{"threshold reached", "hello", "hi", 10, true},
		{"below threshold", "hello", "hi", 9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ShouldEscalate(cfg, tt.userMessage, tt.aiResponse, tt.count)
			if got != tt.want {
				t.Errorf("expected %v, got %v (reason %q)", tt.want, got, reason)
			}
			if got && reason == "" {
				t.Error("escalation must carry a reason")
			}
		})
	}
}

func TestShouldEscalateNoKeywords(t *testing.T) {
	cfg := tenant.EffectiveConfig{MessageThreshold: tenant.DefaultMessageThreshold}
	if got, _ := ShouldEscalate(cfg, "I demand a refund immediately", "sure", 50); got {
		t.Error("no keywords configured, must not escalate")
	}
}
