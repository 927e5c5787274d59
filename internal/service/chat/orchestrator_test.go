package chat

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"testing"

	"github.com/ashwinyue/agenteva/internal/apperr"
	"github.com/ashwinyue/agenteva/internal/model"
	"github.com/ashwinyue/agenteva/internal/repository"
	"github.com/ashwinyue/agenteva/internal/service/conversation"
	"github.com/ashwinyue/agenteva/internal/service/knowledge"
	"github.com/ashwinyue/agenteva/internal/service/tenant"
	"github.com/ashwinyue/agenteva/internal/testutil"
	"github.com/ashwinyue/agenteva/internal/vectorstore"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

type stubEmbedder struct{}

func (stubEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		sum := sha256.Sum256([]byte(text))
		vec := make([]float64, 8)
		for j := range vec {
			vec[j] = float64(sum[j]) / 255.0
		}
		out[i] = vec
	}
	return out, nil
}

type orchestratorEnv struct {
	orch   *Orchestrator
	store  *conversation.Store
	repos  *repository.Repositories
	tenant *model.Tenant
	cm     *mockChatModel
	vs     *vectorstore.MemoryStore
}

func newOrchestratorEnv(t *testing.T, aiCfg *model.TenantAIConfig) *orchestratorEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	repos := repository.NewRepositories(db)
	tn := testutil.CreateTenantWithConfig(t, db, "acme", aiCfg)

	vs := vectorstore.NewMemoryStore()
	cm := &mockChatModel{}
	tenants := tenant.NewService(repos.Tenant)
	store := conversation.NewStore(repos.Conversation)
	retriever := knowledge.NewRetriever(stubEmbedder{}, vs)

	return &orchestratorEnv{
		orch:   NewOrchestrator(tenants, store, retriever, NewGenerator(cm), 0),
		store:  store,
		repos:  repos,
		tenant: tn,
		cm:     cm,
		vs:     vs,
	}
}

func TestProcessMessageHappyPath(t *testing.T) {
	env := newOrchestratorEnv(t, nil)
	ctx := context.Background()

	// 预置知识库内容，查询与内容都用同一嵌入桩保证可命中
	if err := env.vs.Upsert(ctx, []vectorstore.Vector{{
		ID:     "doc-1",
		Values: mustEmbed(t, "when are you open?"),
		Metadata: map[string]interface{}{
			vectorstore.FieldTenantID: env.tenant.ID,
			"title":                   "Hours",
			"content":                 "Open weekdays 9 to 5",
		},
	}}); err != nil {
		t.Fatal(err)
	}

	res, err := env.orch.ProcessMessage(ctx, "acme", "when are you open?", "sess-1", "web")
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if res.Response != "We are open 9am to 5pm." {
		t.Errorf("unexpected response: %q", res.Response)
	}
	if res.Escalate {
		t.Error("happy path must not escalate")
	}
	if res.Confidence != confidenceComplete {
		t.Errorf("expected confidence %v, got %v", confidenceComplete, res.Confidence)
	}
	if res.SessionID != "sess-1" || res.ConversationID == "" {
		t.Errorf("identifiers missing: %+v", res)
	}

	// 检索内容要出现在 system 提示里
	if !strings.Contains(env.cm.lastInput[0].Content, "Open weekdays 9 to 5") {
		t.Error("retrieved context not injected into system prompt")
	}

	// 用户与助手消息各一条，助手消息带元数据
	history, err := env.store.History(ctx, res.ConversationID, env.tenant.ID, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Role != model.RoleUser || history[1].Role != model.RoleAssistant {
		t.Errorf("unexpected roles: %s, %s", history[0].Role, history[1].Role)
	}
	// jsonb 往返后数值统一为 float64
	meta := history[1].Metadata
	if meta["confidence"] != confidenceComplete {
		t.Errorf("assistant metadata confidence = %v", meta["confidence"])
	}
	if meta["escalation_triggered"] != false {
		t.Errorf("assistant metadata escalation_triggered = %v", meta["escalation_triggered"])
	}
	if n, ok := meta["documents_used"].(float64); !ok || n != 1 {
		t.Errorf("assistant metadata documents_used = %v", meta["documents_used"])
	}

	// 同一会话继续提问复用对话
	res2, err := env.orch.ProcessMessage(ctx, "acme", "and weekends?", "sess-1", "web")
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if res2.ConversationID != res.ConversationID {
		t.Error("follow-up must reuse the active conversation")
	}
}

func TestProcessMessageKeywordEscalation(t *testing.T) {
	env := newOrchestratorEnv(t, &model.TenantAIConfig{
		EscalationKeywords: []string{"refund"},
	})
	ctx := context.Background()

	res, err := env.orch.ProcessMessage(ctx, "acme", "I want a refund", "sess-esc", "web")
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if !res.Escalate {
		t.Fatal("expected escalation")
	}

	conv, err := env.store.Get(ctx, res.ConversationID, env.tenant.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if conv.ResolutionStatus != model.StatusEscalated || !conv.Escalated {
		t.Errorf("conversation not marked escalated: %+v", conv)
	}

	history, _ := env.store.History(ctx, res.ConversationID, env.tenant.ID, 0)
	if len(history) != 2 {
		t.Errorf("messages must still be persisted, got %d", len(history))
	}
	if history[1].Metadata["escalation_triggered"] != true {
		t.Error("assistant metadata must record the escalation")
	}
}

func TestProcessMessageProviderFailure(t *testing.T) {
	env := newOrchestratorEnv(t, &model.TenantAIConfig{
		FallbackResponses: []string{"We are briefly unavailable, sorry."},
	})
	env.cm.generateFunc = func(_ context.Context, _ []*schema.Message) (*schema.Message, error) {
		return nil, errors.New("provider down")
	}
	ctx := context.Background()

	res, err := env.orch.ProcessMessage(ctx, "acme", "hello there", "sess-fb", "web")
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if res.Response != "We are briefly unavailable, sorry." {
		t.Errorf("expected tenant fallback, got %q", res.Response)
	}
	if res.Confidence != confidenceFallback {
		t.Errorf("expected confidence %v, got %v", confidenceFallback, res.Confidence)
	}
	// 兜底话术不含任何关键词也必须转人工
	if !res.Escalate {
		t.Error("provider failure must escalate")
	}

	// 兜底回复照常落库，对话标记升级
	history, _ := env.store.History(ctx, res.ConversationID, env.tenant.ID, 0)
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[1].Metadata["escalation_triggered"] != true {
		t.Error("assistant metadata must record the escalation")
	}
	conv, _ := env.store.Get(ctx, res.ConversationID, env.tenant.ID)
	if conv.ResolutionStatus != model.StatusEscalated || !conv.Escalated {
		t.Errorf("conversation not marked escalated: %+v", conv)
	}
}

func TestProcessMessageFatalPath(t *testing.T) {
	env := newOrchestratorEnv(t, nil)
	ctx := context.Background()

	res, err := env.orch.ProcessMessage(ctx, "no-such-tenant", "hello", "sess-x", "web")
	if err != nil {
		t.Fatalf("fatal path must not return an error: %v", err)
	}
	if res.Response != ErrorResponse {
		t.Errorf("expected fixed apology, got %q", res.Response)
	}
	if !res.Escalate || res.Confidence != 0 {
		t.Errorf("fatal path must escalate with zero confidence: %+v", res)
	}
	if res.SessionID != "sess-x" {
		t.Errorf("session id must be echoed, got %q", res.SessionID)
	}
	if _, parseErr := uuid.Parse(res.ConversationID); parseErr != nil {
		t.Errorf("expected ephemeral uuid conversation id, got %q", res.ConversationID)
	}
}

func TestProcessMessageValidation(t *testing.T) {
	env := newOrchestratorEnv(t, nil)
	ctx := context.Background()

	if _, err := env.orch.ProcessMessage(ctx, "acme", "", "sess-1", "web"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for empty message, got %v", err)
	}
	if _, err := env.orch.ProcessMessage(ctx, "acme", "hi", "", "web"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for empty session, got %v", err)
	}
}

func mustEmbed(t *testing.T, text string) []float64 {
	t.Helper()
	vecs, err := stubEmbedder{}.EmbedStrings(context.Background(), []string{text})
	if err != nil {
		t.Fatal(err)
	}
	return vecs[0]
}
