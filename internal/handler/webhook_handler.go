package handler

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/ashwinyue/agenteva/internal/service"
	"github.com/gin-gonic/gin"
)

// WebhookHandler 入站渠道（短信/语音/邮件）处理器
type WebhookHandler struct {
	svc *service.Services
}

// NewWebhookHandler 创建 Webhook 处理器
func NewWebhookHandler(svc *service.Services) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// verifyTwilioSignature 校验 X-Twilio-Signature
// 签名串为完整 URL 拼接按键排序的表单参数，HMAC-SHA1 后十六进制比较
func verifyTwilioSignature(url string, params map[string]string, signature, authToken string) bool {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

func (h *WebhookHandler) formParams(c *gin.Context) map[string]string {
	if err := c.Request.ParseForm(); err != nil {
		return nil
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

// 号码到租户的映射尚未建表，回落到配置的缺省租户
func (h *WebhookHandler) inboundTenant() string {
	return h.svc.Config.Webhook.DefaultTenant
}

// TwilioSMS 接收 Twilio 短信
// POST /webhooks/twilio/sms
func (h *WebhookHandler) TwilioSMS(c *gin.Context) {
	params := h.formParams(c)
	if params == nil {
		BadRequest(c, "invalid form payload")
		return
	}

	if token := h.svc.Config.Webhook.TwilioAuthToken; token != "" {
		url := "https://" + c.Request.Host + c.Request.URL.RequestURI()
		if !verifyTwilioSignature(url, params, c.GetHeader("X-Twilio-Signature"), token) {
			Unauthorized(c, "invalid signature")
			return
		}
	}

	from, body := params["From"], params["Body"]
	log.Printf("twilio sms webhook: %s -> %s", from, params["To"])

	result, err := h.svc.Orchestrator.ProcessMessage(
		c.Request.Context(),
		h.inboundTenant(),
		body,
		"sms_"+from,
		"sms",
	)
	if err != nil {
		Error(c, err)
		return
	}

	twiml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
    <Message>%s</Message>
</Response>`, escapeXML(result.Response))
	c.Data(http.StatusOK, "application/xml", []byte(twiml))
}

// TwilioVoice 接收 Twilio 语音转写
// POST /webhooks/twilio/voice
func (h *WebhookHandler) TwilioVoice(c *gin.Context) {
	params := h.formParams(c)
	if params == nil {
		BadRequest(c, "invalid form payload")
		return
	}

	speech := params["SpeechResult"]
	if speech == "" {
		// 来电首包，引导用户说话
		c.Data(http.StatusOK, "application/xml", []byte(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
    <Gather input="speech" action="/webhooks/twilio/voice" method="POST" timeout="3">
        <Say>Hi! How can I help you today?</Say>
    </Gather>
</Response>`))
		return
	}

	result, err := h.svc.Orchestrator.ProcessMessage(
		c.Request.Context(),
		h.inboundTenant(),
		speech,
		"voice_"+params["CallSid"],
		"voice",
	)
	if err != nil {
		Error(c, err)
		return
	}

	twiml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
    <Say>%s</Say>
    <Gather input="speech" action="/webhooks/twilio/voice" method="POST" timeout="3">
        <Say>How else can I help you?</Say>
    </Gather>
</Response>`, escapeXML(result.Response))
	c.Data(http.StatusOK, "application/xml", []byte(twiml))
}

// VapiRequest Vapi 事件
type VapiRequest struct {
	MessageType string `json:"message_type"`
	CallID      string `json:"call_id"`
	Transcript  string `json:"transcript"`
}

// Vapi 接收 Vapi 语音助手事件
// POST /webhooks/vapi/:tenant
func (h *WebhookHandler) Vapi(c *gin.Context) {
	var req VapiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid vapi payload")
		return
	}

	// 只处理转写事件，其余事件确认即可
	if req.MessageType != "transcript" || req.Transcript == "" {
		Success(c, gin.H{"status": "ok"})
		return
	}

	result, err := h.svc.Orchestrator.ProcessMessage(
		c.Request.Context(),
		c.Param("tenant"),
		req.Transcript,
		"vapi_"+req.CallID,
		"voice",
	)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"response": result.Response,
		"end_call": result.Escalate,
	})
}

// SendGridInbound 接收 SendGrid 入站邮件
// POST /webhooks/sendgrid/inbound
func (h *WebhookHandler) SendGridInbound(c *gin.Context) {
	from := c.PostForm("from")
	subject := c.PostForm("subject")
	text := c.PostForm("text")
	if from == "" {
		BadRequest(c, "from is required")
		return
	}

	message := text
	if subject != "" {
		message = fmt.Sprintf("Subject: %s\n\n%s", subject, text)
	}

	result, err := h.svc.Orchestrator.ProcessMessage(
		c.Request.Context(),
		h.inboundTenant(),
		message,
		"email_"+from,
		"email",
	)
	if err != nil {
		Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Email processed",
		"response": result.Response,
	})
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlReplacer.Replace(s)
}
