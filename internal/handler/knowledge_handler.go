package handler

import (
	"github.com/ashwinyue/agenteva/internal/middleware"
	"github.com/ashwinyue/agenteva/internal/service"
	"github.com/ashwinyue/agenteva/internal/service/knowledge"
	"github.com/gin-gonic/gin"
)

// KnowledgeHandler 知识库处理器
type KnowledgeHandler struct {
	svc *service.Services
}

// NewKnowledgeHandler 创建知识库处理器
func NewKnowledgeHandler(svc *service.Services) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

// UploadRequest 上传文档请求
type UploadRequest struct {
	Title    string                 `json:"title" binding:"required"`
	Content  string                 `json:"content" binding:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Upload 上传并索引文档
// POST /api/:tenant/knowledge
func (h *KnowledgeHandler) Upload(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "title and content are required")
		return
	}

	doc, err := h.svc.Knowledge.CreateDocument(c.Request.Context(), t.ID, req.Title, req.Content, req.Metadata)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, doc)
}

// List 列出文档
// GET /api/:tenant/knowledge
func (h *KnowledgeHandler) List(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	docs, err := h.svc.Knowledge.ListDocuments(c.Request.Context(), t.ID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, docs)
}

// Get 取单个文档
// GET /api/:tenant/knowledge/:id
func (h *KnowledgeHandler) Get(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	doc, err := h.svc.Knowledge.GetDocument(c.Request.Context(), t.ID, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, doc)
}

// UpdateRequest 更新文档请求
type UpdateRequest struct {
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Update 更新文档并重建索引
// PUT /api/:tenant/knowledge/:id
func (h *KnowledgeHandler) Update(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid update payload")
		return
	}

	doc, err := h.svc.Knowledge.UpdateDocument(c.Request.Context(), t.ID, c.Param("id"), req.Title, req.Content, req.Metadata)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, doc)
}

// Delete 删除文档及其向量
// DELETE /api/:tenant/knowledge/:id
func (h *KnowledgeHandler) Delete(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	if err := h.svc.Knowledge.DeleteDocument(c.Request.Context(), t.ID, c.Param("id")); err != nil {
		Error(c, err)
		return
	}
	NoContent(c)
}

// SearchRequest 检索请求
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// Search 检索知识库
// POST /api/:tenant/knowledge/search
func (h *KnowledgeHandler) Search(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if t == nil {
		Unauthorized(c, "tenant not resolved")
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "query is required")
		return
	}

	docs, err := h.svc.Knowledge.Search(c.Request.Context(), t.ID, req.Query, &knowledge.SearchOptions{TopK: req.TopK})
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, docs)
}
