package model

// 所有模型的统一导入点
// 用于 AutoMigrate
var AllModels = []interface{}{
	&Tenant{},
	&Conversation{},
	&Message{},
	&KnowledgeDocument{},
	&DailyAnalytics{},
}

// ChunkVector 由 pgvector 后端自行迁移（依赖 vector 扩展，不放进 AllModels）
