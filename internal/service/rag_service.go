package service

import (
	"context"
	"fmt"
	"strings"

	"kosmos-go/internal/config"
	"kosmos-go/internal/model"
	"kosmos-go/pkg/llm"
	"kosmos-go/pkg/log"
)

// 对话处理阶段，用于日志追踪一次请求的生命周期。
const (
	stageReceived   = "RECEIVED"
	stageEnhancing  = "ENHANCING"
	stageSearching  = "SEARCHING"
	stageGenerating = "GENERATING"
	stageComplete   = "COMPLETE"
	stageFailed     = "FAILED"
)

// EmbeddingProvider 是对话服务需要的向量化能力。
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) []float32
}

// VectorSearcher 是对话服务需要的多集合检索能力。
type VectorSearcher interface {
	HybridSearch(ctx context.Context, collections []string, vector []float32, topK int, filters map[string]interface{}) ([]model.SearchHit, error)
}

// RAGService 定义了检索增强问答的对外操作。
type RAGService interface {
	Chat(ctx context.Context, query string, history []model.ConversationMessage, topK int) model.ChatResult
	StreamChat(ctx context.Context, query string, history []model.ConversationMessage, writer llm.MessageWriter, shouldStop func() bool) ([]model.Source, error)
	ResearchSummary(ctx context.Context, topic string) model.ChatResult
	CompareStudies(ctx context.Context, topics []string) model.ChatResult
	MissionStudies(ctx context.Context, mission string) model.ChatResult
}

type ragService struct {
	enhancer  *QueryEnhancer
	builder   *PromptBuilder
	processor *PostProcessor
	embedder  EmbeddingProvider
	searcher  VectorSearcher
	generator llm.Client
	retrieval config.RetrievalConfig
	prompt    config.PromptConfig
}

// NewRAGService 创建检索增强问答服务。
func NewRAGService(
	enhancer *QueryEnhancer,
	builder *PromptBuilder,
	processor *PostProcessor,
	embedder EmbeddingProvider,
	searcher VectorSearcher,
	generator llm.Client,
	retrieval config.RetrievalConfig,
	prompt config.PromptConfig,
) RAGService {
	return &ragService{
		enhancer:  enhancer,
		builder:   builder,
		processor: processor,
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
		retrieval: retrieval,
		prompt:    prompt,
	}
}

// Chat 执行一次完整的检索增强问答。topK 非正时使用配置默认值。
// 任何内部故障都不会向调用方抛出：失败时返回统一的道歉结果。
func (s *ragService) Chat(ctx context.Context, query string, history []model.ConversationMessage, topK int) (result model.ChatResult) {
	log.Infof("[RAGService] %s: 收到查询: '%s'", stageReceived, query)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[RAGService] %s: 对话处理发生 panic: %v", stageFailed, r)
			result = s.failureResult(query)
		}
	}()

	if strings.TrimSpace(query) == "" {
		return model.ChatResult{
			Response:   "Please provide a question about space biology or related research, and I will search the corpus for you.",
			Sources:    []model.Source{},
			Query:      query,
			NumSources: 0,
			Success:    false,
		}
	}

	hits := s.retrieve(ctx, query, history, nil, topK)

	log.Infof("[RAGService] %s: 开始生成回答, 上下文文档数: %d", stageGenerating, len(hits))
	contextText := s.builder.FormatContext(hits)
	prompt := s.builder.BuildPrompt(query, contextText, history)

	answer, err := s.generator.Generate(ctx, []llm.Message{{Role: model.RoleUser, Content: prompt}}, nil)
	if err != nil {
		log.Errorf("[RAGService] %s: 生成回答失败: %v", stageFailed, err)
		return s.failureResult(query)
	}

	answer = s.processor.EnsurePersona(s.processor.CleanResponse(answer))
	sources := s.buildSources(hits)

	log.Infof("[RAGService] %s: 对话处理完成, 来源数: %d", stageComplete, len(sources))
	return model.ChatResult{
		Response:   answer,
		Sources:    sources,
		Query:      query,
		NumSources: len(sources),
		Success:    true,
	}
}

// StreamChat 以流式方式执行问答，分块写入 writer，返回整理后的来源列表。
func (s *ragService) StreamChat(ctx context.Context, query string, history []model.ConversationMessage, writer llm.MessageWriter, shouldStop func() bool) ([]model.Source, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("查询内容为空")
	}
	log.Infof("[RAGService] %s: 收到流式查询: '%s'", stageReceived, query)

	hits := s.retrieve(ctx, query, history, nil, 0)

	systemMsg := s.builder.SystemMessage(s.builder.FormatContext(hits))
	messages := s.builder.ComposeMessages(systemMsg, history, query)

	interceptor := &stopAwareWriter{writer: writer, shouldStop: shouldStop}
	if err := s.generator.StreamChatMessages(ctx, messages, nil, interceptor); err != nil {
		log.Errorf("[RAGService] %s: 流式生成失败: %v", stageFailed, err)
		return nil, err
	}

	sources := s.buildSources(hits)
	log.Infof("[RAGService] %s: 流式对话完成, 来源数: %d", stageComplete, len(sources))
	return sources, nil
}

// ResearchSummary 生成某一主题的研究综述。
func (s *ragService) ResearchSummary(ctx context.Context, topic string) model.ChatResult {
	query := fmt.Sprintf("Provide a comprehensive summary of research findings on %s", topic)
	return s.Chat(ctx, query, nil, 0)
}

// CompareStudies 对比多个研究主题的结论。
func (s *ragService) CompareStudies(ctx context.Context, topics []string) model.ChatResult {
	query := fmt.Sprintf("Compare and contrast research findings on: %s", strings.Join(topics, " versus "))
	return s.Chat(ctx, query, nil, 0)
}

// MissionStudies 检索并总结与特定任务相关的研究。
func (s *ragService) MissionStudies(ctx context.Context, mission string) (result model.ChatResult) {
	query := fmt.Sprintf("Summarize the studies conducted on the %s mission", mission)
	log.Infof("[RAGService] %s: 收到任务研究查询: '%s'", stageReceived, mission)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[RAGService] %s: 任务研究处理发生 panic: %v", stageFailed, r)
			result = s.failureResult(query)
		}
	}()

	filters := map[string]interface{}{
		"missions": map[string]interface{}{"$eq": strings.ToLower(mission)},
	}
	hits := s.retrieve(ctx, query, nil, filters, 0)

	contextText := s.builder.FormatContext(hits)
	prompt := s.builder.BuildPrompt(query, contextText, nil)

	answer, err := s.generator.Generate(ctx, []llm.Message{{Role: model.RoleUser, Content: prompt}}, nil)
	if err != nil {
		log.Errorf("[RAGService] %s: 生成回答失败: %v", stageFailed, err)
		return s.failureResult(query)
	}

	answer = s.processor.EnsurePersona(s.processor.CleanResponse(answer))
	sources := s.buildSources(hits)
	return model.ChatResult{
		Response:   answer,
		Sources:    sources,
		Query:      query,
		NumSources: len(sources),
		Success:    true,
	}
}

// retrieve 执行增强、向量化与多集合检索。topK 非正时使用配置默认值。
// 向量化失败或检索失败都降级为空命中，由上层用占位上下文继续生成。
func (s *ragService) retrieve(ctx context.Context, query string, history []model.ConversationMessage, filters map[string]interface{}, topK int) []model.SearchHit {
	log.Infof("[RAGService] %s: 开始查询增强", stageEnhancing)
	enhanced := s.enhancer.Enhance(query, history)

	if topK <= 0 {
		topK = s.retrieval.TopK
	}

	log.Infof("[RAGService] %s: 开始向量化与多集合检索, topK: %d", stageSearching, topK)
	vector := s.embedder.Embed(ctx, enhanced)
	if vector == nil {
		log.Warnf("[RAGService] 查询向量化失败, 将使用空检索结果继续")
		return nil
	}

	hits, err := s.searcher.HybridSearch(ctx, s.retrieval.Collections, vector, topK, filters)
	if err != nil {
		log.Errorf("[RAGService] 多集合检索失败, 将使用空检索结果继续: %v", err)
		return nil
	}
	return hits
}

// buildSources 从命中构建去重后的来源列表并截断到上限。
func (s *ragService) buildSources(hits []model.SearchHit) []model.Source {
	sources := s.processor.DedupeSources(s.processor.ExtractSources(hits))
	if s.retrieval.MaxSources > 0 && len(sources) > s.retrieval.MaxSources {
		sources = sources[:s.retrieval.MaxSources]
	}
	if sources == nil {
		sources = []model.Source{}
	}
	return sources
}

func (s *ragService) failureResult(query string) model.ChatResult {
	return model.ChatResult{
		Response:   s.prompt.ApologyText,
		Sources:    []model.Source{},
		Query:      query,
		NumSources: 0,
		Success:    false,
	}
}

// stopAwareWriter 封装底层 writer，在停止标志生效后丢弃后续分块。
type stopAwareWriter struct {
	writer     llm.MessageWriter
	shouldStop func() bool
}

func (w *stopAwareWriter) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		return nil
	}
	return w.writer.WriteMessage(messageType, data)
}
