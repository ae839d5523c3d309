// Package pipeline 定义了文档摄取的核心流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"kosmos-go/internal/config"
	"kosmos-go/internal/entity"
	"kosmos-go/internal/model"
	"kosmos-go/internal/repository"
	"kosmos-go/internal/textutil"
	"kosmos-go/pkg/embedding"
	"kosmos-go/pkg/log"
	"kosmos-go/pkg/storage"
	"kosmos-go/pkg/vectordb"
)

// Processor 封装了文档摄取的所有依赖和逻辑：
// 下载原文、清洗分块、实体抽取、向量化并写入向量库与登记库。
type Processor struct {
	store           *storage.ObjectStore
	generator       *embedding.Generator
	vectorStore     *vectordb.Store
	extractor       entity.Extractor
	publicationRepo repository.PublicationRepository
	processingCfg   config.ProcessingConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	store *storage.ObjectStore,
	generator *embedding.Generator,
	vectorStore *vectordb.Store,
	extractor entity.Extractor,
	publicationRepo repository.PublicationRepository,
	processingCfg config.ProcessingConfig,
) *Processor {
	return &Processor{
		store:           store,
		generator:       generator,
		vectorStore:     vectorStore,
		extractor:       extractor,
		publicationRepo: publicationRepo,
		processingCfg:   processingCfg,
	}
}

// Process 是文档摄取的主函数。整个流程幂等：重复处理同一文档会先清理旧分块。
func (p *Processor) Process(ctx context.Context, task model.DocumentIngestTask) error {
	log.Infof("[Processor] 开始处理文档, DocID: %s, Collection: %s", task.DocID, task.Collection)

	// 1. 从 MinIO 下载原始文本
	log.Infof("[Processor] 步骤1: 从MinIO下载对象, Object: %s", task.ObjectKey)
	rawText, err := p.store.GetObjectText(ctx, task.ObjectKey)
	if err != nil {
		p.markFailed(task)
		return fmt.Errorf("从 MinIO 下载对象失败: %w", err)
	}
	if strings.TrimSpace(rawText) == "" {
		log.Warnf("[Processor] 文档 '%s' 内容为空, 处理中止", task.DocID)
		p.markFailed(task)
		return errors.New("文档内容为空")
	}

	// 2. 清洗文本
	log.Info("[Processor] 步骤2: 清洗文本内容")
	cleaned := textutil.CleanText(rawText)
	log.Infof("[Processor] 步骤2: 清洗完成, 内容长度: %d 字符", utf8.RuneCountInString(cleaned))

	// 3. 文本分块
	log.Infof("[Processor] 步骤3: 进行文本分块, chunkSize: %d, chunkOverlap: %d",
		p.processingCfg.ChunkSize, p.processingCfg.ChunkOverlap)
	chunks := textutil.ChunkText(cleaned, p.processingCfg.ChunkSize, p.processingCfg.ChunkOverlap)
	if len(chunks) == 0 {
		log.Warnf("[Processor] 未生成任何文本分块, 处理中止, DocID: %s", task.DocID)
		p.markFailed(task)
		return errors.New("未生成任何文本分块")
	}
	log.Infof("[Processor] 步骤3: 文本分块完成, 共生成 %d 个分块", len(chunks))

	// 4. 实体抽取（整篇文档级别，写入每个分块的元数据）
	log.Info("[Processor] 步骤4: 实体抽取")
	entities, err := p.extractor.Extract(ctx, cleaned)
	if err != nil {
		// 实体抽取失败不致命，分块仍可被检索
		log.Warnf("[Processor] 实体抽取失败, 继续处理: %v", err)
		entities = model.Entities{}
	}

	// 5. 批量向量化
	log.Info("[Processor] 步骤5: 批量向量化分块")
	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		p.markFailed(task)
		return fmt.Errorf("分块向量化失败: %w", err)
	}

	// 6. 清理旧分块后写入向量库
	log.Info("[Processor] 步骤6: 写入向量库")
	if err := p.vectorStore.DeleteByDocID(ctx, task.Collection, task.DocID); err != nil {
		log.Warnf("[Processor] 清理旧分块失败 (doc_id=%s): %v", task.DocID, err)
	}

	indexed, err := p.insertChunks(ctx, task, chunks, vectors, entities)
	if err != nil {
		p.markFailed(task)
		return err
	}
	if indexed == 0 {
		log.Warnf("[Processor] 文档 '%s' 没有任何分块成功写入", task.DocID)
		p.markFailed(task)
		return errors.New("没有任何分块成功写入向量库")
	}

	// 7. 更新文献登记库
	log.Info("[Processor] 步骤7: 更新文献登记库")
	record := &model.Publication{
		DocID:      task.DocID,
		Collection: task.Collection,
		Title:      task.Title,
		Authors:    task.Authors,
		Journal:    task.Journal,
		Year:       task.Year,
		URL:        task.URL,
		SourceType: task.SourceType,
		ChunkCount: indexed,
		Status:     model.IngestStatusIndexed,
	}
	if err := p.publicationRepo.Upsert(record); err != nil {
		log.Errorf("[Processor] 更新文献登记库失败, DocID: %s, Error: %v", task.DocID, err)
		return fmt.Errorf("更新文献登记库失败: %w", err)
	}

	log.Infof("[Processor] 文档处理成功完成, DocID: %s, 分块数: %d", task.DocID, indexed)
	return nil
}

// embedChunks 按配置的批大小分批向量化。
func (p *Processor) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	batchSize := p.processingCfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = len(chunks)
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := p.generator.EmbedBatch(ctx, chunks[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// insertChunks 把分块组装为向量记录并分批写入向量库。
// 向量化失败的分块（nil 向量）由向量库写入层跳过。
func (p *Processor) insertChunks(ctx context.Context, task model.DocumentIngestTask, chunks []string, vectors [][]float32, entities model.Entities) (int, error) {
	records := make([]model.VectorRecord, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, model.VectorRecord{
			DocID:    fmt.Sprintf("%s_%d", task.DocID, i),
			Title:    task.Title,
			Content:  chunk,
			Vector:   vectors[i],
			Metadata: p.buildMetadata(task, i, entities),
		})
	}

	batchSize := p.processingCfg.InsertBatchSize
	if batchSize <= 0 {
		batchSize = len(records)
	}

	indexed := 0
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		n, err := p.vectorStore.Insert(ctx, task.Collection, records[start:end])
		if err != nil {
			return indexed, fmt.Errorf("写入向量库失败: %w", err)
		}
		indexed += n
	}
	return indexed, nil
}

// buildMetadata 组装分块的展示与过滤元数据。
func (p *Processor) buildMetadata(task model.DocumentIngestTask, chunkIndex int, entities model.Entities) map[string]interface{} {
	metadata := map[string]interface{}{
		"title":       task.Title,
		"authors":     task.Authors,
		"journal":     task.Journal,
		"year":        task.Year,
		"url":         task.URL,
		"source_type": task.SourceType,
		"chunk_index": fmt.Sprintf("%d", chunkIndex),
	}
	if len(entities.Organisms) > 0 {
		metadata["organisms"] = entities.Organisms
	}
	if len(entities.Tissues) > 0 {
		metadata["tissues"] = entities.Tissues
	}
	if len(entities.Genes) > 0 {
		metadata["genes"] = entities.Genes
	}
	if len(entities.Proteins) > 0 {
		metadata["proteins"] = entities.Proteins
	}
	if len(entities.Missions) > 0 {
		metadata["missions"] = entities.Missions
	}
	if len(entities.Keywords) > 0 {
		metadata["keywords"] = entities.Keywords
	}
	if entities.GravityCondition != "" {
		metadata["gravity_condition"] = entities.GravityCondition
	}
	if entities.StudyType != "" {
		metadata["study_type"] = entities.StudyType
	}
	return vectordb.FlattenMetadata(metadata)
}

// markFailed 把文献登记状态置为失败，登记失败只记录日志。
// 已登记过的文档只更新状态，避免用任务里的部分信息覆盖完整登记记录。
func (p *Processor) markFailed(task model.DocumentIngestTask) {
	if existing, err := p.publicationRepo.FindByDocID(task.DocID); err == nil && existing != nil {
		if err := p.publicationRepo.UpdateStatus(task.DocID, model.IngestStatusFailed, 0); err != nil {
			log.Warnf("[Processor] 更新失败状态时出错, DocID: %s, Error: %v", task.DocID, err)
		}
		return
	}
	record := &model.Publication{
		DocID:      task.DocID,
		Collection: task.Collection,
		Title:      task.Title,
		Authors:    task.Authors,
		Journal:    task.Journal,
		Year:       task.Year,
		URL:        task.URL,
		SourceType: task.SourceType,
		Status:     model.IngestStatusFailed,
	}
	if err := p.publicationRepo.Upsert(record); err != nil {
		log.Warnf("[Processor] 登记失败状态时出错, DocID: %s, Error: %v", task.DocID, err)
	}
}
