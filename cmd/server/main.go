// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"kosmos-go/internal/config"
	"kosmos-go/internal/entity"
	"kosmos-go/internal/handler"
	"kosmos-go/internal/middleware"
	"kosmos-go/internal/model"
	"kosmos-go/internal/pipeline"
	"kosmos-go/internal/repository"
	"kosmos-go/internal/service"
	"kosmos-go/pkg/database"
	"kosmos-go/pkg/embedding"
	"kosmos-go/pkg/kafka"
	"kosmos-go/pkg/llm"
	"kosmos-go/pkg/log"
	"kosmos-go/pkg/ner"
	"kosmos-go/pkg/storage"
	"kosmos-go/pkg/vectordb"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("./configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化基础设施连接
	db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		log.Fatalf("MySQL 初始化失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Publication{}); err != nil {
		log.Fatalf("数据库表结构迁移失败: %v", err)
	}

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		log.Fatalf("Redis 初始化失败: %v", err)
	}

	objectStore, err := storage.NewObjectStore(cfg.MinIO)
	if err != nil {
		log.Fatalf("MinIO 初始化失败: %v", err)
	}

	vectorStore, err := vectordb.NewStore(cfg.Elasticsearch, cfg.Embedding.Dimensions, cfg.Processing.InsertIntervalMS)
	if err != nil {
		log.Fatalf("向量库初始化失败: %v", err)
	}
	for _, collection := range cfg.Retrieval.Collections {
		if err := vectorStore.CreateCollection(collection); err != nil {
			log.Warnf("预创建集合 '%s' 失败: %v", collection, err)
		}
	}

	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// 4. 初始化 Repository
	publicationRepo := repository.NewPublicationRepository(db)
	conversationRepo := repository.NewConversationRepository(rdb)

	// 5. 初始化领域组件 (依赖注入)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	generator := embedding.NewGenerator(cfg.Embedding, embeddingClient)
	llmClient := llm.NewClient(cfg.LLM)

	var extractor entity.Extractor = entity.NewPatternExtractor()
	if cfg.NER.Enabled {
		nerClient := ner.NewClient(cfg.NER)
		extractor = entity.NewCompositeExtractor(entity.NewPatternExtractor(), entity.NewModelExtractor(nerClient))
		log.Info("NER 服务已启用，使用组合实体抽取")
	}

	enhancer := service.NewQueryEnhancer(cfg.Retrieval)
	promptBuilder := service.NewPromptBuilder(cfg.Prompt, cfg.Retrieval)
	postProcessor := service.NewPostProcessor(cfg.Prompt)
	ragService := service.NewRAGService(enhancer, promptBuilder, postProcessor, generator, vectorStore, llmClient, cfg.Retrieval, cfg.Prompt)
	searchService := service.NewSearchService(generator, vectorStore, publicationRepo, cfg.Retrieval)

	// 6. 初始化文档摄取管道 (Processor)
	processor := pipeline.NewProcessor(objectStore, generator, vectorStore, extractor, publicationRepo, cfg.Processing)

	// 7. 启动后台 Kafka 消费者
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	go kafka.StartConsumer(consumerCtx, cfg.Kafka, processor, rdb)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	chatHandler := handler.NewChatHandler(ragService, conversationRepo)
	searchHandler := handler.NewSearchHandler(searchService)
	entityHandler := handler.NewEntityHandler(extractor)
	adminHandler := handler.NewAdminHandler(vectorStore, objectStore, producer, publicationRepo)
	systemHandler := handler.NewSystemHandler(vectorStore)

	r.GET("/health", systemHandler.Health)

	apiV1 := r.Group("/api/v1")
	{
		chat := apiV1.Group("/chat")
		{
			chat.POST("", chatHandler.Chat)
			chat.POST("/summary", chatHandler.ResearchSummary)
			chat.POST("/compare", chatHandler.CompareStudies)
			chat.POST("/mission", chatHandler.MissionStudies)
			chat.GET("/stream-token", chatHandler.GetStreamToken)
			chat.DELETE("/history/:sessionId", chatHandler.ClearHistory)
		}
		r.GET("/chat/stream/:token", chatHandler.HandleStream)

		apiV1.POST("/search", searchHandler.Search)
		apiV1.POST("/entities/extract", entityHandler.Extract)

		admin := apiV1.Group("/admin")
		{
			admin.POST("/collections", adminHandler.CreateCollection)
			admin.GET("/collections", adminHandler.ListCollections)
			admin.DELETE("/collections/:name", adminHandler.DeleteCollection)
			admin.GET("/collections/:name/documents", adminHandler.ListDocuments)
			admin.DELETE("/collections/:name/documents/:docId", adminHandler.DeleteDocument)
			admin.POST("/ingest", adminHandler.IngestDocument)
		}
	}

	// 10. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	cancelConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
