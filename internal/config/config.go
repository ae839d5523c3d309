// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
// 通过 Load 返回并显式传入各构造函数，不使用包级全局变量。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	NER           NERConfig           `mapstructure:"ner"`
	Prompt        PromptConfig        `mapstructure:"prompt"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
	Processing    ProcessingConfig    `mapstructure:"processing"`
}

// ServerConfig 存储 HTTP 服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL（文献登记库）的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储文档摄取任务队列的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储（原始语料）的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// ElasticsearchConfig 存储向量索引后端的配置。
// IndexPrefix 用于把逻辑集合（namespace）映射为物理索引名。
type ElasticsearchConfig struct {
	Addresses   string `mapstructure:"addresses"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	IndexPrefix string `mapstructure:"index_prefix"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	// IntervalMS 是批量向量化时两次调用之间的固定间隔（免费额度限流）。
	IntervalMS int `mapstructure:"interval_ms"`
	CacheSize  int `mapstructure:"cache_size"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数。
type LLMGenerationConfig struct {
	Temperature    float64 `mapstructure:"temperature"`
	TopP           float64 `mapstructure:"top_p"`
	TopK           int     `mapstructure:"top_k"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	CandidateCount int     `mapstructure:"candidate_count"`
}

// NERConfig 存储可选的 NLP 实体识别服务的配置。
type NERConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ServerURL string `mapstructure:"server_url"`
}

// PromptConfig 配置助手人设与提示词文案。
// 这些是产品文案而非算法契约，因此全部可配置。
type PromptConfig struct {
	Persona        string `mapstructure:"persona"`
	IdentityMarker string `mapstructure:"identity_marker"`
	Preamble       string `mapstructure:"preamble"`
	Guidelines     string `mapstructure:"guidelines"`
	NoResultText   string `mapstructure:"no_result_text"`
	ApologyText    string `mapstructure:"apology_text"`
}

// RetrievalConfig 配置检索管线的行为。
type RetrievalConfig struct {
	// Collections 是混合搜索默认覆盖的集合（namespace）列表。
	Collections []string `mapstructure:"collections"`
	TopK        int      `mapstructure:"top_k"`
	MaxSources  int      `mapstructure:"max_sources"`
	// SnippetLen 是上下文中单篇文档摘录的最大字符数。
	SnippetLen int `mapstructure:"snippet_len"`
	// HistoryWindow / HistoryCharCap 控制提示词中对话历史的裁剪。
	HistoryWindow  int `mapstructure:"history_window"`
	HistoryCharCap int `mapstructure:"history_char_cap"`
	// Keywords 是查询增强使用的领域词表；ContextTermsMax 是补充词上限。
	Keywords        []string `mapstructure:"keywords"`
	ContextTermsMax int      `mapstructure:"context_terms_max"`
}

// ProcessingConfig 配置文档摄取管线。
type ProcessingConfig struct {
	ChunkSize       int `mapstructure:"chunk_size"`
	ChunkOverlap    int `mapstructure:"chunk_overlap"`
	EmbedBatchSize  int `mapstructure:"embed_batch_size"`
	InsertBatchSize int `mapstructure:"insert_batch_size"`
	// InsertIntervalMS 是向量库批量写入的批间间隔。
	InsertIntervalMS int `mapstructure:"insert_interval_ms"`
}

// Load 从指定路径读取 YAML 配置并解析，未设置的键使用内置默认值。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("kafka.group_id", "kosmos-ingest-consumer")

	v.SetDefault("elasticsearch.index_prefix", "kosmos")

	v.SetDefault("embedding.model", "text-embedding-004")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("embedding.interval_ms", 4000)
	v.SetDefault("embedding.cache_size", 10000)

	v.SetDefault("llm.generation.temperature", 0.2)
	v.SetDefault("llm.generation.top_p", 0.95)
	v.SetDefault("llm.generation.top_k", 40)
	v.SetDefault("llm.generation.max_tokens", 8192)
	v.SetDefault("llm.generation.candidate_count", 1)

	v.SetDefault("prompt.persona", DefaultPersona)
	v.SetDefault("prompt.identity_marker", "K-OSMOS")
	v.SetDefault("prompt.preamble", DefaultPreamble)
	v.SetDefault("prompt.guidelines", DefaultGuidelines)
	v.SetDefault("prompt.no_result_text", "No relevant documents found.")
	v.SetDefault("prompt.apology_text", DefaultApology)

	v.SetDefault("retrieval.collections", []string{"publications", "datasets", "taskbook_projects"})
	v.SetDefault("retrieval.top_k", 15)
	v.SetDefault("retrieval.max_sources", 10)
	v.SetDefault("retrieval.snippet_len", 1000)
	v.SetDefault("retrieval.history_window", 6)
	v.SetDefault("retrieval.history_char_cap", 300)
	v.SetDefault("retrieval.context_terms_max", 3)
	v.SetDefault("retrieval.keywords", []string{
		"microgravity", "space", "bone", "muscle", "plant", "cell", "radiation",
		"astronaut", "iss", "mission", "experiment", "tissue", "growth", "protein",
	})

	v.SetDefault("processing.chunk_size", 512)
	v.SetDefault("processing.chunk_overlap", 50)
	v.SetDefault("processing.embed_batch_size", 50)
	v.SetDefault("processing.insert_batch_size", 100)
	v.SetDefault("processing.insert_interval_ms", 200)
}
