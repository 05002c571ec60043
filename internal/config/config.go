// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"math"
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Vector        VectorConfig        `yaml:"vector" mapstructure:"vector"`
	Embedding     EmbeddingConfig     `yaml:"embedding" mapstructure:"embedding"`
	Retrieval     RetrievalConfig     `yaml:"retrieval" mapstructure:"retrieval"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`

	// Types 各缓存类型的 TTL 与容量上限（类型名: sql/vector/evidence/session/config）
	Types map[string]CacheTypeConfig `yaml:"types" mapstructure:"types"`
}

// CacheTypeConfig 单一缓存类型配置
type CacheTypeConfig struct {
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// VectorConfig 向量数据库配置
type VectorConfig struct {
	Milvus MilvusConfig `yaml:"milvus" mapstructure:"milvus"`
}

// MilvusConfig Milvus 配置
type MilvusConfig struct {
	Host             string `yaml:"host" mapstructure:"host"`
	Port             int    `yaml:"port" mapstructure:"port"`
	User             string `yaml:"user" mapstructure:"user"`
	Password         string `yaml:"password" mapstructure:"password"`
	CollectionPrefix string `yaml:"collection_prefix" mapstructure:"collection_prefix"`
	MetricType       string `yaml:"metric_type" mapstructure:"metric_type"`

	// AcceleratedEnabled 是否优先使用 GPU 加速集合（失败时回退标准集合）
	AcceleratedEnabled bool `yaml:"accelerated_enabled" mapstructure:"accelerated_enabled"`

	HNSWM              int `yaml:"hnsw_m" mapstructure:"hnsw_m"`
	HNSWEfConstruction int `yaml:"hnsw_ef_construction" mapstructure:"hnsw_ef_construction"`
}

// EmbeddingConfig Embedding 服务配置
type EmbeddingConfig struct {
	Model     string        `yaml:"model" mapstructure:"model"`
	Dimension int           `yaml:"dimension" mapstructure:"dimension"`
	BatchSize int           `yaml:"batch_size" mapstructure:"batch_size"`
	Endpoint  string        `yaml:"endpoint" mapstructure:"endpoint"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RetrievalConfig 混合检索引擎配置
type RetrievalConfig struct {
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Confidence ConfidenceConfig `yaml:"confidence" mapstructure:"confidence"`
	Timeouts   TimeoutConfig    `yaml:"timeouts" mapstructure:"timeouts"`

	// TopK 单路径默认召回条数
	TopK int `yaml:"top_k" mapstructure:"top_k"`

	// MaxClarifyingQuestions 低置信度时最多生成的澄清问题数
	MaxClarifyingQuestions int `yaml:"max_clarifying_questions" mapstructure:"max_clarifying_questions"`
}

// ScoringConfig 证据打分配置
type ScoringConfig struct {
	Weights ScoreWeights `yaml:"weights" mapstructure:"weights"`

	// FreshnessMaxAge 新鲜度衰减的最大内容年龄（超过则趋近 0）
	FreshnessMaxAge time.Duration `yaml:"freshness_max_age" mapstructure:"freshness_max_age"`
}

// ScoreWeights 五维子分权重，必须恰好加和为 1.0
type ScoreWeights struct {
	Similarity     float64 `yaml:"similarity" mapstructure:"similarity"`
	Authority      float64 `yaml:"authority" mapstructure:"authority"`
	Freshness      float64 `yaml:"freshness" mapstructure:"freshness"`
	CrossReference float64 `yaml:"cross_reference" mapstructure:"cross_reference"`
	Diversity      float64 `yaml:"diversity" mapstructure:"diversity"`
}

// Sum 返回权重总和
func (w ScoreWeights) Sum() float64 {
	return w.Similarity + w.Authority + w.Freshness + w.CrossReference + w.Diversity
}

// Validate 校验权重加和为 1.0
func (w ScoreWeights) Validate() error {
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		return fmt.Errorf("score weights must sum to 1.0, got %.6f", w.Sum())
	}
	for name, v := range map[string]float64{
		"similarity":      w.Similarity,
		"authority":       w.Authority,
		"freshness":       w.Freshness,
		"cross_reference": w.CrossReference,
		"diversity":       w.Diversity,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("score weight %s out of range [0,1]: %.6f", name, v)
		}
	}
	return nil
}

// ConfidenceConfig 置信度阈值配置
type ConfidenceConfig struct {
	HighComposite   float64 `yaml:"high_composite" mapstructure:"high_composite"`
	HighAgreement   float64 `yaml:"high_agreement" mapstructure:"high_agreement"`
	MediumComposite float64 `yaml:"medium_composite" mapstructure:"medium_composite"`
	MinSources      int     `yaml:"min_sources" mapstructure:"min_sources"`
}

// TimeoutConfig 各挂起边界的超时配置
type TimeoutConfig struct {
	Cache  time.Duration `yaml:"cache" mapstructure:"cache"`
	SQL    time.Duration `yaml:"sql" mapstructure:"sql"`
	Vector time.Duration `yaml:"vector" mapstructure:"vector"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	MaxLen              int           `yaml:"max_len" mapstructure:"max_len"`
	ConsumerGroupPrefix string        `yaml:"consumer_group_prefix" mapstructure:"consumer_group_prefix"`
	BlockTimeout        time.Duration `yaml:"block_timeout" mapstructure:"block_timeout"`
	ClaimInterval       time.Duration `yaml:"claim_interval" mapstructure:"claim_interval"`
	RetryLimit          int           `yaml:"retry_limit" mapstructure:"retry_limit"`
	RetryBackoff        BackoffConfig `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// BackoffConfig 退避配置
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial" mapstructure:"initial"`
	Max        time.Duration `yaml:"max" mapstructure:"max"`
	Multiplier float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Port    int    `yaml:"port" mapstructure:"port"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RateLimitConfig 接口限流配置
type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int    `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	KeyPrefix         string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
