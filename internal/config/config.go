package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	LogConfig logger.LogConfig `json:"log_config"`
	Database  DatabaseConfig   `json:"database"`
	AI        AIConfig         `json:"ai"`
	Retrieval RetrievalConfig  `json:"retrieval"`
	Cache     CacheConfig      `json:"cache"`
	Ingest    IngestConfig     `json:"ingest"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	Provider   string             `json:"provider"`
	EmbedModel string             `json:"embed_model"`
	Args       interface{}        `json:"args"`
	Fallbacks  []EmbedProviderRef `json:"fallbacks"`
}

// EmbedProviderRef names a secondary embedding backend tried when the
// primary one fails.
type EmbedProviderRef struct {
	Provider   string      `json:"provider"`
	EmbedModel string      `json:"embed_model"`
	Args       interface{} `json:"args"`
}

type RetrievalConfig struct {
	CandidatePoolSize  int     `json:"candidate_pool_size"`
	MinSimilarity      float64 `json:"min_similarity"`
	SemanticWeight     float64 `json:"semantic_weight"`
	BM25Weight         float64 `json:"bm25_weight"`
	BM25K1             float64 `json:"bm25_k1"`
	BM25B              float64 `json:"bm25_b"`
	RerankTopN         int     `json:"rerank_top_n"`
	DiversityThreshold float64 `json:"diversity_threshold"`
	AdjacencyWindow    int     `json:"adjacency_window"`
	FinalTopK          int     `json:"final_top_k"`
	SearchTimeoutMs    int     `json:"search_timeout_ms"`
}

type CacheConfig struct {
	L1Size            int    `json:"l1_size"`
	L1TTLSeconds      int64  `json:"l1_ttl_seconds"`
	L2Path            string `json:"l2_path"`
	L2TTLSeconds      int64  `json:"l2_ttl_seconds"`
	L3TTLSeconds      int64  `json:"l3_ttl_seconds"`
	CooldownSeconds   int64  `json:"cooldown_seconds"`
	CleanupSchedule   string `json:"cleanup_schedule"`
	ResultCacheEnable bool   `json:"result_cache_enable"`
}

type IngestConfig struct {
	ChunkSize        int    `json:"chunk_size"`
	ChunkOverlap     int    `json:"chunk_overlap"`
	EmbedWorkers     int    `json:"embed_workers"`
	EmbedBatchSize   int    `json:"embed_batch_size"`
	BackfillSchedule string `json:"backfill_schedule"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if c.AI.Provider == "" {
		return fmt.Errorf("ai.provider is required")
	}
	if c.AI.EmbedModel == "" {
		return fmt.Errorf("ai.embed_model is required")
	}
	if c.Ingest.ChunkSize == 0 {
		c.Ingest.ChunkSize = 1000
	}
	if c.Ingest.ChunkOverlap == 0 {
		c.Ingest.ChunkOverlap = c.Ingest.ChunkSize / 8
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be smaller than chunk_size")
	}
	if c.Ingest.EmbedWorkers == 0 {
		c.Ingest.EmbedWorkers = 8
	}
	if c.Ingest.EmbedBatchSize == 0 {
		c.Ingest.EmbedBatchSize = 64
	}
	if c.Ingest.BackfillSchedule == "" {
		c.Ingest.BackfillSchedule = "*/5 * * * *"
	}
	if c.Retrieval.CandidatePoolSize == 0 {
		c.Retrieval.CandidatePoolSize = 60
	}
	if c.Retrieval.SemanticWeight == 0 && c.Retrieval.BM25Weight == 0 {
		c.Retrieval.SemanticWeight = 0.7
		c.Retrieval.BM25Weight = 0.3
	}
	if math.Abs(c.Retrieval.SemanticWeight+c.Retrieval.BM25Weight-1.0) > 1e-9 {
		return fmt.Errorf("retrieval.semantic_weight and bm25_weight must sum to 1.0")
	}
	if c.Retrieval.BM25K1 == 0 {
		c.Retrieval.BM25K1 = 1.2
	}
	if c.Retrieval.BM25B == 0 {
		c.Retrieval.BM25B = 0.75
	}
	if c.Retrieval.RerankTopN == 0 {
		c.Retrieval.RerankTopN = 40
	}
	if c.Retrieval.DiversityThreshold == 0 {
		c.Retrieval.DiversityThreshold = 0.50
	}
	if c.Retrieval.AdjacencyWindow == 0 {
		c.Retrieval.AdjacencyWindow = 2
	}
	if c.Retrieval.FinalTopK == 0 {
		c.Retrieval.FinalTopK = 6
	}
	if c.Retrieval.SearchTimeoutMs == 0 {
		c.Retrieval.SearchTimeoutMs = 10000
	}
	if c.Cache.L1Size == 0 {
		c.Cache.L1Size = 10000
	}
	if c.Cache.L1TTLSeconds == 0 {
		c.Cache.L1TTLSeconds = 2 * 3600
	}
	if c.Cache.L2TTLSeconds == 0 {
		c.Cache.L2TTLSeconds = 24 * 3600
	}
	if c.Cache.L3TTLSeconds == 0 {
		c.Cache.L3TTLSeconds = 7 * 24 * 3600
	}
	if c.Cache.CooldownSeconds == 0 {
		c.Cache.CooldownSeconds = 30
	}
	if c.Cache.CleanupSchedule == "" {
		c.Cache.CleanupSchedule = "0 * * * *"
	}
	return nil
}
