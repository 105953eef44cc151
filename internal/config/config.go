package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig holds configuration for an OpenAI-compatible HTTP endpoint
// (OpenAI, Mistral, Ollama and friends).
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// GenAIConfig holds configuration for Gemini through google.golang.org/genai.
type GenAIConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	LRUSize int    `yaml:"lru_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string        `yaml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
	GenAI  *GenAIConfig  `yaml:"genai,omitempty"`
	Cache  CacheConfig   `yaml:"cache"`
}

// GeneratorConfig selects the chat model used to write tests.
// Type "template" disables the model and uses the built-in fallback tests.
type GeneratorConfig struct {
	Type        string        `yaml:"type"`
	OpenAI      *OpenAIConfig `yaml:"openai,omitempty"`
	GenAI       *GenAIConfig  `yaml:"genai,omitempty"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RedisConfig points the external search cache at a Redis server.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SearchConfig configures the optional external pattern search.
type SearchConfig struct {
	Enabled          bool         `yaml:"enabled"`
	BaseURL          string       `yaml:"base_url"`
	APIKeyEnv        string       `yaml:"api_key_env"`
	TimeoutSecs      int          `yaml:"timeout_secs"`
	CacheTTLSecs     int          `yaml:"cache_ttl_secs"`
	RatePerSec       float64      `yaml:"rate_per_sec"`
	QualityThreshold float64      `yaml:"quality_threshold"`
	DomainKeywords   []string     `yaml:"domain_keywords,omitempty"`
	Redis            *RedisConfig `yaml:"redis,omitempty"`
}

// AuthConfig holds the test credentials injected into tests of components requiring auth.
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PipelineConfig tunes the generation pipeline.
type PipelineConfig struct {
	SimilarityThreshold   float64    `yaml:"similarity_threshold"`
	DiscoveryThreshold    float64    `yaml:"discovery_threshold"`
	TopK                  int        `yaml:"top_k"`
	EdgeCasesPerComponent int        `yaml:"edge_cases_per_component"`
	Concurrency           int        `yaml:"concurrency"`
	OutputDir             string     `yaml:"output_dir"`
	BaseURL               string     `yaml:"base_url"`
	Auth                  AuthConfig `yaml:"auth"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Search      SearchConfig      `yaml:"search"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./uitestgen.yaml first, then ~/.config/uitestgen/config.yaml.
// If neither exists, it writes defaults to ~/.config/uitestgen/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "uitestgen.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "uitestgen", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "tfidf"},
		Generator:   GeneratorConfig{Type: "template"},
		VectorStore: VectorStoreConfig{Type: "memory"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small")
	}
	if cfg.Embedder.Type == "genai" {
		if cfg.Embedder.GenAI == nil {
			cfg.Embedder.GenAI = &GenAIConfig{}
		}
		applyGenAIDefaults(cfg.Embedder.GenAI, "gemini-embedding-001")
	}
	if cfg.Embedder.Cache.Path == "" {
		cfg.Embedder.Cache.Path = defaultCachePath()
	}
	if cfg.Embedder.Cache.LRUSize == 0 {
		cfg.Embedder.Cache.LRUSize = 1024
	}

	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "template"
	}
	if cfg.Generator.Type == "openai" {
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.Generator.OpenAI, "gpt-4o-mini")
	}
	if cfg.Generator.Type == "genai" {
		if cfg.Generator.GenAI == nil {
			cfg.Generator.GenAI = &GenAIConfig{}
		}
		applyGenAIDefaults(cfg.Generator.GenAI, "gemini-2.5-flash")
	}
	if cfg.Generator.Temperature == 0 {
		cfg.Generator.Temperature = 0.3
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 1500
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.Collection == "" {
			q.Collection = "ui_test_patterns"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 10
		}
	}

	s := &cfg.Search
	if s.BaseURL == "" {
		s.BaseURL = "https://api.linkup.so/v1"
	}
	if s.APIKeyEnv == "" {
		s.APIKeyEnv = "LINKUP_API_KEY"
	}
	if s.TimeoutSecs == 0 {
		s.TimeoutSecs = 30
	}
	if s.CacheTTLSecs == 0 {
		s.CacheTTLSecs = 3600
	}
	if s.RatePerSec == 0 {
		s.RatePerSec = 10
	}
	if s.QualityThreshold == 0 {
		s.QualityThreshold = 0.7
	}

	p := &cfg.Pipeline
	if p.SimilarityThreshold == 0 {
		p.SimilarityThreshold = 0.7
	}
	if p.DiscoveryThreshold == 0 {
		p.DiscoveryThreshold = 0.8
	}
	if p.TopK == 0 {
		p.TopK = 3
	}
	if p.EdgeCasesPerComponent == 0 {
		p.EdgeCasesPerComponent = 2
	}
	if p.Concurrency == 0 {
		p.Concurrency = 4
	}
	if p.OutputDir == "" {
		p.OutputDir = "generated_tests"
	}
	if p.BaseURL == "" {
		p.BaseURL = "http://localhost:3000"
	}
	if p.Auth.Username == "" {
		p.Auth.Username = "test@example.com"
	}
	if p.Auth.Password == "" {
		p.Auth.Password = "testpassword123"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func applyOpenAIDefaults(c *OpenAIConfig, model string) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

func applyGenAIDefaults(c *GenAIConfig, model string) {
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".uitestgen", "embeddings.db")
	}
	return filepath.Join(dir, "uitestgen", "embeddings.db")
}
