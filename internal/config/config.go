package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/semdesk/internal/db"
)

// Config holds the semdesk configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Converters ConvertersConfig `yaml:"converters"`
	Routing    RoutingConfig    `yaml:"routing"`
	Search     SearchConfig     `yaml:"search"`
	Indexing   IndexingConfig   `yaml:"indexing"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the OpenAI-compatible embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // label for metrics and logs
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	MaxChars            int    `yaml:"max_chars"`
	TimeoutSec          int    `yaml:"timeout_sec"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	NoCache             bool   `yaml:"no_cache"`
	Disabled            bool   `yaml:"disabled"`
}

// GeneratorConfig holds the chat model used for summaries and answers.
type GeneratorConfig struct {
	BaseURL         string  `yaml:"base_url"`
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	Temperature     float32 `yaml:"temperature"`
	TimeoutSec      int     `yaml:"timeout_sec"`
	SummaryMaxChars int     `yaml:"summary_max_chars"`
	Disabled        bool    `yaml:"disabled"`
}

// ConvertersConfig holds the document converter adapters.
type ConvertersConfig struct {
	Markitdown MarkitdownConfig `yaml:"markitdown"`
	Docling    DoclingConfig    `yaml:"docling"`
}

// MarkitdownConfig configures the markitdown CLI adapter.
type MarkitdownConfig struct {
	Binary     string `yaml:"binary"`
	TimeoutSec int    `yaml:"timeout_sec"`
	Disabled   bool   `yaml:"disabled"`
}

// DoclingConfig configures the docling-serve HTTP adapter.
type DoclingConfig struct {
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
	Disabled   bool   `yaml:"disabled"`
}

// RoutingConfig tunes converter ordering. Zero values take the router defaults.
type RoutingConfig struct {
	LargeFileThresholdMB float64  `yaml:"large_file_threshold_mb"`
	ExpectedCharRatio    float64  `yaml:"expected_char_ratio"`
	HistoryWeight        *float64 `yaml:"history_weight"` // unset means the router default, 0 ignores history
}

// SearchConfig tunes retrieval and question answering.
type SearchConfig struct {
	TopK                 int `yaml:"top_k"`
	AnswerTopK           int `yaml:"answer_top_k"`
	TagOversample        int `yaml:"tag_oversample"`
	SnippetChars         int `yaml:"snippet_chars"`
	AnswerMaxDocuments   int `yaml:"answer_max_documents"`
	AnswerMaxCharsPerDoc int `yaml:"answer_max_chars_per_doc"`
}

// IndexingConfig holds pipeline and vector index settings.
type IndexingConfig struct {
	OutputRoot      string   `yaml:"output_root"` // empty: next to the indexed folder
	Extensions      []string `yaml:"extensions"`
	NoLock          bool     `yaml:"no_lock"`
	AllowedRoots    []string `yaml:"allowed_roots"` // folders POST /index may touch; empty allows any
	IgnoreDirs      []string `yaml:"ignore_dirs"`
	WatchDebounceMs int      `yaml:"watch_debounce_ms"`
	VectorAlgorithm string   `yaml:"vector_algorithm"` // hnsw, flat
	HNSWM           int      `yaml:"hnsw_m"`
	HNSWEFConstruct int      `yaml:"hnsw_ef_construction"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration for a local Redis and Ollama with every default applied.
func Default() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "ollama"
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "http://localhost:11434/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "embeddinggemma:latest"
	}
	if c.Embedding.MaxChars <= 0 {
		c.Embedding.MaxChars = 4000
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 60
	}

	if c.Generator.BaseURL == "" {
		c.Generator.BaseURL = c.Embedding.BaseURL
	}
	if c.Generator.APIKey == "" {
		c.Generator.APIKey = c.Embedding.APIKey
	}
	if c.Generator.Model == "" {
		c.Generator.Model = "gemma3:4b-it-qat"
	}
	if c.Generator.TimeoutSec <= 0 {
		c.Generator.TimeoutSec = 120
	}
	if c.Generator.SummaryMaxChars <= 0 {
		c.Generator.SummaryMaxChars = 12000
	}

	if c.Converters.Markitdown.Binary == "" {
		c.Converters.Markitdown.Binary = "markitdown"
	}
	if c.Converters.Markitdown.TimeoutSec <= 0 {
		c.Converters.Markitdown.TimeoutSec = 300
	}
	if c.Converters.Docling.URL == "" {
		c.Converters.Docling.URL = "http://localhost:5001"
	}
	if c.Converters.Docling.TimeoutSec <= 0 {
		c.Converters.Docling.TimeoutSec = 300
	}

	if c.Search.TopK <= 0 {
		c.Search.TopK = 5
	}
	if c.Search.AnswerTopK <= 0 {
		c.Search.AnswerTopK = 3
	}
	if c.Search.TagOversample <= 0 {
		c.Search.TagOversample = 5
	}
	if c.Search.SnippetChars <= 0 {
		c.Search.SnippetChars = 2500
	}
	if c.Search.AnswerMaxDocuments <= 0 {
		c.Search.AnswerMaxDocuments = 3
	}
	if c.Search.AnswerMaxCharsPerDoc <= 0 {
		c.Search.AnswerMaxCharsPerDoc = 2000
	}

	if c.Indexing.WatchDebounceMs <= 0 {
		c.Indexing.WatchDebounceMs = 500
	}
	if c.Indexing.VectorAlgorithm == "" {
		c.Indexing.VectorAlgorithm = "hnsw"
	}
	if c.Indexing.HNSWM <= 0 {
		c.Indexing.HNSWM = 16
	}
	if c.Indexing.HNSWEFConstruct <= 0 {
		c.Indexing.HNSWEFConstruct = 200
	}
	if len(c.Indexing.IgnoreDirs) == 0 {
		c.Indexing.IgnoreDirs = []string{".git", "node_modules", ".semantic_index"}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 2 {
		return fmt.Errorf("generator.temperature must be between 0 and 2, got %g", c.Generator.Temperature)
	}
	if _, err := db.ParseVectorAlgorithm(c.Indexing.VectorAlgorithm); err != nil {
		return fmt.Errorf("indexing.vector_algorithm: %w", err)
	}
	r := c.Routing
	if r.ExpectedCharRatio < 0 || r.LargeFileThresholdMB < 0 || (r.HistoryWeight != nil && *r.HistoryWeight < 0) {
		return fmt.Errorf("routing thresholds must not be negative")
	}
	return nil
}

// findConfigPath returns the first existing <env>.yaml under ./config or the
// repository's config directory, or the ./config path when neither exists.
func findConfigPath(env string) string {
	name := env + ".yaml"
	candidates := []string{filepath.Join("config", name)}
	if _, src, _, ok := runtime.Caller(0); ok {
		root := filepath.Join(filepath.Dir(src), "..", "..")
		candidates = append(candidates, filepath.Join(root, "config", name))
	}
	for _, path := range candidates {
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path
		}
	}
	return candidates[0]
}

// envRef matches ${NAME} and ${NAME:-fallback}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandEnvVars substitutes environment references. An unset or empty
// variable takes its fallback, or the empty string without one.
func expandEnvVars(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		m := envRef.FindSubmatch(ref)
		if v := os.Getenv(string(m[1])); v != "" {
			return []byte(v)
		}
		return m[2]
	})
}
