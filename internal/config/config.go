// ABOUTME: Centralized configuration for the study assistant
// ABOUTME: Loads defaults, an optional YAML file, then environment overrides via koanf
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	LedgerMemory = "memory"
	LedgerSQLite = "sqlite"
	LedgerCharm  = "charm"
)

// Config holds all configuration for the study assistant
type Config struct {
	// Provider settings
	Provider       string        `koanf:"provider"`
	OpenAIKey      string        `koanf:"openai_api_key"`
	OpenAIBaseURL  string        `koanf:"openai_base_url"`
	OllamaHost     string        `koanf:"ollama_host"`
	ChatModel      string        `koanf:"chat_model"`
	EmbeddingModel string        `koanf:"embedding_model"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxRetries     int           `koanf:"max_retries"`
	RetryDelay     time.Duration `koanf:"retry_delay"`

	// Pipeline settings
	ChunkSize            int     `koanf:"chunk_size"`
	ChunkOverlap         int     `koanf:"chunk_overlap"`
	RetrievalK           int     `koanf:"retrieval_k"`
	RelevanceFloor       float64 `koanf:"relevance_floor"`
	DedupOverlap         float64 `koanf:"dedup_overlap"`
	ShortAnswerThreshold float64 `koanf:"short_answer_threshold"`
	EmbedBatchSize       int     `koanf:"embed_batch_size"`
	EmbedConcurrency     int     `koanf:"embed_concurrency"`

	// Ledger settings
	LedgerBackend string `koanf:"ledger_backend"`
	LedgerPath    string `koanf:"ledger_path"`
	CharmHost     string `koanf:"charm_host"`
	CharmDBName   string `koanf:"charm_db"`
	AutoSync      bool   `koanf:"charm_auto_sync"`

	// Logging
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

// envKeys maps environment variables onto config keys; anything else is ignored
var envKeys = map[string]string{
	"STUDY_PROVIDER":               "provider",
	"OPENAI_API_KEY":               "openai_api_key",
	"OPENAI_BASE_URL":              "openai_base_url",
	"OLLAMA_HOST":                  "ollama_host",
	"STUDY_CHAT_MODEL":             "chat_model",
	"STUDY_EMBEDDING_MODEL":        "embedding_model",
	"STUDY_TIMEOUT":                "timeout",
	"STUDY_MAX_RETRIES":            "max_retries",
	"STUDY_RETRY_DELAY":            "retry_delay",
	"STUDY_CHUNK_SIZE":             "chunk_size",
	"STUDY_CHUNK_OVERLAP":          "chunk_overlap",
	"STUDY_RETRIEVAL_K":            "retrieval_k",
	"STUDY_RELEVANCE_FLOOR":        "relevance_floor",
	"STUDY_DEDUP_OVERLAP":          "dedup_overlap",
	"STUDY_SHORT_ANSWER_THRESHOLD": "short_answer_threshold",
	"STUDY_EMBED_BATCH_SIZE":       "embed_batch_size",
	"STUDY_EMBED_CONCURRENCY":      "embed_concurrency",
	"STUDY_LEDGER_BACKEND":         "ledger_backend",
	"STUDY_LEDGER_PATH":            "ledger_path",
	"CHARM_HOST":                   "charm_host",
	"CHARM_DB":                     "charm_db",
	"CHARM_AUTO_SYNC":              "charm_auto_sync",
	"STUDY_LOG_LEVEL":              "log_level",
	"STUDY_LOG_FORMAT":             "log_format",
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Provider:             ProviderOpenAI,
		OllamaHost:           "http://localhost:11434",
		ChatModel:            "gpt-4o-mini",
		EmbeddingModel:       "text-embedding-3-small",
		Timeout:              30 * time.Second,
		MaxRetries:           3,
		RetryDelay:           2 * time.Second,
		ChunkSize:            800,
		ChunkOverlap:         100,
		RetrievalK:           4,
		RelevanceFloor:       0.30,
		DedupOverlap:         0.5,
		ShortAnswerThreshold: 0.85,
		EmbedBatchSize:       64,
		EmbedConcurrency:     4,
		LedgerBackend:        LedgerSQLite,
		LedgerPath:           filepath.Join(xdg.DataHome, "study", "ledger.db"),
		CharmHost:            "cloud.charm.sh",
		CharmDBName:          "study",
		AutoSync:             true,
		LogLevel:             "info",
		LogFormat:            "console",
	}
}

// Load reads configuration from defaults, the YAML file at path (if any), and the environment.
// An empty path falls back to $XDG_CONFIG_HOME/study/config.yaml when that file exists.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		if found, err := xdg.SearchConfigFile(filepath.Join("study", "config.yaml")); err == nil {
			path = found
		}
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.LedgerBackend = strings.ToLower(strings.TrimSpace(cfg.LedgerBackend))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Validate rejects out-of-range values, naming the offending key
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("%s must be openai or ollama, got %q", field("STUDY_PROVIDER"), c.Provider)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%s must be positive, got %v", field("STUDY_TIMEOUT"), c.Timeout)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("%s must be 0-10, got %d", field("STUDY_MAX_RETRIES"), c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%s must not be negative, got %v", field("STUDY_RETRY_DELAY"), c.RetryDelay)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%s must be positive, got %d", field("STUDY_CHUNK_SIZE"), c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%s must be 0 to chunk size-1, got %d", field("STUDY_CHUNK_OVERLAP"), c.ChunkOverlap)
	}
	if c.RetrievalK < 1 || c.RetrievalK > 20 {
		return fmt.Errorf("%s must be 1-20, got %d", field("STUDY_RETRIEVAL_K"), c.RetrievalK)
	}
	if err := unitInterval("STUDY_RELEVANCE_FLOOR", c.RelevanceFloor); err != nil {
		return err
	}
	if err := unitInterval("STUDY_DEDUP_OVERLAP", c.DedupOverlap); err != nil {
		return err
	}
	if err := unitInterval("STUDY_SHORT_ANSWER_THRESHOLD", c.ShortAnswerThreshold); err != nil {
		return err
	}
	if c.EmbedBatchSize < 1 {
		return fmt.Errorf("%s must be positive, got %d", field("STUDY_EMBED_BATCH_SIZE"), c.EmbedBatchSize)
	}
	if c.EmbedConcurrency < 1 {
		return fmt.Errorf("%s must be positive, got %d", field("STUDY_EMBED_CONCURRENCY"), c.EmbedConcurrency)
	}
	switch c.LedgerBackend {
	case LedgerMemory, LedgerCharm:
	case LedgerSQLite:
		if c.LedgerPath == "" {
			return fmt.Errorf("%s is required for the sqlite ledger", field("STUDY_LEDGER_PATH"))
		}
	default:
		return fmt.Errorf("%s must be memory, sqlite or charm, got %q", field("STUDY_LEDGER_BACKEND"), c.LedgerBackend)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%s must be console or json, got %q", field("STUDY_LOG_FORMAT"), c.LogFormat)
	}
	return nil
}

// field names a setting by its environment variable and its YAML key
func field(env string) string {
	return fmt.Sprintf("%s (%s)", env, envKeys[env])
}

func unitInterval(key string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be 0-1, got %f", field(key), v)
	}
	return nil
}
