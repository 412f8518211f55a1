// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies defaults, YAML file loading, environment precedence, and validation
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearStudyEnv(t *testing.T) {
	t.Helper()
	for key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearStudyEnv(t)

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, 4, cfg.RetrievalK)
	assert.InDelta(t, 0.30, cfg.RelevanceFloor, 1e-9)
	assert.InDelta(t, 0.85, cfg.ShortAnswerThreshold, 1e-9)
	assert.Equal(t, LedgerSQLite, cfg.LedgerBackend)
	assert.True(t, strings.HasSuffix(cfg.LedgerPath, filepath.Join("study", "ledger.db")))
	assert.Equal(t, "cloud.charm.sh", cfg.CharmHost)
	assert.Equal(t, "study", cfg.CharmDBName)
	assert.True(t, cfg.AutoSync)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_YAMLFile(t *testing.T) {
	clearStudyEnv(t)
	path := writeConfig(t, `
provider: ollama
chat_model: llama3.2
embedding_model: nomic-embed-text
timeout: 45s
chunk_size: 500
chunk_overlap: 50
retrieval_k: 6
ledger_backend: memory
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "llama3.2", cfg.ChatModel)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 6, cfg.RetrievalK)
	assert.Equal(t, LedgerMemory, cfg.LedgerBackend)
	// untouched keys keep defaults
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearStudyEnv(t)
	path := writeConfig(t, "chat_model: from-file\nretrieval_k: 6\n")
	t.Setenv("STUDY_CHAT_MODEL", "from-env")
	t.Setenv("STUDY_MAX_RETRIES", "5")
	t.Setenv("STUDY_RETRY_DELAY", "3s")
	t.Setenv("STUDY_RELEVANCE_FLOOR", "0.5")
	t.Setenv("CHARM_AUTO_SYNC", "false")
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.ChatModel)
	assert.Equal(t, 6, cfg.RetrievalK)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.RetryDelay)
	assert.InDelta(t, 0.5, cfg.RelevanceFloor, 1e-9)
	assert.False(t, cfg.AutoSync)
	assert.Equal(t, "test-key", cfg.OpenAIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	clearStudyEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValueNamesKey(t *testing.T) {
	clearStudyEnv(t)
	t.Setenv("STUDY_RETRIEVAL_K", "50")

	_, err := Load(writeConfig(t, "{}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STUDY_RETRIEVAL_K")
}

func TestLoad_InvalidFileValueNamesYAMLKey(t *testing.T) {
	clearStudyEnv(t)

	_, err := Load(writeConfig(t, "chunk_size: 100\nchunk_overlap: 100\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_overlap")
	assert.Contains(t, err.Error(), "STUDY_CHUNK_OVERLAP")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"unknown provider", func(c *Config) { c.Provider = "bard" }, "STUDY_PROVIDER"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "STUDY_TIMEOUT"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "STUDY_MAX_RETRIES"},
		{"too many retries", func(c *Config) { c.MaxRetries = 11 }, "STUDY_MAX_RETRIES"},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, "STUDY_CHUNK_SIZE"},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, "STUDY_CHUNK_OVERLAP"},
		{"k zero", func(c *Config) { c.RetrievalK = 0 }, "STUDY_RETRIEVAL_K"},
		{"floor above one", func(c *Config) { c.RelevanceFloor = 1.5 }, "STUDY_RELEVANCE_FLOOR"},
		{"dedup negative", func(c *Config) { c.DedupOverlap = -0.1 }, "STUDY_DEDUP_OVERLAP"},
		{"threshold above one", func(c *Config) { c.ShortAnswerThreshold = 2 }, "STUDY_SHORT_ANSWER_THRESHOLD"},
		{"zero batch", func(c *Config) { c.EmbedBatchSize = 0 }, "STUDY_EMBED_BATCH_SIZE"},
		{"zero workers", func(c *Config) { c.EmbedConcurrency = 0 }, "STUDY_EMBED_CONCURRENCY"},
		{"unknown ledger", func(c *Config) { c.LedgerBackend = "redis" }, "STUDY_LEDGER_BACKEND"},
		{"sqlite without path", func(c *Config) { c.LedgerPath = "" }, "STUDY_LEDGER_PATH"},
		{"memory without path", func(c *Config) { c.LedgerBackend = LedgerMemory; c.LedgerPath = "" }, ""},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "STUDY_LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
