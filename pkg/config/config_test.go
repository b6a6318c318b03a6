package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelProvider(t *testing.T) {
	tests := []struct {
		model    string
		provider string
		wantErr  bool
	}{
		{"gpt-4o-mini", ProviderOpenAI, false},
		{"gpt-4o", ProviderOpenAI, false},
		{"claude-sonnet-4-5", ProviderAnthropic, false},
		{"gemini-1.5-flash", ProviderGoogle, false},
		// Pattern inference for models not in the registry
		{"claude-next-experimental", ProviderAnthropic, false},
		{"gemini-9.9-ultra", ProviderGoogle, false},
		{"llama3.2", ProviderOllama, false},
		{"ollama:phi4", ProviderOllama, false},
		{"totally-unknown-model", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			provider, err := GetModelProvider(tt.model)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, provider)
		})
	}
}

func TestGetModelInfo(t *testing.T) {
	info, known := GetModelInfo("gpt-4o-mini")
	assert.True(t, known)
	assert.Equal(t, ProviderOpenAI, info.Provider)
	assert.Greater(t, info.MaxContextTokens, 0)

	info, known = GetModelInfo("qwen2.5-coder")
	assert.False(t, known)
	assert.Equal(t, ProviderOllama, info.Provider)
	assert.Equal(t, 32000, info.MaxContextTokens)
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultModel, cfg.Oracle.Model)
	assert.Equal(t, float32(0.7), cfg.Oracle.Temperature)
	assert.Equal(t, 3, cfg.Interview.MaxIterationsPerTopic)
	assert.Equal(t, 2, cfg.Interview.MaxJudgeRetries)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
oracle:
  model: claude-sonnet-4-5
  temperature: 0.2
interview:
  max_iterations_per_topic: 5
  max_judge_retries: 1
store:
  backend: sqlite
  path: /tmp/test.db
http:
  addr: ":9000"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Oracle.Model)
	assert.Equal(t, float32(0.2), cfg.Oracle.Temperature)
	assert.Equal(t, 5, cfg.Interview.MaxIterationsPerTopic)
	assert.Equal(t, 1, cfg.Interview.MaxJudgeRetries)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	// Untouched sections keep their defaults.
	assert.Equal(t, 4096, cfg.Oracle.MaxTokens)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INTERVIEWER_MODEL", "gemini-2.0-flash")
	t.Setenv("INTERVIEWER_STORE", "redis")
	t.Setenv("INTERVIEWER_MAX_ITERATIONS", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", cfg.Oracle.Model)
	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	assert.Equal(t, 7, cfg.Interview.MaxIterationsPerTopic)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"empty model":     func(c *Config) { c.Oracle.Model = "" },
		"unknown model":   func(c *Config) { c.Oracle.Model = "not-a-model" },
		"bad temperature": func(c *Config) { c.Oracle.Temperature = 3.5 },
		"zero iterations": func(c *Config) { c.Interview.MaxIterationsPerTopic = 0 },
		"negative retry":  func(c *Config) { c.Interview.MaxJudgeRetries = -1 },
		"bad backend":     func(c *Config) { c.Store.Backend = "etcd" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAPIKeyForProvider(t *testing.T) {
	SetDecryptedSecrets(map[string]string{"ANTHROPIC_API_KEY": "sk-ant-abc"})
	defer SetDecryptedSecrets(nil)

	key, err := APIKeyForProvider(ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-abc", key)

	// Ollama is local and needs no key.
	key, err = APIKeyForProvider(ProviderOllama)
	require.NoError(t, err)
	assert.Empty(t, key)

	_, err = APIKeyForProvider("nonsense")
	assert.Error(t, err)
}
