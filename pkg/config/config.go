// Package config holds the interviewer configuration: which oracle model to
// use, interview bounds, checkpoint store selection, and the static registry
// of known models with provider and pricing information.
//
// Configuration is resolved in three layers: built-in defaults, an optional
// YAML file, and environment variable overrides. The resolved Config is
// passed explicitly to the components that need it; there is no package-level
// current config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifiers for oracle clients.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Checkpoint store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// DefaultModel is used when neither config file nor environment name one.
const DefaultModel = "gpt-4o-mini"

// ModelInfo contains static information about a known LLM model.
// This data is hardcoded in the application, not user-configurable.
type ModelInfo struct {
	Provider         string  // API provider (anthropic, openai, google, ollama)
	InputCPM         float64 // Cost per million input tokens (USD)
	OutputCPM        float64 // Cost per million output tokens (USD)
	MaxContextTokens int     // Maximum context window size in tokens
	MaxOutputTokens  int     // Maximum output tokens per request
}

// KnownModels registry contains pricing and provider information for common
// models. Optional: unknown models are inferred via ProviderPatterns.
//
//nolint:gochecknoglobals // Intentional global for static model registry
var KnownModels = map[string]ModelInfo{
	// Claude models (Anthropic)
	"claude-sonnet-4-5": {
		Provider:         ProviderAnthropic,
		InputCPM:         3.0,
		OutputCPM:        15.0,
		MaxContextTokens: 200000,
		MaxOutputTokens:  8192,
	},
	"claude-haiku-4-5": {
		Provider:         ProviderAnthropic,
		InputCPM:         1.0,
		OutputCPM:        5.0,
		MaxContextTokens: 200000,
		MaxOutputTokens:  8192,
	},

	// OpenAI GPT models
	"gpt-4o": {
		Provider:         ProviderOpenAI,
		InputCPM:         2.5,
		OutputCPM:        10.0,
		MaxContextTokens: 128000,
		MaxOutputTokens:  4096,
	},
	"gpt-4o-mini": {
		Provider:         ProviderOpenAI,
		InputCPM:         0.15,
		OutputCPM:        0.60,
		MaxContextTokens: 128000,
		MaxOutputTokens:  16384,
	},
	"o3-mini": {
		Provider:         ProviderOpenAI,
		InputCPM:         1.1,
		OutputCPM:        4.4,
		MaxContextTokens: 128000,
		MaxOutputTokens:  16384,
	},

	// Google Gemini models
	"gemini-1.5-flash": {
		Provider:         ProviderGoogle,
		InputCPM:         0.075,
		OutputCPM:        0.30,
		MaxContextTokens: 1048576,
		MaxOutputTokens:  8192,
	},
	"gemini-2.0-flash": {
		Provider:         ProviderGoogle,
		InputCPM:         0.10,
		OutputCPM:        0.40,
		MaxContextTokens: 1048576,
		MaxOutputTokens:  8192,
	},
	"gemini-2.5-flash": {
		Provider:         ProviderGoogle,
		InputCPM:         0.30,
		OutputCPM:        2.50,
		MaxContextTokens: 1048576,
		MaxOutputTokens:  65536,
	},
}

// ProviderPattern represents a pattern for inferring provider from model name.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns defines rules for inferring providers from unknown model
// names, so new models work without code changes.
//
//nolint:gochecknoglobals // Intentional global for inference rules
var ProviderPatterns = []ProviderPattern{
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	// Common open-source model prefixes served by Ollama
	{"phi", ProviderOllama},
	{"llama", ProviderOllama},
	{"qwen", ProviderOllama},
	{"mistral", ProviderOllama},
	{"deepseek", ProviderOllama},
	{"ollama:", ProviderOllama}, // Explicit prefix like "ollama:phi4"
}

// GetModelProvider returns the API provider for a given model.
// First checks KnownModels, then tries pattern matching.
// Returns an error if the model cannot be mapped to a provider.
func GetModelProvider(modelName string) (string, error) {
	if info, exists := KnownModels[modelName]; exists {
		return info.Provider, nil
	}

	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			return ProviderPatterns[i].Provider, nil
		}
	}

	return "", fmt.Errorf("unknown model '%s': no known provider mapping or pattern match", modelName)
}

// GetModelInfo returns the ModelInfo for a model name. Returns the info and
// true when the model is in KnownModels, or conservative defaults with an
// inferred provider and false when it is not.
func GetModelInfo(modelName string) (ModelInfo, bool) {
	if info, exists := KnownModels[modelName]; exists {
		return info, true
	}

	provider := ""
	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			provider = ProviderPatterns[i].Provider
			break
		}
	}

	return ModelInfo{
		Provider:         provider,
		InputCPM:         0.0,
		OutputCPM:        0.0,
		MaxContextTokens: 32000,
		MaxOutputTokens:  4096,
	}, false
}

// OracleConfig selects the model and generation parameters for oracle calls.
type OracleConfig struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// InterviewConfig carries the per-session default bounds.
type InterviewConfig struct {
	MaxIterationsPerTopic int `yaml:"max_iterations_per_topic"`
	MaxJudgeRetries       int `yaml:"max_judge_retries"`
}

// StoreConfig selects and parameterizes the checkpoint store backend.
type StoreConfig struct {
	Backend    string        `yaml:"backend"`      // memory, file, sqlite, redis
	Dir        string        `yaml:"dir"`          // file backend: directory for session files
	Path       string        `yaml:"path"`         // sqlite backend: database file path
	RedisAddr  string        `yaml:"redis_addr"`   // redis backend: host:port
	RedisDB    int           `yaml:"redis_db"`     // redis backend: logical database
	KeyPrefix  string        `yaml:"key_prefix"`   // redis backend: key namespace
	SessionTTL time.Duration `yaml:"session_ttl"`  // redis backend: 0 means no expiry
}

// HTTPConfig configures the session API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogsConfig configures transcript logging.
type LogsConfig struct {
	Dir        string `yaml:"dir"`
	Transcript bool   `yaml:"transcript"` // write JSONL transcript events
}

// MetricsConfig points the rollup query service at a Prometheus server.
type MetricsConfig struct {
	PrometheusURL string `yaml:"prometheus_url"`
}

// Config is the resolved interviewer configuration.
type Config struct {
	Oracle    OracleConfig    `yaml:"oracle"`
	Interview InterviewConfig `yaml:"interview"`
	Store     StoreConfig     `yaml:"store"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logs      LogsConfig      `yaml:"logs"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Catalog   string          `yaml:"catalog"` // path to a CSV or YAML topic catalog
}

// Default returns the built-in configuration. The interview bounds and the
// model default track the reference deployment: gpt-4o-mini at temperature
// 0.7, three probing iterations per topic, two judge retries.
func Default() Config {
	return Config{
		Oracle: OracleConfig{
			Model:       DefaultModel,
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Interview: InterviewConfig{
			MaxIterationsPerTopic: 3,
			MaxJudgeRetries:       2,
		},
		Store: StoreConfig{
			Backend:   StoreMemory,
			Dir:       "sessions",
			Path:      "interviewer.db",
			RedisAddr: "localhost:6379",
			KeyPrefix: "interviewer:",
		},
		HTTP: HTTPConfig{
			Addr: ":8085",
		},
		Logs: LogsConfig{
			Dir:        "logs",
			Transcript: true,
		},
	}
}

// Load resolves the configuration: defaults, then the YAML file at path (if
// path is non-empty the file must exist and parse), then env overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays INTERVIEWER_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("INTERVIEWER_MODEL"); v != "" {
		c.Oracle.Model = v
	}
	if v := os.Getenv("INTERVIEWER_STORE"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("INTERVIEWER_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("INTERVIEWER_CATALOG"); v != "" {
		c.Catalog = v
	}
	if v := os.Getenv("INTERVIEWER_REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	}
	if v := os.Getenv("INTERVIEWER_PROMETHEUS_URL"); v != "" {
		c.Metrics.PrometheusURL = v
	}
	if v := os.Getenv("INTERVIEWER_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Interview.MaxIterationsPerTopic = n
		}
	}
	if v := os.Getenv("INTERVIEWER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Interview.MaxJudgeRetries = n
		}
	}
}

// Validate checks the resolved configuration for values the engine cannot
// run with.
func (c *Config) Validate() error {
	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle model cannot be empty")
	}
	if _, err := GetModelProvider(c.Oracle.Model); err != nil {
		return fmt.Errorf("invalid oracle model: %w", err)
	}
	if c.Oracle.Temperature < 0.0 || c.Oracle.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %v", c.Oracle.Temperature)
	}
	if c.Interview.MaxIterationsPerTopic < 1 {
		return fmt.Errorf("max_iterations_per_topic must be at least 1, got %d", c.Interview.MaxIterationsPerTopic)
	}
	if c.Interview.MaxJudgeRetries < 0 {
		return fmt.Errorf("max_judge_retries cannot be negative, got %d", c.Interview.MaxJudgeRetries)
	}
	switch c.Store.Backend {
	case StoreMemory, StoreFile, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// APIKeyEnvVar maps a provider to the environment/secret name of its API key.
func APIKeyEnvVar(provider string) (string, error) {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY", nil
	case ProviderOpenAI:
		return "OPENAI_API_KEY", nil
	case ProviderGoogle:
		return "GEMINI_API_KEY", nil
	case ProviderOllama:
		return "", nil // local, no key
	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}
}

// APIKeyForProvider resolves the API key for a provider via the secrets
// store and environment. Ollama needs no key and returns "".
func APIKeyForProvider(provider string) (string, error) {
	envVar, err := APIKeyEnvVar(provider)
	if err != nil {
		return "", err
	}
	if envVar == "" {
		return "", nil
	}
	key, err := GetSecret(envVar)
	if err != nil {
		return "", fmt.Errorf("no API key for provider %s: %w", provider, err)
	}
	return key, nil
}

// OllamaHost returns the Ollama server address, defaulting to the standard
// local port.
func OllamaHost() string {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		return host
	}
	return "http://localhost:11434"
}
