// Package factory builds fully wired oracle clients from configuration.
package factory

import (
	"fmt"

	"interviewer/internal/llmimpl/anthropic"
	"interviewer/internal/llmimpl/google"
	"interviewer/internal/llmimpl/ollama"
	"interviewer/internal/llmimpl/openaiofficial"
	"interviewer/pkg/config"
	"interviewer/pkg/logx"
	"interviewer/pkg/oracle"
	"interviewer/pkg/oracle/middleware/metrics"
	"interviewer/pkg/tokens"
)

// OracleFactory creates oracle clients with the metrics middleware chain
// attached. One factory (and therefore one Prometheus recorder) per process.
type OracleFactory struct {
	cfg      *config.Config
	recorder metrics.Recorder
	counter  *tokens.Counter
	logger   *logx.Logger
}

// NewOracleFactory creates a factory that records metrics with the given
// recorder. Pass metrics.Nop() to disable collection.
func NewOracleFactory(cfg *config.Config, recorder metrics.Recorder) *OracleFactory {
	// A nil counter falls back to the character estimate inside Count.
	counter, err := tokens.NewCounter(cfg.Oracle.Model)
	if err != nil {
		logx.Warnf("tokenizer unavailable, using character estimate: %v", err)
	}

	return &OracleFactory{
		cfg:      cfg,
		recorder: recorder,
		counter:  counter,
		logger:   logx.NewLogger("oracle"),
	}
}

// NewClient creates an oracle client for the configured model with the full
// middleware chain. The API key is resolved from secrets or environment
// variables based on the model's provider.
func (f *OracleFactory) NewClient() (oracle.Client, error) {
	return f.NewClientForModel(f.cfg.Oracle.Model)
}

// NewClientForModel creates a wired oracle client for a specific model.
func (f *OracleFactory) NewClientForModel(modelName string) (oracle.Client, error) {
	raw, err := f.newRawClient(modelName)
	if err != nil {
		return nil, err
	}

	return oracle.Chain(raw,
		metrics.Middleware(f.recorder, metrics.NewUsageExtractor(f.counter), f.logger),
	), nil
}

// newRawClient selects the provider implementation by model name.
func (f *OracleFactory) newRawClient(modelName string) (oracle.Client, error) {
	provider, err := config.GetModelProvider(modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to determine provider for model %s: %w", modelName, err)
	}

	apiKey, err := config.APIKeyForProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key for provider %s: %w", provider, err)
	}

	switch provider {
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClientWithModel(apiKey, modelName), nil
	case config.ProviderOpenAI:
		return openaiofficial.NewOfficialClientWithModel(apiKey, modelName), nil
	case config.ProviderGoogle:
		return google.NewGeminiClientWithModel(apiKey, modelName), nil
	case config.ProviderOllama:
		return ollama.NewClientWithModel(config.OllamaHost(), modelName), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
