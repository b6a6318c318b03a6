package metrics

import (
	"context"
	"time"

	"interviewer/pkg/config"
	"interviewer/pkg/logx"
	"interviewer/pkg/oracle"
	"interviewer/pkg/tokens"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor extracts token usage from a request and response pair.
type UsageExtractor func(req oracle.Request, resp oracle.Response) (promptTokens, completionTokens int)

// NewUsageExtractor returns the default extractor: provider-reported usage
// when present, otherwise a tokenizer estimate over the raw text.
func NewUsageExtractor(counter *tokens.Counter) UsageExtractor {
	return func(req oracle.Request, resp oracle.Response) (int, int) {
		if !resp.Usage.IsZero() {
			return resp.Usage.PromptTokens, resp.Usage.CompletionTokens
		}

		var promptText string
		for i := range req.Messages {
			promptText += req.Messages[i].Content + "\n"
		}
		return counter.Count(promptText), counter.Count(resp.Content)
	}
}

// Middleware returns a middleware that records metrics for oracle operations.
// It tracks request latency, token usage, estimated cost, and error types,
// labeled by the session and stage carried in the call context.
func Middleware(recorder Recorder, usageExtractor UsageExtractor, logger *logx.Logger) oracle.Middleware {
	if usageExtractor == nil {
		usageExtractor = NewUsageExtractor(nil)
	}

	return func(next oracle.Client) oracle.Client {
		return oracle.WrapClient(
			func(ctx context.Context, req oracle.Request) (oracle.Response, error) {
				start := time.Now()
				model := next.ModelName()

				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				}

				errorType := ""
				if err != nil {
					errorType = oracle.TypeOf(err).String()
				}

				scope := oracle.ScopeFrom(ctx)
				cost := requestCost(model, promptTokens, completionTokens)

				recorder.ObserveRequest(
					model,
					scope.SessionID,
					scope.Stage,
					promptTokens,
					completionTokens,
					cost,
					err == nil,
					errorType,
					duration,
				)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Info("oracle request: model=%s session=%s stage=%s tokens=%d+%d=%d status=%s duration=%dms",
						model, scope.SessionID, scope.Stage, promptTokens, completionTokens,
						promptTokens+completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // Middleware passes errors through unchanged
			},
			next.ModelName,
		)
	}
}

// requestCost estimates the USD cost of one request from the per-million
// token prices in the model registry. Unknown models cost zero.
func requestCost(model string, promptTokens, completionTokens int) float64 {
	info, ok := config.GetModelInfo(model)
	if !ok {
		return 0
	}
	const million = 1_000_000
	return float64(promptTokens)/million*info.InputCPM +
		float64(completionTokens)/million*info.OutputCPM
}
