// Package metrics reads back aggregated oracle usage from Prometheus. The
// oracle middleware records per-request counters labeled by model, session,
// and stage; this package rolls them up into per-session totals and
// breakdowns for the API and CLI.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// SessionMetrics aggregates oracle token and cost usage for one interview
// session.
type SessionMetrics struct {
	SessionID        string  `json:"session_id"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	TotalCost        float64 `json:"total_cost_usd"`
}

// QueryService queries a Prometheus server for the usage series the oracle
// middleware exports.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a metrics query service against the given
// Prometheus base URL.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetSessionMetrics aggregates tokens and cost across every stage and model
// used by a session. Series that do not exist yet read as zero, so a brand
// new session reports empty usage rather than an error.
func (q *QueryService) GetSessionMetrics(ctx context.Context, sessionID string) (*SessionMetrics, error) {
	return q.collect(ctx, sessionID, fmt.Sprintf(`session_id=%q`, sessionID))
}

// GetSessionMetricsByStage breaks a session's usage down by interview stage,
// showing where the token budget went.
func (q *QueryService) GetSessionMetricsByStage(ctx context.Context, sessionID string) (map[string]*SessionMetrics, error) {
	return q.breakdown(ctx, sessionID, "stage")
}

// GetSessionMetricsByModel breaks a session's usage down by model, for
// deployments that route stages to different providers.
func (q *QueryService) GetSessionMetricsByModel(ctx context.Context, sessionID string) (map[string]*SessionMetrics, error) {
	return q.breakdown(ctx, sessionID, "model")
}

// breakdown aggregates one SessionMetrics per distinct value of the given
// label among the session's series.
func (q *QueryService) breakdown(ctx context.Context, sessionID, label string) (map[string]*SessionMetrics, error) {
	values, err := q.labelValues(ctx, fmt.Sprintf(`group by (%s) (llm_tokens_total{session_id=%q})`, label, sessionID), label)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s breakdown: %w", label, err)
	}

	result := make(map[string]*SessionMetrics, len(values))
	for _, value := range values {
		m, err := q.collect(ctx, sessionID, fmt.Sprintf(`session_id=%q, %s=%q`, sessionID, label, value))
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate %s=%s: %w", label, value, err)
		}
		result[value] = m
	}
	return result, nil
}

// collect runs the three aggregation queries for one label selector.
func (q *QueryService) collect(ctx context.Context, sessionID, selector string) (*SessionMetrics, error) {
	m := &SessionMetrics{SessionID: sessionID}

	prompt, err := q.scalarSum(ctx, fmt.Sprintf(`sum(llm_tokens_total{%s, type="prompt"})`, selector))
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}
	m.PromptTokens = int64(prompt)

	completion, err := q.scalarSum(ctx, fmt.Sprintf(`sum(llm_tokens_total{%s, type="completion"})`, selector))
	if err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	m.CompletionTokens = int64(completion)
	m.TotalTokens = m.PromptTokens + m.CompletionTokens

	cost, err := q.scalarSum(ctx, fmt.Sprintf(`sum(llm_costs_total{%s})`, selector))
	if err != nil {
		return nil, fmt.Errorf("failed to query total cost: %w", err)
	}
	m.TotalCost = cost

	return m, nil
}

// scalarSum evaluates a sum() query and returns its single sample, or zero
// when the series does not exist.
func (q *QueryService) scalarSum(ctx context.Context, query string) (float64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return float64(vector[0].Value), nil
	}
	return 0, nil
}

// labelValues evaluates a group-by query and returns the sorted distinct
// values of one label.
func (q *QueryService) labelValues(ctx context.Context, query, label string) ([]string, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return nil, err
	}

	var values []string
	if vector, ok := result.(model.Vector); ok {
		for _, sample := range vector {
			if v, ok := sample.Metric[model.LabelName(label)]; ok {
				values = append(values, string(v))
			}
		}
	}
	sort.Strings(values)
	return values, nil
}
