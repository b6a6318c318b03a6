// Package ollama provides the Ollama implementation of the oracle.Client interface.
// Ollama is a local LLM runtime that allows running open-source models.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"interviewer/pkg/oracle"
)

// Client wraps the Ollama API client to implement oracle.Client.
type Client struct {
	client *api.Client
	model  string
}

// NewClientWithModel creates a raw Ollama client; middleware is applied at a higher level.
// hostURL should be the Ollama server URL (e.g., "http://localhost:11434").
func NewClientWithModel(hostURL, model string) oracle.Client {
	parsedURL, err := url.Parse(hostURL)
	if err != nil {
		parsedURL, _ = url.Parse("http://localhost:11434")
	}

	return &Client{
		client: api.NewClient(parsedURL, http.DefaultClient),
		model:  model,
	}
}

// Complete implements the oracle.Client interface.
func (o *Client) Complete(ctx context.Context, in oracle.Request) (oracle.Response, error) {
	if len(in.Messages) == 0 {
		return oracle.Response{}, oracle.NewError(oracle.ErrorTypeBadRequest, "message list cannot be empty")
	}

	messages := make([]api.Message, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		messages = append(messages, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}

	var response api.ChatResponse
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return oracle.Response{}, classifyError(err)
	}

	return oracle.Response{
		Content:    response.Message.Content,
		StopReason: stopReason(&response),
		Usage: oracle.Usage{
			PromptTokens:     response.PromptEvalCount,
			CompletionTokens: response.EvalCount,
		},
	}, nil
}

// ModelName returns the model name for this client.
func (o *Client) ModelName() string {
	return o.model
}

// stopReason converts Ollama's done_reason to the shared vocabulary.
func stopReason(resp *api.ChatResponse) string {
	if !resp.Done {
		return "incomplete"
	}

	switch resp.DoneReason {
	case "stop", "":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return resp.DoneReason
	}
}

// classifyError converts Ollama errors to structured oracle errors.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return oracle.NewErrorWithCause(oracle.ErrorTypeTransient, err, "Ollama server not reachable")
	case strings.Contains(errStr, "model") && strings.Contains(errStr, "not found"):
		return oracle.NewErrorWithCause(oracle.ErrorTypeBadRequest, err, "Ollama model not found")
	case strings.Contains(errStr, "context canceled"), strings.Contains(errStr, "timeout"):
		return oracle.NewErrorWithCause(oracle.ErrorTypeTransient, err, "request canceled or timed out")
	default:
		return oracle.NewErrorWithCause(oracle.ErrorTypeUnknown, err, fmt.Sprintf("Ollama API error: %v", err))
	}
}
