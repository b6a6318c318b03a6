// Package google provides the Google Gemini implementation of the oracle.Client interface.
package google

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"interviewer/pkg/oracle"
)

// GeminiClient wraps the Google GenAI client to implement oracle.Client.
type GeminiClient struct {
	client *genai.Client
	apiKey string
	model  string
}

// NewGeminiClientWithModel creates a raw Gemini client; middleware is applied at a higher level.
// Client creation requires a context, so it is deferred to the first Complete call.
func NewGeminiClientWithModel(apiKey, model string) oracle.Client {
	return &GeminiClient{
		client: nil,
		apiKey: apiKey,
		model:  model,
	}
}

// Complete implements the oracle.Client interface.
func (g *GeminiClient) Complete(ctx context.Context, in oracle.Request) (oracle.Response, error) {
	if g.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return oracle.Response{}, oracle.NewErrorWithCause(oracle.ErrorTypeAuth, err, "failed to create Gemini client")
		}
		g.client = client
	}

	contents, systemInstruction, err := convertMessages(in.Messages)
	if err != nil {
		return oracle.Response{}, oracle.NewError(oracle.ErrorTypeBadRequest, fmt.Sprintf("message conversion error: %v", err))
	}

	temperature := in.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(in.MaxTokens), //nolint:gosec // MaxTokens validated at config load
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return oracle.Response{}, classifyError(err)
	}
	if result == nil {
		return oracle.Response{}, oracle.NewError(oracle.ErrorTypeEmptyResponse, "empty response from Gemini API")
	}

	resp := oracle.Response{
		Content:    result.Text(),
		StopReason: "end_turn",
	}
	if result.UsageMetadata != nil {
		resp.Usage = oracle.Usage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
		}
	}
	return resp, nil
}

// ModelName returns the model name for this client.
func (g *GeminiClient) ModelName() string {
	return g.model
}

// convertMessages converts oracle messages to Gemini Content, extracting
// system messages into the system instruction.
func convertMessages(messages []oracle.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}

	var systemInstruction string
	var contents []*genai.Content

	for i := range messages {
		msg := &messages[i]

		if msg.Role == oracle.RoleSystem {
			if systemInstruction != "" {
				systemInstruction += "\n\n" + msg.Content
			} else {
				systemInstruction = msg.Content
			}
			continue
		}

		var role string
		switch msg.Role {
		case oracle.RoleUser:
			role = "user"
		case oracle.RoleAssistant:
			role = "model" // Gemini uses "model" instead of "assistant"
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		if msg.Content == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	if len(contents) == 0 {
		return nil, "", fmt.Errorf("must have at least one non-system message")
	}

	return contents, systemInstruction, nil
}

// classifyError maps Gemini errors to structured oracle errors.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "429"), strings.Contains(errStr, "quota"), strings.Contains(errStr, "resource exhausted"):
		return oracle.NewErrorWithCause(oracle.ErrorTypeRateLimit, err, "rate limit exceeded")
	case strings.Contains(errStr, "401"), strings.Contains(errStr, "403"), strings.Contains(errStr, "api key"):
		return oracle.NewErrorWithCause(oracle.ErrorTypeAuth, err, "authentication failed - check API key")
	case strings.Contains(errStr, "400"), strings.Contains(errStr, "invalid"):
		return oracle.NewErrorWithCause(oracle.ErrorTypeBadRequest, err, "bad request")
	case strings.Contains(errStr, "500"), strings.Contains(errStr, "503"),
		strings.Contains(errStr, "timeout"), strings.Contains(errStr, "connection"):
		return oracle.NewErrorWithCause(oracle.ErrorTypeTransient, err, "server or network error")
	}

	return oracle.NewErrorWithCause(oracle.ErrorTypeUnknown, err, "Gemini API call failed")
}
