// Package anthropic provides the Anthropic Claude implementation of the oracle.Client interface.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"interviewer/pkg/oracle"
)

// ClaudeClient wraps the Anthropic API client to implement oracle.Client.
type ClaudeClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClaudeClientWithModel creates a raw Claude client; middleware is applied at a higher level.
func NewClaudeClientWithModel(apiKey, model string) oracle.Client {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ClaudeClient{
		client: client,
		model:  anthropic.Model(model),
	}
}

// ensureAlternation prepares messages for Anthropic API requirements.
// 1. Extracts system messages to the top-level system parameter
// 2. Merges consecutive user messages into single user messages
// 3. Validates strict user/assistant alternation ending on a user message.
func ensureAlternation(messages []oracle.Message) (systemPrompt string, alternating []oracle.Message, err error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	var nonSystem []oracle.Message
	for i := range messages {
		msg := &messages[i]
		if msg.Role == oracle.RoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			nonSystem = append(nonSystem, *msg)
		}
	}
	systemPrompt = strings.Join(systemParts, "\n\n")

	if len(nonSystem) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}

	var merged []oracle.Message
	var userParts []string
	for i := range nonSystem {
		msg := &nonSystem[i]
		if msg.Role == oracle.RoleAssistant {
			if len(userParts) > 0 {
				merged = append(merged, oracle.Message{
					Role:    oracle.RoleUser,
					Content: strings.Join(userParts, "\n\n"),
				})
				userParts = nil
			}
			merged = append(merged, *msg)
		} else {
			userParts = append(userParts, msg.Content)
		}
	}
	if len(userParts) > 0 {
		merged = append(merged, oracle.Message{
			Role:    oracle.RoleUser,
			Content: strings.Join(userParts, "\n\n"),
		})
	}

	for i := range merged {
		msg := &merged[i]
		if i > 0 && msg.Role == merged[i-1].Role {
			return "", nil, fmt.Errorf("alternation violation at index %d: consecutive %s messages", i, msg.Role)
		}
		if i == 0 && msg.Role != oracle.RoleUser {
			return "", nil, fmt.Errorf("first message must be user role, got: %s", msg.Role)
		}
	}
	if last := &merged[len(merged)-1]; last.Role != oracle.RoleUser {
		return "", nil, fmt.Errorf("last message must be user role, got: %s", last.Role)
	}

	return systemPrompt, merged, nil
}

// Complete implements the oracle.Client interface.
func (c *ClaudeClient) Complete(ctx context.Context, in oracle.Request) (oracle.Response, error) {
	systemPrompt, alternating, err := ensureAlternation(in.Messages)
	if err != nil {
		return oracle.Response{}, oracle.NewError(oracle.ErrorTypeBadRequest, fmt.Sprintf("message alternation error: %v", err))
	}

	messages := make([]anthropic.MessageParam, 0, len(alternating))
	for i := range alternating {
		msg := &alternating[i]
		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(msg.Role),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
		})
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: systemPrompt,
			Type: "text",
		}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return oracle.Response{}, classifyError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return oracle.Response{}, oracle.NewError(oracle.ErrorTypeEmptyResponse, "received empty or nil response from Claude API")
	}

	var text string
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}

	return oracle.Response{
		Content:    text,
		StopReason: string(resp.StopReason),
		Usage: oracle.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// ModelName returns the model name for this client.
func (c *ClaudeClient) ModelName() string {
	return string(c.model)
}

// classifyError maps Anthropic SDK errors to structured oracle errors.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return oracle.NewErrorWithCause(oracle.ErrorTypeTransient, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return oracle.NewErrorWithCause(oracle.ErrorTypeTransient, err, "request canceled")
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return oracle.NewErrorWithStatus(oracle.ErrorTypeAuth, apiErr.StatusCode, "authentication failed - check API key")
		case 429:
			return oracle.NewErrorWithStatus(oracle.ErrorTypeRateLimit, apiErr.StatusCode, "rate limit exceeded")
		case 400:
			return oracle.NewErrorWithStatus(oracle.ErrorTypeBadRequest, apiErr.StatusCode, "bad request - check prompt format and parameters")
		case 500, 502, 503, 504:
			return oracle.NewErrorWithStatus(oracle.ErrorTypeTransient, apiErr.StatusCode, "server error")
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "connection"),
		strings.Contains(errStr, "eof"),
		strings.Contains(errStr, "reset"):
		return oracle.NewErrorWithCause(oracle.ErrorTypeTransient, err, "network or connection error")
	case strings.Contains(errStr, "rate"), strings.Contains(errStr, "quota"):
		return oracle.NewErrorWithCause(oracle.ErrorTypeRateLimit, err, "rate limiting detected")
	case strings.Contains(errStr, "auth"), strings.Contains(errStr, "unauthorized"):
		return oracle.NewErrorWithCause(oracle.ErrorTypeAuth, err, "authentication error")
	}

	return oracle.NewErrorWithCause(oracle.ErrorTypeUnknown, err, "unclassified error")
}
