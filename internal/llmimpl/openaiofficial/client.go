// Package openaiofficial provides the OpenAI implementation of the oracle.Client
// interface using the official OpenAI Go package.
package openaiofficial

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"interviewer/pkg/config"
	"interviewer/pkg/oracle"
)

// OfficialClient wraps the official OpenAI Go client to implement oracle.Client.
type OfficialClient struct {
	client openai.Client
	model  string
}

// NewOfficialClientWithModel creates a raw OpenAI client; middleware is applied at a higher level.
func NewOfficialClientWithModel(apiKey, model string) oracle.Client {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OfficialClient{
		client: client,
		model:  model,
	}
}

// Complete implements the oracle.Client interface via the Chat Completions API.
func (o *OfficialClient) Complete(ctx context.Context, in oracle.Request) (oracle.Response, error) {
	if len(in.Messages) == 0 {
		return oracle.Response{}, oracle.NewError(oracle.ErrorTypeBadRequest, "message list cannot be empty")
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case oracle.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case oracle.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case oracle.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			return oracle.Response{}, oracle.NewError(oracle.ErrorTypeBadRequest, fmt.Sprintf("unsupported message role: %s", msg.Role))
		}
	}

	// Cap MaxTokens to the model's actual limit to prevent API errors.
	maxTokens := in.MaxTokens
	if info, exists := config.KnownModels[o.model]; exists && info.MaxOutputTokens > 0 && maxTokens > info.MaxOutputTokens {
		maxTokens = info.MaxOutputTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(o.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
		Temperature:         openai.Float(float64(in.Temperature)),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return oracle.Response{}, classifyError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return oracle.Response{}, oracle.NewError(oracle.ErrorTypeEmptyResponse, "received empty response from OpenAI API")
	}

	choice := resp.Choices[0]
	return oracle.Response{
		Content:    choice.Message.Content,
		StopReason: stopReason(string(choice.FinishReason)),
		Usage: oracle.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// ModelName returns the model name for this client.
func (o *OfficialClient) ModelName() string {
	return o.model
}

// stopReason converts OpenAI finish reasons to the shared vocabulary.
func stopReason(finish string) string {
	switch finish {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	case "":
		return "end_turn"
	default:
		return finish
	}
}

// classifyError maps OpenAI SDK errors to structured oracle errors.
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

	var apiErr *openai.Error
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
	case strings.Contains(errStr, "auth"), strings.Contains(errStr, "api key"):
		return oracle.NewErrorWithCause(oracle.ErrorTypeAuth, err, "authentication error")
	}

	return oracle.NewErrorWithCause(oracle.ErrorTypeUnknown, err, "unclassified error")
}
