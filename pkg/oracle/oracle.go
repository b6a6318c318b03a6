// Package oracle defines the completion client the interview stages consult
// for questions, structured decisions, and feedback.
package oracle

import "context"

// Role represents the role of a message in a conversation.
type Role string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem Role = "system"
	// RoleUser indicates a message from the human user.
	RoleUser Role = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant Role = "assistant"
)

const (
	// DefaultMaxTokens caps completion length when the caller does not set one.
	DefaultMaxTokens = 4096

	// DefaultTemperature suits conversational question generation. Structured
	// decisions use the same setting; the stages recover from format drift.
	DefaultTemperature = 0.7
)

// Message represents a message in a completion request.
type Message struct {
	Content string
	Role    Role
}

// Request represents a request to generate a completion.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Usage reports token consumption for one completion, as counted by the
// provider. A zero Usage means the provider did not report it and the caller
// should estimate.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// IsZero reports whether the provider reported no usage at all.
func (u Usage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0
}

// Response represents a response from a completion request.
type Response struct {
	Content    string // Main response text
	StopReason string // Why the response stopped: "end_turn", "max_tokens", etc.
	Usage      Usage
}

// Client is the interface the stages depend on for model interactions.
type Client interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in Request) (Response, error)

	// ModelName returns the model name for this client.
	ModelName() string
}

// NewRequest creates a new completion request with default values.
func NewRequest(messages []Message) Request {
	return Request{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{
		Role:    RoleUser,
		Content: content,
	}
}
