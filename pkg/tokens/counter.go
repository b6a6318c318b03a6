// Package tokens provides token counting for oracle usage accounting.
package tokens

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens for a given model. All supported providers are
// approximated with the GPT-4 encoding; exact per-provider tokenizers are
// unnecessary because counts feed usage accounting, not context packing.
type Counter struct {
	codec tokenizer.Codec
}

// NewCounter creates a token counter for the given model name.
func NewCounter(model string) (*Counter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec for model %s: %w", model, err)
	}
	return &Counter{codec: codec}, nil
}

// Count returns the number of tokens in text, falling back to the
// 4-characters-per-token estimate when the codec is unavailable.
func (c *Counter) Count(text string) int {
	if c == nil || c.codec == nil {
		return Estimate(text)
	}

	count, err := c.codec.Count(text)
	if err != nil {
		return Estimate(text)
	}
	return count
}

// Estimate is the character-based fallback: 4 chars ≈ 1 token.
func Estimate(text string) int {
	return len(text) / 4
}

// WithinLimit reports whether text fits in limit tokens.
func (c *Counter) WithinLimit(text string, limit int) bool {
	return c.Count(text) <= limit
}

// Truncate trims text to approximately fit within limit tokens. The cut is
// by characters, not token boundaries, with a safety margin.
func (c *Counter) Truncate(text string, limit int) string {
	currentTokens := c.Count(text)
	if currentTokens <= limit {
		return text
	}

	ratio := float64(limit) / float64(currentTokens)
	charLimit := int(float64(len(text)) * ratio * 0.9)
	if charLimit >= len(text) {
		return text
	}
	return text[:charLimit] + "..."
}
