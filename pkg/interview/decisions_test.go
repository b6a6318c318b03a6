package interview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"passed": true}`, StripCodeFences("```json\n{\"passed\": true}\n```"))
	assert.Equal(t, `{"passed": true}`, StripCodeFences("```\n{\"passed\": true}\n```"))
	assert.Equal(t, `{"passed": true}`, StripCodeFences(`  {"passed": true}  `))
	assert.Equal(t, "plain text", StripCodeFences("plain text"))
}

func TestParseValidationDecision(t *testing.T) {
	d, ok := ParseValidationDecision(`{"passed": true, "feedback": ""}`)
	require.True(t, ok)
	assert.True(t, d.Passed)

	d, ok = ParseValidationDecision("```json\n{\"passed\": false, \"feedback\": \"off-topic\"}\n```")
	require.True(t, ok)
	assert.False(t, d.Passed)
	assert.Equal(t, "off-topic", d.Feedback)

	// Prose-wrapped replies still parse.
	d, ok = ParseValidationDecision(`Here is my verdict: {"passed": true, "feedback": "fine"} — hope that helps!`)
	require.True(t, ok)
	assert.True(t, d.Passed)

	_, ok = ParseValidationDecision("I think the answer is acceptable.")
	assert.False(t, ok)

	_, ok = ParseValidationDecision("")
	assert.False(t, ok)
}

func TestParseDepthDecision(t *testing.T) {
	d, ok := ParseDepthDecision(`{"depth_sufficient": true, "feedback": "covered well"}`)
	require.True(t, ok)
	assert.True(t, d.Sufficient)
	assert.Equal(t, "covered well", d.Feedback)

	_, ok = ParseDepthDecision("not json at all")
	assert.False(t, ok)
}

func TestFallbackValidationDecision(t *testing.T) {
	short := FallbackValidationDecision("too short")
	assert.False(t, short.Passed)
	assert.Equal(t, "Please provide a more detailed answer", short.Feedback)

	long := FallbackValidationDecision("this answer is long enough to pass the lenient check")
	assert.True(t, long.Passed)
	assert.Empty(t, long.Feedback)

	// The threshold counts characters, not bytes.
	assert.False(t, FallbackValidationDecision(strings.Repeat("あ", 10)).Passed)
	assert.True(t, FallbackValidationDecision(strings.Repeat("あ", 11)).Passed)
}

func TestFallbackDepthDecision(t *testing.T) {
	shallow := FallbackDepthDecision("brief")
	assert.False(t, shallow.Sufficient)
	assert.Equal(t, "Good coverage", shallow.Feedback)

	deep := FallbackDepthDecision(strings.Repeat("detail ", 10))
	assert.True(t, deep.Sufficient)
	assert.Equal(t, "Good coverage", deep.Feedback)
}
