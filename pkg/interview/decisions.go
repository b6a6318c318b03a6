package interview

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Answer-length thresholds for the lenient fallbacks applied when the oracle
// returns something that does not decode as a decision.
const (
	fallbackPassLength  = 10
	fallbackDepthLength = 50
)

// ValidationDecision is the structured reply expected from the answer
// validation stage: did the answer engage with the question at all.
type ValidationDecision struct {
	Passed   bool   `json:"passed"`
	Feedback string `json:"feedback"`
}

// DepthDecision is the structured reply expected from the depth evaluation
// stage: has the topic been covered in enough detail to move on.
type DepthDecision struct {
	Sufficient bool   `json:"depth_sufficient"`
	Feedback   string `json:"feedback"`
}

// StripCodeFences removes a markdown code fence wrapped around text, if
// present. Models often decorate JSON replies with ```json fences despite
// instructions; the content inside is returned trimmed.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	}
	if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	if strings.HasSuffix(text, "```") {
		text = text[:len(text)-len("```")]
	}
	return strings.TrimSpace(text)
}

// extractJSONObject pulls the first top-level {...} span out of text, for
// replies that wrap the decision in prose. Returns "" when no braces are
// found.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

// ParseValidationDecision decodes a validation reply, tolerating code fences
// and surrounding prose. The boolean result reports whether decoding
// succeeded; on false the caller must use FallbackValidationDecision.
func ParseValidationDecision(text string) (ValidationDecision, bool) {
	var d ValidationDecision
	cleaned := StripCodeFences(text)
	if err := json.Unmarshal([]byte(cleaned), &d); err == nil {
		return d, true
	}
	if obj := extractJSONObject(cleaned); obj != "" {
		if err := json.Unmarshal([]byte(obj), &d); err == nil {
			return d, true
		}
	}
	return ValidationDecision{}, false
}

// ParseDepthDecision decodes a depth reply, tolerating code fences and
// surrounding prose. The boolean result reports whether decoding succeeded;
// on false the caller must use FallbackDepthDecision.
func ParseDepthDecision(text string) (DepthDecision, bool) {
	var d DepthDecision
	cleaned := StripCodeFences(text)
	if err := json.Unmarshal([]byte(cleaned), &d); err == nil {
		return d, true
	}
	if obj := extractJSONObject(cleaned); obj != "" {
		if err := json.Unmarshal([]byte(obj), &d); err == nil {
			return d, true
		}
	}
	return DepthDecision{}, false
}

// FallbackValidationDecision builds the lenient decision used when the
// oracle's validation reply cannot be parsed: any answer longer than a few
// words passes.
func FallbackValidationDecision(answer string) ValidationDecision {
	passed := utf8.RuneCountInString(answer) > fallbackPassLength
	feedback := ""
	if !passed {
		feedback = "Please provide a more detailed answer"
	}
	return ValidationDecision{Passed: passed, Feedback: feedback}
}

// FallbackDepthDecision builds the lenient decision used when the oracle's
// depth reply cannot be parsed: a reasonably long answer counts as
// sufficient coverage.
func FallbackDepthDecision(answer string) DepthDecision {
	return DepthDecision{
		Sufficient: utf8.RuneCountInString(answer) > fallbackDepthLength,
		Feedback:   "Good coverage",
	}
}
