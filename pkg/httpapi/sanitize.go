package httpapi

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxAnswerSize caps a submitted answer at 4KB.
	DefaultMaxAnswerSize = 4096
	// EnvMaxAnswerSize overrides the default size limit.
	EnvMaxAnswerSize = "INTERVIEWER_MAX_ANSWER_SIZE"
)

var (
	ErrAnswerTooLarge = errors.New("answer exceeds maximum allowed size")
	ErrInvalidUTF8    = errors.New("answer contains invalid UTF-8 sequences")
)

// SanitizeAnswer cleans a submitted answer by enforcing the size limit,
// validating UTF-8, and stripping control characters that could poison logs
// or transcripts. Oversized input is rejected rather than truncated so the
// candidate knows their full answer was not recorded. An empty answer is
// legal here: the validation stage gives it its own verdict.
func SanitizeAnswer(answer string) (string, error) {
	limit := maxAnswerSize()
	if len(answer) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrAnswerTooLarge, len(answer), limit)
	}

	if !utf8.ValidString(answer) {
		return "", ErrInvalidUTF8
	}

	// Newline, tab, and carriage return survive; ANSI escapes, NULL, BEL,
	// and the rest of the control range are dropped.
	clean := true
	for _, r := range answer {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return answer, nil
	}

	var b strings.Builder
	b.Grow(len(answer))
	for _, r := range answer {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

func maxAnswerSize() int {
	if val := os.Getenv(EnvMaxAnswerSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxAnswerSize
}
