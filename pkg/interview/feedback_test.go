package interview

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"interviewer/pkg/catalog"
)

func TestThemesTextGroupsByTheme(t *testing.T) {
	topics := []catalog.Topic{
		{Theme: "Culture", Name: "Mission"},
		{Theme: "Products", Name: "Knowledge"},
		{Theme: "Culture", Name: "Values"},
	}

	got := themesText(topics)
	assert.Equal(t, "**Culture**: Mission, Values\n**Products**: Knowledge", got)
}

func TestConversationTextRendersQAndALines(t *testing.T) {
	history := []Event{
		{Stage: StageTopic, Kind: EventKindQuestion, Question: "Q one"},
		{Stage: StageValidation, Kind: EventKindUserAnswer, Question: "Q one", Answer: "A one"},
		{Stage: StageDepth, Kind: EventKindEvaluation, Feedback: "covered"},
		{Stage: StageProbe, Kind: EventKindQuestion, Question: "Q two"},
	}

	got := conversationText(history)
	assert.Equal(t, "Q: Q one\nQ: Q one\nA: A one\nQ: Q two", got)
	assert.NotContains(t, got, "covered")
}

func TestConversationTextBoundsTheWindow(t *testing.T) {
	history := make([]Event, 0, conversationWindow+10)
	for i := 0; i < conversationWindow+10; i++ {
		history = append(history, Event{Question: fmt.Sprintf("question %d", i)})
	}

	got := conversationText(history)
	lines := strings.Split(got, "\n")
	assert.Len(t, lines, conversationWindow)
	assert.Equal(t, "Q: question 0", lines[0])
	assert.NotContains(t, got, fmt.Sprintf("question %d", conversationWindow))
}
