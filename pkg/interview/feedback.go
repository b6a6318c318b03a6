package interview

import (
	"context"
	"fmt"
	"strings"

	"interviewer/pkg/catalog"
	"interviewer/pkg/templates"
)

// conversationWindow bounds how much history goes into the final feedback
// prompt so it stays inside the oracle's context limits.
const conversationWindow = 20

// runFeedback synthesizes the closing assessment over the whole interview
// and marks the session complete. Terminal: nothing runs after it.
func (e *Engine) runFeedback(ctx context.Context, id string, st *State) error {
	resp, err := e.consult(ctx, id, StageFeedback, templates.FinalFeedbackTemplate, &templates.PromptData{
		ThemesText:       themesText(st.Topics),
		ConversationText: conversationText(st.ConversationHistory),
	})
	if err != nil {
		return err
	}
	e.trackTokens(st, resp)

	feedback := strings.TrimSpace(resp.Content)
	st.CurrentQuestion = feedback
	st.FinalFeedback = feedback
	e.appendEvent(id, st, Event{
		Stage:    StageFeedback,
		Kind:     EventKindFinalFeedback,
		Feedback: feedback,
		Tokens:   st.LastMessageTokens,
	})

	st.InterviewComplete = true
	st.WaitingForUserInput = false

	e.logger.Info("session %s: final feedback generated (%d history events, %d total tokens)",
		id, len(st.ConversationHistory), st.TotalTokens)
	return nil
}

// themesText renders the topic catalog grouped by theme, one markdown line
// per theme, for the feedback prompt.
func themesText(topics []catalog.Topic) string {
	groups := catalog.ByTheme(topics)
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		lines = append(lines, fmt.Sprintf("**%s**: %s", g.Theme, strings.Join(g.Topics, ", ")))
	}
	return strings.Join(lines, "\n")
}

// conversationText renders the transcript window as alternating Q:/A: lines.
// Only events carrying a question or an answer contribute; decisions and
// retry feedback are skipped.
func conversationText(history []Event) string {
	if len(history) > conversationWindow {
		history = history[:conversationWindow]
	}
	lines := make([]string, 0, len(history)*2)
	for _, ev := range history {
		if ev.Question != "" {
			lines = append(lines, "Q: "+ev.Question)
		}
		if ev.Answer != "" {
			lines = append(lines, "A: "+ev.Answer)
		}
	}
	return strings.Join(lines, "\n")
}
