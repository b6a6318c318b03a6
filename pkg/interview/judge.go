package interview

import (
	"context"
	"fmt"
	"strings"

	"interviewer/pkg/templates"
)

// giveUpMessage is shown when the retry budget is spent. The interview moves
// on rather than grinding the candidate on one question forever.
const giveUpMessage = "I understand this question might be challenging. Let's move forward - we can revisit this topic later if needed. \n\nYour answer was: \"%s\"\n\nLet me ask you about something else."

// runJudge reacts to a failed validation. Within the retry budget it asks
// the oracle for encouraging feedback and re-suspends for another attempt;
// once the budget is spent it accepts the answer as-is and lets the
// interview continue.
func (e *Engine) runJudge(ctx context.Context, id string, st *State) error {
	if st.JudgeRetryCount >= st.MaxJudgeRetries {
		retryCount := st.JudgeRetryCount
		feedback := fmt.Sprintf(giveUpMessage, st.UserAnswer)

		st.SecurityPassed = true
		st.JudgeRetryCount = 0
		st.CurrentQuestion = feedback
		st.WaitingForUserInput = false

		e.appendEvent(id, st, Event{
			Stage:      StageJudge,
			Kind:       EventKindRetryFeedback,
			Feedback:   feedback,
			Action:     ActionMaxRetriesExceeded,
			RetryCount: retryCount,
		})
		e.logger.Info("session %s: retry budget spent (%d/%d), accepting answer and moving on", id, retryCount, st.MaxJudgeRetries)
		return nil
	}

	st.JudgeRetryCount++

	retryNote := ""
	if st.JudgeRetryCount > 1 {
		retryNote = fmt.Sprintf(" (Attempt %d/%d)", st.JudgeRetryCount, st.MaxJudgeRetries)
	}

	resp, err := e.consult(ctx, id, StageJudge, templates.JudgeRetryTemplate, &templates.PromptData{
		Question:  st.CurrentQuestion,
		Answer:    st.UserAnswer,
		Feedback:  st.SecurityFeedback,
		RetryNote: retryNote,
	})
	if err != nil {
		return err
	}

	feedback := strings.TrimSpace(resp.Content)
	e.trackTokens(st, resp)
	e.appendEvent(id, st, Event{
		Stage:      StageJudge,
		Kind:       EventKindRetryFeedback,
		Feedback:   feedback,
		RetryCount: st.JudgeRetryCount,
		Tokens:     st.LastMessageTokens,
	})

	st.CurrentQuestion = feedback
	st.UserAnswer = ""
	st.WaitingForUserInput = true

	e.logger.Info("session %s: retry feedback issued (attempt %d/%d)", id, st.JudgeRetryCount, st.MaxJudgeRetries)
	return nil
}
