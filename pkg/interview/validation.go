package interview

import (
	"context"
	"strings"

	"interviewer/pkg/templates"
)

// feedbackNoAnswer is the validation verdict for an empty or
// whitespace-only submission. It is produced without consulting the oracle.
const feedbackNoAnswer = "No answer provided"

// runValidation screens the submitted answer for relevance and substance.
// Empty answers fail immediately. A reply the oracle mangles beyond parsing
// is replaced by the lenient length fallback; validation never fails the
// session on bad oracle output.
func (e *Engine) runValidation(ctx context.Context, id string, st *State) error {
	st.WaitingForUserInput = false

	if strings.TrimSpace(st.UserAnswer) == "" {
		st.SecurityPassed = false
		st.SecurityFeedback = feedbackNoAnswer
		e.logger.Info("session %s: empty answer rejected without oracle call", id)
		return nil
	}

	resp, err := e.consult(ctx, id, StageValidation, templates.AnswerValidationTemplate, &templates.PromptData{
		Question: st.CurrentQuestion,
		Answer:   st.UserAnswer,
	})
	if err != nil {
		return err
	}
	e.trackTokens(st, resp)

	decision, ok := ParseValidationDecision(resp.Content)
	if !ok {
		decision = FallbackValidationDecision(st.UserAnswer)
		e.logger.Warn("session %s: unparseable validation reply, using length fallback (passed=%v)", id, decision.Passed)
	}

	st.SecurityPassed = decision.Passed
	st.SecurityFeedback = decision.Feedback
	if st.SecurityPassed {
		st.JudgeRetryCount = 0
	}

	e.appendEvent(id, st, Event{
		Stage:    StageValidation,
		Kind:     EventKindUserAnswer,
		Question: st.CurrentQuestion,
		Answer:   st.UserAnswer,
		Passed:   boolPtr(st.SecurityPassed),
	})

	e.logger.Info("session %s: answer validation passed=%v", id, st.SecurityPassed)
	return nil
}
