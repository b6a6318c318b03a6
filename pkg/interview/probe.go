package interview

import (
	"context"
	"strings"

	"interviewer/pkg/templates"
)

// runProbe asks one follow-up question on the current topic, scoped to the
// previous answer and the depth evaluator's note, then suspends for the
// answer. Probing counts against the topic's iteration bound.
func (e *Engine) runProbe(ctx context.Context, id string, st *State) error {
	st.TopicIterationCount++

	resp, err := e.consult(ctx, id, StageProbe, templates.ProbingTemplate, &templates.PromptData{
		Topic:      st.CurrentTopic.Name,
		Question:   st.CurrentQuestion,
		Answer:     st.UserAnswer,
		Assessment: st.TopicFeedback,
	})
	if err != nil {
		return err
	}

	st.CurrentQuestion = strings.TrimSpace(resp.Content)
	e.trackTokens(st, resp)
	e.appendEvent(id, st, Event{
		Stage:    StageProbe,
		Kind:     EventKindQuestion,
		Question: st.CurrentQuestion,
		Tokens:   st.LastMessageTokens,
	})

	st.UserAnswer = ""
	st.WaitingForUserInput = true

	e.logger.Info("session %s: follow-up question issued on topic %q (iteration %d/%d)",
		id, st.CurrentTopic.Name, st.TopicIterationCount, st.MaxIterationsPerTopic)
	return nil
}
