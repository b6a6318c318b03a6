package interview

import (
	"context"

	"interviewer/pkg/templates"
)

// feedbackMaxIterations is the forced verdict when the per-topic iteration
// bound is reached.
const feedbackMaxIterations = "Max iterations reached"

// runDepth decides whether the current topic has been covered in enough
// depth to move on. The iteration counter increments first; hitting the
// bound forces a sufficient verdict without consulting the oracle, which is
// what guarantees every topic terminates.
func (e *Engine) runDepth(ctx context.Context, id string, st *State) error {
	st.TopicIterationCount++

	if st.TopicIterationCount >= st.MaxIterationsPerTopic {
		st.TopicDepthSufficient = true
		st.TopicFeedback = feedbackMaxIterations
		e.logger.Info("session %s: iteration bound reached for topic %q (%d/%d)",
			id, st.CurrentTopic.Name, st.TopicIterationCount, st.MaxIterationsPerTopic)
		return nil
	}

	resp, err := e.consult(ctx, id, StageDepth, templates.DepthEvaluationTemplate, &templates.PromptData{
		Theme:    st.CurrentTopic.Theme,
		Topic:    st.CurrentTopic.Name,
		Question: st.CurrentQuestion,
		Answer:   st.UserAnswer,
	})
	if err != nil {
		return err
	}
	e.trackTokens(st, resp)

	decision, ok := ParseDepthDecision(resp.Content)
	if !ok {
		decision = FallbackDepthDecision(st.UserAnswer)
		e.logger.Warn("session %s: unparseable depth reply, using length fallback (sufficient=%v)", id, decision.Sufficient)
	}

	st.TopicDepthSufficient = decision.Sufficient
	st.TopicFeedback = decision.Feedback

	e.appendEvent(id, st, Event{
		Stage:           StageDepth,
		Kind:            EventKindEvaluation,
		Feedback:        st.TopicFeedback,
		DepthSufficient: boolPtr(st.TopicDepthSufficient),
		Tokens:          st.LastMessageTokens,
	})

	e.logger.Info("session %s: depth evaluation sufficient=%v (iteration %d/%d)",
		id, st.TopicDepthSufficient, st.TopicIterationCount, st.MaxIterationsPerTopic)
	return nil
}
