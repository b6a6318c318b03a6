package interview

import "context"

// runAdvance moves the session to the next topic. It only bumps the index;
// the topic stage that follows does the per-topic resets and either opens
// the next topic or ends the interview.
func (e *Engine) runAdvance(_ context.Context, id string, st *State) error {
	st.CurrentTopicIndex++
	if st.TopicsExhausted() {
		st.InterviewComplete = true
		e.logger.Info("session %s: advanced past the last topic", id)
		return nil
	}

	e.logger.Info("session %s: advancing to topic %d/%d", id, st.CurrentTopicIndex+1, len(st.Topics))
	return nil
}
