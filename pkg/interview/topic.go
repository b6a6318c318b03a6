package interview

import (
	"context"
	"strings"

	"interviewer/pkg/templates"
)

// runTopic opens the topic at the current index: it resets the per-topic
// counters, asks the oracle for an opening question, and suspends for the
// answer. When the catalog is exhausted it marks the interview complete
// instead and generates nothing.
func (e *Engine) runTopic(ctx context.Context, id string, st *State) error {
	if st.TopicsExhausted() {
		st.InterviewComplete = true
		e.logger.Info("session %s: topic catalog exhausted, ending interview", id)
		return nil
	}

	topic := st.Topics[st.CurrentTopicIndex]
	st.CurrentTopic = topic
	st.TopicIterationCount = 0
	st.JudgeRetryCount = 0

	resp, err := e.consult(ctx, id, StageTopic, templates.TopicQuestionTemplate, &templates.PromptData{
		Theme:            topic.Theme,
		Topic:            topic.Name,
		ExampleQuestions: templates.FormatQuestions(topic.ExampleQuestions),
	})
	if err != nil {
		return err
	}

	st.CurrentQuestion = strings.TrimSpace(resp.Content)
	e.trackTokens(st, resp)
	e.appendEvent(id, st, Event{
		Stage:    StageTopic,
		Kind:     EventKindQuestion,
		Topic:    topic.Name,
		Question: st.CurrentQuestion,
		Tokens:   st.LastMessageTokens,
	})
	st.WaitingForUserInput = true

	e.logger.Info("session %s: opened topic %d/%d %q", id, st.CurrentTopicIndex+1, len(st.Topics), topic.Name)
	return nil
}
