package interview

import (
	"encoding/json"
	"fmt"

	"interviewer/pkg/catalog"
)

// Default bounds applied when Options leaves them unset.
const (
	DefaultMaxIterationsPerTopic = 3
	DefaultMaxJudgeRetries       = 2
)

// Event is one record in the session's conversation history. The history is
// append-only; events are heterogeneous and fill only the fields relevant to
// the stage that wrote them.
type Event struct {
	Stage           Stage  `json:"stage,omitempty"`
	Kind            string `json:"kind,omitempty"`
	Topic           string `json:"topic,omitempty"`
	Question        string `json:"question,omitempty"`
	Answer          string `json:"answer,omitempty"`
	Passed          *bool  `json:"passed,omitempty"`
	DepthSufficient *bool  `json:"depth_sufficient,omitempty"`
	Feedback        string `json:"feedback,omitempty"`
	Action          string `json:"action,omitempty"`
	RetryCount      int    `json:"retry_count,omitempty"`
	Tokens          int    `json:"tokens,omitempty"`
}

// Event kinds.
const (
	EventKindQuestion      = "question"
	EventKindUserAnswer    = "user_answer"
	EventKindRetryFeedback = "retry_feedback"
	EventKindEvaluation    = "evaluation"
	EventKindFinalFeedback = "final_feedback"
)

// ActionMaxRetriesExceeded marks the judge event written when the retry
// budget is spent and the answer is accepted as-is.
const ActionMaxRetriesExceeded = "max_retries_exceeded"

// State is the session record threaded through every stage. It is owned
// exclusively by the engine for the session's lifetime: stages receive it by
// pointer, mutate their fields, and the engine checkpoints it after every
// transition. Everything is JSON-serializable so checkpoints can round-trip
// through any store backend.
type State struct {
	// Topic management. Topics is fixed for the session; the index only
	// ever increases and equals len(Topics) once every topic is done.
	Topics                []catalog.Topic `json:"topics"`
	CurrentTopicIndex     int             `json:"current_topic_index"`
	CurrentTopic          catalog.Topic   `json:"current_topic"`
	TopicIterationCount   int             `json:"topic_iteration_count"`
	MaxIterationsPerTopic int             `json:"max_iterations_per_topic"`

	// Question and answer tracking.
	CurrentQuestion string `json:"current_question"`
	UserAnswer      string `json:"user_answer"`

	// Stage decisions.
	SecurityPassed       bool   `json:"security_passed"`
	SecurityFeedback     string `json:"security_feedback"`
	TopicDepthSufficient bool   `json:"topic_depth_sufficient"`
	TopicFeedback        string `json:"topic_feedback"`

	// Judge retry tracking. JudgeRetryCount resets to zero whenever
	// validation passes or a topic advances and never exceeds
	// MaxJudgeRetries.
	JudgeRetryCount int `json:"judge_retry_count"`
	MaxJudgeRetries int `json:"max_judge_retries"`

	// Interview flow. InterviewComplete is monotonic: once true it is
	// never reset within the session.
	InterviewComplete   bool    `json:"interview_complete"`
	ConversationHistory []Event `json:"conversation_history"`
	FinalFeedback       string  `json:"final_feedback"`

	// Token accounting. TotalTokens never decreases.
	TotalTokens       int `json:"total_tokens"`
	LastMessageTokens int `json:"last_message_tokens"`

	// WaitingForUserInput is true exactly while the session is suspended
	// at the human input stage.
	WaitingForUserInput bool `json:"waiting_for_user_input"`
}

// NewState creates the session record for a fresh interview: first topic
// pending, empty history, all flags cleared. Bounds outside their legal
// ranges fall back to the defaults.
func NewState(topics []catalog.Topic, maxIterations, maxRetries int) *State {
	if maxIterations < 1 {
		maxIterations = DefaultMaxIterationsPerTopic
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxJudgeRetries
	}
	return &State{
		Topics:                topics,
		MaxIterationsPerTopic: maxIterations,
		MaxJudgeRetries:       maxRetries,
		ConversationHistory:   []Event{},
	}
}

// appendHistory appends one event to the conversation history. History is
// never mutated in place.
func (s *State) appendHistory(ev Event) {
	s.ConversationHistory = append(s.ConversationHistory, ev)
}

// LastTopic reports whether the current topic is the final one in the
// catalog.
func (s *State) LastTopic() bool {
	return s.CurrentTopicIndex+1 >= len(s.Topics)
}

// TopicsExhausted reports whether every topic has been completed.
func (s *State) TopicsExhausted() bool {
	return s.CurrentTopicIndex >= len(s.Topics)
}

// MarshalState serializes the state for a checkpoint.
func MarshalState(s *State) (json.RawMessage, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session state: %w", err)
	}
	return data, nil
}

// UnmarshalState deserializes a checkpointed state.
func UnmarshalState(raw json.RawMessage) (*State, error) {
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &s, nil
}

func boolPtr(b bool) *bool {
	return &b
}
