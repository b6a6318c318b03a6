package interview

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewer/pkg/catalog"
	"interviewer/pkg/checkpoint"
	"interviewer/pkg/oracle"
)

const (
	passJSON    = `{"passed": true, "feedback": ""}`
	failJSON    = `{"passed": false, "feedback": "off-topic"}`
	deepJSON    = `{"depth_sufficient": true, "feedback": "solid"}`
	shallowJSON = `{"depth_sufficient": false, "feedback": "needs more"}`
)

func testTopics() []catalog.Topic {
	return []catalog.Topic{
		{Theme: "Engineering", Name: "Code Review", ExampleQuestions: []string{"What do you look for in a review?"}},
		{Theme: "Engineering", Name: "Testing", ExampleQuestions: []string{"How do you decide what to test?"}},
	}
}

func newTestEngine(t *testing.T, client oracle.Client) (*Engine, *checkpoint.Memory) {
	t.Helper()
	store := checkpoint.NewMemory()
	eng, err := New(client, store)
	require.NoError(t, err)
	return eng, store
}

func TestNewRequiresCollaborators(t *testing.T) {
	store := checkpoint.NewMemory()
	_, err := New(nil, store)
	assert.Error(t, err)

	_, err = New(oracle.NewMockClientWithContent("q"), nil)
	assert.Error(t, err)
}

func TestStartSuspendsWithOpeningQuestion(t *testing.T) {
	client := oracle.NewMockClientWithContent("What do you look for in a code review?")
	eng, _ := newTestEngine(t, client)

	sess, err := eng.Start(context.Background(), testTopics(), Options{MaxIterationsPerTopic: 3, MaxJudgeRetries: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.True(t, sess.Suspended())
	assert.Equal(t, "What do you look for in a code review?", sess.Question())
	assert.True(t, sess.State.WaitingForUserInput)
	assert.Equal(t, "Code Review", sess.State.CurrentTopic.Name)
	assert.Equal(t, 1, client.CallCount())

	require.Len(t, sess.State.ConversationHistory, 1)
	assert.Equal(t, EventKindQuestion, sess.State.ConversationHistory[0].Kind)
	assert.Positive(t, sess.State.TotalTokens)
}

// Scenario: every answer passes validation and is judged deep enough on the
// first try, so the session walks straight through both topics to feedback.
func TestHappyPathAcrossTwoTopics(t *testing.T) {
	client := oracle.NewMockClientWithContent(
		"Q1", passJSON, deepJSON,
		"Q2", passJSON, deepJSON,
		"## Overall Impression\nGood interview.",
	)
	eng, _ := newTestEngine(t, client)
	ctx := context.Background()

	sess, err := eng.Start(ctx, testTopics(), Options{MaxIterationsPerTopic: 2, MaxJudgeRetries: 1})
	require.NoError(t, err)
	require.True(t, sess.Suspended())
	assert.Equal(t, "Q1", sess.Question())

	sess, err = eng.Resume(ctx, sess.ID, Patch{Answer: "we look for correctness and clarity in every change"})
	require.NoError(t, err)
	require.True(t, sess.Suspended())
	assert.Equal(t, "Q2", sess.Question())
	assert.Equal(t, 1, sess.State.CurrentTopicIndex)
	assert.Zero(t, sess.State.TopicIterationCount, "topic open must reset the iteration count")
	assert.Zero(t, sess.State.JudgeRetryCount, "topic open must reset the retry count")

	sess, err = eng.Resume(ctx, sess.ID, Patch{Answer: "we run unit and integration suites on every commit"})
	require.NoError(t, err)
	assert.True(t, sess.Complete())
	assert.True(t, sess.State.InterviewComplete)
	assert.Equal(t, "## Overall Impression\nGood interview.", sess.FinalFeedback())
	assert.Equal(t, 7, client.CallCount())

	// Completed sessions reject further answers without mutating anything.
	_, err = eng.Resume(ctx, sess.ID, Patch{Answer: "one more thing"})
	assert.ErrorIs(t, err, ErrSessionComplete)

	got, err := eng.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Complete())
	assert.Equal(t, sess.FinalFeedback(), got.FinalFeedback())
}

// Scenario: validation keeps failing. The first failure earns coached retry
// feedback; the second exhausts the budget (max_judge_retries=1), so the
// judge gives up, forces the answer through, and the interview moves on.
func TestRetryBudgetForcesPassWhenSpent(t *testing.T) {
	client := oracle.NewMockClientWithContent(
		"Q1",
		failJSON,
		"Here is a hint, try again.",
		failJSON,
		deepJSON,
		"Final feedback.",
	)
	eng, _ := newTestEngine(t, client)
	ctx := context.Background()

	sess, err := eng.Start(ctx, testTopics()[:1], Options{MaxIterationsPerTopic: 3, MaxJudgeRetries: 1})
	require.NoError(t, err)

	sess, err = eng.Resume(ctx, sess.ID, Patch{Answer: "bananas"})
	require.NoError(t, err)
	require.True(t, sess.Suspended())
	assert.Equal(t, "Here is a hint, try again.", sess.Question())
	assert.Equal(t, 1, sess.State.JudgeRetryCount)
	assert.Empty(t, sess.State.UserAnswer, "the retry prompt must clear the failed answer")

	sess, err = eng.Resume(ctx, sess.ID, Patch{Answer: "more bananas"})
	require.NoError(t, err)
	assert.True(t, sess.Complete())
	assert.True(t, sess.State.SecurityPassed, "spent budget forces the answer through")
	assert.Zero(t, sess.State.JudgeRetryCount, "give-up resets the retry counter")
	assert.Equal(t, 6, client.CallCount(), "the give-up path must not consult the oracle")

	var giveUp *Event
	for i := range sess.State.ConversationHistory {
		ev := &sess.State.ConversationHistory[i]
		assert.LessOrEqual(t, ev.RetryCount, 1, "retry count must never exceed the budget")
		if ev.Action == ActionMaxRetriesExceeded {
			giveUp = ev
		}
	}
	require.NotNil(t, giveUp)
	assert.Contains(t, giveUp.Feedback, `Your answer was: "more bananas"`)
	assert.Contains(t, giveUp.Feedback, "Let me ask you about something else.")
	assert.Equal(t, 1, giveUp.RetryCount)
}

// Scenario: an empty answer is a named validation failure, decided without
// any oracle call, and lands in the judge for coaching.
func TestEmptyAnswerFailsWithoutOracleCall(t *testing.T) {
	client := oracle.NewMockClientWithContent("Q1", "Take your time, give it a try.")
	eng, _ := newTestEngine(t, client)
	ctx := context.Background()

	sess, err := eng.Start(ctx, testTopics(), Options{MaxIterationsPerTopic: 3, MaxJudgeRetries: 2})
	require.NoError(t, err)

	sess, err = eng.Resume(ctx, sess.ID, Patch{Answer: "   "})
	require.NoError(t, err)
	require.True(t, sess.Suspended())
	assert.Equal(t, "Take your time, give it a try.", sess.Question())
	assert.False(t, sess.State.SecurityPassed)
	assert.Equal(t, "No answer provided", sess.State.SecurityFeedback)
	assert.Equal(t, 2, client.CallCount(), "validation of an empty answer must skip the oracle")
}

func TestProbingIsBoundedByIterations(t *testing.T) {
	client := oracle.NewMockClientWithContent(
		"Q1", passJSON, shallowJSON, "Could you dig into that?", passJSON, "Final feedback.",
	)
	eng, _ := newTestEngine(t, client)
	ctx := context.Background()

	sess, err := eng.Start(ctx, testTopics()[:1], Options{MaxIterationsPerTopic: 2, MaxJudgeRetries: 1})
	require.NoError(t, err)

	sess, err = eng.Resume(ctx, sess.ID, Patch{Answer: "a fine answer about reviews"})
	require.NoError(t, err)
	require.True(t, sess.Suspended())
	assert.Equal(t, "Could you dig into that?", sess.Question())
	assert.Equal(t, 2, sess.State.TopicIterationCount)

	sess, err = eng.Resume(ctx, sess.ID, Patch{Answer: "a deeper answer with specifics"})
	require.NoError(t, err)
	assert.True(t, sess.Complete())
	assert.True(t, sess.State.TopicDepthSufficient)
	assert.Equal(t, "Max iterations reached", sess.State.TopicFeedback)
	assert.Equal(t, 6, client.CallCount(), "the forced verdict at the bound must skip the oracle")
}

func TestOracleFallbacksKeepTheInterviewMoving(t *testing.T) {
	client := oracle.NewMockClientWithContent(
		"Q1",
		"Sure thing — the answer looks fine to me!", // not a decision
		"still not json",                            // not a decision either
		"Final feedback.",
	)
	eng, _ := newTestEngine(t, client)
	ctx := context.Background()

	sess, err := eng.Start(ctx, testTopics()[:1], Options{MaxIterationsPerTopic: 2, MaxJudgeRetries: 1})
	require.NoError(t, err)

	answer := strings.Repeat("specifics and examples ", 4)
	sess, err = eng.Resume(ctx, sess.ID, Patch{Answer: answer})
	require.NoError(t, err, "unparseable oracle replies must never fail the session")
	assert.True(t, sess.Complete())

	var depthEv *Event
	for i := range sess.State.ConversationHistory {
		if sess.State.ConversationHistory[i].Kind == EventKindEvaluation {
			depthEv = &sess.State.ConversationHistory[i]
		}
	}
	require.NotNil(t, depthEv)
	require.NotNil(t, depthEv.DepthSufficient)
	assert.True(t, *depthEv.DepthSufficient, "long answers pass the lenient depth fallback")
	assert.Equal(t, "Good coverage", depthEv.Feedback)
}

func TestForceEndShortCircuitsToFeedback(t *testing.T) {
	client := oracle.NewMockClientWithContent("Q1", "Early summary.")
	eng, _ := newTestEngine(t, client)
	ctx := context.Background()

	sess, err := eng.Start(ctx, testTopics(), Options{MaxIterationsPerTopic: 3, MaxJudgeRetries: 2})
	require.NoError(t, err)

	done, err := eng.ForceEnd(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, done.Complete())
	assert.True(t, done.State.InterviewComplete)
	assert.Equal(t, "Early summary.", done.FinalFeedback())
	assert.Equal(t, 2, client.CallCount())

	_, err = eng.Resume(ctx, sess.ID, Patch{Answer: "late answer"})
	assert.ErrorIs(t, err, ErrSessionComplete)

	_, err = eng.ForceEnd(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionComplete)
}

func TestResumeProtocolErrors(t *testing.T) {
	client := oracle.NewMockClientWithContent("Q1")
	eng, store := newTestEngine(t, client)
	ctx := context.Background()

	_, err := eng.Resume(ctx, "no-such-session", Patch{Answer: "hello"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// A checkpoint parked mid-stage (e.g. after a crash) is not resumable.
	raw, err := MarshalState(NewState(testTopics(), 3, 2))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "mid-stage", &checkpoint.Checkpoint{
		SessionID: "mid-stage",
		NextStage: StageValidation.String(),
		State:     raw,
	}))
	_, err = eng.Resume(ctx, "mid-stage", Patch{Answer: "hello"})
	assert.ErrorIs(t, err, ErrNotSuspended)

	// Corruption is fatal for that session only.
	require.NoError(t, store.Save(ctx, "corrupt", &checkpoint.Checkpoint{
		SessionID: "corrupt",
		NextStage: StageHumanInput.String(),
		State:     json.RawMessage("{broken"),
	}))
	_, err = eng.Resume(ctx, "corrupt", Patch{Answer: "hello"})
	assert.ErrorIs(t, err, ErrCorruptCheckpoint)
}

func TestOracleFailureRollsBackToSuspendPoint(t *testing.T) {
	calls := 0
	client := oracle.NewMockClient(nil, nil)
	client.CompleteFunc = func(_ context.Context, _ oracle.Request) (oracle.Response, error) {
		calls++
		switch calls {
		case 1:
			return oracle.Response{Content: "Q1"}, nil
		case 2:
			return oracle.Response{}, errors.New("oracle unavailable")
		case 3:
			return oracle.Response{Content: passJSON}, nil
		case 4:
			return oracle.Response{Content: deepJSON}, nil
		default:
			return oracle.Response{Content: "Final feedback."}, nil
		}
	}
	eng, _ := newTestEngine(t, client)
	ctx := context.Background()

	sess, err := eng.Start(ctx, testTopics()[:1], Options{MaxIterationsPerTopic: 3, MaxJudgeRetries: 1})
	require.NoError(t, err)

	_, err = eng.Resume(ctx, sess.ID, Patch{Answer: "a good answer with detail"})
	require.Error(t, err)

	// The suspended snapshot is back: same question, answer not consumed.
	got, err := eng.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StageHumanInput, got.Stage)
	assert.Equal(t, "Q1", got.State.CurrentQuestion)
	assert.Empty(t, got.State.UserAnswer)
	assert.True(t, got.State.WaitingForUserInput)

	// The same submission goes through once the oracle recovers.
	done, err := eng.Resume(ctx, sess.ID, Patch{Answer: "a good answer with detail"})
	require.NoError(t, err)
	assert.True(t, done.Complete())
}

func TestStartFailureLeavesNoSessionBehind(t *testing.T) {
	client := oracle.NewMockClient(nil, []error{errors.New("boom")})
	eng, store := newTestEngine(t, client)
	ctx := context.Background()

	_, err := eng.Start(ctx, testTopics(), Options{MaxIterationsPerTopic: 3, MaxJudgeRetries: 2})
	require.Error(t, err)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestEmptyCatalogSubstitutesDefault(t *testing.T) {
	client := oracle.NewMockClientWithContent("Q1")
	eng, _ := newTestEngine(t, client)

	sess, err := eng.Start(context.Background(), nil, Options{MaxIterationsPerTopic: 3, MaxJudgeRetries: 2})
	require.NoError(t, err)
	assert.Equal(t, catalog.Default(), sess.State.Topics)
	assert.Equal(t, catalog.Default()[0].Name, sess.State.CurrentTopic.Name)
}

func TestCrossEngineResumeViaSharedStore(t *testing.T) {
	store := checkpoint.NewMemory()
	client := oracle.NewMockClientWithContent("Q1", passJSON, deepJSON, "Final feedback.")
	ctx := context.Background()

	eng1, err := New(client, store)
	require.NoError(t, err)
	sess, err := eng1.Start(ctx, testTopics()[:1], Options{MaxIterationsPerTopic: 2, MaxJudgeRetries: 1})
	require.NoError(t, err)

	// A different engine instance sharing the store picks the session up.
	eng2, err := New(client, store)
	require.NoError(t, err)
	done, err := eng2.Resume(ctx, sess.ID, Patch{Answer: "an answer with plenty of substance"})
	require.NoError(t, err)
	assert.True(t, done.Complete())
}

func TestConcurrentResumeIsRejected(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	calls := 0
	client := oracle.NewMockClient(nil, nil)
	client.CompleteFunc = func(_ context.Context, _ oracle.Request) (oracle.Response, error) {
		calls++
		switch calls {
		case 1:
			return oracle.Response{Content: "Q1"}, nil
		case 2:
			close(started)
			<-block
			return oracle.Response{Content: passJSON}, nil
		case 3:
			return oracle.Response{Content: deepJSON}, nil
		default:
			return oracle.Response{Content: "Final feedback."}, nil
		}
	}
	eng, _ := newTestEngine(t, client)
	ctx := context.Background()

	sess, err := eng.Start(ctx, testTopics()[:1], Options{MaxIterationsPerTopic: 2, MaxJudgeRetries: 1})
	require.NoError(t, err)

	resumed := make(chan error, 1)
	go func() {
		_, err := eng.Resume(ctx, sess.ID, Patch{Answer: "the first submission"})
		resumed <- err
	}()

	<-started
	_, err = eng.Resume(ctx, sess.ID, Patch{Answer: "the first submission"})
	assert.ErrorIs(t, err, ErrSessionBusy, "double submission while processing must fail fast")

	close(block)
	require.NoError(t, <-resumed)
}

func TestGetListDelete(t *testing.T) {
	client := oracle.NewMockClientWithContent("Q1", "Q1")
	eng, store := newTestEngine(t, client)
	ctx := context.Background()
	opts := Options{MaxIterationsPerTopic: 3, MaxJudgeRetries: 2}

	s1, err := eng.Start(ctx, testTopics(), opts)
	require.NoError(t, err)
	s2, err := eng.Start(ctx, testTopics(), opts)
	require.NoError(t, err)

	sessions, err := eng.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.LessOrEqual(t, sessions[0].ID, sessions[1].ID, "listing is sorted by session ID")

	got, err := eng.Get(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, s1.ID, got.ID)
	assert.True(t, got.Suspended())

	require.NoError(t, eng.Delete(ctx, s1.ID))
	_, err = eng.Get(ctx, s1.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, eng.Delete(ctx, s1.ID), ErrSessionNotFound)

	// Unreadable checkpoints are skipped by List, not fatal.
	require.NoError(t, store.Save(ctx, "corrupt", &checkpoint.Checkpoint{
		SessionID: "corrupt",
		NextStage: StageHumanInput.String(),
		State:     json.RawMessage("{broken"),
	}))
	sessions, err = eng.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, s2.ID, sessions[0].ID)
}
