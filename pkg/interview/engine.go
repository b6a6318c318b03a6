// Package interview implements the interview orchestration engine: a
// resumable workflow that sequences decision stages over a per-session state
// record, suspends whenever the candidate must answer, and checkpoints after
// every transition so a session can be resumed from durable storage at any
// point — by this process or another one sharing the store.
package interview

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"interviewer/pkg/catalog"
	"interviewer/pkg/checkpoint"
	"interviewer/pkg/eventlog"
	"interviewer/pkg/logx"
	"interviewer/pkg/oracle"
	"interviewer/pkg/templates"
	"interviewer/pkg/tokens"
)

// Options bounds a new session. A MaxIterationsPerTopic below 1 selects the
// default; a negative MaxJudgeRetries selects the default, while zero is a
// valid budget that makes the judge give up on the first failed validation.
type Options struct {
	MaxIterationsPerTopic int
	MaxJudgeRetries       int
}

// Patch is the typed partial update a resume applies to the loaded session
// state before execution continues. Only the answer can be injected from
// outside; everything else is engine-owned.
type Patch struct {
	Answer string `json:"answer"`
}

// Session is the caller-facing view of one interview after an engine call
// returns: either suspended awaiting an answer or complete.
type Session struct {
	ID    string
	Stage Stage
	State *State
}

// Suspended reports whether the session is waiting for an answer.
func (s *Session) Suspended() bool {
	return s.Stage == StageHumanInput
}

// Complete reports whether the interview has finished.
func (s *Session) Complete() bool {
	return s.Stage == StageDone
}

// Question returns the text currently shown to the candidate: the open
// question while suspended, the final feedback once complete.
func (s *Session) Question() string {
	return s.State.CurrentQuestion
}

// FinalFeedback returns the closing assessment, or "" before it exists.
func (s *Session) FinalFeedback() string {
	return s.State.FinalFeedback
}

// stageDef binds a stage to its handler and its routing rule. The table of
// stageDefs is validated at construction so a missing handler or an
// unreachable route fails fast instead of at mid-interview.
type stageDef struct {
	run   func(ctx context.Context, id string, st *State) error
	route func(st *State) Stage
}

// Engine drives interview sessions. It holds no per-session state in memory:
// everything lives in the checkpoint store, so any engine instance bound to
// the same store can resume any session.
type Engine struct {
	client   oracle.Client
	store    checkpoint.Store
	renderer *templates.Renderer
	counter  *tokens.Counter
	events   *eventlog.Writer
	logger   *logx.Logger
	locks    *sessionLocks
	stages   map[Stage]stageDef
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger replaces the default component logger.
func WithLogger(logger *logx.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithEventLog mirrors every history event to a durable transcript.
func WithEventLog(w *eventlog.Writer) Option {
	return func(e *Engine) { e.events = w }
}

// WithTokenCounter sets the counter used when the oracle reports no usage.
func WithTokenCounter(c *tokens.Counter) Option {
	return func(e *Engine) { e.counter = c }
}

// New builds an engine around an oracle client and a checkpoint store. Both
// are required; there are no ambient defaults for collaborators.
func New(client oracle.Client, store checkpoint.Store, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, errors.New("interview: oracle client is required")
	}
	if store == nil {
		return nil, errors.New("interview: checkpoint store is required")
	}

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load prompt templates: %w", err)
	}

	e := &Engine{
		client:   client,
		store:    store,
		renderer: renderer,
		logger:   logx.NewLogger("interview"),
		locks:    newSessionLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.stages = map[Stage]stageDef{
		StageTopic:      {run: e.runTopic, route: routeAfterTopic},
		StageHumanInput: {run: e.runHumanInput, route: routeAfterHumanInput},
		StageValidation: {run: e.runValidation, route: routeAfterValidation},
		StageJudge:      {run: e.runJudge, route: routeAfterJudge},
		StageDepth:      {run: e.runDepth, route: routeAfterDepth},
		StageProbe:      {run: e.runProbe, route: routeAfterProbe},
		StageAdvance:    {run: e.runAdvance, route: routeAfterAdvance},
		StageFeedback:   {run: e.runFeedback, route: routeAfterFeedback},
	}
	if err := e.validateStageTable(); err != nil {
		return nil, err
	}
	return e, nil
}

// validateStageTable confirms every non-terminal stage has a handler and a
// routing rule. Run once at construction.
func (e *Engine) validateStageTable() error {
	for _, stage := range AllStages() {
		if IsTerminal(stage) {
			continue
		}
		def, ok := e.stages[stage]
		if !ok || def.run == nil || def.route == nil {
			return fmt.Errorf("interview: stage %s has no registered handler", stage)
		}
	}
	return nil
}

// runHumanInput is the suspend point. It mutates nothing; the engine halts
// before entering it and re-enters it when an answer is injected.
func (e *Engine) runHumanInput(context.Context, string, *State) error {
	return nil
}

// Start creates a session over the given topic catalog, runs it up to the
// first suspend point, and returns it with the opening question set. An
// empty or invalid catalog is replaced by the built-in default rather than
// rejected.
func (e *Engine) Start(ctx context.Context, topics []catalog.Topic, opts Options) (*Session, error) {
	if len(topics) == 0 {
		e.logger.Warn("no topics supplied, substituting the default catalog")
		topics = catalog.Default()
	} else if err := catalog.Validate(topics); err != nil {
		e.logger.Warn("invalid topic catalog (%v), substituting the default catalog", err)
		topics = catalog.Default()
	}

	id := uuid.NewString()
	st := NewState(topics, opts.MaxIterationsPerTopic, opts.MaxJudgeRetries)

	unlock, ok := e.locks.tryLock(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionBusy)
	}
	defer unlock()

	e.logger.Info("session %s: starting interview with %d topics (max_iterations=%d, max_retries=%d)",
		id, len(topics), st.MaxIterationsPerTopic, st.MaxJudgeRetries)
	e.logLifecycle(id, StageTopic, "started")

	return e.runFrom(ctx, id, st, StageTopic, nil)
}

// Resume injects an answer into a suspended session and continues execution
// until it suspends again or completes. Resuming a session that is not
// suspended is a protocol error and mutates nothing, which makes
// re-submission of an already-consumed answer a harmless no-op.
func (e *Engine) Resume(ctx context.Context, id string, patch Patch) (*Session, error) {
	unlock, ok := e.locks.tryLock(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionBusy)
	}
	defer unlock()

	cp, st, err := e.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if cp.NextStage != StageHumanInput.String() {
		return nil, fmt.Errorf("session %s at stage %s: %w", id, cp.NextStage, ErrNotSuspended)
	}

	st.UserAnswer = patch.Answer
	e.logger.Info("session %s: resuming with answer (%d chars)", id, len(patch.Answer))

	return e.runFrom(ctx, id, st, StageHumanInput, cp)
}

// ForceEnd terminates a session early: it marks the interview complete as if
// the depth evaluation had just run, which routes straight to feedback, and
// returns the completed session with the final assessment.
func (e *Engine) ForceEnd(ctx context.Context, id string) (*Session, error) {
	unlock, ok := e.locks.tryLock(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionBusy)
	}
	defer unlock()

	cp, st, err := e.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	st.InterviewComplete = true
	st.TopicDepthSufficient = false
	st.WaitingForUserInput = false
	e.logger.Info("session %s: force-ending interview at topic %d/%d", id, st.CurrentTopicIndex+1, len(st.Topics))
	e.logLifecycle(id, StageFeedback, "force_ended")

	return e.runFrom(ctx, id, st, routeAfterDepth(st), cp)
}

// Get returns a read-only view of a session as last checkpointed.
func (e *Engine) Get(ctx context.Context, id string) (*Session, error) {
	cp, err := e.store.Load(ctx, id)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint for session %s: %w", id, err)
	}
	st, err := UnmarshalState(cp.State)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w: %v", id, ErrCorruptCheckpoint, err)
	}
	return &Session{ID: id, Stage: Stage(cp.NextStage), State: st}, nil
}

// List returns every stored session, sorted by ID. Sessions whose
// checkpoints no longer deserialize are skipped, not fatal: corruption is
// scoped to the session it hits.
func (e *Engine) List(ctx context.Context) ([]*Session, error) {
	ids, err := e.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sort.Strings(ids)

	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		s, err := e.Get(ctx, id)
		if err != nil {
			e.logger.Warn("session %s: skipping unreadable checkpoint: %v", id, err)
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Delete abandons a session and removes its checkpoint.
func (e *Engine) Delete(ctx context.Context, id string) error {
	unlock, ok := e.locks.tryLock(id)
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrSessionBusy)
	}
	defer unlock()

	if _, err := e.store.Load(ctx, id); errors.Is(err, checkpoint.ErrNotFound) {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	} else if err != nil {
		return fmt.Errorf("load checkpoint for session %s: %w", id, err)
	}
	if err := e.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	e.locks.forget(id)
	e.logger.Info("session %s: deleted", id)
	e.logLifecycle(id, StageDone, "deleted")
	return nil
}

// loadSession fetches and deserializes a session checkpoint, translating
// store and decode failures into protocol errors. Completed sessions are
// rejected here so no caller ever drives a finished interview.
func (e *Engine) loadSession(ctx context.Context, id string) (*checkpoint.Checkpoint, *State, error) {
	cp, err := e.store.Load(ctx, id)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load checkpoint for session %s: %w", id, err)
	}
	if cp.NextStage == StageDone.String() {
		return nil, nil, fmt.Errorf("session %s: %w", id, ErrSessionComplete)
	}
	st, err := UnmarshalState(cp.State)
	if err != nil {
		return nil, nil, fmt.Errorf("session %s: %w: %v", id, ErrCorruptCheckpoint, err)
	}
	if st.InterviewComplete {
		return nil, nil, fmt.Errorf("session %s: %w", id, ErrSessionComplete)
	}
	return cp, st, nil
}

// runFrom executes stages starting at the given one until the session
// suspends or completes, checkpointing after every transition. On any stage
// error the pre-call snapshot is restored (or, for a brand-new session,
// the partial checkpoint is removed) so the session stays exactly as the
// caller last saw it.
func (e *Engine) runFrom(ctx context.Context, id string, st *State, stage Stage, rollback *checkpoint.Checkpoint) (*Session, error) {
	limit := maxStageExecutions(st)

	for steps := 0; ; steps++ {
		if steps > limit {
			e.restore(ctx, id, rollback)
			return nil, fmt.Errorf("session %s: stage budget exhausted after %d executions at stage %s", id, steps, stage)
		}

		def, ok := e.stages[stage]
		if !ok {
			e.restore(ctx, id, rollback)
			return nil, fmt.Errorf("session %s: no handler for stage %s", id, stage)
		}

		if err := def.run(ctx, id, st); err != nil {
			e.restore(ctx, id, rollback)
			return nil, err
		}

		next := def.route(st)
		if !IsValidTransition(stage, next) {
			e.restore(ctx, id, rollback)
			return nil, fmt.Errorf("session %s: %w: %s -> %s", id, ErrInvalidTransition, stage, next)
		}
		e.logger.Debug("session %s: %s -> %s", id, stage, next)

		if err := e.save(ctx, id, next, st); err != nil {
			e.restore(ctx, id, rollback)
			return nil, err
		}
		stage = next

		if stage == StageHumanInput {
			e.logger.Info("session %s: suspended awaiting answer (topic %d/%d)", id, st.CurrentTopicIndex+1, len(st.Topics))
			return &Session{ID: id, Stage: stage, State: st}, nil
		}
		if stage == StageDone {
			e.logger.Info("session %s: interview complete (total_tokens=%d)", id, st.TotalTokens)
			e.logLifecycle(id, StageDone, "completed")
			return &Session{ID: id, Stage: stage, State: st}, nil
		}
	}
}

// save checkpoints the state with the stage execution will continue from.
func (e *Engine) save(ctx context.Context, id string, next Stage, st *State) error {
	raw, err := MarshalState(st)
	if err != nil {
		return err
	}
	cp := &checkpoint.Checkpoint{
		SavedAt:   time.Now().UTC(),
		SessionID: id,
		NextStage: next.String(),
		State:     raw,
	}
	if err := e.store.Save(ctx, id, cp); err != nil {
		return fmt.Errorf("save checkpoint for session %s: %w", id, err)
	}
	return nil
}

// restore puts the pre-call snapshot back after a stage error so the caller
// can retry the same action; a session that never checkpointed is removed
// instead. Uses a detached context: the rollback must still run when the
// failure was the caller's context being cancelled.
func (e *Engine) restore(ctx context.Context, id string, rollback *checkpoint.Checkpoint) {
	ctx = context.WithoutCancel(ctx)
	if rollback != nil {
		if err := e.store.Save(ctx, id, rollback); err != nil {
			e.logger.Error("session %s: failed to restore checkpoint after stage error: %v", id, err)
		}
		return
	}
	if err := e.store.Delete(ctx, id); err != nil {
		e.logger.Error("session %s: failed to remove partial checkpoint: %v", id, err)
	}
}

// consult renders a stage prompt, attaches the call scope for middleware,
// and asks the oracle.
func (e *Engine) consult(ctx context.Context, id string, stage Stage, tpl templates.PromptTemplate, data *templates.PromptData) (oracle.Response, error) {
	prompt, err := e.renderer.Render(tpl, data)
	if err != nil {
		return oracle.Response{}, fmt.Errorf("render %s prompt: %w", tpl, err)
	}

	messages := make([]oracle.Message, 0, 2)
	if sys := e.renderer.SystemPrompt(tpl); sys != "" {
		messages = append(messages, oracle.NewSystemMessage(sys))
	}
	messages = append(messages, oracle.NewUserMessage(prompt))

	ctx = oracle.WithScope(ctx, oracle.Scope{SessionID: id, Stage: stage.String()})
	resp, err := e.client.Complete(ctx, oracle.NewRequest(messages))
	if err != nil {
		return oracle.Response{}, fmt.Errorf("session %s: %s oracle call: %w", id, stage, err)
	}
	return resp, nil
}

// trackTokens records the cost of one oracle reply, preferring
// provider-reported usage and falling back to counting the content.
func (e *Engine) trackTokens(st *State, resp oracle.Response) {
	n := resp.Usage.Total()
	if n == 0 {
		n = e.counter.Count(resp.Content)
	}
	st.LastMessageTokens = n
	st.TotalTokens += n
}

// appendEvent records one history event on the state and mirrors it to the
// durable transcript when one is configured.
func (e *Engine) appendEvent(id string, st *State, ev Event) {
	st.appendHistory(ev)
	if e.events == nil {
		return
	}

	entry := eventlog.NewEntry(id, ev.Stage.String(), transcriptKind(ev.Kind))
	if ev.Topic != "" {
		entry.SetData("topic", ev.Topic)
	}
	if ev.Question != "" {
		entry.SetData("question", ev.Question)
	}
	if ev.Answer != "" {
		entry.SetData("answer", ev.Answer)
	}
	if ev.Passed != nil {
		entry.SetData("passed", *ev.Passed)
	}
	if ev.DepthSufficient != nil {
		entry.SetData("depth_sufficient", *ev.DepthSufficient)
	}
	if ev.Feedback != "" {
		entry.SetData("feedback", ev.Feedback)
	}
	if ev.Action != "" {
		entry.SetData("action", ev.Action)
	}
	if ev.RetryCount > 0 {
		entry.SetData("retry_count", ev.RetryCount)
	}
	if ev.Tokens > 0 {
		entry.SetData("tokens", ev.Tokens)
	}
	if err := e.events.WriteEntry(entry); err != nil {
		e.logger.Warn("session %s: event log write failed: %v", id, err)
	}
}

// logLifecycle writes a lifecycle marker to the transcript.
func (e *Engine) logLifecycle(id string, stage Stage, event string) {
	if e.events == nil {
		return
	}
	entry := eventlog.NewEntry(id, stage.String(), eventlog.KindLifecycle).SetData("event", event)
	if err := e.events.WriteEntry(entry); err != nil {
		e.logger.Warn("session %s: event log write failed: %v", id, err)
	}
}

// transcriptKind maps a history event kind onto a transcript entry kind.
func transcriptKind(kind string) string {
	switch kind {
	case EventKindQuestion:
		return eventlog.KindQuestion
	case EventKindUserAnswer:
		return eventlog.KindAnswer
	case EventKindFinalFeedback:
		return eventlog.KindFeedback
	default:
		return eventlog.KindDecision
	}
}

// maxStageExecutions bounds the number of stage executions one engine call
// may perform. The worst case per answered question is validation, a judge
// retry, and a re-suspension repeated for every allowed retry, then the
// depth evaluation; each topic repeats that for every allowed iteration on
// top of its opening question and advance; the tail adds the feedback and
// terminal steps. Exceeding the bound means a routing invariant broke.
func maxStageExecutions(st *State) int {
	perCycle := 3*(st.MaxJudgeRetries+1) + 2
	perTopic := st.MaxIterationsPerTopic*perCycle + 2
	bound := len(st.Topics)*perTopic + 8
	if bound < 16 {
		bound = 16
	}
	return bound
}
