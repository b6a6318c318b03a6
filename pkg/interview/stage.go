package interview

import "fmt"

// Stage identifies one node of the interview workflow. The set of stages is
// closed: the engine only executes stages that appear in StageTransitions,
// and every transition is checked against that table before it is taken.
type Stage string

const (
	// StageTopic opens the current topic and asks its first question, or
	// short-circuits to DONE when the catalog is exhausted.
	StageTopic Stage = "TOPIC"

	// StageHumanInput is the suspend point. The engine halts immediately
	// before entering it and re-enters it when an answer is injected.
	StageHumanInput Stage = "HUMAN_INPUT"

	// StageValidation screens the submitted answer for relevance.
	StageValidation Stage = "VALIDATION"

	// StageJudge coaches the candidate after a failed validation, or gives
	// up and accepts the answer once the retry budget is spent.
	StageJudge Stage = "JUDGE"

	// StageDepth judges whether the topic has been covered deeply enough.
	StageDepth Stage = "DEPTH"

	// StageProbe asks a follow-up question on the current topic.
	StageProbe Stage = "PROBE"

	// StageAdvance moves to the next topic in the catalog.
	StageAdvance Stage = "ADVANCE"

	// StageFeedback synthesizes the final assessment.
	StageFeedback Stage = "FEEDBACK"

	// StageDone is the terminal stage. Nothing executes after it.
	StageDone Stage = "DONE"
)

// String returns the stage name.
func (s Stage) String() string {
	return string(s)
}

// StageTransitions is the canonical transition table for the interview
// workflow. It is the single source of truth: routing functions may only
// choose successors listed here, and the engine rejects anything else.
var StageTransitions = map[Stage][]Stage{
	// TOPIC asks the next topic's opening question, or ends the interview
	// when no topics remain.
	StageTopic: {StageHumanInput, StageDone},

	// HUMAN_INPUT always hands the answer to validation.
	StageHumanInput: {StageValidation},

	// VALIDATION routes failures to the judge and passes to depth evaluation.
	StageValidation: {StageJudge, StageDepth},

	// JUDGE either re-asks (suspending for a new answer) or forces the
	// answer through to depth evaluation once retries are exhausted.
	StageJudge: {StageHumanInput, StageDepth},

	// DEPTH advances the topic, probes deeper, or closes out to feedback.
	StageDepth: {StageAdvance, StageProbe, StageFeedback},

	// PROBE always suspends for the follow-up answer.
	StageProbe: {StageHumanInput},

	// ADVANCE always loops back to TOPIC, which decides between the next
	// topic and termination.
	StageAdvance: {StageTopic},

	// FEEDBACK is followed only by termination.
	StageFeedback: {StageDone},

	// DONE is terminal.
	StageDone: {},
}

// ValidNextStates returns the allowed successors of a stage.
func ValidNextStates(from Stage) []Stage {
	return StageTransitions[from]
}

// IsValidTransition reports whether from -> to appears in the canonical
// transition table.
func IsValidTransition(from, to Stage) bool {
	for _, next := range StageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllStages returns every stage in deterministic workflow order.
func AllStages() []Stage {
	return []Stage{
		StageTopic,
		StageHumanInput,
		StageValidation,
		StageJudge,
		StageDepth,
		StageProbe,
		StageAdvance,
		StageFeedback,
		StageDone,
	}
}

// ValidateStage checks that a stage is one of the known stages.
func ValidateStage(stage Stage) error {
	for _, s := range AllStages() {
		if s == stage {
			return nil
		}
	}
	return fmt.Errorf("unknown interview stage: %s", stage)
}

// IsTerminal reports whether a stage ends the workflow.
func IsTerminal(stage Stage) bool {
	return stage == StageDone
}
