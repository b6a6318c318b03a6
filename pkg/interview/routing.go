package interview

// Routing rules: pure functions from state to the next stage. Kept separate
// from the stage bodies so the control flow can be read (and tested) in one
// place.

// routeAfterTopic sends the session to the suspend point, or terminates when
// the topic stage short-circuited on an exhausted catalog.
func routeAfterTopic(s *State) Stage {
	if s.InterviewComplete {
		return StageDone
	}
	return StageHumanInput
}

// routeAfterHumanInput always enters validation: every resumed answer is
// screened before anything else looks at it.
func routeAfterHumanInput(_ *State) Stage {
	return StageValidation
}

// routeAfterValidation branches on the screening verdict.
func routeAfterValidation(s *State) Stage {
	if s.SecurityPassed {
		return StageDepth
	}
	return StageJudge
}

// routeAfterJudge re-suspends for a retry, or falls through to depth
// evaluation when the judge gave up and forced a pass.
func routeAfterJudge(s *State) Stage {
	if s.WaitingForUserInput {
		return StageHumanInput
	}
	return StageDepth
}

// routeAfterDepth decides, in priority order: finish a force-ended
// interview, advance or finish when the topic is done, otherwise probe
// deeper. "Done" here means the iteration bound was hit or depth was judged
// sufficient.
func routeAfterDepth(s *State) Stage {
	if s.InterviewComplete {
		return StageFeedback
	}
	topicDone := s.TopicIterationCount >= s.MaxIterationsPerTopic || s.TopicDepthSufficient
	if topicDone {
		if s.LastTopic() {
			return StageFeedback
		}
		return StageAdvance
	}
	return StageProbe
}

// routeAfterProbe always suspends for the follow-up answer.
func routeAfterProbe(_ *State) Stage {
	return StageHumanInput
}

// routeAfterAdvance always restarts the topic stage, which either opens the
// next topic or short-circuits to terminal.
func routeAfterAdvance(_ *State) Stage {
	return StageTopic
}

// routeAfterFeedback terminates the session.
func routeAfterFeedback(_ *State) Stage {
	return StageDone
}
