package nodes

import (
	"github.com/dinewise-core/server/internal/agent/model"
)

// Transition is the outcome of an edge function. The graph maps each
// transition onto a node key for the topology it assembles.
type Transition string

const (
	ToSearch  Transition = "search"
	ToSimple  Transition = "simple"
	ToAct     Transition = "act"
	ToReflect Transition = "reflect"
	ToRefine  Transition = "refine"
	ToEnd     Transition = "end"
)

// RouteByIntent sends search turns (and turns with no usable label) to the
// search agent and everything else to the simple responder.
func RouteByIntent(s *model.ThreadState) Transition {
	switch s.Intent {
	case model.IntentSimple, model.IntentOffTopic:
		return ToSimple
	default:
		return ToSearch
	}
}

// ShouldContinue decides what follows a reasoning step. Tool calls run only
// while the turn is below MaxToolCallsPerTurn; past the cap the pending
// calls are skipped and the turn ends (or is reviewed when reflect is set).
func ShouldContinue(s *model.ThreadState, reflect bool) Transition {
	last := s.LastMessage()
	if last != nil && len(last.ToolCalls) > 0 && s.ToolCallCount < model.MaxToolCallsPerTurn {
		return ToAct
	}
	if reflect {
		return ToReflect
	}
	return ToEnd
}

// RefineOrEnd loops back to the search agent only for an unsatisfactory
// verdict while reflection passes remain.
func RefineOrEnd(s *model.ThreadState) Transition {
	if s.IsSatisfactory || s.ReflectionCount >= model.MaxReflectionIterations {
		return ToEnd
	}
	return ToRefine
}

// CeilingReached reports whether the latest reasoning step was cut off by
// the tool-call cap.
func CeilingReached(s *model.ThreadState) bool {
	last := s.LastMessage()
	return last != nil && len(last.ToolCalls) > 0 && s.ToolCallCount >= model.MaxToolCallsPerTurn
}
