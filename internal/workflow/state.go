package workflow

import (
	"fmt"

	"splice/internal/artifact"
)

// State is the lifecycle state of a stage or of the whole pipeline.
type State string

const (
	StatePending State = artifact.StepPending
	StateRunning State = artifact.StepRunning
	StateDone    State = artifact.StepDone
	StateSkipped State = artifact.StepSkipped
	StateFailed  State = artifact.StepFailed
)

// Event drives a state transition.
type Event string

const (
	EventStart   Event = "start"
	EventSkip    Event = "skip"
	EventSucceed Event = "succeed"
	EventFail    Event = "fail"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateSkipped || s == StateFailed
}

var transitions = map[State]map[Event]State{
	StatePending: {
		EventStart: StateRunning,
		EventSkip:  StateSkipped,
		EventFail:  StateFailed,
	},
	StateRunning: {
		EventSucceed: StateDone,
		EventFail:    StateFailed,
	},
}

// Transition applies ev to from. Stages follow
// pending -> running -> {done, failed} or pending -> skipped; the pipeline
// follows pending -> running -> {done, failed}. Terminal states reject every
// event.
func Transition(from State, ev Event) (State, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return from, fmt.Errorf("invalid transition: %s on %s", ev, from)
}
