package recognition

import (
	"context"

	"github.com/looplab/fsm"
)

type State string

const (
	Idle       State = "idle"
	Streaming  State = "streaming"
	Restarting State = "restarting"
)

type stateEvent string

const (
	evStart   stateEvent = "start"
	evRestart stateEvent = "restart"
	evResume  stateEvent = "resume"
	evStop    stateEvent = "stop"
)

// idle -> streaming <-> restarting, anything -> idle on stop
func newStateMachine(onEnter func(from, to State)) *fsm.FSM {
	return fsm.NewFSM(
		string(Idle),
		fsm.Events{
			{Name: string(evStart), Src: []string{string(Idle)}, Dst: string(Streaming)},
			{Name: string(evRestart), Src: []string{string(Streaming)}, Dst: string(Restarting)},
			{Name: string(evResume), Src: []string{string(Restarting)}, Dst: string(Streaming)},
			{Name: string(evStop), Src: []string{string(Streaming), string(Restarting)}, Dst: string(Idle)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				onEnter(State(e.Src), State(e.Dst))
			},
		},
	)
}
