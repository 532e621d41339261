package job

import (
	"context"

	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/looplab/fsm"
)

// event names equal the destination status
var jobEvents = fsm.Events{
	{Name: string(StatusRunning), Src: []string{string(StatusPending)}, Dst: string(StatusRunning)},
	{Name: string(StatusCompleted), Src: []string{string(StatusRunning)}, Dst: string(StatusCompleted)},
	{Name: string(StatusFailed), Src: []string{string(StatusPending), string(StatusRunning)}, Dst: string(StatusFailed)},
}

func newMachine(current Status) *fsm.FSM {
	return fsm.NewFSM(string(current), jobEvents, fsm.Callbacks{})
}

// CanTransition whether from -> to is an edge of the job lifecycle
func CanTransition(from, to Status) bool {
	return newMachine(from).Can(string(to))
}

func checkTransition(ctx context.Context, from, to Status) error {
	if err := newMachine(from).Event(ctx, string(to)); err != nil {
		return errdefs.Statef("illegal transition %s -> %s", from, to)
	}
	return nil
}
