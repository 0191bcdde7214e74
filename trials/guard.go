package trials

import "go.uber.org/atomic"

const (
	workflowIdle uint32 = iota
	workflowRunning
)

// workflowGuard admits one run of a workflow at a time.
type workflowGuard struct {
	state atomic.Uint32
}

func (g *workflowGuard) enter() bool {
	return g.state.CompareAndSwap(workflowIdle, workflowRunning)
}

func (g *workflowGuard) exit() {
	g.state.Store(workflowIdle)
}

func (g *workflowGuard) running() bool {
	return g.state.Load() == workflowRunning
}
