package orchestrator

import (
	"context"
	"fmt"
)

var _ Node = (*Loop)(nil)

// DefaultIterationCap bounds a Loop when no cap is configured.
const DefaultIterationCap = 6

// Loop repeats its body nodes, in order, until a node returns SignalExit or
// the iteration cap is reached. It never terminates on its own otherwise.
//
// Reaching the cap is not an error; the Outcome distinguishes it from an
// explicit exit. An iteration that has started always runs to completion
// (or failure) before the cap is checked.
type Loop struct {
	name     string
	maxIter  int
	body     []Node
	observer func(iteration int, state LoopState, env *Env)
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithIterationObserver registers fn to be called after every iteration
// with the 1-based iteration number and the state it left the loop in.
func WithIterationObserver(fn func(iteration int, state LoopState, env *Env)) LoopOption {
	return func(l *Loop) {
		l.observer = fn
	}
}

// NewLoop creates a Loop over body. A maxIterations below 1 falls back to
// DefaultIterationCap.
func NewLoop(name string, maxIterations int, body []Node, opts ...LoopOption) *Loop {
	if maxIterations < 1 {
		maxIterations = DefaultIterationCap
	}
	l := &Loop{name: name, maxIter: maxIterations, body: body}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the node name.
func (l *Loop) Name() string { return l.name }

// Cap returns the iteration cap.
func (l *Loop) Cap() int { return l.maxIter }

// Execute runs the loop state machine. The exit signal is consumed here and
// never propagates to the enclosing pipeline.
func (l *Loop) Execute(ctx context.Context, env *Env) (Outcome, error) {
	state := LoopRunning
	iterations := 0

	for state == LoopRunning {
		if err := ctx.Err(); err != nil {
			return Outcome{Loop: state, Iterations: iterations}, err
		}

		current := iterations + 1
		env.emit(ProgressEvent{Node: l.name, Iteration: current, Status: ProgressWorking})

		exited := false
		for _, n := range l.body {
			out, err := n.Execute(ctx, env)
			if err != nil {
				env.emit(ProgressEvent{Node: l.name, Iteration: current, Status: ProgressFailed, Message: err.Error()})
				return Outcome{Loop: state, Iterations: iterations}, fmt.Errorf("loop %q iteration %d: %w", l.name, current, err)
			}
			if out.Signal == SignalExit {
				exited = true
				break
			}
		}
		iterations = current

		switch {
		case exited:
			state = LoopTerminatedBySignal
		case iterations >= l.maxIter:
			state = LoopTerminatedByCap
		}
		if l.observer != nil {
			l.observer(iterations, state, env)
		}
		env.emit(ProgressEvent{Node: l.name, Iteration: current, Status: ProgressComplete, Message: string(state)})
	}

	env.logger().Info("loop terminated", "node", l.name, "state", string(state), "iterations", iterations)
	return Outcome{Signal: SignalNone, Loop: state, Iterations: iterations}, nil
}
