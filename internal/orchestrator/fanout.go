package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dusk-indust/historicalcourt/internal/casefile"
	"golang.org/x/sync/errgroup"
)

var _ Node = (*FanOut)(nil)

// ErrOverlappingWrites is returned when two fan-out branches share a write
// target.
var ErrOverlappingWrites = errors.New("orchestrator: fan-out branches share a write target")

// FanOut runs single-step branches concurrently. Every branch gets its own
// scope, opened before any branch starts, so no branch can observe another's
// output. Scopes are committed together at the join point, and only when
// every branch succeeded.
type FanOut struct {
	name     string
	branches []Stage
}

// NewFanOut creates a FanOut over branches. Branch write sets must be
// disjoint.
func NewFanOut(name string, branches ...Stage) (*FanOut, error) {
	owner := make(map[casefile.Field]string)
	for _, b := range branches {
		for _, f := range b.Grant().Writes() {
			if prev, ok := owner[f]; ok {
				return nil, fmt.Errorf("%w: %q and %q both write %s", ErrOverlappingWrites, prev, b.Name(), f)
			}
			owner[f] = b.Name()
		}
	}
	return &FanOut{name: name, branches: branches}, nil
}

// Name returns the node name.
func (f *FanOut) Name() string { return f.name }

// Execute dispatches every branch in parallel. It uses errgroup.WithContext
// so that the first branch failure cancels the derived context for the
// others. A branch returning SignalExit propagates the signal.
func (f *FanOut) Execute(ctx context.Context, env *Env) (Outcome, error) {
	scopes := make([]*casefile.Scope, len(f.branches))
	for i, b := range f.branches {
		scopes[i] = env.Record.Open(b.Grant())
		env.emit(ProgressEvent{Node: b.Name(), Status: ProgressPending})
	}

	signals := make([]Signal, len(f.branches))
	g, gctx := errgroup.WithContext(ctx)

	for i, b := range f.branches {
		g.Go(func() error {
			env.emit(ProgressEvent{Node: b.Name(), Status: ProgressWorking})

			sig, err := b.Run(gctx, scopes[i])
			if err != nil {
				env.emit(ProgressEvent{Node: b.Name(), Status: ProgressFailed, Message: err.Error()})
				return fmt.Errorf("branch %q: %w", b.Name(), err)
			}

			signals[i] = sig
			env.emit(ProgressEvent{Node: b.Name(), Status: ProgressComplete})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Outcome{}, fmt.Errorf("fan-out %q: %w", f.name, err)
	}

	// Join point.
	out := Outcome{Signal: SignalNone}
	for i, s := range scopes {
		if err := s.Commit(); err != nil {
			return Outcome{}, fmt.Errorf("fan-out %q: commit branch %q: %w", f.name, f.branches[i].Name(), err)
		}
		if signals[i] == SignalExit {
			out.Signal = SignalExit
		}
		logWrites(env, f.branches[i])
	}
	env.logger().Debug("fan-out joined", "node", f.name, "branches", len(f.branches))
	return out, nil
}
