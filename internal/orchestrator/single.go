package orchestrator

import (
	"context"
	"fmt"

	"github.com/dusk-indust/historicalcourt/internal/casefile"
)

var _ Node = (*Single)(nil)

// Single runs one Stage in its own scope and commits the scope only when the
// stage returns without error.
type Single struct {
	stage Stage
}

// NewSingle wraps stage as a pipeline node.
func NewSingle(stage Stage) *Single {
	return &Single{stage: stage}
}

// Name returns the wrapped stage's name.
func (s *Single) Name() string { return s.stage.Name() }

// Execute opens a scope, runs the stage and commits its writes.
func (s *Single) Execute(ctx context.Context, env *Env) (Outcome, error) {
	name := s.stage.Name()
	env.emit(ProgressEvent{Node: name, Status: ProgressWorking})

	sig, err := runStage(ctx, env, s.stage)
	if err != nil {
		env.emit(ProgressEvent{Node: name, Status: ProgressFailed, Message: err.Error()})
		return Outcome{}, err
	}

	env.emit(ProgressEvent{Node: name, Status: ProgressComplete})
	return Outcome{Signal: sig}, nil
}

func runStage(ctx context.Context, env *Env, stage Stage) (Signal, error) {
	if err := ctx.Err(); err != nil {
		return SignalNone, err
	}
	scope := env.Record.Open(stage.Grant())
	sig, err := stage.Run(ctx, scope)
	if err != nil {
		return SignalNone, fmt.Errorf("stage %q: %w", stage.Name(), err)
	}
	writes := scope.Pending()
	if err := scope.Commit(); err != nil {
		return SignalNone, fmt.Errorf("stage %q: commit: %w", stage.Name(), err)
	}
	env.logger().Debug("stage committed", "stage", stage.Name(), "signal", sig.String(), "writes", writes)
	logWrites(env, stage)
	return sig, nil
}

// logWrites reports the state of every field the stage may write.
func logWrites(env *Env, stage Stage) {
	for _, f := range stage.Grant().Writes() {
		if kind, _ := casefile.KindOf(f); kind == casefile.KindSequence {
			env.logger().Info("record updated", "field", f, "length", env.Record.Len(f))
			continue
		}
		if env.Record.IsSet(f) {
			env.logger().Info("record set", "field", f)
		}
	}
}
