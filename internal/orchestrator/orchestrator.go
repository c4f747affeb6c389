package orchestrator

import (
	"context"
	"log/slog"

	"github.com/dusk-indust/historicalcourt/internal/casefile"
)

// Signal is the control event a stage returns alongside its writes.
type Signal int

const (
	// SignalNone leaves control flow unchanged.
	SignalNone Signal = iota
	// SignalExit ends the enclosing Loop.
	SignalExit
)

func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalExit:
		return "exit"
	default:
		return "unknown"
	}
}

// LoopState is the state of an iterative node.
type LoopState string

const (
	LoopRunning            LoopState = "running"
	LoopTerminatedBySignal LoopState = "terminated-by-signal"
	LoopTerminatedByCap    LoopState = "terminated-by-cap"
)

// IsTerminal returns true once the loop has stopped.
func (s LoopState) IsTerminal() bool {
	return s == LoopTerminatedBySignal || s == LoopTerminatedByCap
}

// Outcome is what a Node reports after it completes.
type Outcome struct {
	Signal Signal

	// Loop and Iterations are only set by Loop nodes.
	Loop       LoopState
	Iterations int
}

// Stage is a single-step unit of work. It reads and writes the case record
// only through the scope it is handed, which is opened with Grant().
type Stage interface {
	Name() string
	Grant() casefile.Grant
	Run(ctx context.Context, scope *casefile.Scope) (Signal, error)
}

// Env carries per-run collaborators shared by every node.
type Env struct {
	Record *casefile.Record
	Emit   func(ProgressEvent)
	Log    *slog.Logger
}

func (e *Env) emit(ev ProgressEvent) {
	if e != nil && e.Emit != nil {
		e.Emit(ev)
	}
}

func (e *Env) logger() *slog.Logger {
	if e == nil || e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

// Node is an executable element of a Pipeline: a Single stage, a FanOut or
// a Loop.
type Node interface {
	Name() string
	Execute(ctx context.Context, env *Env) (Outcome, error)
}

// NodeResult records one completed pipeline node.
type NodeResult struct {
	Node    string
	Outcome Outcome
}

// ProgressEvent is emitted to observers during pipeline execution.
type ProgressEvent struct {
	Node      string
	Iteration int // 1-based inside a Loop, 0 elsewhere
	Status    ProgressStatus
	Message   string
}

// ProgressStatus is the state of a node.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// Orchestrator runs a fixed pipeline over one case record.
type Orchestrator interface {
	// Run executes every node in order against rec.
	Run(ctx context.Context, rec *casefile.Record) ([]NodeResult, error)

	// Progress returns a channel that emits progress events.
	Progress() <-chan ProgressEvent
}
