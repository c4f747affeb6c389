package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dusk-indust/historicalcourt/internal/casefile"
	"github.com/dusk-indust/historicalcourt/internal/logging"
)

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// Pipeline executes a fixed ordered sequence of nodes. A node starts only
// after its predecessor has returned and committed its writes; the first
// failure aborts every remaining node.
type Pipeline struct {
	name     string
	nodes    []Node
	progress *ProgressReporter
	log      *slog.Logger
}

// NewPipeline creates a Pipeline over nodes, in order.
func NewPipeline(name string, nodes ...Node) *Pipeline {
	return &Pipeline{
		name:     name,
		nodes:    nodes,
		progress: NewProgressReporter(),
		log:      logging.New("orchestrator").With("pipeline", name),
	}
}

// Nodes returns the node names in execution order.
func (p *Pipeline) Nodes() []string {
	names := make([]string, len(p.nodes))
	for i, n := range p.nodes {
		names[i] = n.Name()
	}
	return names
}

// Run executes every node in order against rec. On failure the results of
// the nodes that completed are returned together with the error.
func (p *Pipeline) Run(ctx context.Context, rec *casefile.Record) ([]NodeResult, error) {
	env := &Env{
		Record: rec,
		Emit:   p.progress.Emit,
		Log:    p.log,
	}

	for _, n := range p.nodes {
		p.progress.Emit(ProgressEvent{Node: n.Name(), Status: ProgressPending})
	}

	results := make([]NodeResult, 0, len(p.nodes))
	for _, n := range p.nodes {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("pipeline: node %q not started: %w", n.Name(), err)
		}

		p.log.Debug("node starting", "node", n.Name())
		out, err := n.Execute(ctx, env)
		if err != nil {
			p.log.Error("node failed", "node", n.Name(), "error", err)
			return results, fmt.Errorf("pipeline: node %q failed: %w", n.Name(), err)
		}
		results = append(results, NodeResult{Node: n.Name(), Outcome: out})
	}

	p.log.Info("pipeline complete", "nodes", len(results))
	return results, nil
}

// Progress returns a channel that emits progress events.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close shuts down the progress reporter. Callers should invoke this when the
// pipeline is no longer needed.
func (p *Pipeline) Close() {
	p.progress.Close()
}
