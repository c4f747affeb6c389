// Package court assembles the Historical Court pipeline: inquiry, the trial
// loop of parallel research and judicial review, verdict and sentencing
// drafts, and the written report.
package court

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/historicalcourt/internal/casefile"
	"github.com/dusk-indust/historicalcourt/internal/collab"
	"github.com/dusk-indust/historicalcourt/internal/config"
	"github.com/dusk-indust/historicalcourt/internal/logging"
	"github.com/dusk-indust/historicalcourt/internal/orchestrator"
	"github.com/google/uuid"
)

// Node names.
const (
	NodeInquiry       = "inquiry"
	NodeTrial         = "trial_loop"
	NodeInvestigation = "investigation"
	NodeDefense       = "admirer"
	NodeProsecution   = "critic"
	NodeJudge         = "judge"
	NodeVerdict       = "verdict_writer"
	NodeSentencing    = "sentencing"
	NodeFile          = "file_writer"
)

// Result describes a completed run.
type Result struct {
	RunID      string
	Docket     string
	ReportPath string
	Trial      orchestrator.Outcome
	Record     casefile.Snapshot
	Nodes      []orchestrator.NodeResult
	Started    time.Time
	Finished   time.Time
}

// Engine runs one case per Convene call. It is safe for sequential reuse;
// every run gets a fresh record and pipeline.
type Engine struct {
	cfg      config.Config
	gen      collab.Generator
	search   collab.Searcher
	persist  collab.Persister
	now      func() time.Time
	progress func(orchestrator.ProgressEvent)
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for the report date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithProgress registers a callback for pipeline progress events. The
// callback runs on its own goroutine, in event order.
func WithProgress(fn func(orchestrator.ProgressEvent)) Option {
	return func(e *Engine) { e.progress = fn }
}

// NewEngine creates an Engine. gen is wrapped with the retry policy from
// cfg. search is dropped when lookups are disabled in cfg; a nil search
// runs the research stages without references.
func NewEngine(cfg config.Config, gen collab.Generator, search collab.Searcher, persist collab.Persister, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		gen:     collab.NewRetryGenerator(gen, cfg.Retry.Attempts, cfg.Retry.InitialDelay, cfg.CallTimeout),
		persist: persist,
		now:     time.Now,
		log:     logging.New("court"),
	}
	if cfg.Lookup.On() {
		e.search = search
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Convene runs the full case for topic and returns the result once the
// report is written. topic must be a non-empty string; any other value
// fails the inquiry stage and nothing is written.
func (e *Engine) Convene(ctx context.Context, topic any) (*Result, error) {
	res := &Result{
		RunID:   uuid.NewString(),
		Docket:  e.cfg.Docket,
		Started: e.now(),
	}
	log := e.log.With("run", res.RunID)

	fan, err := orchestrator.NewFanOut(NodeInvestigation,
		NewDefenseStage(e.gen, e.search, log),
		NewProsecutionStage(e.gen, e.search, log),
	)
	if err != nil {
		return nil, fmt.Errorf("court: %w", err)
	}
	trial := orchestrator.NewLoop(NodeTrial, e.cfg.IterationCap,
		[]orchestrator.Node{fan, orchestrator.NewSingle(NewJudgeStage(e.gen, log))},
		orchestrator.WithIterationObserver(func(i int, state orchestrator.LoopState, env *orchestrator.Env) {
			log.Info("trial iteration",
				"iteration", i,
				"state", string(state),
				"pos_data", env.Record.Len(casefile.PosData),
				"neg_data", env.Record.Len(casefile.NegData),
			)
		}),
	)
	file := NewFileStage(e.persist, e.cfg.OutputDir, e.cfg.Docket, e.now)

	p := orchestrator.NewPipeline("court_process",
		orchestrator.NewSingle(NewEntryStage(topic)),
		trial,
		orchestrator.NewSingle(NewVerdictStage(e.gen)),
		orchestrator.NewSingle(NewSentencingStage(e.gen)),
		orchestrator.NewSingle(file),
	)

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range p.Progress() {
			if e.progress != nil {
				e.progress(ev)
			}
		}
	}()

	rec := casefile.New()
	log.Info("court convened", "docket", e.cfg.Docket, "cap", trial.Cap())
	results, err := p.Run(ctx, rec)
	p.Close()
	<-drained
	if err != nil {
		return nil, fmt.Errorf("court: %w", err)
	}

	res.Nodes = results
	res.Record = rec.Snapshot()
	res.ReportPath = file.Path()
	res.Finished = e.now()
	for _, r := range results {
		if r.Node == NodeTrial {
			res.Trial = r.Outcome
		}
	}
	log.Info("report filed", "path", res.ReportPath, "trial", string(res.Trial.Loop), "iterations", res.Trial.Iterations)
	return res, nil
}
