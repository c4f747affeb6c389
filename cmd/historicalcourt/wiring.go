package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dusk-indust/historicalcourt/internal/a2a"
	"github.com/dusk-indust/historicalcourt/internal/collab"
	"github.com/dusk-indust/historicalcourt/internal/config"
	"github.com/dusk-indust/historicalcourt/internal/court"
	"github.com/dusk-indust/historicalcourt/internal/logging"
	"github.com/dusk-indust/historicalcourt/internal/orchestrator"
)

// loadConfig reads the config named by --config, or ./court.yml when the
// flag is empty, and initializes logging from it.
func loadConfig(logOut io.Writer) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if globalFlags.configPath != "" {
		cfg, err = config.LoadFile(globalFlags.configPath, nil)
	} else {
		cfg, err = config.Load(".", nil)
	}
	if err != nil {
		return config.Config{}, err
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if globalFlags.verbose {
		level = slog.LevelDebug
	}
	logging.Init(level, cfg.LogFormat, logOut)
	logging.New("main").Info("historical court initialized", "model", cfg.Model, "backend", cfg.Generator.Backend)
	return cfg, nil
}

// newGenerator builds the text-generation collaborator selected by cfg.
func newGenerator(cfg config.Config) (collab.Generator, error) {
	switch cfg.Generator.Backend {
	case config.BackendChat:
		return collab.NewChatGenerator(cfg.Generator.BaseURL, cfg.Model, cfg.Generator.APIKey, nil), nil
	case config.BackendA2A:
		client := a2a.NewHTTPClient(a2a.WithTimeout(cfg.CallTimeout))
		return collab.NewA2AGenerator(client, cfg.Generator.Endpoint, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown generator backend %q", cfg.Generator.Backend)
	}
}

const probeTimeout = 5 * time.Second

// preflight checks that a remote A2A agent answers before any stage runs.
// Chat backends are not probed.
func preflight(ctx context.Context, gen collab.Generator) error {
	a2aGen, ok := gen.(*collab.A2AGenerator)
	if !ok {
		return nil
	}
	card, err := a2aGen.Probe(ctx, probeTimeout)
	if err != nil {
		return fmt.Errorf("generator agent unreachable: %w", err)
	}
	logging.New("main").Info("generator agent found", "agent", card.Name, "version", card.Version)
	return nil
}

// newEngine wires the collaborators from cfg into a court engine.
func newEngine(ctx context.Context, cfg config.Config, progress func(orchestrator.ProgressEvent)) (*court.Engine, error) {
	gen, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}
	if err := preflight(ctx, gen); err != nil {
		return nil, err
	}
	var search collab.Searcher
	if cfg.Lookup.On() {
		search = collab.NewWikipediaSearcher(cfg.Lookup.BaseURL, cfg.Lookup.Limit, nil)
	}

	var opts []court.Option
	if progress != nil {
		opts = append(opts, court.WithProgress(progress))
	}
	return court.NewEngine(cfg, gen, search, collab.FSPersister{}, opts...), nil
}
