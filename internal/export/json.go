// Package export renders a completed court run as a JSON transcript or a
// Mermaid diagram.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dusk-indust/historicalcourt/internal/casefile"
	"github.com/dusk-indust/historicalcourt/internal/court"
)

// Transcript is the top-level JSON export structure.
type Transcript struct {
	RunID      string            `json:"runId"`
	Docket     string            `json:"docket"`
	Topic      string            `json:"topic"`
	ExportedAt string            `json:"exportedAt"`
	Started    string            `json:"started"`
	Finished   string            `json:"finished"`
	ReportPath string            `json:"reportPath"`
	Trial      TrialExport       `json:"trial"`
	Nodes      []NodeExport      `json:"nodes"`
	Record     casefile.Snapshot `json:"record"`
}

// TrialExport summarizes how the trial loop ended.
type TrialExport struct {
	State      string `json:"state"`
	Iterations int    `json:"iterations"`
}

// NodeExport describes one pipeline node.
type NodeExport struct {
	Node       string `json:"node"`
	Signal     string `json:"signal"`
	Loop       string `json:"loop,omitempty"`
	Iterations int    `json:"iterations,omitempty"`
}

// FromResult builds a Transcript from a completed run.
func FromResult(res *court.Result, exportedAt time.Time) *Transcript {
	t := &Transcript{
		RunID:      res.RunID,
		Docket:     res.Docket,
		Topic:      res.Record.Topic,
		ExportedAt: exportedAt.UTC().Format(time.RFC3339),
		Started:    res.Started.UTC().Format(time.RFC3339),
		Finished:   res.Finished.UTC().Format(time.RFC3339),
		ReportPath: res.ReportPath,
		Trial: TrialExport{
			State:      string(res.Trial.Loop),
			Iterations: res.Trial.Iterations,
		},
		Record: res.Record,
	}
	for _, n := range res.Nodes {
		t.Nodes = append(t.Nodes, NodeExport{
			Node:       n.Node,
			Signal:     n.Outcome.Signal.String(),
			Loop:       string(n.Outcome.Loop),
			Iterations: n.Outcome.Iterations,
		})
	}
	return t
}

// WriteJSON writes t as indented JSON followed by a newline.
func WriteJSON(w io.Writer, t *Transcript) error {
	out, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

// WriteFile writes t to path, creating parent directories.
func WriteFile(path string, t *Transcript) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	if err := WriteJSON(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
