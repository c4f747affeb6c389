package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/historicalcourt/internal/court"
	"github.com/dusk-indust/historicalcourt/internal/export"
	"github.com/dusk-indust/historicalcourt/internal/orchestrator"
)

var conveneCmd = &cobra.Command{
	Use:   "convene [topic]",
	Short: "Put a historical figure or event on trial and file the report",
	Long: "Convene the court on a topic. The topic comes from --topic, the\n" +
		"positional argument, or a prompt on stdin, in that order.",
	Args: cobra.MaximumNArgs(1),
	RunE: runConvene,
}

var conveneFlags struct {
	topic      string
	transcript string
	diagram    string
}

func init() {
	f := conveneCmd.Flags()
	f.StringVar(&conveneFlags.topic, "topic", "", "historical figure or event to put on trial")
	f.StringVar(&conveneFlags.transcript, "transcript", "", "write a JSON transcript of the run to this path")
	f.StringVar(&conveneFlags.diagram, "diagram", "", "write a Mermaid diagram of the run to this path")
}

func runConvene(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	topic := conveneFlags.topic
	if topic == "" && len(args) == 1 {
		topic = args[0]
	}
	if topic == "" {
		topic, err = promptTopic(cmd.InOrStdin(), out)
		if err != nil {
			return err
		}
	}

	var progress func(orchestrator.ProgressEvent)
	if globalFlags.verbose {
		progress = func(ev orchestrator.ProgressEvent) {
			fmt.Fprintln(out, orchestrator.FormatProgress(ev))
		}
	}
	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt)
	defer stop()

	engine, err := newEngine(ctx, cfg, progress)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, headerStyle.Render(orchestrator.FormatCaseHeader(cfg.Docket, topic)))
	res, err := engine.Convene(ctx, topic)
	if err != nil {
		return err
	}

	outcome := fmt.Sprintf("%s after %d iteration(s)", res.Trial.Loop, res.Trial.Iterations)
	if res.Trial.Loop == orchestrator.LoopTerminatedByCap {
		outcome = capStyle.Render(outcome)
	} else {
		outcome = signalStyle.Render(outcome)
	}
	fmt.Fprintf(out, "Trial: %s\n", outcome)
	fmt.Fprintf(out, "Report filed: %s\n", mutedStyle.Render(res.ReportPath))

	return writeArtifacts(out, res)
}

// promptTopic reads one line from in. EOF with no input is an error.
func promptTopic(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter a historical figure or event: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read topic: %w", err)
	}
	topic := strings.TrimSpace(line)
	if topic == "" {
		return "", errors.New("no topic given")
	}
	return topic, nil
}

func writeArtifacts(out io.Writer, res *court.Result) error {
	if conveneFlags.transcript != "" {
		if err := export.WriteFile(conveneFlags.transcript, export.FromResult(res, time.Now())); err != nil {
			return fmt.Errorf("write transcript: %w", err)
		}
		fmt.Fprintf(out, "Transcript: %s\n", conveneFlags.transcript)
	}
	if conveneFlags.diagram != "" {
		if err := os.WriteFile(conveneFlags.diagram, []byte(export.GenerateMermaid(res)), 0o644); err != nil {
			return fmt.Errorf("write diagram: %w", err)
		}
		fmt.Fprintf(out, "Diagram: %s\n", conveneFlags.diagram)
	}
	return nil
}

// contextOrBackground keeps RunE usable from tests that call it directly.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
