package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/historicalcourt/internal/docket"
)

var docketCmd = &cobra.Command{
	Use:   "docket",
	Short: "List the reports filed in the output directory",
	RunE:  runDocket,
}

var docketFlags struct {
	asJSON bool
}

func init() {
	docketCmd.Flags().BoolVar(&docketFlags.asJSON, "json", false, "print the docket as JSON")
}

func runDocket(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	entries, err := docket.List(cfg.OutputDir)
	if err != nil {
		return err
	}

	if docketFlags.asJSON {
		if entries == nil {
			entries = []docket.Entry{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No reports filed in "+cfg.OutputDir))
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCKET\tDATE\tCASE\tFILE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", dash(e.Docket), dash(e.Date), e.Title, e.Name)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
