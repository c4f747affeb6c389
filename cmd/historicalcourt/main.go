// historicalcourt puts a historical figure or event on trial and files a
// formal court report.
//
// Usage:
//
//	historicalcourt convene [--topic=<text>] [--config=<path>] [--transcript=<path>] [--diagram=<path>] [-v]
//	historicalcourt docket [--config=<path>]
//	historicalcourt serve-mcp [--config=<path>] [--http=<addr>]
//	historicalcourt version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set by goreleaser at build time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "historicalcourt",
	Short: "Put a historical figure or event on trial",
	Long: "The Historical Court runs adversarial research on a topic, iterates a\n" +
		"judicial review until the evidence is balanced, and files a formal\n" +
		"report with a verdict and an international-law sentencing analysis.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

var globalFlags struct {
	configPath string
	verbose    bool
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.configPath, "config", "", "path to a court.yml config file (default: ./court.yml if present)")
	pf.BoolVarP(&globalFlags.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(conveneCmd)
	rootCmd.AddCommand(docketCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
