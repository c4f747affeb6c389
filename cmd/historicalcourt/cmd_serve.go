package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/historicalcourt/internal/logging"
	"github.com/dusk-indust/historicalcourt/internal/mcptools"
)

var serveCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Run the court as an MCP server",
	Long: "Serve the convene_court, list_reports and read_report tools over\n" +
		"MCP. Uses stdio unless --http is given.",
	RunE: runServe,
}

var serveFlags struct {
	httpAddr string
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio (e.g. :8080)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	// stdout carries the MCP stream; logs go to stderr.
	cfg, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(ctx, cfg, nil)
	if err != nil {
		return err
	}

	server := mcptools.NewCourtMCPServer(mcptools.NewCourtService(engine, cfg.OutputDir))

	log := logging.New("mcp")
	if serveFlags.httpAddr != "" {
		log.Info("serving MCP over HTTP", "addr", serveFlags.httpAddr)
		return mcptools.RunHTTP(ctx, server, serveFlags.httpAddr)
	}
	log.Info("serving MCP over stdio")
	return mcptools.RunStdio(ctx, server)
}
