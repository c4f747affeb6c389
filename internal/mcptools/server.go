package mcptools

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewCourtMCPServer creates an MCP server with the 3 court tools registered:
// convene_court, list_reports, and read_report.
func NewCourtMCPServer(svc *CourtService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "historicalcourt",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "convene_court",
		Description: "Put a historical figure or event on trial. Runs defense and prosecution research, the judge's review loop, verdict and sentencing drafts, and files the report. Returns the report path and how the trial ended.",
	}, svc.ConveneCourt)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_reports",
		Description: "List the court reports filed in the output directory, newest first, with case title, docket number and date.",
	}, svc.ListReports)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_report",
		Description: "Return the full text of a filed court report by filename.",
	}, svc.ReadReport)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
