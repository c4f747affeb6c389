package mcptools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dusk-indust/historicalcourt/internal/court"
	"github.com/dusk-indust/historicalcourt/internal/docket"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Convener runs one case. *court.Engine implements it.
type Convener interface {
	Convene(ctx context.Context, topic any) (*court.Result, error)
}

// CourtService handles MCP tool calls for serve-mcp.
type CourtService struct {
	court     Convener
	outputDir string
}

// NewCourtService creates a CourtService that convenes cases with c and
// reads filed reports from outputDir.
func NewCourtService(c Convener, outputDir string) *CourtService {
	return &CourtService{court: c, outputDir: outputDir}
}

// ConveneCourt runs a full case for the given topic.
func (s *CourtService) ConveneCourt(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ConveneInput,
) (*mcp.CallToolResult, ConveneOutput, error) {
	topic := strings.TrimSpace(input.Topic)
	if topic == "" {
		return nil, ConveneOutput{Status: "failed", Message: "topic is required"}, errors.New("topic is required")
	}

	res, err := s.court.Convene(ctx, topic)
	if err != nil {
		return nil, ConveneOutput{
			Status:  "failed",
			Message: err.Error(),
		}, nil
	}

	return nil, ConveneOutput{
		Status:      "filed",
		Docket:      res.Docket,
		ReportPath:  res.ReportPath,
		ReportName:  filepath.Base(res.ReportPath),
		TrialState:  string(res.Trial.Loop),
		Iterations:  res.Trial.Iterations,
		PosFindings: len(res.Record.PosData),
		NegFindings: len(res.Record.NegData),
	}, nil
}

// ListReports lists the reports filed in the output directory, newest first.
func (s *CourtService) ListReports(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListReportsInput,
) (*mcp.CallToolResult, ListReportsOutput, error) {
	entries, err := docket.List(s.outputDir)
	if err != nil {
		return nil, ListReportsOutput{}, err
	}

	reports := make([]ReportSummary, 0, len(entries))
	for _, e := range entries {
		reports = append(reports, ReportSummary{
			Name:     e.Name,
			Title:    e.Title,
			Docket:   e.Docket,
			Date:     e.Date,
			Size:     e.Size,
			Modified: e.Modified.UTC().Format(time.RFC3339),
		})
	}
	return nil, ListReportsOutput{Reports: reports}, nil
}

// ReadReport returns the text of one filed report.
func (s *CourtService) ReadReport(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ReadReportInput,
) (*mcp.CallToolResult, ReadReportOutput, error) {
	text, err := docket.Read(s.outputDir, input.Name)
	if err != nil {
		return nil, ReadReportOutput{}, fmt.Errorf("read_report: %w", err)
	}
	return nil, ReadReportOutput{Name: input.Name, Text: text}, nil
}
