package mcptools

// --- MCP tool types for serve-mcp ---
// These tools let an MCP client convene the court and browse filed reports
// without shelling out to the CLI.

// ConveneInput is the input for the convene_court MCP tool.
type ConveneInput struct {
	Topic string `json:"topic" jsonschema:"historical figure or event to put on trial"`
}

// ConveneOutput is the result of the convene_court MCP tool.
type ConveneOutput struct {
	Status      string `json:"status"` // "filed" or "failed"
	Docket      string `json:"docket,omitempty"`
	ReportPath  string `json:"reportPath,omitempty"`
	ReportName  string `json:"reportName,omitempty"`
	TrialState  string `json:"trialState,omitempty"`
	Iterations  int    `json:"iterations,omitempty"`
	PosFindings int    `json:"posFindings"`
	NegFindings int    `json:"negFindings"`
	Message     string `json:"message,omitempty"`
}

// ListReportsInput is the input for the list_reports MCP tool.
type ListReportsInput struct{}

// ListReportsOutput is the result of the list_reports MCP tool.
type ListReportsOutput struct {
	Reports []ReportSummary `json:"reports"`
}

// ReportSummary is a brief overview of one filed report.
type ReportSummary struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Docket   string `json:"docket,omitempty"`
	Date     string `json:"date,omitempty"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// ReadReportInput is the input for the read_report MCP tool.
type ReadReportInput struct {
	Name string `json:"name" jsonschema:"report filename as returned by list_reports"`
}

// ReadReportOutput is the result of the read_report MCP tool.
type ReadReportOutput struct {
	Name string `json:"name"`
	Text string `json:"text"`
}
