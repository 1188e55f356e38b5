package analysis

// FindingType tags the tool that produced a finding.
type FindingType string

const (
	FindingFetchFiles    FindingType = "fetch_files"
	FindingFetchLogs     FindingType = "fetch_logs"
	FindingFetchCode     FindingType = "fetch_code"
	FindingAnalyzedPages FindingType = "analyzed_pages"
)

// ToolRef echoes the tool invocation that produced a finding.
type ToolRef struct {
	Type    FindingType `json:"type"`
	Context string      `json:"context"`
}

// Finding is an immutable record of one tool outcome. Findings are
// append-only and owned by the session context that produced them.
type Finding struct {
	Type    FindingType `json:"type"`
	Context string      `json:"context"`
	Result  string      `json:"result"`
	Tool    *ToolRef    `json:"tool_executed,omitempty"`
}

// Equal reports structural identity between two findings.
func (f Finding) Equal(other Finding) bool {
	if f.Type != other.Type || f.Context != other.Context || f.Result != other.Result {
		return false
	}
	if (f.Tool == nil) != (other.Tool == nil) {
		return false
	}
	if f.Tool != nil && *f.Tool != *other.Tool {
		return false
	}
	return true
}
