package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert debugging assistant performing root-cause analysis.
You are given one page of logs plus the findings gathered so far.
Choose exactly one tool: use show_root_cause once the evidence supports a
conclusion, otherwise request more evidence with fetch_files, fetch_logs,
or fetch_code. Always restate your running analysis in the memo field so
it carries over to the next step.`

// buildUserPrompt renders one request into the user message shared by
// both backends.
func buildUserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("ERROR CONTEXT:\n")
	b.WriteString(req.Content)
	b.WriteString("\n")

	if len(req.Findings) > 0 {
		b.WriteString("\nCurrent findings:\n")
		for _, f := range req.Findings {
			fmt.Fprintf(&b, "- %s: %s\n", f.Type, f.Result)
		}
	}
	if req.Memo != "" {
		b.WriteString("\nYour analysis so far:\n")
		b.WriteString(req.Memo)
		b.WriteString("\n")
	}
	return b.String()
}

// toolArgs is the union of every tool's input schema.
type toolArgs struct {
	RootCause      string   `json:"root_cause"`
	SearchPatterns []string `json:"search_patterns"`
	PageNumber     int      `json:"page_number"`
	Filename       string   `json:"filename"`
	LineNumber     int      `json:"line_number"`
	Memo           string   `json:"memo"`
}

// decodeToolCall maps a named tool invocation to an Action. Unknown
// names produce an ActionUnrecognized carrying the raw tool name;
// malformed argument payloads do the same so the loop can stop with an
// explicit reason instead of guessing.
func decodeToolCall(name string, rawArgs []byte) (Action, string) {
	var args toolArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return Action{Type: ActionUnrecognized, Raw: name}, ""
		}
	}

	switch name {
	case "show_root_cause":
		return Action{Type: ActionShowRootCause, RootCause: args.RootCause}, args.Memo
	case "fetch_files":
		return Action{Type: ActionFetchFiles, SearchPatterns: args.SearchPatterns}, args.Memo
	case "fetch_logs":
		return Action{Type: ActionFetchLogs, PageNumber: args.PageNumber}, args.Memo
	case "fetch_code":
		return Action{Type: ActionFetchCode, Filename: args.Filename, LineNumber: args.LineNumber}, args.Memo
	default:
		return Action{Type: ActionUnrecognized, Raw: name}, args.Memo
	}
}

// toolSchema describes one tool in plain JSON Schema terms, rendered
// into each backend's native tool definition shape.
type toolSchema struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

func toolSchemas() []toolSchema {
	memo := map[string]any{
		"type":        "string",
		"description": "Your running analysis, carried to the next step",
	}
	return []toolSchema{
		{
			Name:        "show_root_cause",
			Description: "Present the final root cause once the evidence supports it",
			Properties: map[string]any{
				"root_cause": map[string]any{
					"type":        "string",
					"description": "Detailed explanation of the root cause and recommendations",
				},
				"memo": memo,
			},
			Required: []string{"root_cause"},
		},
		{
			Name:        "fetch_files",
			Description: "Search the workspace for files containing the given text patterns",
			Properties: map[string]any{
				"search_patterns": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Plain text patterns to search for",
				},
				"memo": memo,
			},
			Required: []string{"search_patterns"},
		},
		{
			Name:        "fetch_logs",
			Description: "Fetch another page of the log input",
			Properties: map[string]any{
				"page_number": map[string]any{
					"type":        "integer",
					"description": "1-based page number to fetch",
				},
				"memo": memo,
			},
			Required: []string{"page_number"},
		},
		{
			Name:        "fetch_code",
			Description: "Fetch source code around a file and line number",
			Properties: map[string]any{
				"filename": map[string]any{
					"type":        "string",
					"description": "File path as reported by the logs",
				},
				"line_number": map[string]any{
					"type":        "integer",
					"description": "Line number to center the window on",
				},
				"memo": memo,
			},
			Required: []string{"filename", "line_number"},
		},
	}
}
