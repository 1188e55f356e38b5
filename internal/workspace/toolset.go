package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/traceback-dev/traceback/internal/callgraph"
)

// Toolset combines the workspace with the call-graph resolver's path
// heuristics into the evidence-gathering surface the analysis loop
// dispatches to.
type Toolset struct {
	ws           *Workspace
	resolver     *callgraph.Resolver
	contextLines int
}

func NewToolset(ws *Workspace, resolver *callgraph.Resolver, contextLines int) *Toolset {
	if contextLines <= 0 {
		contextLines = DefaultContextLines
	}
	return &Toolset{ws: ws, resolver: resolver, contextLines: contextLines}
}

func (t *Toolset) SearchFiles(ctx context.Context, patterns []string) ([]string, error) {
	return t.ws.SearchFiles(ctx, patterns)
}

// FetchCode resolves a reported path to a local file and returns a
// clamped source window around the line.
func (t *Toolset) FetchCode(filename string, line int) (string, error) {
	candidates := t.resolver.TranslatePath(filename)
	path, ok := t.ws.ResolveFile(candidates)
	if !ok {
		return "", fmt.Errorf("file not found in any candidate location: %s", strings.Join(candidates, ", "))
	}
	return t.ws.ReadWindow(path, line, t.contextLines)
}
