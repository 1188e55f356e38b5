// Package callgraph synthesizes caller chains and stack traces from
// parsed source text. Caller resolution is name-based, not scope-based:
// two unrelated functions sharing a name both register as matches. That
// imprecision is part of the contract, not a bug.
package callgraph

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/traceback-dev/traceback/internal/languages"
	"github.com/traceback-dev/traceback/internal/parser"
)

const (
	// DefaultMaxDepth bounds stack trace exploration.
	DefaultMaxDepth = 10

	snippetContextLines = 2
)

// Location is an immutable source position. Identity is (File, Line).
type Location struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function,omitempty"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Frame is one entry of a synthetic stack trace, outermost first in a
// finished trace.
type Frame struct {
	Location Location `json:"location"`
	Context  string   `json:"context,omitempty"`
}

// Resolver answers call-graph questions against a workspace tree parsed
// once at construction.
type Resolver struct {
	root   string
	result *parser.ParseResult
	logger *slog.Logger
}

// NewResolver parses every supported source file under root. Individual
// parse failures are recorded, not fatal.
func NewResolver(root string, ignoreRules []string, logger *slog.Logger) (*Resolver, error) {
	registry := languages.NewDefaultRegistry()
	result, err := registry.ParseDirectory(root, ignoreRules)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workspace %s: %w", root, err)
	}

	logger.Info("workspace parsed", "root", root, "files", len(result.Files), "issues", len(result.Issues))
	for _, issue := range result.Issues {
		logger.Warn("parse issue", "file", issue.File, "severity", issue.Severity, "message", issue.Message)
	}

	return &Resolver{root: root, result: result, logger: logger}, nil
}

// Files returns the number of parsed source files.
func (r *Resolver) Files() int {
	return len(r.result.Files)
}

// EnclosingFunction returns the innermost function or method whose line
// range contains the location. The second result is false when the
// location is outside any function or the file is unknown.
func (r *Resolver) EnclosingFunction(loc Location) (string, bool) {
	file := r.lookupFile(loc.File)
	if file == nil {
		return "", false
	}

	var best *parser.Symbol
	for i := range file.Symbols {
		sym := &file.Symbols[i]
		if sym.Kind != parser.SymbolFunction && sym.Kind != parser.SymbolMethod {
			continue
		}
		if !sym.Contains(loc.Line) {
			continue
		}
		if best == nil || sym.Span() < best.Span() {
			best = sym
		}
	}
	if best == nil {
		return "", false
	}
	return best.Name, true
}

// Callers returns every call site across the workspace that invokes the
// function enclosing loc, matched purely by name. Results carry the
// calling function and the call line.
func (r *Resolver) Callers(loc Location) []Location {
	target := loc.Function
	if target == "" {
		name, ok := r.EnclosingFunction(loc)
		if !ok {
			return nil
		}
		target = name
	}

	callers := make([]Location, 0)
	for _, file := range r.result.Files {
		for _, sym := range file.Symbols {
			if sym.Kind != parser.SymbolFunction && sym.Kind != parser.SymbolMethod {
				continue
			}
			for _, call := range sym.Calls {
				if call.Name != target {
					continue
				}
				callers = append(callers, Location{
					File:     file.Path,
					Line:     call.Line,
					Function: sym.Name,
				})
			}
		}
	}
	return callers
}

// StackTrace explores the caller relation depth-first from loc and
// returns the longest complete path found, outermost frame first. Each
// path carries a visited set so cyclic call graphs terminate; ties go to
// discovery order. Any internal failure yields a single-frame trace
// with an error marker instead of propagating.
func (r *Resolver) StackTrace(loc Location, maxDepth int) []Frame {
	if r.lookupFile(loc.File) == nil {
		return []Frame{{Location: loc, Context: fmt.Sprintf("error building stack trace: %s not found in workspace", loc.File)}}
	}

	visited := map[string]bool{}
	traces := r.buildTraces(loc, 0, maxDepth, visited)

	var best []Frame
	for _, trace := range traces {
		if len(trace) > len(best) {
			best = trace
		}
	}
	if len(best) == 0 {
		best = []Frame{{Location: loc, Context: r.snippet(loc)}}
	}
	return best
}

// buildTraces returns every complete path of frames ending at loc, each
// ordered outermost first.
func (r *Resolver) buildTraces(loc Location, depth, maxDepth int, visited map[string]bool) [][]Frame {
	if depth >= maxDepth {
		return [][]Frame{nil}
	}

	current := Frame{Location: loc, Context: r.snippet(loc)}

	callers := r.Callers(loc)
	if len(callers) == 0 {
		return [][]Frame{{current}}
	}

	all := make([][]Frame, 0)
	for _, caller := range callers {
		key := caller.String()
		if visited[key] {
			continue
		}
		visited[key] = true
		for _, trace := range r.buildTraces(caller, depth+1, maxDepth, visited) {
			all = append(all, append(trace, current))
		}
		delete(visited, key)
	}

	if len(all) == 0 {
		return [][]Frame{{current}}
	}
	return all
}

func (r *Resolver) snippet(loc Location) string {
	file := r.lookupFile(loc.File)
	if file == nil {
		return ""
	}
	content, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(file.Path)))
	if err != nil {
		return ""
	}

	lines := strings.Split(string(content), "\n")
	line := loc.Line
	if line < 1 || line > len(lines) {
		return ""
	}
	start := line - snippetContextLines
	if start < 1 {
		start = 1
	}
	end := line + snippetContextLines
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n")
}

// lookupFile matches a reported path against the parsed tree: exact
// relative path first, then unique suffix, then basename.
func (r *Resolver) lookupFile(path string) *parser.FileSymbols {
	normalized := filepath.ToSlash(path)
	normalized = strings.TrimPrefix(normalized, "./")

	if rel, err := filepath.Rel(r.root, path); err == nil && !strings.HasPrefix(rel, "..") {
		if f := r.result.FileByPath(filepath.ToSlash(rel)); f != nil {
			return f
		}
	}
	if f := r.result.FileByPath(normalized); f != nil {
		return f
	}

	var suffixMatch *parser.FileSymbols
	for i := range r.result.Files {
		f := &r.result.Files[i]
		if strings.HasSuffix(f.Path, "/"+normalized) || f.Path == normalized {
			if suffixMatch != nil {
				suffixMatch = nil
				break
			}
			suffixMatch = f
		}
	}
	if suffixMatch != nil {
		return suffixMatch
	}

	base := filepath.Base(normalized)
	for i := range r.result.Files {
		if filepath.Base(r.result.Files[i].Path) == base {
			return &r.result.Files[i]
		}
	}
	return nil
}
