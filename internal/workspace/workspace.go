// Package workspace provides the local filesystem tools the analysis
// loop dispatches to: content search, clamped source windows, and
// candidate-path resolution. All lookups are relative to one root.
package workspace

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/traceback-dev/traceback/internal/fileutil"
	"github.com/traceback-dev/traceback/internal/ignore"
)

const (
	// DefaultContextLines is the window size each side of the target
	// line for code fetches.
	DefaultContextLines = 20

	searchParallelism = 8
	binarySniffLen    = 8000
)

type Workspace struct {
	root    string
	matcher *ignore.Matcher
	logger  *slog.Logger
}

// New builds a workspace over root. extraRules extends the default
// ignore set (typically from ignore.LoadWorkspaceRules).
func New(root string, extraRules []string, logger *slog.Logger) *Workspace {
	return &Workspace{
		root:    root,
		matcher: ignore.NewMatcher(extraRules),
		logger:  logger,
	}
}

func (w *Workspace) Root() string {
	return w.root
}

// SearchFiles scans every non-ignored text file under the root for the
// given plain-text patterns and returns the relative paths that contain
// at least one of them, sorted. Files are checked in parallel; the scan
// completes before the caller proceeds.
func (w *Workspace) SearchFiles(ctx context.Context, patterns []string) ([]string, error) {
	trimmed := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			trimmed = append(trimmed, p)
		}
	}
	needles := fileutil.DedupeStrings(trimmed)
	if len(needles) == 0 {
		return nil, fmt.Errorf("no search patterns given")
	}

	candidates, err := w.listFiles()
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	matched := make(map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(searchParallelism)
	for _, relPath := range candidates {
		relPath := relPath
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(filepath.Join(w.root, relPath))
			if err != nil {
				w.logger.Warn("skipping unreadable file", "path", relPath, "error", err)
				return nil
			}
			if isBinary(content) {
				return nil
			}
			for _, needle := range needles {
				if bytes.Contains(content, []byte(needle)) {
					mu.Lock()
					matched[relPath] = true
					mu.Unlock()
					break
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := fileutil.MapKeysSorted(matched)

	w.logger.Info("workspace search complete", "patterns", len(needles), "files_scanned", len(candidates), "files_matched", len(out))
	return out, nil
}

// ReadWindow returns a numbered source window of contextLines lines each
// side of line, clamped to the file. A line beyond the end of the file
// clamps to the last line rather than failing.
func (w *Workspace) ReadWindow(path string, line, contextLines int) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.root, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if contextLines <= 0 {
		contextLines = DefaultContextLines
	}

	lines := strings.Split(string(content), "\n")
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}

	start := line - contextLines
	if start < 1 {
		start = 1
	}
	end := line + contextLines
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for n := start; n <= end; n++ {
		marker := "  "
		if n == line {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%4d: %s\n", marker, n, lines[n-1])
	}
	return b.String(), nil
}

// ResolveFile returns the first candidate path that exists as a regular
// file. Relative candidates are tried against the workspace root.
func (w *Workspace) ResolveFile(candidates []string) (string, bool) {
	for _, candidate := range candidates {
		path := candidate
		if !filepath.IsAbs(path) {
			path = filepath.Join(w.root, path)
		}
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

func (w *Workspace) listFiles() ([]string, error) {
	files := make([]string, 0)
	err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		relPath, _ := filepath.Rel(w.root, path)
		if w.matcher.ShouldIgnore(relPath, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, filepath.ToSlash(relPath))
		return nil
	})
	return files, err
}

func isBinary(content []byte) bool {
	sniff := content
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	return bytes.IndexByte(sniff, 0) != -1
}
