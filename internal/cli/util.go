package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/traceback-dev/traceback/internal/callgraph"
	"github.com/traceback-dev/traceback/internal/config"
	"github.com/traceback-dev/traceback/internal/ignore"
	"github.com/traceback-dev/traceback/internal/logging"
)

func resolveWorkspaceRoot(cmd *cobra.Command) (string, error) {
	root, _ := cmd.Flags().GetString("workspace")
	if root == "" {
		root, _ = cmd.InheritedFlags().GetString("workspace")
	}
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		return cwd, nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid workspace path %q: %w", root, err)
	}
	return abs, nil
}

// parseLocation splits a "file:line" query.
func parseLocation(query string) (callgraph.Location, error) {
	idx := strings.LastIndex(query, ":")
	if idx <= 0 || idx == len(query)-1 {
		return callgraph.Location{}, fmt.Errorf("expected <file:line>, got %q", query)
	}
	line, err := strconv.Atoi(query[idx+1:])
	if err != nil || line < 1 {
		return callgraph.Location{}, fmt.Errorf("invalid line number in %q", query)
	}
	return callgraph.Location{File: query[:idx], Line: line}, nil
}

// sessionLogger opens the file-backed logger, falling back to a discard
// logger when the settings directory is unusable.
func sessionLogger() (*slog.Logger, func() error) {
	dir, err := config.Dir()
	if err != nil {
		return logging.Discard(), func() error { return nil }
	}
	logger, closeLog, err := logging.New(dir, slog.LevelDebug)
	if err != nil {
		return logging.Discard(), func() error { return nil }
	}
	return logger, closeLog
}

func buildResolver(root string, logger *slog.Logger) (*callgraph.Resolver, error) {
	rules, err := ignore.LoadWorkspaceRules(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}
	return callgraph.NewResolver(root, rules, logger)
}
