package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/traceback-dev/traceback/internal/fileutil"
	"github.com/traceback-dev/traceback/internal/ignore"
	"github.com/traceback-dev/traceback/internal/languages"
	"github.com/traceback-dev/traceback/internal/search"
)

func RunSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")

	root, err := resolveWorkspaceRoot(cmd)
	if err != nil {
		return err
	}

	logger, closeLog := sessionLogger()
	defer closeLog()

	rules, err := ignore.LoadWorkspaceRules(root)
	if err != nil {
		return fmt.Errorf("failed to load ignore rules: %w", err)
	}
	registry := languages.NewDefaultRegistry()
	parsed, err := registry.ParseDirectory(root, rules)
	if err != nil {
		return fmt.Errorf("failed to parse workspace: %w", err)
	}
	logger.Info("search over parsed workspace", "files", len(parsed.Files), "query", query)

	results := search.Build(parsed).Search(query, limit)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		type row struct {
			Name      string  `json:"name"`
			Kind      string  `json:"kind"`
			Signature string  `json:"signature,omitempty"`
			File      string  `json:"file"`
			Line      int     `json:"line"`
			Score     float64 `json:"score"`
		}
		rows := make([]row, 0, len(results))
		for _, r := range results {
			rows = append(rows, row{
				Name:      r.Document.Name,
				Kind:      r.Document.Kind,
				Signature: r.Document.Signature,
				File:      r.Document.File,
				Line:      r.Document.Line,
				Score:     r.Score,
			})
		}
		return fileutil.PrintJSON(rows)
	}

	if len(results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No symbols matched %q\n", query)
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s  %s:%d\n", r.Document.Kind, r.Document.Name, r.Document.File, r.Document.Line)
		if r.Document.Signature != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "         %s\n", r.Document.Signature)
		}
	}
	return nil
}
