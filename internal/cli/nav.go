package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/traceback-dev/traceback/internal/config"
	"github.com/traceback-dev/traceback/internal/fileutil"
	"github.com/traceback-dev/traceback/internal/ignore"
	"github.com/traceback-dev/traceback/internal/workspace"
)

func RunCallers(cmd *cobra.Command, args []string) error {
	loc, err := parseLocation(args[0])
	if err != nil {
		return err
	}
	root, err := resolveWorkspaceRoot(cmd)
	if err != nil {
		return err
	}

	logger, closeLog := sessionLogger()
	defer closeLog()

	resolver, err := buildResolver(root, logger)
	if err != nil {
		return err
	}

	name, ok := resolver.EnclosingFunction(loc)
	if !ok {
		return fmt.Errorf("no function encloses %s", loc)
	}
	callers := resolver.Callers(loc)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return fileutil.PrintJSON(map[string]any{
			"function": name,
			"callers":  callers,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Callers of %s (from %s):\n", name, loc)
	if len(callers) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "  (none found)")
		return nil
	}
	for _, caller := range callers {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s:%d in %s\n", caller.File, caller.Line, caller.Function)
	}
	return nil
}

func RunStackTrace(cmd *cobra.Command, args []string) error {
	loc, err := parseLocation(args[0])
	if err != nil {
		return err
	}
	root, err := resolveWorkspaceRoot(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		return err
	}
	depth, _ := cmd.Flags().GetInt("depth")
	if depth <= 0 {
		depth = cfg.StackDepth
	}

	logger, closeLog := sessionLogger()
	defer closeLog()

	resolver, err := buildResolver(root, logger)
	if err != nil {
		return err
	}

	frames := resolver.StackTrace(loc, depth)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return fileutil.PrintJSON(map[string]any{"frames": frames})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Synthesized stack trace for %s (outermost first):\n", loc)
	for i, frame := range frames {
		label := frame.Location.String()
		if frame.Location.Function != "" {
			label += " (" + frame.Location.Function + ")"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  #%d %s\n", i, label)
		if frame.Context != "" {
			for _, line := range splitLines(frame.Context) {
				fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", line)
			}
		}
	}
	return nil
}

func RunCode(cmd *cobra.Command, args []string) error {
	loc, err := parseLocation(args[0])
	if err != nil {
		return err
	}
	root, err := resolveWorkspaceRoot(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		return err
	}
	contextLines, _ := cmd.Flags().GetInt("context")
	if contextLines <= 0 {
		contextLines = cfg.ContextLines
	}

	logger, closeLog := sessionLogger()
	defer closeLog()

	rules, err := ignore.LoadWorkspaceRules(root)
	if err != nil {
		return fmt.Errorf("failed to load ignore rules: %w", err)
	}
	resolver, err := buildResolver(root, logger)
	if err != nil {
		return err
	}
	ws := workspace.New(root, rules, logger)

	path, ok := ws.ResolveFile(resolver.TranslatePath(loc.File))
	if !ok {
		return fmt.Errorf("file not found: %s", loc.File)
	}
	window, err := ws.ReadWindow(path, loc.Line, contextLines)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), window)
	return nil
}

func splitLines(s string) []string {
	lines := make([]string, 0, 8)
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
