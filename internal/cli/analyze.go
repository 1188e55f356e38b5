package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/traceback-dev/traceback/internal/analysis"
	"github.com/traceback-dev/traceback/internal/config"
	"github.com/traceback-dev/traceback/internal/fileutil"
	"github.com/traceback-dev/traceback/internal/ignore"
	"github.com/traceback-dev/traceback/internal/oracle"
	"github.com/traceback-dev/traceback/internal/ratelimit"
	"github.com/traceback-dev/traceback/internal/workspace"
)

// sharedLimiter gates every oracle call in the process. Quota is a
// process-wide resource; concurrent sessions must share it.
var sharedLimiter *ratelimit.Limiter

func RunAnalyze(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	root, err := resolveWorkspaceRoot(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		return err
	}
	if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
		cfg.Provider = provider
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Model = model
	}
	if maxIter, _ := cmd.Flags().GetInt("max-iterations"); maxIter > 0 {
		cfg.MaxIterations = maxIter
	}

	input, err := readInput(args)
	if err != nil {
		return err
	}
	if len(input) == 0 {
		return fmt.Errorf("no input to analyze: pass a log file or pipe logs on stdin")
	}

	logger, closeLog := sessionLogger()
	defer closeLog()

	apiKey := config.LoadAPIKey(cfg.Provider)
	var gateway oracle.Gateway
	switch cfg.Provider {
	case "openai":
		gateway = oracle.NewOpenAIGateway(apiKey, cfg.Model, cfg.BaseURL, logger)
	case "anthropic", "":
		gateway = oracle.NewAnthropicGateway(apiKey, cfg.Model, cfg.BaseURL, logger)
	default:
		return fmt.Errorf("unknown provider %q (want anthropic or openai)", cfg.Provider)
	}

	if sharedLimiter == nil {
		sharedLimiter = ratelimit.New(cfg.Spacing, cfg.CoolDown, logger)
	}

	rules, err := ignore.LoadWorkspaceRules(root)
	if err != nil {
		return fmt.Errorf("failed to load ignore rules: %w", err)
	}
	resolver, err := buildResolver(root, logger)
	if err != nil {
		return err
	}
	ws := workspace.New(root, rules, logger)
	tools := workspace.NewToolset(ws, resolver, cfg.ContextLines)

	display := func(message string) {
		fmt.Fprintln(cmd.OutOrStdout(), message)
	}
	if asJSON {
		display = nil
	}

	analyzer := analysis.NewAnalyzer(gateway, sharedLimiter, tools, display, logger, analysis.Options{
		PageSize:      cfg.PageSize,
		OverlapSize:   cfg.OverlapSize,
		MaxIterations: cfg.MaxIterations,
	})

	report, err := analyzer.Run(cmd.Context(), input)
	if err != nil {
		return err
	}

	if asJSON {
		return fileutil.PrintJSON(map[string]any{
			"state":      report.State.String(),
			"root_cause": report.RootCause,
			"memo":       report.Memo,
			"iterations": report.Iterations,
			"findings":   report.Findings,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nSession finished: %s (%d iterations, %d findings)\n",
		report.State.String(), report.Iterations, len(report.Findings))
	return nil
}

func readInput(args []string) (string, error) {
	if len(args) == 1 {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read log file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
