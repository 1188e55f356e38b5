package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "traceback",
		Short: "Iterative root-cause debugging from logs and stack traces",
		Long: `Traceback drives root-cause debugging sessions: given logs, a code
location, or a partial stack trace, it iteratively gathers evidence
(matching files, log pages, source snippets, call-graph context) and
consults an LLM to choose the next investigative step until a root
cause is produced.

Settings live in ~/.traceback/config.yaml and the API key in
~/.traceback/api_key.`,
	}
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "Workspace root for file and call-graph lookups (default: current directory)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [logfile]",
		Short: "Run an iterative root-cause analysis over log input",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunAnalyze,
	}
	analyzeCmd.Flags().String("provider", "", "Oracle provider: anthropic|openai (default from config)")
	analyzeCmd.Flags().String("model", "", "Model override")
	analyzeCmd.Flags().Int("max-iterations", 0, "Iteration cap override")
	analyzeCmd.Flags().Bool("json", false, "Print a machine-readable session report")

	callersCmd := &cobra.Command{
		Use:   "callers <file:line>",
		Short: "Show call sites of the function enclosing a location",
		Args:  cobra.ExactArgs(1),
		RunE:  RunCallers,
	}
	callersCmd.Flags().Bool("json", false, "Print machine-readable caller results")

	stacktraceCmd := &cobra.Command{
		Use:   "stacktrace <file:line>",
		Short: "Synthesize the deepest caller chain for a location",
		Args:  cobra.ExactArgs(1),
		RunE:  RunStackTrace,
	}
	stacktraceCmd.Flags().Int("depth", 0, "Maximum exploration depth (default from config)")
	stacktraceCmd.Flags().Bool("json", false, "Print machine-readable trace results")

	codeCmd := &cobra.Command{
		Use:   "code <file:line>",
		Short: "Print a source window around a location",
		Args:  cobra.ExactArgs(1),
		RunE:  RunCode,
	}
	codeCmd.Flags().Int("context", 0, "Lines of context each side (default from config)")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank workspace symbols against a free-text query",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunSearch,
	}
	searchCmd.Flags().Int("limit", 10, "Maximum number of results")
	searchCmd.Flags().Bool("json", false, "Print machine-readable search results")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("traceback %s\n", version)
		},
	}

	rootCmd.AddCommand(
		analyzeCmd,
		callersCmd,
		stacktraceCmd,
		codeCmd,
		searchCmd,
		versionCmd,
	)

	return rootCmd
}
