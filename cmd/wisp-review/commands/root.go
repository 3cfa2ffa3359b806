// Package commands implements the wisp-review CLI front-end: a narrow
// collaborator wired against the core review pipeline in internal/.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// workspaceRoot is the root directory reviews run against.
	workspaceRoot string

	// baseBranch is the git ref to diff against. Empty auto-detects
	// main/master.
	baseBranch string

	// model is the chat completion model used for both the review loop
	// and the validator pass.
	model string

	// apiKey is the LLM endpoint's API key.
	apiKey string

	// apiBaseURL overrides the default OpenAI-compatible endpoint.
	apiBaseURL string

	// cacheDBPath overrides the default review cache location.
	cacheDBPath string

	// outputFormat controls output format: text or json.
	outputFormat string

	// concurrency overrides the orchestrator's concurrency cap.
	concurrency int
)

var rootCmd = &cobra.Command{
	Use:   "wisp-review",
	Short: "AI-assisted code review over a local diff",
	Long: `wisp-review reviews the changed files in a git working tree against
codebase rules defined under .wispbit/rules, using a tool-calling LLM
conversation per file and a content-addressed cache to skip unchanged
files.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&workspaceRoot, "root", ".",
		"Workspace root to review (default: current directory)",
	)
	rootCmd.PersistentFlags().StringVar(
		&baseBranch, "base", "",
		"Base branch to diff against (default: auto-detect main/master)",
	)
	rootCmd.PersistentFlags().StringVar(
		&model, "model", "gpt-4o",
		"Chat completion model to use",
	)
	rootCmd.PersistentFlags().StringVar(
		&apiKey, "api-key", "",
		"LLM endpoint API key (default: $WISP_API_KEY)",
	)
	rootCmd.PersistentFlags().StringVar(
		&apiBaseURL, "api-base-url", "",
		"LLM endpoint base URL (default: provider default)",
	)
	rootCmd.PersistentFlags().StringVar(
		&cacheDBPath, "cache-db", "",
		"Path to the review cache database (default: <root>/.wispbit/cache.db)",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text",
		"Output format: text, json",
	)
	rootCmd.PersistentFlags().IntVar(
		&concurrency, "concurrency", 0,
		"Max files reviewed concurrently (default: 10)",
	)

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(cacheCmd)
}
