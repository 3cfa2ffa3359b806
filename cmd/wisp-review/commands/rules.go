package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wispbit/wisp-review/internal/ruleset"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect codebase rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered rules and their include patterns",
	RunE:  runRulesList,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return fmt.Errorf("resolving workspace root: %w", err)
	}

	rules, err := ruleset.NewLoader(root).Load()
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	if outputFormat == "json" {
		return outputJSON(rules)
	}

	if len(rules) == 0 {
		fmt.Println("No rules found under any .wispbit/rules directory.")
		return nil
	}

	for _, r := range rules {
		dir := r.Directory
		if dir == "" {
			dir = "."
		}
		fmt.Printf("%s (scope: %s, path: %s)\n", r.ID, dir, r.Path)
		for _, p := range r.Include {
			fmt.Printf("  include: %s\n", p)
		}
	}
	return nil
}
